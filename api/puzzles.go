package api

import (
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/nijks777/sudoku/log"
	"github.com/nijks777/sudoku/provider"
	"github.com/nijks777/sudoku/puzzle"
	"github.com/nijks777/sudoku/storage"
	"github.com/sagernet/sing/common/json"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

func puzzleRouter(logger log.ContextLogger, puzzleProvider *provider.PuzzleProvider) http.Handler {
	r := chi.NewRouter()
	r.Get("/", takePuzzle(logger, puzzleProvider))
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", getPuzzle(puzzleProvider))
		r.Get("/hint", getHint(puzzleProvider))
		r.Post("/check", checkPuzzle(puzzleProvider))
		r.Get("/solution", getSolution(puzzleProvider))
	})
	return r
}

// puzzleResponse is the served view of a stored puzzle: the solution stays
// on the server, hints and the give-up reveal have their own endpoints.
type puzzleResponse struct {
	ID         string            `json:"id"`
	Puzzle     puzzle.Grid       `json:"puzzle"`
	Difficulty puzzle.Difficulty `json:"difficulty"`
	GridSize   int               `json:"gridSize"`
	HintCount  int               `json:"hintCount"`
	CreatedAt  time.Time         `json:"createdAt"`
}

func renderPuzzle(w http.ResponseWriter, r *http.Request, stored *storage.StoredPuzzle) {
	render.JSON(w, r, puzzleResponse{
		ID:         stored.ID,
		Puzzle:     stored.Puzzle,
		Difficulty: stored.Difficulty,
		GridSize:   stored.GridSize,
		HintCount:  len(stored.Hints),
		CreatedAt:  stored.CreatedAt,
	})
}

func takePuzzle(logger log.ContextLogger, puzzleProvider *provider.PuzzleProvider) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		difficulty := r.URL.Query().Get("difficulty")
		if difficulty == "" {
			difficulty = string(puzzle.DifficultyEasy)
		}
		gridSize := 9
		if sizeText := r.URL.Query().Get("size"); sizeText != "" {
			parsed, err := strconv.Atoi(sizeText)
			if err != nil {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, newError("invalid size"))
				return
			}
			gridSize = parsed
		}
		stored, err := puzzleProvider.Take(r.Context(), difficulty, gridSize)
		if err != nil {
			logger.ErrorContext(r.Context(), "take puzzle: ", err)
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, newError(err.Error()))
			return
		}
		renderPuzzle(w, r, stored)
	}
}

func fetchPuzzle(w http.ResponseWriter, r *http.Request, puzzleProvider *provider.PuzzleProvider) (*storage.StoredPuzzle, bool) {
	stored, err := puzzleProvider.Puzzle(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, ErrNotFound)
		} else {
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, newError(err.Error()))
		}
		return nil, false
	}
	return stored, true
}

func getPuzzle(puzzleProvider *provider.PuzzleProvider) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		stored, loaded := fetchPuzzle(w, r, puzzleProvider)
		if !loaded {
			return
		}
		renderPuzzle(w, r, stored)
	}
}

// getHint serves the precomputed hints in order: `used` is how many the
// client consumed already, and the response is the next one.
func getHint(puzzleProvider *provider.PuzzleProvider) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		stored, loaded := fetchPuzzle(w, r, puzzleProvider)
		if !loaded {
			return
		}
		used := 0
		if usedText := r.URL.Query().Get("used"); usedText != "" {
			parsed, err := strconv.Atoi(usedText)
			if err != nil || parsed < 0 {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, newError("invalid used count"))
				return
			}
			used = parsed
		}
		if used >= len(stored.Hints) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, newError("no hints remaining"))
			return
		}
		render.JSON(w, r, render.M{
			"hint":      stored.Hints[used],
			"remaining": len(stored.Hints) - used - 1,
		})
	}
}

type checkRequest struct {
	Grid puzzle.Grid `json:"grid"`
}

type checkResponse struct {
	Valid    bool `json:"valid"`
	Complete bool `json:"complete"`
	Correct  bool `json:"correct"`
}

func checkPuzzle(puzzleProvider *provider.PuzzleProvider) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		stored, loaded := fetchPuzzle(w, r, puzzleProvider)
		if !loaded {
			return
		}
		var request checkRequest
		err := json.NewDecoder(r.Body).Decode(&request)
		if err != nil || len(request.Grid) != stored.GridSize {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, ErrBadRequest)
			return
		}
		for _, row := range request.Grid {
			if len(row) != stored.GridSize {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, ErrBadRequest)
				return
			}
		}
		config, err := puzzle.ConfigForSize(stored.GridSize)
		if err != nil {
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, newError(err.Error()))
			return
		}
		response := checkResponse{
			Valid:    true,
			Complete: puzzle.CountEmptyCells(request.Grid) == 0,
			Correct:  true,
		}
		for row := 0; row < stored.GridSize; row++ {
			for col := 0; col < stored.GridSize; col++ {
				value := request.Grid[row][col]
				if value == 0 {
					response.Correct = false
					continue
				}
				if value < 1 || value > stored.GridSize {
					response.Valid = false
					response.Correct = false
					continue
				}
				if !puzzle.IsValidPlacement(config, request.Grid, row, col, value) {
					response.Valid = false
				}
				if value != stored.Solution[row][col] {
					response.Correct = false
				}
			}
		}
		render.JSON(w, r, response)
	}
}

func getSolution(puzzleProvider *provider.PuzzleProvider) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		stored, loaded := fetchPuzzle(w, r, puzzleProvider)
		if !loaded {
			return
		}
		render.JSON(w, r, render.M{
			"id":       stored.ID,
			"solution": stored.Solution,
		})
	}
}
