package api

import (
	"net/http"
	"strconv"

	"github.com/nijks777/sudoku/provider"
	"github.com/nijks777/sudoku/puzzle"
	"github.com/nijks777/sudoku/storage"
	"github.com/sagernet/sing/common/json"

	"github.com/go-chi/render"
)

type scoreRequest struct {
	PlayerName  string `json:"playerName"`
	Difficulty  string `json:"difficulty"`
	GridSize    int    `json:"gridSize"`
	TimeSeconds int    `json:"timeSeconds"`
	Mistakes    int    `json:"mistakes"`
	HintsUsed   int    `json:"hintsUsed"`
}

func submitScore(puzzleProvider *provider.PuzzleProvider) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		var request scoreRequest
		err := json.NewDecoder(r.Body).Decode(&request)
		if err != nil || request.PlayerName == "" || request.TimeSeconds <= 0 {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, ErrBadRequest)
			return
		}
		score := storage.Score{
			PlayerName:  request.PlayerName,
			Difficulty:  request.Difficulty,
			GridSize:    request.GridSize,
			TimeSeconds: request.TimeSeconds,
			Mistakes:    request.Mistakes,
			HintsUsed:   request.HintsUsed,
		}
		err = puzzleProvider.SubmitScore(&score)
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, newError(err.Error()))
			return
		}
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, score)
	}
}

func leaderboard(puzzleProvider *provider.PuzzleProvider) func(w http.ResponseWriter, r *http.Request) {
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
		limit := 0
		if limitText := r.URL.Query().Get("limit"); limitText != "" {
			parsed, err := strconv.Atoi(limitText)
			if err != nil {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, newError("invalid limit"))
				return
			}
			limit = parsed
		}
		scores, err := puzzleProvider.Leaderboard(difficulty, gridSize, limit)
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, newError(err.Error()))
			return
		}
		if scores == nil {
			scores = []*storage.Score{}
		}
		render.JSON(w, r, scores)
	}
}
