package puzzle

import (
	"math/rand"
	"sync"
	"time"

	C "github.com/nijks777/sudoku/constant"

	E "github.com/sagernet/sing/common/exceptions"
)

// removalTargets maps grid size and difficulty to the number of cells to
// blank when carving a puzzle out of a completed grid.
var removalTargets = map[int]map[Difficulty]int{
	4:  {DifficultyEasy: 7, DifficultyMedium: 8, DifficultyHard: 10},
	6:  {DifficultyEasy: 18, DifficultyMedium: 24, DifficultyHard: 26},
	9:  {DifficultyEasy: 40, DifficultyMedium: 50, DifficultyHard: 62},
	12: {DifficultyEasy: 70, DifficultyMedium: 90, DifficultyHard: 110},
}

func cellsToRemove(difficulty Difficulty, size int) int {
	if targets, loaded := removalTargets[size]; loaded {
		return targets[difficulty]
	}
	var ratio float64
	switch difficulty {
	case DifficultyEasy:
		ratio = 0.4
	case DifficultyMedium:
		ratio = 0.55
	default:
		ratio = 0.7
	}
	return int(float64(size*size) * ratio)
}

type GeneratorOptions struct {
	Seed int64
}

// Generator produces unique-solution puzzles. Each Generate call derives a
// child RNG under the seed lock and then runs on caller-owned grids only,
// so concurrent calls are safe.
type Generator struct {
	seedAccess sync.Mutex
	seedSource *rand.Rand
}

func NewGenerator(options GeneratorOptions) *Generator {
	seed := options.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{
		seedSource: rand.New(rand.NewSource(seed)),
	}
}

func (g *Generator) rng() *rand.Rand {
	g.seedAccess.Lock()
	defer g.seedAccess.Unlock()
	return rand.New(rand.NewSource(g.seedSource.Int63()))
}

// Generate builds a completed grid, carves cells while preserving solution
// uniqueness, and attaches precomputed hints. It retries the fill step up
// to the attempt budget; exhausting it is fatal for the call and the caller
// must not substitute a different puzzle.
func (g *Generator) Generate(difficulty Difficulty, size int) (*GeneratedPuzzle, error) {
	config, err := ConfigForSize(size)
	if err != nil {
		return nil, err
	}
	rng := g.rng()
	solution, err := completedGrid(config, rng)
	if err != nil {
		return nil, E.Cause(err, "generate ", difficulty, " ", size, "x", size, " puzzle")
	}
	carved := carve(config, solution, cellsToRemove(difficulty, size), rng)
	return &GeneratedPuzzle{
		Puzzle:     carved,
		Solution:   solution,
		Difficulty: difficulty,
		GridSize:   size,
		Hints:      generateHints(carved, solution, C.HintCount, rng),
	}, nil
}

func completedGrid(config GridConfig, rng *rand.Rand) (Grid, error) {
	for attempt := 0; attempt < C.GenerateAttempts; attempt++ {
		grid := NewGrid(config.Size)
		FillDiagonalBoxes(config, grid, rng)
		if !solveShuffled(config, grid, rng) {
			continue
		}
		if CountEmptyCells(grid) > 0 {
			continue
		}
		return grid, nil
	}
	return nil, E.New("no completed grid after ", C.GenerateAttempts, " attempts")
}

// carve copies the solution and zeroes cells in a shuffled order, keeping a
// removal only when the grid still has exactly one solution. It can stop
// short of the target when every remaining removal would break uniqueness;
// the result is then a puzzle with fewer empties than requested.
func carve(config GridConfig, solution Grid, target int, rng *rand.Rand) Grid {
	puzzle := solution.Clone()
	positions := make([]int, config.Size*config.Size)
	for i := range positions {
		positions[i] = i
	}
	rng.Shuffle(len(positions), func(i, j int) {
		positions[i], positions[j] = positions[j], positions[i]
	})
	var removed int
	for _, position := range positions {
		if removed >= target {
			break
		}
		row := position / config.Size
		col := position % config.Size
		value := puzzle[row][col]
		puzzle[row][col] = 0
		if CountSolutions(config, puzzle, 2) == 1 {
			removed++
		} else {
			puzzle[row][col] = value
		}
	}
	return puzzle
}

func generateHints(puzzle Grid, solution Grid, count int, rng *rand.Rand) []Hint {
	var positions []Hint
	for row := range puzzle {
		for col := range puzzle[row] {
			if puzzle[row][col] == 0 {
				positions = append(positions, Hint{Row: row, Col: col, Value: solution[row][col]})
			}
		}
	}
	rng.Shuffle(len(positions), func(i, j int) {
		positions[i], positions[j] = positions[j], positions[i]
	})
	if count > len(positions) {
		count = len(positions)
	}
	return positions[:count]
}
