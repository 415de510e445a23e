package puzzle

import (
	E "github.com/sagernet/sing/common/exceptions"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

func ParseDifficulty(difficulty string) (Difficulty, error) {
	switch Difficulty(difficulty) {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return Difficulty(difficulty), nil
	default:
		return "", E.New("unknown difficulty: ", difficulty)
	}
}

// GridConfig describes the shape of a grid: the side length and the
// dimensions of its sub-boxes, with BoxRows*BoxCols == Size.
type GridConfig struct {
	Size    int
	BoxRows int
	BoxCols int
}

func ConfigForSize(size int) (GridConfig, error) {
	switch size {
	case 4:
		return GridConfig{Size: 4, BoxRows: 2, BoxCols: 2}, nil
	case 6:
		return GridConfig{Size: 6, BoxRows: 2, BoxCols: 3}, nil
	case 9:
		return GridConfig{Size: 9, BoxRows: 3, BoxCols: 3}, nil
	case 12:
		return GridConfig{Size: 12, BoxRows: 3, BoxCols: 4}, nil
	default:
		return GridConfig{}, E.New("unsupported grid size: ", size)
	}
}

// Grid is a square board of values in [0, size], 0 denoting an empty cell.
type Grid [][]int

func NewGrid(size int) Grid {
	grid := make(Grid, size)
	for row := range grid {
		grid[row] = make([]int, size)
	}
	return grid
}

func (g Grid) Clone() Grid {
	grid := make(Grid, len(g))
	for row := range g {
		grid[row] = make([]int, len(g[row]))
		copy(grid[row], g[row])
	}
	return grid
}

type Hint struct {
	Row   int `json:"row"`
	Col   int `json:"col"`
	Value int `json:"value"`
}

// GeneratedPuzzle is immutable once created. Storage assigns an identity
// on insert.
type GeneratedPuzzle struct {
	Puzzle     Grid       `json:"puzzle"`
	Solution   Grid       `json:"solution"`
	Difficulty Difficulty `json:"difficulty"`
	GridSize   int        `json:"gridSize"`
	Hints      []Hint     `json:"hints,omitempty"`
}
