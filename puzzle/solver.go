package puzzle

import "math/rand"

// Solve completes the grid in place by recursive backtracking, trying
// candidate values in ascending order. A false return means no legal
// completion exists from the current state, which is normal control flow
// during search, not an error.
func Solve(config GridConfig, grid Grid) bool {
	row, col, found := FindEmptyCell(grid)
	if !found {
		return true
	}
	for value := 1; value <= config.Size; value++ {
		if !IsValidPlacement(config, grid, row, col, value) {
			continue
		}
		grid[row][col] = value
		if Solve(config, grid) {
			return true
		}
		grid[row][col] = 0
	}
	return false
}

// solveShuffled is the same recursion as Solve with a per-cell shuffled
// candidate order, producing varied completed grids across runs.
func solveShuffled(config GridConfig, grid Grid, rng *rand.Rand) bool {
	row, col, found := FindEmptyCell(grid)
	if !found {
		return true
	}
	values := make([]int, config.Size)
	for i := range values {
		values[i] = i + 1
	}
	rng.Shuffle(len(values), func(i, j int) {
		values[i], values[j] = values[j], values[i]
	})
	for _, value := range values {
		if !IsValidPlacement(config, grid, row, col, value) {
			continue
		}
		grid[row][col] = value
		if solveShuffled(config, grid, rng) {
			return true
		}
		grid[row][col] = 0
	}
	return false
}

// FillDiagonalBoxes fills the boxes at origins (k*BoxRows, k*BoxCols) with
// random permutations. These boxes pairwise share no row or column, so they
// can be filled without cross-checking, cutting backtracking depth before
// the full recursive fill.
func FillDiagonalBoxes(config GridConfig, grid Grid, rng *rand.Rand) {
	values := make([]int, config.Size)
	for i := range values {
		values[i] = i + 1
	}
	for k := 0; k*config.BoxRows < config.Size && k*config.BoxCols < config.Size; k++ {
		rng.Shuffle(len(values), func(i, j int) {
			values[i], values[j] = values[j], values[i]
		})
		index := 0
		for r := 0; r < config.BoxRows; r++ {
			for c := 0; c < config.BoxCols; c++ {
				grid[k*config.BoxRows+r][k*config.BoxCols+c] = values[index]
				index++
			}
		}
	}
}

// CountSolutions enumerates completions of the grid up to limit, working on
// a private copy so the caller's grid is never mutated.
func CountSolutions(config GridConfig, grid Grid, limit int) int {
	work := grid.Clone()
	var count int
	var search func() bool
	search = func() bool {
		row, col, found := FindEmptyCell(work)
		if !found {
			count++
			return count >= limit
		}
		for value := 1; value <= config.Size; value++ {
			if !IsValidPlacement(config, work, row, col, value) {
				continue
			}
			work[row][col] = value
			if search() {
				work[row][col] = 0
				return true
			}
			work[row][col] = 0
		}
		return false
	}
	search()
	return count
}
