package puzzle

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSolve(t *testing.T) {
	t.Parallel()
	config := testConfig4(t)
	grid := Grid{
		{1, 0, 0, 4},
		{0, 4, 1, 0},
		{0, 1, 4, 0},
		{4, 0, 0, 1},
	}
	require.True(t, Solve(config, grid))
	require.Equal(t, Grid{
		{1, 2, 3, 4},
		{3, 4, 1, 2},
		{2, 1, 4, 3},
		{4, 3, 2, 1},
	}, grid)
}

func TestSolveUnsolvable(t *testing.T) {
	t.Parallel()
	config := testConfig4(t)
	// (0,2) admits no value: 1 and 2 conflict with the row, 3 and 4 with
	// the column.
	grid := Grid{
		{1, 2, 0, 0},
		{0, 0, 3, 0},
		{0, 0, 4, 0},
		{0, 0, 0, 0},
	}
	snapshot := grid.Clone()
	require.False(t, Solve(config, grid))
	require.Equal(t, snapshot, grid, "failed search must leave the grid as it found it")
}

func TestSolveEmptyGrid(t *testing.T) {
	t.Parallel()
	for _, size := range []int{4, 6, 9} {
		config, err := ConfigForSize(size)
		require.NoError(t, err)
		grid := NewGrid(size)
		require.True(t, Solve(config, grid))
		require.True(t, IsValidGrid(config, grid))
	}
}

func TestFillDiagonalBoxes(t *testing.T) {
	t.Parallel()
	for _, size := range []int{4, 6, 9, 12} {
		config, err := ConfigForSize(size)
		require.NoError(t, err)
		grid := NewGrid(size)
		rng := rand.New(rand.NewSource(1))
		FillDiagonalBoxes(config, grid, rng)
		for k := 0; k*config.BoxRows < config.Size && k*config.BoxCols < config.Size; k++ {
			seen := make(map[int]bool)
			for r := 0; r < config.BoxRows; r++ {
				for c := 0; c < config.BoxCols; c++ {
					value := grid[k*config.BoxRows+r][k*config.BoxCols+c]
					require.NotZero(t, value)
					require.False(t, seen[value], "duplicate %d in diagonal box %d of size %d", value, k, size)
					seen[value] = true
				}
			}
		}
		grid2 := NewGrid(size)
		FillDiagonalBoxes(config, grid2, rng)
		require.True(t, Solve(config, grid2), "diagonal boxes must never make the grid unsolvable")
	}
}

func TestSolveShuffledVariety(t *testing.T) {
	t.Parallel()
	config := testConfig4(t)
	solutions := make(map[string]bool)
	for seed := int64(0); seed < 16; seed++ {
		grid := NewGrid(4)
		require.True(t, solveShuffled(config, grid, rand.New(rand.NewSource(seed))))
		require.True(t, IsValidGrid(config, grid))
		var key string
		for _, row := range grid {
			for _, value := range row {
				key += string(rune('0' + value))
			}
		}
		solutions[key] = true
	}
	require.Greater(t, len(solutions), 1, "shuffled fill should not always produce the same grid")
}

func TestCountSolutions(t *testing.T) {
	t.Parallel()
	config := testConfig4(t)

	empty := NewGrid(4)
	require.Equal(t, 2, CountSolutions(config, empty, 2))
	require.Equal(t, NewGrid(4), empty, "CountSolutions must not mutate the caller's grid")

	full := Grid{
		{1, 2, 3, 4},
		{3, 4, 1, 2},
		{2, 1, 4, 3},
		{4, 3, 2, 1},
	}
	require.Equal(t, 1, CountSolutions(config, full, 2))

	contradiction := Grid{
		{1, 1, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
	}
	require.Equal(t, 0, CountSolutions(config, contradiction, 2))
}

func TestCountSolutionsLimit(t *testing.T) {
	t.Parallel()
	config := testConfig4(t)
	require.Equal(t, 1, CountSolutions(config, NewGrid(4), 1))
	require.Equal(t, 3, CountSolutions(config, NewGrid(4), 3))
}
