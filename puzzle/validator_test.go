package puzzle

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testConfig4(t *testing.T) GridConfig {
	config, err := ConfigForSize(4)
	require.NoError(t, err)
	return config
}

func TestIsValidPlacement(t *testing.T) {
	t.Parallel()
	config := testConfig4(t)
	grid := Grid{
		{1, 2, 0, 0},
		{3, 4, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
	}
	for _, testCase := range []struct {
		name     string
		row, col int
		value    int
		valid    bool
	}{
		{"open cell", 2, 2, 1, true},
		{"row conflict", 0, 2, 1, false},
		{"column conflict", 2, 0, 3, false},
		{"box conflict", 0, 1, 3, false},
		{"no conflict across box", 1, 2, 2, true},
		{"no conflict top right", 0, 2, 3, true},
	} {
		t.Run(testCase.name, func(t *testing.T) {
			require.Equal(t, testCase.valid, IsValidPlacement(config, grid, testCase.row, testCase.col, testCase.value))
		})
	}
}

func TestIsValidPlacementNoMutation(t *testing.T) {
	t.Parallel()
	config := testConfig4(t)
	grid := Grid{
		{1, 2, 0, 0},
		{3, 4, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
	}
	snapshot := grid.Clone()
	IsValidPlacement(config, grid, 2, 2, 1)
	IsValidPlacement(config, grid, 0, 2, 1)
	require.Equal(t, snapshot, grid)
}

func TestIsValidPlacementSkipsSelf(t *testing.T) {
	t.Parallel()
	config := testConfig4(t)
	grid := Grid{
		{1, 2, 3, 4},
		{3, 4, 1, 2},
		{2, 1, 4, 3},
		{4, 3, 2, 1},
	}
	// A filled cell checked against its own value must pass, which is what
	// makes IsValidGrid reuse the same predicate.
	require.True(t, IsValidPlacement(config, grid, 0, 0, 1))
	require.False(t, IsValidPlacement(config, grid, 0, 0, 2))
}

func TestFindEmptyCell(t *testing.T) {
	t.Parallel()
	grid := Grid{
		{1, 2, 3, 4},
		{3, 4, 0, 2},
		{2, 0, 4, 3},
		{4, 3, 2, 1},
	}
	row, col, found := FindEmptyCell(grid)
	require.True(t, found)
	require.Equal(t, 1, row)
	require.Equal(t, 2, col)

	full := Grid{
		{1, 2, 3, 4},
		{3, 4, 1, 2},
		{2, 1, 4, 3},
		{4, 3, 2, 1},
	}
	_, _, found = FindEmptyCell(full)
	require.False(t, found)
}

func TestIsValidGrid(t *testing.T) {
	t.Parallel()
	config := testConfig4(t)
	valid := Grid{
		{1, 2, 3, 4},
		{3, 4, 1, 2},
		{2, 1, 4, 3},
		{4, 3, 2, 1},
	}
	require.True(t, IsValidGrid(config, valid))

	incomplete := valid.Clone()
	incomplete[3][3] = 0
	require.False(t, IsValidGrid(config, incomplete))

	conflicting := valid.Clone()
	conflicting[3][3] = 2
	require.False(t, IsValidGrid(config, conflicting))
}

func TestCountEmptyCells(t *testing.T) {
	t.Parallel()
	require.Equal(t, 16, CountEmptyCells(NewGrid(4)))
	grid := Grid{
		{1, 2, 3, 4},
		{3, 4, 0, 2},
		{2, 0, 4, 3},
		{4, 3, 2, 1},
	}
	require.Equal(t, 2, CountEmptyCells(grid))
}
