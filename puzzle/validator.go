package puzzle

// IsValidPlacement reports whether value appears nowhere else in the row,
// column, or box containing (row, col). The cell itself is skipped, so the
// same predicate serves both empty-cell placement checks and filled-grid
// consistency checks. The caller guarantees grid dimensions match config.
func IsValidPlacement(config GridConfig, grid Grid, row int, col int, value int) bool {
	for i := 0; i < config.Size; i++ {
		if i != col && grid[row][i] == value {
			return false
		}
		if i != row && grid[i][col] == value {
			return false
		}
	}
	boxRow := row - row%config.BoxRows
	boxCol := col - col%config.BoxCols
	for r := boxRow; r < boxRow+config.BoxRows; r++ {
		for c := boxCol; c < boxCol+config.BoxCols; c++ {
			if (r != row || c != col) && grid[r][c] == value {
				return false
			}
		}
	}
	return true
}

// FindEmptyCell returns the first empty cell in row-major order.
func FindEmptyCell(grid Grid) (row int, col int, found bool) {
	for r := range grid {
		for c := range grid[r] {
			if grid[r][c] == 0 {
				return r, c, true
			}
		}
	}
	return 0, 0, false
}

// IsValidGrid reports whether the grid is completely filled and every cell
// satisfies the row, column, and box constraints against all other cells.
func IsValidGrid(config GridConfig, grid Grid) bool {
	for row := range grid {
		for col := range grid[row] {
			value := grid[row][col]
			if value == 0 {
				return false
			}
			if !IsValidPlacement(config, grid, row, col, value) {
				return false
			}
		}
	}
	return true
}

func CountEmptyCells(grid Grid) int {
	var count int
	for row := range grid {
		for _, value := range grid[row] {
			if value == 0 {
				count++
			}
		}
	}
	return count
}
