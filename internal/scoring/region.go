package scoring

// LocateRegion maps a tap at normalized image coordinates (0..1 on both axes) to the label
// of the grid cell containing it. Coordinates outside the image snap to the nearest edge
// cell. ok is false for an empty grid or a ragged row that has no such column.
func LocateRegion(grid [][]string, x, y float64) (label string, ok bool) {
	rows := len(grid)
	if rows == 0 || len(grid[0]) == 0 {
		return "", false
	}
	cols := len(grid[0])

	col := cell(x, cols)
	row := cell(y, rows)
	if col >= len(grid[row]) {
		return "", false
	}
	return grid[row][col], true
}

func cell(v float64, n int) int {
	i := int(v * float64(n))
	if v < 0 || i < 0 {
		return 0
	}
	if i > n-1 {
		return n - 1
	}
	return i
}
