package dataset

// Normalize scales values to [0, 1] via min-max scaling. When every value
// is identical the output is all zeros; a constant feature carries no
// signal, so mapping it to zero is the defined degenerate policy rather
// than an error. The caller guarantees a non-empty input.
func Normalize(values []float64) []float64 {
	minVal, maxVal := values[0], values[0]
	for _, v := range values[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}

	out := make([]float64, len(values))
	if maxVal == minVal {
		return out
	}
	span := maxVal - minVal
	for i, v := range values {
		out[i] = (v - minVal) / span
	}
	return out
}

// NormalizeColumns min-max scales each column of a row-major matrix,
// returning a new matrix. Every driver normalizes every feature before
// scoring so no single feature dominates the distance or split geometry.
func NormalizeColumns(rows [][]float64) [][]float64 {
	if len(rows) == 0 {
		return nil
	}

	nCols := len(rows[0])
	out := make([][]float64, len(rows))
	for i := range out {
		out[i] = make([]float64, nCols)
	}

	col := make([]float64, len(rows))
	for c := 0; c < nCols; c++ {
		for r := range rows {
			col[r] = rows[r][c]
		}
		norm := Normalize(col)
		for r := range rows {
			out[r][c] = norm[r]
		}
	}
	return out
}
