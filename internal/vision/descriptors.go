package vision

// DefaultMaxDescriptors is the number of descriptor rows kept by Encode.
const DefaultMaxDescriptors = 100

// Descriptors is a row-major descriptor matrix, one row per keypoint.
// Every row has exactly Cols values.
type Descriptors struct {
	Rows [][]float64
	Cols int
}

// Len returns the number of rows.
func (d Descriptors) Len() int {
	return len(d.Rows)
}

// Empty reports whether the matrix has no rows.
func (d Descriptors) Empty() bool {
	return len(d.Rows) == 0
}

// FuseDescriptors concatenates the columns of a and b after truncating both
// to the shorter row count. Row i of the result is a.Rows[i] followed by
// b.Rows[i].
//
// Rows are paired by position only; the two detectors do not report keypoints
// in corresponding order, so row i of a and row i of b generally describe
// different locations. The classifier was trained on vectors built this way,
// so the pairing must stay as it is.
func FuseDescriptors(a, b Descriptors) Descriptors {
	n := a.Len()
	if b.Len() < n {
		n = b.Len()
	}

	fused := Descriptors{
		Rows: make([][]float64, n),
		Cols: a.Cols + b.Cols,
	}
	for i := 0; i < n; i++ {
		row := make([]float64, 0, fused.Cols)
		row = append(row, a.Rows[i]...)
		row = append(row, b.Rows[i]...)
		fused.Rows[i] = row
	}

	return fused
}

// Encode flattens d into a vector of exactly maxDescriptors*d.Cols values.
// Extra rows are dropped; missing rows are zero-filled at the end.
func Encode(d Descriptors, maxDescriptors int) []float64 {
	if maxDescriptors <= 0 {
		maxDescriptors = DefaultMaxDescriptors
	}

	vec := make([]float64, maxDescriptors*d.Cols)
	rows := d.Len()
	if rows > maxDescriptors {
		rows = maxDescriptors
	}
	for i := 0; i < rows; i++ {
		copy(vec[i*d.Cols:(i+1)*d.Cols], d.Rows[i])
	}

	return vec
}
