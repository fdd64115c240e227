package datafile

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// ReadMatrix reads a tab separated numeric matrix. Lines starting with
// '#' are ignored; every row must have the same number of columns.
func ReadMatrix(r io.Reader) (*mat.Dense, error) {
	c := csv.NewReader(r)
	c.Comma = '\t'
	c.Comment = '#'
	c.ReuseRecord = true

	var data []float64
	rows, cols := 0, 0
	for {
		record, err := c.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if rows == 0 {
			cols = len(record)
		}
		for j, s := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return nil, fmt.Errorf("row %d, column %d: %w", rows+1, j+1, err)
			}
			data = append(data, v)
		}
		rows++
	}
	if rows == 0 || cols == 0 {
		return nil, fmt.Errorf("empty matrix")
	}
	return mat.NewDense(rows, cols, data), nil
}

// ReadMatrixFile opens path and reads a matrix from it.
func ReadMatrixFile(path string) (*mat.Dense, error) {
	f, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := ReadMatrix(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// WriteMatrix writes m as a tab separated matrix.
func WriteMatrix(w io.Writer, m mat.Matrix) error {
	rows, cols := m.Dims()
	buf := make([]byte, 0, 32*cols)
	for i := 0; i < rows; i++ {
		buf = buf[:0]
		for j := 0; j < cols; j++ {
			if j > 0 {
				buf = append(buf, '\t')
			}
			buf = strconv.AppendFloat(buf, m.At(i, j), 'g', -1, 64)
		}
		buf = append(buf, '\n')
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	return nil
}

// ReadInts reads one integer per line, ignoring blank lines and '#'
// comments. Values written as floats with zero fraction (e.g. "12.0",
// as produced by numpy) are accepted.
func ReadInts(r io.Reader) ([]int, error) {
	c := csv.NewReader(r)
	c.Comma = '\t'
	c.Comment = '#'
	c.FieldsPerRecord = -1
	var res []int
	for line := 1; ; line++ {
		record, err := c.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		for _, s := range record {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			v, err := strconv.Atoi(s)
			if err != nil {
				f, ferr := strconv.ParseFloat(s, 64)
				if ferr != nil || f != float64(int(f)) {
					return nil, fmt.Errorf("line %d: not an integer: %q", line, s)
				}
				v = int(f)
			}
			res = append(res, v)
		}
	}
	return res, nil
}
