package genotype

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Zhiwen-Owen-Jiang/simu-package/datafile"
)

// Read parses a sparse genotype in the triplet text format: optional
// '#' comment lines, a header "<variants> <subjects>", then one
// "<variant> <subject> <count>" line per non-zero entry (0-based).
func Read(r io.Reader) (*Matrix, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	nVariants, nSubjects := -1, -1
	var entries []Entry
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if nVariants < 0 {
			if len(fields) != 2 {
				return nil, fmt.Errorf("line %d: expected header \"<variants> <subjects>\"", line)
			}
			var err error
			if nVariants, err = strconv.Atoi(fields[0]); err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			if nSubjects, err = strconv.Atoi(fields[1]); err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			continue
		}
		if len(fields) != 3 {
			return nil, fmt.Errorf("line %d: expected \"<variant> <subject> <count>\"", line)
		}
		var e Entry
		var err error
		for i, p := range []*int{&e.Variant, &e.Subject, &e.Count} {
			if *p, err = strconv.Atoi(fields[i]); err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if nVariants < 0 {
		return nil, fmt.Errorf("missing header")
	}
	return New(nVariants, nSubjects, entries)
}

// ReadFile reads a (possibly compressed, possibly gs://) genotype file.
func ReadFile(path string) (*Matrix, error) {
	f, err := datafile.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Write writes the matrix in the format accepted by Read.
func Write(w io.Writer, m *Matrix) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d %d\n", m.nVariants, m.nSubjects)
	for v := 0; v < m.nVariants; v++ {
		subjects, counts := m.Row(v)
		for k, s := range subjects {
			fmt.Fprintf(bw, "%d %d %d\n", v, s, counts[k])
		}
	}
	return bw.Flush()
}
