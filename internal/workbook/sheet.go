package workbook

import "fmt"

// Sheet is one worksheet read into memory. The first row is the header.
type Sheet struct {
	Name    string
	Headers []string
	Rows    [][]string
}

// Column returns the non-empty values of the first column whose header is
// exactly name, in row order. Blank cells are dropped, so the position of a
// value in the result is its position among non-empty cells.
func (s *Sheet) Column(name string) ([]string, error) {
	idx := -1
	for i, h := range s.Headers {
		if h == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q in sheet %q", ErrColumnNotFound, name, s.Name)
	}

	var values []string
	for _, row := range s.Rows {
		if idx < len(row) && row[idx] != "" {
			values = append(values, row[idx])
		}
	}
	return values, nil
}
