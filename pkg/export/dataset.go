// Package export renders tabular datasets as downloadable documents.
package export

import "fmt"

// Dataset is an ordered table. Each row holds one cell per header.
type Dataset struct {
	Title   string
	Headers []string
	Rows    [][]string
}

func (d Dataset) check(format string) error {
	if len(d.Headers) == 0 {
		return fmt.Errorf("%s requires at least one header", format)
	}
	for i, row := range d.Rows {
		if len(row) != len(d.Headers) {
			return fmt.Errorf("%s row %d has %d cells, want %d", format, i+1, len(row), len(d.Headers))
		}
	}
	return nil
}
