package export

import "fmt"

// Dataset is tabular export content. Every row holds one cell per header.
type Dataset struct {
	Headers []string
	Rows    [][]string
}

// AddRow appends a row, rejecting rows whose width does not match the headers.
func (d *Dataset) AddRow(cells ...string) error {
	if len(cells) != len(d.Headers) {
		return fmt.Errorf("row has %d cells, want %d", len(cells), len(d.Headers))
	}
	d.Rows = append(d.Rows, cells)
	return nil
}

func (d Dataset) validate() error {
	if len(d.Headers) == 0 {
		return fmt.Errorf("dataset requires at least one header")
	}
	for i, row := range d.Rows {
		if len(row) != len(d.Headers) {
			return fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(d.Headers))
		}
	}
	return nil
}
