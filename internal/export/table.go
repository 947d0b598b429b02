package export

import (
	"bytes"
	"fmt"
	"strings"
	"text/tabwriter"
)

// Table is a rendered grid of rows under a header.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Tabular values know how to present themselves as a table.
type Tabular interface {
	Table() Table
}

type TableExporter struct{}

func (e *TableExporter) Name() string {
	return "table"
}

// Export renders Tabular values as aligned columns. Anything else falls back
// to YAML.
func (e *TableExporter) Export(v any) ([]byte, error) {
	tab, ok := v.(Tabular)
	if !ok {
		return NewYAMLExporter().Export(v)
	}
	t := tab.Table()

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	if len(t.Headers) > 0 {
		fmt.Fprintln(w, strings.Join(t.Headers, "\t"))
	}
	for _, row := range t.Rows {
		cells := make([]string, len(row))
		for i, c := range row {
			if c == "" {
				c = "-"
			}
			cells[i] = c
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	if err := w.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func NewTableExporter() Exporter {
	return &TableExporter{}
}
