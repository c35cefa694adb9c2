package domain

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// WriteToolOutput renders rows in the retrieval tool's stdout format:
// a whitespace-separated header, a dashed separator, one '|'-delimited line
// per row and two footer lines. Cells are written verbatim.
func WriteToolOutput(w io.Writer, columns []string, rows [][]string) error {
	if _, err := fmt.Fprintln(w, strings.Join(columns, " ")); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, strings.Repeat("-", max(len(strings.Join(columns, " ")), 3))); err != nil {
		return err
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			return fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(columns))
		}
		if _, err := fmt.Fprintln(w, strings.Join(row, "|")); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%s\n%d records\n", strings.Repeat("-", 3), len(rows))
	return err
}

// DefaultPreviewRows is how many rows a preview shows.
const DefaultPreviewRows = 5

// WritePreview renders the first n rows with every column, untruncated.
func WritePreview(w io.Writer, t *Table, n int) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\t"+strings.Join(t.ColumnNames(), "\t"))
	for i := 0; i < t.Len() && i < n; i++ {
		cells := make([]string, 0, len(t.Columns)+1)
		cells = append(cells, fmt.Sprint(i))
		for _, v := range t.Row(i) {
			cells = append(cells, v.String())
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}
