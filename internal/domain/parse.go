package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Lines the retrieval tool wraps around its data rows.
const (
	headerLines = 2 // column header + separator
	footerLines = 2 // record count + summary
)

// terminLayouts are tried in order when parsing the termin column.
var terminLayouts = []string{
	TimestampLayout,
	"200601021504",
	time.DateTime,
	"2006-01-02 15:04",
	time.RFC3339,
}

// ParseOutput converts the retrieval tool's stdout into a sanitized Table.
//
// Line 1 holds the column names separated by whitespace (a '|' between names
// is accepted too). The first two lines and the last two lines are not data.
// Every remaining line is a '|'-delimited row with exactly one cell per
// column; blank lines are ignored. The termin column is parsed as a
// timestamp, numeric cells equal to MissingSentinel and empty cells become
// Missing. Cells that parse to NaN or an infinity are kept as Text.
//
// A well-formed output without data rows yields a *NoDataError carrying period.
// Contract violations yield a *MalformedOutputError.
func ParseOutput(stdout, period string) (*Table, error) {
	lines := splitLines(stdout)
	if len(lines) == 0 {
		return nil, &NoDataError{Period: period}
	}

	names, err := parseHeader(lines[0])
	if err != nil {
		return nil, err
	}

	table := &Table{Columns: make([]Column, len(names))}
	for i, n := range names {
		table.Columns[i].Name = n
	}

	body := bodyLines(lines)
	for i, line := range body {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lineNo := headerLines + i + 1
		cells := strings.Split(line, "|")
		if len(cells) != len(names) {
			return nil, &MalformedOutputError{
				Line:   lineNo,
				Reason: fmt.Sprintf("got %d fields, header has %d columns", len(cells), len(names)),
			}
		}
		for j, cell := range cells {
			v, err := parseCell(names[j], cell)
			if err != nil {
				return nil, &MalformedOutputError{Line: lineNo, Reason: err.Error()}
			}
			table.Columns[j].Values = append(table.Columns[j].Values, v)
		}
	}

	if table.Len() == 0 {
		return nil, &NoDataError{Period: period}
	}
	return table, nil
}

// splitLines splits on newlines, tolerating CRLF and a missing or extra
// trailing newline. Blank lines at the very end are dropped.
func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.TrimRight(s, "\n")
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func parseHeader(line string) ([]string, error) {
	names := strings.FieldsFunc(line, func(r rune) bool {
		return r == '|' || r == ' ' || r == '\t'
	})
	if len(names) == 0 {
		return nil, &MalformedOutputError{Line: 1, Reason: "empty header line"}
	}

	seen := make(map[string]struct{}, len(names))
	hasTime := false
	for _, n := range names {
		if _, dup := seen[n]; dup {
			return nil, &MalformedOutputError{Line: 1, Reason: fmt.Sprintf("duplicate column %q", n)}
		}
		seen[n] = struct{}{}
		if n == TimeColumn {
			hasTime = true
		}
	}
	if !hasTime {
		return nil, &MalformedOutputError{Line: 1, Reason: "header has no " + TimeColumn + " column"}
	}
	return names, nil
}

// bodyLines strips the header block and the footer block.
func bodyLines(lines []string) []string {
	if len(lines) <= headerLines+footerLines {
		return nil
	}
	return lines[headerLines : len(lines)-footerLines]
}

func parseCell(column, raw string) (Value, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Value{Kind: Missing}, nil
	}

	if column == TimeColumn {
		t, err := parseTermin(s)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: Timestamp, Time: t, Raw: s}, nil
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		if f == MissingSentinel {
			return Value{Kind: Missing}, nil
		}
		return Value{Kind: Number, Num: f, Raw: s}, nil
	}
	return Value{Kind: Text, Raw: s}, nil
}

func parseTermin(s string) (time.Time, error) {
	for _, layout := range terminLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable %s value %q", TimeColumn, s)
}
