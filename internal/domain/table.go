package domain

import (
	"encoding/json"
	"strconv"
	"time"
)

// TimeColumn is the column parsed as a timestamp.
const TimeColumn = "termin"

// MissingSentinel is the value the data warehouse uses for "no value".
const MissingSentinel = 1.0e7

// ValueKind tells which field of a Value is meaningful.
type ValueKind uint8

const (
	Missing ValueKind = iota
	Number
	Text
	Timestamp
)

// Value is one cell of a ParsedTable. Raw holds the trimmed cell text for
// Number and Text cells so consumers can apply their own typing.
type Value struct {
	Kind ValueKind
	Num  float64
	Time time.Time
	Raw  string
}

// IsMissing reports whether the cell carries no value.
func (v Value) IsMissing() bool { return v.Kind == Missing }

// Float returns the numeric value and whether the cell is numeric.
func (v Value) Float() (float64, bool) {
	if v.Kind != Number {
		return 0, false
	}
	return v.Num, true
}

func (v Value) String() string {
	switch v.Kind {
	case Missing:
		return "NaN"
	case Timestamp:
		return v.Time.Format(time.DateTime)
	case Number:
		return strconv.FormatFloat(v.Num, 'g', -1, 64)
	default:
		return v.Raw
	}
}

// MarshalJSON encodes missing cells as null, numbers as numbers, timestamps
// as RFC 3339 and everything else as strings.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case Missing:
		return []byte("null"), nil
	case Number:
		return json.Marshal(v.Num)
	case Timestamp:
		return json.Marshal(v.Time.Format(time.RFC3339))
	default:
		return json.Marshal(v.Raw)
	}
}

// Column is a named, ordered sequence of cells.
type Column struct {
	Name   string
	Values []Value
}

// Table is the parsed, sanitized result of one retrieval. Columns appear in
// header order and all have the same length.
type Table struct {
	Columns []Column
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil || len(t.Columns) == 0 {
		return 0
	}
	return len(t.Columns[0].Values)
}

// ColumnNames returns the header-derived column names in order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Column looks up a column by name.
func (t *Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Row returns the cells of row i in column order.
func (t *Table) Row(i int) []Value {
	row := make([]Value, len(t.Columns))
	for j, c := range t.Columns {
		row[j] = c.Values[i]
	}
	return row
}

// Times returns the termin column as timestamps; missing cells yield the zero time.
func (t *Table) Times() []time.Time {
	c, ok := t.Column(TimeColumn)
	if !ok {
		return nil
	}
	out := make([]time.Time, len(c.Values))
	for i, v := range c.Values {
		out[i] = v.Time
	}
	return out
}

// Floats returns a column's numeric values with a parallel mask of which
// cells actually hold a number.
func (t *Table) Floats(name string) (values []float64, present []bool, ok bool) {
	c, found := t.Column(name)
	if !found {
		return nil, nil, false
	}
	values = make([]float64, len(c.Values))
	present = make([]bool, len(c.Values))
	for i, v := range c.Values {
		values[i], present[i] = v.Float()
	}
	return values, present, true
}

// MarshalJSON encodes the table as an array of row objects keyed by column name.
// Column order is preserved within each object.
func (t *Table) MarshalJSON() ([]byte, error) {
	buf := []byte{'['}
	for i := 0; i < t.Len(); i++ {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, '{')
		for j, c := range t.Columns {
			if j > 0 {
				buf = append(buf, ',')
			}
			key, err := json.Marshal(c.Name)
			if err != nil {
				return nil, err
			}
			val, err := c.Values[i].MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf = append(buf, key...)
			buf = append(buf, ':')
			buf = append(buf, val...)
		}
		buf = append(buf, '}')
	}
	return append(buf, ']'), nil
}

// RawResponse is what one tool invocation produced.
type RawResponse struct {
	Stdout   string
	Stderr   string
	ExitCode int
}
