package domain

import (
	"strconv"
	"time"
)

// ObservationRecord is one non-time cell of a retrieved table, flattened for
// the Kafka and SQLite sinks.
type ObservationRecord struct {
	Station     string    `json:"station"`
	Kind        string    `json:"kind"`
	Termin      time.Time `json:"termin"`
	Row         int       `json:"row"`
	Column      string    `json:"column"`
	Value       *float64  `json:"value"`
	Text        string    `json:"text,omitempty"`
	RetrievedAt time.Time `json:"retrieved_at"`
}

// Key identifies the record's row: station|kind|termin|row.
func (r ObservationRecord) Key() string {
	return r.Station + "|" + r.Kind + "|" + FormatTimestamp(r.Termin) + "|" + strconv.Itoa(r.Row)
}

// Records flattens a table into one record per non-termin cell, in row-major
// order. Missing cells keep a nil Value so downstream stores see the gap.
func Records(req RetrievalRequest, t *Table) []ObservationRecord {
	times := t.Times()
	now := clock.Now().UTC()

	out := make([]ObservationRecord, 0, t.Len()*len(t.Columns))
	for i := 0; i < t.Len(); i++ {
		for _, c := range t.Columns {
			if c.Name == TimeColumn {
				continue
			}
			rec := ObservationRecord{
				Station:     req.StationID,
				Kind:        req.Kind.String(),
				Row:         i,
				Column:      c.Name,
				RetrievedAt: now,
			}
			if times != nil {
				rec.Termin = times[i]
			}
			switch v := c.Values[i]; v.Kind {
			case Number:
				f := v.Num
				rec.Value = &f
				rec.Text = v.Raw
			case Text:
				rec.Text = v.Raw
			}
			out = append(out, rec)
		}
	}
	return out
}
