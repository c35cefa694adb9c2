package sqlite

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/dwh-retrieval/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestArchive(t *testing.T) *Archive {
	t.Helper()
	a, err := Open(filepath.Join(t.TempDir(), "nested", "archive.db"), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func ptr(f float64) *float64 { return &f }

func record(termin time.Time, row int, column string, value *float64, retrieved time.Time) domain.ObservationRecord {
	return domain.ObservationRecord{
		Station:     "PAY",
		Kind:        "profile",
		Termin:      termin,
		Row:         row,
		Column:      column,
		Value:       value,
		RetrievedAt: retrieved,
	}
}

func TestArchive_StoreAndLoad(t *testing.T) {
	a := openTestArchive(t)
	ctx := context.Background()
	termin := time.Date(2021, 9, 12, 0, 0, 0, 0, time.UTC)
	retrieved := time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC)

	in := []domain.ObservationRecord{
		record(termin, 0, "temp", ptr(12.5), retrieved),
		record(termin, 1, "temp", ptr(11.0), retrieved),
		record(termin, 1, "rh", nil, retrieved),
	}
	require.NoError(t, a.Store(ctx, in))

	got, err := a.Load(ctx, "PAY", "profile", termin, termin)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, 0, got[0].Row)
	assert.Equal(t, "temp", got[0].Column)
	assert.InDelta(t, 12.5, *got[0].Value, 0)
	assert.Equal(t, "rh", got[1].Column, "ordered by row then column")
	assert.Nil(t, got[1].Value)
	assert.Equal(t, termin, got[2].Termin)
	assert.True(t, retrieved.Equal(got[2].RetrievedAt))
}

func TestArchive_StoreReplacesSameCell(t *testing.T) {
	a := openTestArchive(t)
	ctx := context.Background()
	termin := time.Date(2021, 9, 12, 0, 0, 0, 0, time.UTC)

	require.NoError(t, a.Store(ctx, []domain.ObservationRecord{record(termin, 0, "temp", ptr(1), termin)}))
	require.NoError(t, a.Store(ctx, []domain.ObservationRecord{record(termin, 0, "temp", ptr(2), termin.Add(time.Hour))}))

	got, err := a.Load(ctx, "PAY", "profile", termin, termin)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 2, *got[0].Value, 0)
}

func TestArchive_LoadFiltersRange(t *testing.T) {
	a := openTestArchive(t)
	ctx := context.Background()
	d1 := time.Date(2021, 9, 12, 0, 0, 0, 0, time.UTC)
	d2 := d1.Add(24 * time.Hour)

	require.NoError(t, a.Store(ctx, []domain.ObservationRecord{
		record(d1, 0, "temp", ptr(1), d1),
		record(d2, 0, "temp", ptr(2), d1),
	}))

	got, err := a.Load(ctx, "PAY", "profile", d2, d2)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, d2, got[0].Termin)

	got, err = a.Load(ctx, "GVE", "profile", d1, d2)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestArchive_StoreEmpty(t *testing.T) {
	a := openTestArchive(t)
	assert.Equal(t, "sqlite", a.Name())
	assert.NoError(t, a.Store(context.Background(), nil))
}

func TestBuildDSN(t *testing.T) {
	dsn, err := buildDSN("file:test.db?mode=memory")
	require.NoError(t, err)
	assert.Equal(t, "file:test.db?mode=memory&_busy_timeout=5000&_journal_mode=WAL", dsn)

	dsn, err = buildDSN("archive.db")
	require.NoError(t, err)
	assert.Equal(t, "file:archive.db?_busy_timeout=5000&_journal_mode=WAL", dsn)
}
