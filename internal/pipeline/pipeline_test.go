package pipeline_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/dwh-retrieval/internal/domain"
	"github.com/couchcryptid/dwh-retrieval/internal/observability"
	"github.com/couchcryptid/dwh-retrieval/internal/pipeline"
	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

// scriptedRetriever returns results in order, one per call, per station.
type scriptedRetriever struct {
	mu      sync.Mutex
	results map[string][]error
	calls   []domain.RetrievalRequest
}

func (m *scriptedRetriever) Retrieve(_ context.Context, req domain.RetrievalRequest, _ bool) (*domain.Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, req)

	var err error
	if queue := m.results[req.StationID]; len(queue) > 0 {
		err, m.results[req.StationID] = queue[0], queue[1:]
	}
	if err != nil {
		return nil, err
	}
	return sampleTable(), nil
}

func sampleTable() *domain.Table {
	termin := time.Date(2021, 9, 12, 0, 0, 0, 0, time.UTC)
	return &domain.Table{Columns: []domain.Column{
		{Name: "termin", Values: []domain.Value{{Kind: domain.Timestamp, Time: termin}}},
		{Name: "val", Values: []domain.Value{{Kind: domain.Number, Num: 12.3, Raw: "12.3"}}},
		{Name: "name", Values: []domain.Value{{Kind: domain.Text, Raw: "Payerne"}}},
	}}
}

type mockSink struct {
	name   string
	err    error
	stored [][]domain.ObservationRecord
}

func (m *mockSink) Name() string { return m.name }

func (m *mockSink) Store(_ context.Context, records []domain.ObservationRecord) error {
	if m.err != nil {
		return m.err
	}
	m.stored = append(m.stored, records)
	return nil
}

func day(d int) time.Time {
	return time.Date(2021, 9, d, 0, 0, 0, 0, time.UTC)
}

func basePlan(stations ...string) pipeline.Plan {
	return pipeline.Plan{
		Kind:        domain.Surface,
		Stations:    stations,
		Start:       day(12),
		End:         day(13),
		Step:        24 * time.Hour,
		MaxAttempts: 1,
	}
}

var (
	errTimeout   = &domain.TimeoutError{Command: "retrieve_cscs"}
	errExternal  = &domain.ExternalFailureError{Stderr: "db down", ExitCode: 1}
	errNoData    = &domain.NoDataError{Period: "20210912000000-20210913000000"}
	errMalformed = &domain.MalformedOutputError{Line: 3, Reason: "got 2 fields, header has 3 columns"}
)

// --- plan expansion ---

type period struct{ Station, Start, End string }

func periods(reqs []domain.RetrievalRequest) []period {
	out := make([]period, len(reqs))
	for i, r := range reqs {
		out[i] = period{r.StationID, domain.FormatTimestamp(r.Start), domain.FormatTimestamp(r.End)}
	}
	return out
}

func TestPlan_Requests(t *testing.T) {
	tests := []struct {
		name string
		plan pipeline.Plan
		want []period
	}{
		{
			name: "surface windows do not overlap",
			plan: pipeline.Plan{Kind: domain.Surface, Stations: []string{"PAY"}, Start: day(12), End: day(14), Step: 24 * time.Hour},
			want: []period{
				{"PAY", "20210912000000", "20210912235959"},
				{"PAY", "20210913000000", "20210914000000"},
			},
		},
		{
			name: "surface last window clipped",
			plan: pipeline.Plan{Kind: domain.Surface, Stations: []string{"PAY"}, Start: day(12), End: day(12).Add(36 * time.Hour), Step: 24 * time.Hour},
			want: []period{
				{"PAY", "20210912000000", "20210912235959"},
				{"PAY", "20210913000000", "20210913120000"},
			},
		},
		{
			name: "surface end on a step boundary is requested",
			plan: pipeline.Plan{Kind: domain.Surface, Stations: []string{"PAY"}, Start: day(12), End: day(12).Add(12 * time.Hour), Step: 6 * time.Hour},
			want: []period{
				{"PAY", "20210912000000", "20210912055959"},
				{"PAY", "20210912060000", "20210912120000"},
			},
		},
		{
			name: "surface single instant",
			plan: pipeline.Plan{Kind: domain.Surface, Stations: []string{"PAY"}, Start: day(12), End: day(12), Step: time.Hour},
			want: []period{{"PAY", "20210912000000", "20210912000000"}},
		},
		{
			name: "profile every step inclusive, station by station",
			plan: pipeline.Plan{Kind: domain.Profile, Stations: []string{"06610", "10868"}, Start: day(12), End: day(13), Step: 12 * time.Hour},
			want: []period{
				{"06610", "20210912000000", "20210912000000"},
				{"06610", "20210912120000", "20210912120000"},
				{"06610", "20210913000000", "20210913000000"},
				{"10868", "20210912000000", "20210912000000"},
				{"10868", "20210912120000", "20210912120000"},
				{"10868", "20210913000000", "20210913000000"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := periods(tt.plan.Requests())
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Requests() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPlan_RequestsUseParamsAndDefaults(t *testing.T) {
	plan := basePlan("PAY")
	assert.Equal(t, domain.DefaultSurfaceParams, plan.Requests()[0].Params)

	plan.Params = []string{"91"}
	assert.Equal(t, []string{"91"}, plan.Requests()[0].Params)
}

// --- job run ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	fakeClock := clockwork.NewFakeClockAt(time.Date(2024, time.April, 26, 15, 10, 0, 0, time.UTC))
	domain.SetClock(fakeClock)
	t.Cleanup(func() { domain.SetClock(nil) })

	ret := &scriptedRetriever{}
	kafka := &mockSink{name: "kafka"}
	archive := &mockSink{name: "sqlite"}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(basePlan("PAY", "GVE"), ret, []pipeline.Sink{kafka, archive}, discardLogger(), metrics)
	require.Error(t, p.CheckReadiness(context.Background()))

	sum, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, pipeline.Summary{Requests: 2, Stored: 2, Records: 4}, sum)
	require.Len(t, kafka.stored, 2)
	require.Len(t, archive.stored, 2)
	assert.Equal(t, "PAY", kafka.stored[0][0].Station)
	assert.Equal(t, "val", kafka.stored[0][0].Column)
	assert.Equal(t, fakeClock.Now(), kafka.stored[0][0].RetrievedAt)
	assert.NoError(t, p.CheckReadiness(context.Background()))
	assert.InDelta(t, 4, testutil.ToFloat64(metrics.RecordsPublished.WithLabelValues("kafka")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.JobRunning), 0)
}

func TestPipeline_Run_NoDataSkipped(t *testing.T) {
	ret := &scriptedRetriever{results: map[string][]error{"PAY": {errNoData}}}
	sink := &mockSink{name: "sqlite"}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(basePlan("PAY", "GVE"), ret, []pipeline.Sink{sink}, discardLogger(), metrics)
	sum, err := p.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, sum.Skipped)
	assert.Equal(t, 1, sum.Stored)
	assert.Len(t, ret.calls, 2, "NoData is never retried")
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.RequestsSkipped.WithLabelValues("no_data")), 0)
}

func TestPipeline_Run_MalformedAborts(t *testing.T) {
	ret := &scriptedRetriever{results: map[string][]error{"PAY": {errMalformed}}}
	sink := &mockSink{name: "sqlite"}

	plan := basePlan("PAY", "GVE")
	plan.MaxAttempts = 3
	p := pipeline.New(plan, ret, []pipeline.Sink{sink}, discardLogger(), observability.NewMetricsForTesting())
	_, err := p.Run(context.Background())

	require.ErrorIs(t, err, domain.ErrMalformedOutput)
	assert.Contains(t, err.Error(), "station PAY")
	assert.Len(t, ret.calls, 1, "malformed output is neither retried nor skipped")
	assert.Empty(t, sink.stored)
}

func TestPipeline_Run_RetriesThenSucceeds(t *testing.T) {
	ret := &scriptedRetriever{results: map[string][]error{"PAY": {errTimeout, errExternal}}}
	sink := &mockSink{name: "kafka"}

	plan := basePlan("PAY")
	plan.MaxAttempts = 3
	p := pipeline.New(plan, ret, []pipeline.Sink{sink}, discardLogger(), observability.NewMetricsForTesting())
	sum, err := p.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, sum.Stored)
	assert.Len(t, ret.calls, 3)
}

func TestPipeline_Run_FailurePolicy(t *testing.T) {
	tests := []struct {
		name    string
		abort   bool
		failure error
	}{
		{"skip timeout", false, errTimeout},
		{"skip external failure", false, errExternal},
		{"abort timeout", true, errTimeout},
		{"abort external failure", true, errExternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ret := &scriptedRetriever{results: map[string][]error{"PAY": {tt.failure, tt.failure}}}
			sink := &mockSink{name: "sqlite"}
			metrics := observability.NewMetricsForTesting()

			plan := basePlan("PAY", "GVE")
			plan.MaxAttempts = 2
			plan.AbortOnFailure = tt.abort
			p := pipeline.New(plan, ret, []pipeline.Sink{sink}, discardLogger(), metrics)
			sum, err := p.Run(context.Background())

			if tt.abort {
				require.ErrorIs(t, err, tt.failure)
				assert.Len(t, ret.calls, 2)
				assert.Empty(t, sink.stored)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 1, sum.Skipped)
			assert.Equal(t, 1, sum.Stored)
			assert.Len(t, ret.calls, 3)
			assert.InDelta(t, 1, testutil.ToFloat64(metrics.RequestsSkipped.WithLabelValues(domain.ErrorKind(tt.failure))), 0)
		})
	}
}

func TestPipeline_Run_SinkErrorAborts(t *testing.T) {
	ret := &scriptedRetriever{}
	sink := &mockSink{name: "kafka", err: errors.New("broker unavailable")}

	p := pipeline.New(basePlan("PAY"), ret, []pipeline.Sink{sink}, discardLogger(), observability.NewMetricsForTesting())
	_, err := p.Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "store to kafka")
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ret := &scriptedRetriever{}
	sink := &mockSink{name: "kafka"}

	p := pipeline.New(basePlan("PAY"), ret, []pipeline.Sink{sink}, discardLogger(), observability.NewMetricsForTesting())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, ret.calls)
	assert.Zero(t, sum.Stored)
}

func TestPipeline_Run_CancelDuringBackoff(t *testing.T) {
	ret := &scriptedRetriever{results: map[string][]error{"PAY": {errTimeout, errTimeout, errTimeout}}}

	plan := basePlan("PAY")
	plan.MaxAttempts = 10
	p := pipeline.New(plan, ret, nil, discardLogger(), observability.NewMetricsForTesting())

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}
