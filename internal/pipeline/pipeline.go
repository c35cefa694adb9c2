package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/dwh-retrieval/internal/domain"
	"github.com/couchcryptid/dwh-retrieval/internal/observability"
)

// TableRetriever is the part of Retriever the batch job depends on.
type TableRetriever interface {
	Retrieve(ctx context.Context, req domain.RetrievalRequest, printPreview bool) (*domain.Table, error)
}

// Sink stores the flattened records of one retrieved table.
type Sink interface {
	Name() string
	Store(ctx context.Context, records []domain.ObservationRecord) error
}

// Plan describes a batch job: which stations, which period and how to
// react to failed retrievals.
type Plan struct {
	Kind     domain.QueryKind
	Stations []string
	Start    time.Time
	End      time.Time
	Step     time.Duration
	Params   []string

	// AbortOnFailure stops the job on a Timeout or ExternalFailure that
	// survived all attempts; otherwise the request is skipped.
	AbortOnFailure bool
	MaxAttempts    int
}

// Requests expands the plan into individual retrievals, station by station.
// Surface periods are split into step-long windows that do not overlap and
// the last window always ends at End; profiles are requested every step from
// Start through End.
func (p Plan) Requests() []domain.RetrievalRequest {
	var out []domain.RetrievalRequest
	for _, station := range p.Stations {
		switch p.Kind {
		case domain.Profile:
			for t := p.Start; !t.After(p.End); t = t.Add(p.Step) {
				out = append(out, domain.NewProfileRequest(station, t, p.Params...))
			}
		default:
			if p.Start.Equal(p.End) {
				out = append(out, domain.NewSurfaceRequest(station, p.Start, p.End, p.Params...))
				continue
			}
			for t := p.Start; t.Before(p.End); t = t.Add(p.Step) {
				end := t.Add(p.Step - time.Second)
				if !t.Add(p.Step).Before(p.End) {
					end = p.End
				}
				out = append(out, domain.NewSurfaceRequest(station, t, end, p.Params...))
			}
		}
	}
	return out
}

// Pipeline runs a Plan: retrieve each request, flatten the table and store
// it in every sink.
type Pipeline struct {
	plan      Plan
	retriever TableRetriever
	sinks     []Sink
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool
}

// New creates a Pipeline for plan.
func New(plan Plan, r TableRetriever, sinks []Sink, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	if plan.MaxAttempts < 1 {
		plan.MaxAttempts = 1
	}
	if plan.Step <= 0 {
		plan.Step = 24 * time.Hour
	}
	return &Pipeline{
		plan:      plan,
		retriever: r,
		sinks:     sinks,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil once at least one table has been stored,
// or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not stored any table yet")
	}
	return nil
}

// Summary counts what a job run did.
type Summary struct {
	Requests int
	Stored   int
	Skipped  int
	Records  int
}

// Run executes the plan sequentially. It returns early with nil when ctx is
// cancelled, and with an error when a request fails in a way the plan says
// must abort the job: MalformedOutput always aborts, Timeout and
// ExternalFailure abort only with AbortOnFailure.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	requests := p.plan.Requests()
	sum := Summary{Requests: len(requests)}

	p.logger.Info("job started",
		"kind", p.plan.Kind.String(),
		"stations", len(p.plan.Stations),
		"requests", len(requests),
	)
	p.metrics.JobRunning.Set(1)
	defer p.metrics.JobRunning.Set(0)

	for _, req := range requests {
		if ctx.Err() != nil {
			p.logger.Info("job stopping", "reason", ctx.Err())
			return sum, nil
		}

		table, err := p.retrieveWithRetry(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				p.logger.Info("job stopping", "reason", ctx.Err())
				return sum, nil
			}
			if abort := p.handleFailure(req, err); abort {
				return sum, fmt.Errorf("station %s period %s: %w", req.StationID, requestedPeriod(req), err)
			}
			sum.Skipped++
			continue
		}

		records := domain.Records(req, table)
		if err := p.store(ctx, records); err != nil {
			if ctx.Err() != nil {
				return sum, nil
			}
			return sum, err
		}
		sum.Stored++
		sum.Records += len(records)
		p.ready.Store(true)
	}

	p.logger.Info("job finished",
		"requests", sum.Requests,
		"stored", sum.Stored,
		"skipped", sum.Skipped,
		"records", sum.Records,
	)
	return sum, nil
}

// retrieveWithRetry retries Timeout and ExternalFailure up to MaxAttempts
// with exponential backoff: start at 200ms, double each retry, cap at 5s.
func (p *Pipeline) retrieveWithRetry(ctx context.Context, req domain.RetrievalRequest) (*domain.Table, error) {
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for attempt := 1; ; attempt++ {
		table, err := p.retriever.Retrieve(ctx, req, false)
		if err == nil || !retryable(err) || attempt >= p.plan.MaxAttempts {
			return table, err
		}
		p.logger.Warn("retrieval failed, retrying",
			"station", req.StationID,
			"period", requestedPeriod(req),
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)
		if !sleepWithContext(ctx, backoff) {
			return nil, ctx.Err()
		}
		backoff = nextBackoff(backoff, maxBackoff)
	}
}

// handleFailure logs a failed request and reports whether the job must stop.
func (p *Pipeline) handleFailure(req domain.RetrievalRequest, err error) bool {
	kind := domain.ErrorKind(err)
	attrs := []any{"station", req.StationID, "period", requestedPeriod(req), "error", err}

	switch {
	case errors.Is(err, domain.ErrNoData):
		p.logger.Warn("no data for request, skipping", attrs...)
	case retryable(err) && !p.plan.AbortOnFailure:
		p.logger.Error("retrieval failed, skipping request", attrs...)
	default:
		p.logger.Error("retrieval failed, aborting job", attrs...)
		return true
	}
	p.metrics.RequestsSkipped.WithLabelValues(kind).Inc()
	return false
}

func (p *Pipeline) store(ctx context.Context, records []domain.ObservationRecord) error {
	if len(records) == 0 {
		return nil
	}
	for _, s := range p.sinks {
		if err := s.Store(ctx, records); err != nil {
			p.logger.Error("store records failed", "sink", s.Name(), "error", err, "records", len(records))
			return fmt.Errorf("store to %s: %w", s.Name(), err)
		}
		p.metrics.RecordsPublished.WithLabelValues(s.Name()).Add(float64(len(records)))
	}
	return nil
}

func retryable(err error) bool {
	return errors.Is(err, domain.ErrTimeout) || errors.Is(err, domain.ErrExternalFailure)
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
