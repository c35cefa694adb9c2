package pipeline

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/couchcryptid/dwh-retrieval/internal/domain"
	"github.com/couchcryptid/dwh-retrieval/internal/observability"
	"github.com/jonboulle/clockwork"
)

// Invoker runs one rendered tool command and captures its output.
type Invoker interface {
	Run(ctx context.Context, cmd domain.Command) (domain.RawResponse, error)
}

// Retriever turns a RetrievalRequest into a parsed, sanitized table:
// build command, invoke, parse, sanitize, check for rows.
type Retriever struct {
	invoker Invoker
	binary  []string
	logger  *slog.Logger
	metrics *observability.Metrics
	preview io.Writer
	clock   clockwork.Clock
}

// NewRetriever creates a Retriever that runs binary (plus any prefix
// arguments) through invoker.
func NewRetriever(invoker Invoker, binary []string, logger *slog.Logger, metrics *observability.Metrics) *Retriever {
	return &Retriever{
		invoker: invoker,
		binary:  append([]string(nil), binary...),
		logger:  logger,
		metrics: metrics,
		clock:   clockwork.NewRealClock(),
	}
}

// SetPreviewWriter sends table previews to w instead of the logger.
func (r *Retriever) SetPreviewWriter(w io.Writer) {
	r.preview = w
}

// SetClock replaces the clock that times retrievals.
func (r *Retriever) SetClock(c clockwork.Clock) {
	r.clock = c
}

// Retrieve runs one request. Errors from the retrieval taxonomy
// (*domain.TimeoutError, *domain.ExternalFailureError, *domain.NoDataError,
// *domain.MalformedOutputError) are returned as-is; nothing is retried here.
func (r *Retriever) Retrieve(ctx context.Context, req domain.RetrievalRequest, printPreview bool) (*domain.Table, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	kind := req.Kind.String()
	cmd := req.Command(r.binary)
	r.logger.Info("calling retrieval tool", "command", cmd.String())

	start := r.clock.Now()
	table, err := r.retrieve(ctx, req, cmd)
	r.metrics.RetrievalDuration.WithLabelValues(kind).Observe(r.clock.Since(start).Seconds())
	r.metrics.Retrievals.WithLabelValues(kind, domain.ErrorKind(err)).Inc()
	if err != nil {
		return nil, err
	}

	r.metrics.RowsRetrieved.WithLabelValues(kind).Add(float64(table.Len()))
	r.logger.Info("data retrieved",
		"station", req.StationID,
		"kind", kind,
		"period", requestedPeriod(req),
		"rows", table.Len(),
		"columns", len(table.Columns),
	)

	if printPreview {
		r.writePreview(table)
	}
	return table, nil
}

func (r *Retriever) retrieve(ctx context.Context, req domain.RetrievalRequest, cmd domain.Command) (*domain.Table, error) {
	resp, err := r.invoker.Run(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if resp.ExitCode != 0 {
		return nil, &domain.ExternalFailureError{Stderr: resp.Stderr, ExitCode: resp.ExitCode}
	}
	return domain.ParseOutput(resp.Stdout, requestedPeriod(req))
}

func (r *Retriever) writePreview(t *domain.Table) {
	if r.preview != nil {
		if err := domain.WritePreview(r.preview, t, domain.DefaultPreviewRows); err != nil {
			r.logger.Warn("write preview failed", "error", err)
		}
		return
	}
	var b strings.Builder
	if err := domain.WritePreview(&b, t, domain.DefaultPreviewRows); err != nil {
		r.logger.Warn("write preview failed", "error", err)
		return
	}
	r.logger.Info("table preview", "rows", t.Len(), "preview", b.String())
}

// requestedPeriod names what was asked for: the range for surface series,
// the single timestamp for a profile.
func requestedPeriod(req domain.RetrievalRequest) string {
	if req.Kind == domain.Profile {
		return domain.FormatTimestamp(req.Start)
	}
	return req.Period()
}
