// Command retrieve runs a single retrieval and prints the parsed table.
// The tool invocation is configured through the same environment variables
// as cmd/etl (RETRIEVE_COMMAND, RETRIEVE_TIMEOUT, RETRIEVE_ENCODING, LOG_*).
//
// Usage:
//
//	go run ./cmd/retrieve -station PAY -start 20210912000000 -end 20210913000000
//	go run ./cmd/retrieve -kind profile -station 06610 -date 20210912000000 -json
//
// The exit status tells the failure kind apart: 3 no data, 4 timeout,
// 5 tool failure, 6 malformed output, 1 anything else.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/couchcryptid/dwh-retrieval/internal/adapter/dwh"
	"github.com/couchcryptid/dwh-retrieval/internal/config"
	"github.com/couchcryptid/dwh-retrieval/internal/domain"
	"github.com/couchcryptid/dwh-retrieval/internal/observability"
	"github.com/couchcryptid/dwh-retrieval/internal/pipeline"
)

type args struct {
	kind    string
	station string
	start   string
	end     string
	date    string
	params  string
	preview bool
	asJSON  bool
	records bool
}

func main() {
	var a args
	flag.StringVar(&a.kind, "kind", "surface", "query kind: surface or profile")
	flag.StringVar(&a.station, "station", "", "station id (nat_abbr for surface, int_ind for profile)")
	flag.StringVar(&a.start, "start", "", "surface start, YYYYMMDDHHMMSS")
	flag.StringVar(&a.end, "end", "", "surface end, YYYYMMDDHHMMSS")
	flag.StringVar(&a.date, "date", "", "profile date, YYYYMMDDHHMMSS")
	flag.StringVar(&a.params, "params", "", "comma-separated parameter codes (default per kind)")
	flag.BoolVar(&a.preview, "preview", true, "print the first rows of the table")
	flag.BoolVar(&a.asJSON, "json", false, "print the whole table as JSON")
	flag.BoolVar(&a.records, "records", false, "print flattened observation records as JSON lines")
	flag.Parse()

	os.Exit(run(a, os.Stdout))
}

func run(a args, stdout io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}
	logger := observability.NewLogger(cfg)

	req, err := buildRequest(a)
	if err != nil {
		logger.Error("invalid request", "error", err)
		return 1
	}

	client, err := dwh.NewClient(cfg.RetrieveTimeout, cfg.RetrieveEncoding, logger)
	if err != nil {
		logger.Error("failed to create retrieval client", "error", err)
		return 1
	}
	retriever := pipeline.NewRetriever(client, cfg.RetrieveCommand, logger, observability.NewMetrics())
	retriever.SetPreviewWriter(stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	table, err := retriever.Retrieve(ctx, req, a.preview && !a.asJSON && !a.records)
	if err != nil {
		logger.Error("retrieval failed", "error", err, "kind", domain.ErrorKind(err))
		return exitCode(err)
	}

	enc := json.NewEncoder(stdout)
	switch {
	case a.records:
		for _, rec := range domain.Records(req, table) {
			if err := enc.Encode(rec); err != nil {
				logger.Error("write records", "error", err)
				return 1
			}
		}
	case a.asJSON:
		if err := enc.Encode(table); err != nil {
			logger.Error("write table", "error", err)
			return 1
		}
	}
	return 0
}

func buildRequest(a args) (domain.RetrievalRequest, error) {
	kind, err := domain.ParseQueryKind(a.kind)
	if err != nil {
		return domain.RetrievalRequest{}, err
	}
	var params []string
	if a.params != "" {
		params = strings.Split(a.params, ",")
	}

	var req domain.RetrievalRequest
	switch kind {
	case domain.Profile:
		date, err := parseFlagTime("date", a.date)
		if err != nil {
			return req, err
		}
		req = domain.NewProfileRequest(a.station, date, params...)
	default:
		start, err := parseFlagTime("start", a.start)
		if err != nil {
			return req, err
		}
		end, err := parseFlagTime("end", a.end)
		if err != nil {
			return req, err
		}
		req = domain.NewSurfaceRequest(a.station, start, end, params...)
	}
	return req, req.Validate()
}

func parseFlagTime(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("-%s is required", name)
	}
	t, err := domain.ParseTimestamp(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("-%s: %w", name, err)
	}
	return t, nil
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrNoData):
		return 3
	case errors.Is(err, domain.ErrTimeout):
		return 4
	case errors.Is(err, domain.ErrExternalFailure):
		return 5
	case errors.Is(err, domain.ErrMalformedOutput):
		return 6
	default:
		return 1
	}
}
