package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/dwh-retrieval/internal/domain"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/google/shlex"
)

// Batch policies for Timeout and ExternalFailure outcomes.
const (
	OnErrorSkip  = "skip"
	OnErrorAbort = "abort"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	// Retrieval tool invocation.
	RetrieveCommand  []string
	RetrieveTimeout  time.Duration
	RetrieveEncoding string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Sinks.
	KafkaEnabled   bool
	KafkaBrokers   []string
	KafkaSinkTopic string
	ArchivePath    string

	// Batch job definition.
	JobKind        domain.QueryKind
	JobStations    []string
	JobStart       time.Time
	JobEnd         time.Time
	JobStep        time.Duration
	JobParams      []string
	JobOnError     string
	JobMaxAttempts int
}

// Load reads configuration from environment variables, applying defaults where unset.
// Job settings are optional here; cmd/etl checks them with ValidateJob.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	command, err := shlex.Split(sharedcfg.EnvOrDefault("RETRIEVE_COMMAND", "/oprusers/osm/bin/retrieve_cscs"))
	if err != nil || len(command) == 0 {
		return nil, errors.New("invalid RETRIEVE_COMMAND")
	}

	timeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("RETRIEVE_TIMEOUT", "120s"))
	if err != nil || timeout <= 0 {
		return nil, errors.New("invalid RETRIEVE_TIMEOUT")
	}

	encoding, err := parseEncoding(sharedcfg.EnvOrDefault("RETRIEVE_ENCODING", "utf-8"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		RetrieveCommand:  command,
		RetrieveTimeout:  timeout,
		RetrieveEncoding: encoding,
		HTTPAddr:         sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:         sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:        sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:  shutdownTimeout,
		KafkaEnabled:     os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:     sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSinkTopic:   sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "dwh-observations"),
		ArchivePath:      strings.TrimSpace(os.Getenv("ARCHIVE_PATH")),
		JobOnError:       sharedcfg.EnvOrDefault("JOB_ON_ERROR", OnErrorSkip),
	}

	if err := loadJob(cfg); err != nil {
		return nil, err
	}

	switch cfg.LogFormat {
	case "json", "text":
	default:
		return nil, fmt.Errorf("invalid LOG_FORMAT %q (allowed: json, text)", cfg.LogFormat)
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
	}
	if cfg.KafkaEnabled && cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required when KAFKA_ENABLED is true")
	}
	switch cfg.JobOnError {
	case OnErrorSkip, OnErrorAbort:
	default:
		return nil, fmt.Errorf("invalid JOB_ON_ERROR %q (allowed: skip, abort)", cfg.JobOnError)
	}

	return cfg, nil
}

func loadJob(cfg *Config) error {
	kind, err := domain.ParseQueryKind(sharedcfg.EnvOrDefault("JOB_KIND", "surface"))
	if err != nil {
		return fmt.Errorf("invalid JOB_KIND: %w", err)
	}
	cfg.JobKind = kind
	cfg.JobStations = splitList(os.Getenv("JOB_STATIONS"))
	cfg.JobParams = splitList(os.Getenv("JOB_PARAMS"))

	if s := os.Getenv("JOB_START"); s != "" {
		if cfg.JobStart, err = domain.ParseTimestamp(s); err != nil {
			return fmt.Errorf("invalid JOB_START: %w", err)
		}
	}
	if s := os.Getenv("JOB_END"); s != "" {
		if cfg.JobEnd, err = domain.ParseTimestamp(s); err != nil {
			return fmt.Errorf("invalid JOB_END: %w", err)
		}
	}

	step, err := time.ParseDuration(sharedcfg.EnvOrDefault("JOB_STEP", "24h"))
	if err != nil || step <= 0 {
		return errors.New("invalid JOB_STEP")
	}
	cfg.JobStep = step

	attempts, err := strconv.Atoi(sharedcfg.EnvOrDefault("JOB_MAX_ATTEMPTS", "1"))
	if err != nil || attempts < 1 || attempts > 10 {
		return errors.New("invalid JOB_MAX_ATTEMPTS (allowed: 1-10)")
	}
	cfg.JobMaxAttempts = attempts
	return nil
}

// ValidateJob checks the settings cmd/etl needs on top of Load.
func (c *Config) ValidateJob() error {
	if len(c.JobStations) == 0 {
		return errors.New("JOB_STATIONS is required")
	}
	if c.JobStart.IsZero() || c.JobEnd.IsZero() {
		return errors.New("JOB_START and JOB_END are required")
	}
	if c.JobEnd.Before(c.JobStart) {
		return errors.New("JOB_END is before JOB_START")
	}
	return nil
}

func parseEncoding(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "utf-8", "utf8":
		return "utf-8", nil
	case "iso-8859-1", "latin1", "latin-1":
		return "iso-8859-1", nil
	default:
		return "", fmt.Errorf("invalid RETRIEVE_ENCODING %q (allowed: utf-8, iso-8859-1)", s)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
