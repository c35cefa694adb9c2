package config

import (
	"testing"
	"time"

	"github.com/couchcryptid/dwh-retrieval/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultBroker = "localhost:9092"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"/oprusers/osm/bin/retrieve_cscs"}, cfg.RetrieveCommand)
	assert.Equal(t, 120*time.Second, cfg.RetrieveTimeout)
	assert.Equal(t, "utf-8", cfg.RetrieveEncoding)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "dwh-observations", cfg.KafkaSinkTopic)
	assert.Empty(t, cfg.ArchivePath)
	assert.Equal(t, domain.Surface, cfg.JobKind)
	assert.Empty(t, cfg.JobStations)
	assert.True(t, cfg.JobStart.IsZero())
	assert.Equal(t, 24*time.Hour, cfg.JobStep)
	assert.Empty(t, cfg.JobParams)
	assert.Equal(t, OnErrorSkip, cfg.JobOnError)
	assert.Equal(t, 1, cfg.JobMaxAttempts)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("RETRIEVE_COMMAND", `ssh -o BatchMode=yes dwh "/opt/osm/bin/retrieve cscs"`)
	t.Setenv("RETRIEVE_TIMEOUT", "30s")
	t.Setenv("RETRIEVE_ENCODING", "Latin1")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_SINK_TOPIC", "custom-sink")
	t.Setenv("ARCHIVE_PATH", "/var/lib/dwh/archive.db")
	t.Setenv("JOB_KIND", "profile")
	t.Setenv("JOB_STATIONS", "06610, 10868,,")
	t.Setenv("JOB_START", "20210912000000")
	t.Setenv("JOB_END", "20210914000000")
	t.Setenv("JOB_STEP", "12h")
	t.Setenv("JOB_PARAMS", "742,743")
	t.Setenv("JOB_ON_ERROR", "abort")
	t.Setenv("JOB_MAX_ATTEMPTS", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"ssh", "-o", "BatchMode=yes", "dwh", "/opt/osm/bin/retrieve cscs"}, cfg.RetrieveCommand)
	assert.Equal(t, 30*time.Second, cfg.RetrieveTimeout)
	assert.Equal(t, "iso-8859-1", cfg.RetrieveEncoding)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-sink", cfg.KafkaSinkTopic)
	assert.Equal(t, "/var/lib/dwh/archive.db", cfg.ArchivePath)
	assert.Equal(t, domain.Profile, cfg.JobKind)
	assert.Equal(t, []string{"06610", "10868"}, cfg.JobStations)
	assert.Equal(t, time.Date(2021, 9, 12, 0, 0, 0, 0, time.UTC), cfg.JobStart)
	assert.Equal(t, time.Date(2021, 9, 14, 0, 0, 0, 0, time.UTC), cfg.JobEnd)
	assert.Equal(t, 12*time.Hour, cfg.JobStep)
	assert.Equal(t, []string{"742", "743"}, cfg.JobParams)
	assert.Equal(t, OnErrorAbort, cfg.JobOnError)
	assert.Equal(t, 3, cfg.JobMaxAttempts)
	require.NoError(t, cfg.ValidateJob())
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		env, value, want string
	}{
		{"SHUTDOWN_TIMEOUT", "not-a-duration", "SHUTDOWN_TIMEOUT"},
		{"SHUTDOWN_TIMEOUT", "-1s", "SHUTDOWN_TIMEOUT"},
		{"RETRIEVE_COMMAND", `"unterminated`, "RETRIEVE_COMMAND"},
		{"RETRIEVE_TIMEOUT", "0s", "RETRIEVE_TIMEOUT"},
		{"RETRIEVE_TIMEOUT", "soon", "RETRIEVE_TIMEOUT"},
		{"RETRIEVE_ENCODING", "ebcdic", "RETRIEVE_ENCODING"},
		{"LOG_FORMAT", "xml", "LOG_FORMAT"},
		{"JOB_KIND", "sounding", "JOB_KIND"},
		{"JOB_START", "2021-09-12", "JOB_START"},
		{"JOB_END", "20210912", "JOB_END"},
		{"JOB_STEP", "-1h", "JOB_STEP"},
		{"JOB_ON_ERROR", "retry", "JOB_ON_ERROR"},
		{"JOB_MAX_ATTEMPTS", "0", "JOB_MAX_ATTEMPTS"},
		{"JOB_MAX_ATTEMPTS", "many", "JOB_MAX_ATTEMPTS"},
	}
	for _, tt := range tests {
		t.Run(tt.env+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.env, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateJob(t *testing.T) {
	start := time.Date(2021, 9, 12, 0, 0, 0, 0, time.UTC)

	cfg := &Config{}
	assert.ErrorContains(t, cfg.ValidateJob(), "JOB_STATIONS")

	cfg.JobStations = []string{"PAY"}
	assert.ErrorContains(t, cfg.ValidateJob(), "JOB_START")

	cfg.JobStart, cfg.JobEnd = start, start.Add(-time.Hour)
	assert.ErrorContains(t, cfg.ValidateJob(), "before")

	cfg.JobEnd = start.Add(time.Hour)
	assert.NoError(t, cfg.ValidateJob())
}
