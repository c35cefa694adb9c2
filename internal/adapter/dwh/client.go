package dwh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"github.com/couchcryptid/dwh-retrieval/internal/domain"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// waitDelay bounds how long Wait keeps draining pipes after the process
// was killed or exited while a descendant still holds them open.
const waitDelay = 5 * time.Second

// Client runs the retrieval tool as a subprocess.
// It implements pipeline.Invoker.
type Client struct {
	timeout time.Duration
	charset encoding.Encoding // nil means UTF-8 passthrough
	logger  *slog.Logger
}

// NewClient creates a Client enforcing timeout per invocation. encodingName
// is "utf-8" (output used as-is) or "iso-8859-1".
func NewClient(timeout time.Duration, encodingName string, logger *slog.Logger) (*Client, error) {
	c := &Client{timeout: timeout, logger: logger}
	switch encodingName {
	case "", "utf-8":
	case "iso-8859-1":
		c.charset = charmap.ISO8859_1
	default:
		return nil, fmt.Errorf("unsupported output encoding %q", encodingName)
	}
	return c, nil
}

// Run executes cmd with stdin closed and stdout/stderr captured separately.
//
// A non-zero exit is not an error here; it is reported through
// RawResponse.ExitCode. When the timeout expires the whole process group is
// killed and reaped and a *domain.TimeoutError is returned. Cancellation of
// ctx itself returns ctx.Err().
func (c *Client) Run(ctx context.Context, cmd domain.Command) (domain.RawResponse, error) {
	if len(cmd.Argv) == 0 {
		return domain.RawResponse{}, errors.New("empty command")
	}

	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	proc := exec.CommandContext(runCtx, cmd.Argv[0], cmd.Argv[1:]...)
	proc.Stdout = &stdout
	proc.Stderr = &stderr
	proc.WaitDelay = waitDelay
	setProcessGroup(proc)

	start := time.Now()
	err := proc.Run()
	elapsed := time.Since(start)

	if ctx.Err() != nil {
		return domain.RawResponse{}, ctx.Err()
	}
	if timedOut(runCtx, err) {
		c.logger.Error("retrieval tool timed out",
			"command", cmd.String(),
			"timeout", c.timeout,
			"stderr", stderr.String(),
		)
		return domain.RawResponse{}, &domain.TimeoutError{Command: cmd.String()}
	}

	resp := domain.RawResponse{}
	var exitErr *exec.ExitError
	switch {
	case err == nil, errors.Is(err, exec.ErrWaitDelay):
	case errors.As(err, &exitErr):
		resp.ExitCode = exitErr.ExitCode()
	default:
		return domain.RawResponse{}, fmt.Errorf("run retrieval tool: %w", err)
	}

	if resp.Stdout, err = c.decode(stdout.Bytes()); err != nil {
		return domain.RawResponse{}, fmt.Errorf("decode stdout: %w", err)
	}
	if resp.Stderr, err = c.decode(stderr.Bytes()); err != nil {
		return domain.RawResponse{}, fmt.Errorf("decode stderr: %w", err)
	}

	c.logger.Debug("retrieval tool finished",
		"exit_code", resp.ExitCode,
		"stdout_bytes", stdout.Len(),
		"elapsed", elapsed,
	)
	return resp, nil
}

func (c *Client) decode(b []byte) (string, error) {
	if c.charset == nil {
		return string(b), nil
	}
	out, err := c.charset.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// timedOut reports whether the run failed because its own deadline expired.
// A tool that exited cleanly is never a timeout, even if the deadline passed
// before Run returned.
func timedOut(runCtx context.Context, runErr error) bool {
	return runErr != nil && errors.Is(runCtx.Err(), context.DeadlineExceeded)
}
