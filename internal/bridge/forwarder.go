package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/bluepond-io/aquamon/internal/config"
	"github.com/bluepond-io/aquamon/internal/lib/logger/sl"
)

// Forwarder delivers raw sensor lines to a readings endpoint.
type Forwarder interface {
	Send(ctx context.Context, endpoint, line string) error
	Probe(ctx context.Context, endpoint string) error
}

// HTTPForwarder posts {"data": <line>} to the readings endpoint and retries
// with exponential backoff before giving up on a line.
type HTTPForwarder struct {
	log    *slog.Logger
	client *http.Client
	retry  config.RetryConfig
}

func NewHTTPForwarder(log *slog.Logger, cfg *config.ForwardConfig) *HTTPForwarder {
	return &HTTPForwarder{
		log: log,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		retry: cfg.Retry,
	}
}

func (f *HTTPForwarder) Send(ctx context.Context, endpoint, line string) error {
	payload, err := json.Marshal(map[string]string{"data": line})
	if err != nil {
		return fmt.Errorf("failed to marshal line: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= f.retry.MaxAttempts; attempt++ {
		err := f.doSend(ctx, endpoint, payload)
		if err == nil {
			return nil
		}

		lastErr = err
		f.log.Warn("send attempt failed",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", f.retry.MaxAttempts),
			sl.Err(err),
		)

		if attempt < f.retry.MaxAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(f.nextDelay(attempt - 1)):
			}
		}
	}

	return fmt.Errorf("all %d attempts failed: %w", f.retry.MaxAttempts, lastErr)
}

func (f *HTTPForwarder) doSend(ctx context.Context, endpoint string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(resp.Body)
	return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
}

const (
	backoffMultiplier = 2.0
	backoffJitter     = 0.1
)

// nextDelay doubles the initial delay per completed attempt, adds up to
// ±10% jitter so restarting bridges don't hammer a recovering API in
// lockstep, and caps at the configured max.
func (f *HTTPForwarder) nextDelay(attempt int) time.Duration {
	delay := float64(f.retry.InitialDelay)
	for i := 0; i < attempt; i++ {
		delay *= backoffMultiplier
		if delay >= float64(f.retry.MaxDelay) {
			delay = float64(f.retry.MaxDelay)
			break
		}
	}

	delay += delay * backoffJitter * (2*rand.Float64() - 1)

	if max := float64(f.retry.MaxDelay); delay > max {
		delay = max
	}
	return time.Duration(delay)
}

// Probe checks whether an endpoint accepts reads. Any response below 500
// counts as reachable; the readings listing is used as the probe target.
func (f *HTTPForwarder) Probe(ctx context.Context, endpoint string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create probe request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("probe failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("endpoint unhealthy: status %d", resp.StatusCode)
	}

	return nil
}

// LogForwarder logs lines instead of sending them (dry-run mode).
type LogForwarder struct {
	log *slog.Logger
}

func NewLogForwarder(log *slog.Logger) *LogForwarder {
	return &LogForwarder{log: log}
}

func (f *LogForwarder) Send(ctx context.Context, endpoint, line string) error {
	f.log.Info("SEND",
		slog.String("endpoint", endpoint),
		slog.String("line", line),
	)
	return nil
}

func (f *LogForwarder) Probe(ctx context.Context, endpoint string) error {
	return nil
}
