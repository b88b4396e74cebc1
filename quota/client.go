// Package quota implements the data source that looks up package state for
// a single MSISDN over the upstream HTTP endpoint.
package quota

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ridhan354/xlreminder/core/logger"
	"github.com/ridhan354/xlreminder/xl"
)

const (
	// limitPhrase is the upstream wording for "maximum check limit
	// reached"; its presence is the only automatic backoff signal.
	limitPhrase = "batas maksimal pengecekan"

	// DefaultBlock is the cooldown applied after a rate-limit rejection.
	DefaultBlock = 3 * time.Hour

	numberPlaceholder = "{number}"
)

// Result is the outcome of one lookup. On failure Payload may still carry
// the raw response body when the upstream returned structured data.
type Result struct {
	Success      bool
	Payload      *xl.Payload
	Message      string
	BlockSeconds int64
}

// Client fetches quota data by substituting the MSISDN into a URL template.
type Client struct {
	template string
	client   *http.Client
	block    time.Duration
}

// Option tweaks client construction.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithBlockDuration overrides the rate-limit cooldown.
func WithBlockDuration(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.block = d
		}
	}
}

// NewClient builds a client with the given URL template and request timeout.
func NewClient(template string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	c := &Client{
		template: template,
		client:   &http.Client{Timeout: timeout},
		block:    DefaultBlock,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch performs one lookup. Transport and decode problems come back as a
// failure with no payload and no cooldown; a structured rejection keeps the
// raw payload and may carry the rate-limit cooldown.
func (c *Client) Fetch(ctx context.Context, msisdn string) Result {
	url := strings.ReplaceAll(c.template, numberPlaceholder, msisdn)
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return c.transportFailure(msisdn, start, err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return c.transportFailure(msisdn, start, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return c.transportFailure(msisdn, start, fmt.Errorf("unexpected status %s", resp.Status))
	}

	var payload xl.Payload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return c.transportFailure(msisdn, start, fmt.Errorf("decode response: %w", err))
	}

	if !payload.Success {
		message := strings.TrimSpace(payload.Message)
		if message == "" {
			message = payload.PackageError()
		}
		if message == "" {
			message = "Unknown error"
		}
		return c.rejection(msisdn, start, &payload, message)
	}

	// A success envelope can still carry a per-package rejection.
	if msg := payload.PackageError(); msg != "" {
		return c.rejection(msisdn, start, &payload, msg)
	}

	logger.Quota.Debug("fetch ok",
		slog.String("event", "quota.fetch"),
		slog.String("status", "ok"),
		slog.String("msisdn", msisdn),
		slog.Int("packages", len(payload.Packages())),
		slog.Duration("duration", logger.Took(start)),
	)
	return Result{Success: true, Payload: &payload}
}

func (c *Client) transportFailure(msisdn string, start time.Time, err error) Result {
	logger.Quota.Warn("fetch failed",
		slog.String("event", "quota.fetch"),
		slog.String("status", "fail"),
		slog.String("msisdn", msisdn),
		slog.Duration("duration", logger.Took(start)),
		slog.String("err", err.Error()),
	)
	return Result{Message: fmt.Sprintf("Gagal mengambil data: %v", err)}
}

func (c *Client) rejection(msisdn string, start time.Time, payload *xl.Payload, message string) Result {
	res := Result{Payload: payload, Message: message}
	if IsRateLimited(message) {
		res.BlockSeconds = int64(c.block / time.Second)
	}
	logger.Quota.Warn("fetch rejected",
		slog.String("event", "quota.fetch"),
		slog.String("status", "fail"),
		slog.String("msisdn", msisdn),
		slog.Bool("rate_limited", res.BlockSeconds > 0),
		slog.Duration("duration", logger.Took(start)),
		slog.String("err", logger.SanitizeLimit(message, 256)),
	)
	return res
}

// IsRateLimited reports whether an upstream message signals the check limit.
func IsRateLimited(message string) bool {
	return strings.Contains(strings.ToLower(message), limitPhrase)
}
