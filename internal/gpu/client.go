package gpu

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jhye/pistorm/internal/model"
)

// ErrReportFailed is returned when the orchestrator rejected or never
// received a crack result.
var ErrReportFailed = errors.New("result report failed")

// Reporting retry policy. The Pi reboots now and then; a couple of
// retries rides out the gap without holding the GPU queue for long.
const (
	reportAttempts = 3
	reportBackoff  = 2 * time.Second
	reportTimeout  = 10 * time.Second
)

// Client posts crack results to the orchestrator API on the Pi.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a Client for the given orchestrator base URL.
func NewClient(baseURL, apiKey string, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: reportTimeout},
		logger:  logger,
	}
}

// ReportResult delivers a crack result, retrying transient failures.
func (c *Client) ReportResult(ctx context.Context, res model.CrackResult) error {
	body, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode crack result: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= reportAttempts; attempt++ {
		if lastErr = c.post(ctx, body); lastErr == nil {
			return nil
		}
		c.logger.Warn("result report attempt failed",
			"attempt", attempt,
			"target", res.Target,
			"error", lastErr,
		)

		if attempt == reportAttempts {
			break
		}
		select {
		case <-time.After(reportBackoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("%w: %v", ErrReportFailed, lastErr)
}

// post sends one delivery attempt.
func (c *Client) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/crack_result", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("orchestrator returned %s", resp.Status)
	}
	return nil
}
