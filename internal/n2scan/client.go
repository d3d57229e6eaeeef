package n2scan

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/okian/n2bg/internal/adapters/csvio"
	"github.com/okian/n2bg/internal/adapters/http/api"
	"github.com/okian/n2bg/internal/domain/model"
	"github.com/okian/n2bg/internal/domain/types"
	"github.com/okian/n2bg/pkg/logger"
)

// Client talks to a running n2bg server.
type Client struct {
	client  *http.Client
	baseURL string
}

// NewClient creates a client for baseURL with a per-request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Reply is a successful server response.
type Reply struct {
	Body    []byte
	Outcome string
	RunID   string
	Reason  string
}

// Health checks that the server answers GET /healthz.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer closeBody(ctx, resp)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health check status %d", ErrRemote, resp.StatusCode)
	}
	return nil
}

// Background posts batch as CSV to /background. With csvOut the reply body
// holds the selected rows as CSV, otherwise the JSON scan response.
func (c *Client) Background(ctx context.Context, batch model.Batch, q url.Values, csvOut bool) (Reply, error) {
	accept := "application/json"
	if csvOut {
		accept = "text/csv"
	}
	return c.post(ctx, "/background", batch, q, accept)
}

// Inventory posts batch as CSV to /inventory.
func (c *Client) Inventory(ctx context.Context, batch model.Batch, q url.Values) ([]types.Group, error) {
	reply, err := c.post(ctx, "/inventory", batch, q, "application/json")
	if err != nil {
		return nil, err
	}
	var out struct {
		Groups []types.Group `json:"groups"`
	}
	if err := json.Unmarshal(reply.Body, &out); err != nil {
		return nil, fmt.Errorf("%w: decode inventory: %w", ErrRemote, err)
	}
	return out.Groups, nil
}

func (c *Client) post(ctx context.Context, path string, batch model.Batch, q url.Values, accept string) (Reply, error) {
	var body bytes.Buffer
	if err := csvio.WriteBatch(&body, batch); err != nil {
		return Reply{}, fmt.Errorf("failed to encode batch: %w", err)
	}

	target := c.baseURL + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, &body)
	if err != nil {
		return Reply{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "text/csv")
	req.Header.Set("Accept", accept)

	resp, err := c.client.Do(req)
	if err != nil {
		return Reply{}, fmt.Errorf("%w: %w", ErrRemote, err)
	}
	defer closeBody(ctx, resp)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Reply{}, fmt.Errorf("%w: read body: %w", ErrRemote, err)
	}
	if resp.StatusCode != http.StatusOK {
		return Reply{}, remoteError(resp.StatusCode, data)
	}

	return Reply{
		Body:    data,
		Outcome: resp.Header.Get(api.HeaderOutcome),
		RunID:   resp.Header.Get(api.HeaderRunID),
		Reason:  resp.Header.Get(api.HeaderReason),
	}, nil
}

// remoteError reports the server's {"code","message"} body when present.
func remoteError(status int, body []byte) error {
	var e struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.Message != "" {
		return fmt.Errorf("%w: status %d: %s: %s", ErrRemote, status, e.Code, e.Message)
	}
	return fmt.Errorf("%w: status %d", ErrRemote, status)
}

func closeBody(ctx context.Context, resp *http.Response) {
	if err := resp.Body.Close(); err != nil {
		logger.Get().Error(ctx, "failed to close response body", logger.Error(err))
	}
}

// overrides carries the selection settings as query parameters.
func overrides(cfg *Config) url.Values {
	q := url.Values{}
	q.Set("max_scan_rate", strconv.FormatFloat(cfg.MaxScanRate, 'g', -1, 64))
	q.Set("expected_length", strconv.Itoa(cfg.ExpectedLength))
	q.Set("reference_scan_rate", strconv.FormatFloat(cfg.ReferenceScanRate, 'g', -1, 64))
	return q
}

// runRemote reads the files locally and lets the server select.
func runRemote(ctx context.Context, cfg *Config, stdout io.Writer, stats *Stats) error {
	client := NewClient(cfg.URL, cfg.Timeout)
	logger.Get().Info(ctx, "checking service health", logger.String("url", cfg.URL))
	if err := client.Health(ctx); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	batch, err := readBatch(ctx, cfg.Files)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	stats.Rows = len(batch)

	out, done, err := openOutput(ctx, cfg.Out, stdout)
	if err != nil {
		return err
	}
	defer done()

	if cfg.Inventory {
		groups, err := client.Inventory(ctx, batch, overrides(cfg))
		if err != nil {
			return err
		}
		return writeInventory(out, cfg.Format, groups)
	}

	csvOut := cfg.Format == FormatCSV
	reply, err := client.Background(ctx, batch, overrides(cfg), csvOut)
	if err != nil {
		return err
	}

	switch reply.Outcome {
	case "selected":
		stats.Selected++
	case "fallback":
		stats.Fallbacks++
	default:
		stats.Empty++
	}
	logger.Get().Info(ctx, "remote background selection",
		logger.String("run_id", reply.RunID),
		logger.String("outcome", reply.Outcome),
	)

	if reply.Outcome == "empty" {
		if !csvOut {
			if _, err := out.Write(reply.Body); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
		}
		if reply.Reason != "" {
			return fmt.Errorf("%w: %s", ErrNoBackground, reply.Reason)
		}
		return ErrNoBackground
	}
	if _, err := out.Write(reply.Body); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
