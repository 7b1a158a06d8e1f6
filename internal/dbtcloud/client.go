// Package dbtcloud is a minimal client for the dbt Cloud Administrative API,
// covering just enough surface to download a job run's manifest artifact.
package dbtcloud

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://cloud.getdbt.com/api/v2"

// runStatusSuccess is dbt Cloud's numeric status for a completed run.
const runStatusSuccess = 10

// Client talks to the dbt Cloud API for one account. Requests are
// rate-limited client-side and retried with exponential backoff on
// transient failures (5xx, 429).
type Client struct {
	baseURL    string
	token      string
	accountID  string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL (used by tests and single-tenant
// dbt Cloud instances).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a dbt Cloud API client for the given account.
func NewClient(token, accountID string, opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		token:      token,
		accountID:  accountID,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(5), 5),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run is one job run as reported by the runs endpoint.
type Run struct {
	ID         int64  `json:"id"`
	Status     int    `json:"status"`
	FinishedAt string `json:"finished_at"`
}

// Succeeded reports whether the run completed successfully.
func (r *Run) Succeeded() bool { return r.Status == runStatusSuccess }

type runsResponse struct {
	Data []Run `json:"data"`
}

// ListRuns returns recent runs for a job, most recently finished first.
func (c *Client) ListRuns(ctx context.Context, jobID string, limit int) ([]Run, error) {
	q := url.Values{}
	q.Set("job_definition_id", jobID)
	q.Set("limit", fmt.Sprintf("%d", limit))
	q.Set("order_by", "-finished_at")

	body, err := c.get(ctx, fmt.Sprintf("/accounts/%s/runs/", c.accountID), q)
	if err != nil {
		return nil, fmt.Errorf("list runs for job %s: %w", jobID, err)
	}
	var resp runsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode runs response: %w", err)
	}
	return resp.Data, nil
}

// LatestSuccessfulRun returns the most recent successful run of a job.
func (c *Client) LatestSuccessfulRun(ctx context.Context, jobID string) (*Run, error) {
	runs, err := c.ListRuns(ctx, jobID, 50)
	if err != nil {
		return nil, err
	}
	for i := range runs {
		if runs[i].Succeeded() {
			c.logger.Debug("found successful run",
				"run_id", runs[i].ID, "finished_at", runs[i].FinishedAt)
			return &runs[i], nil
		}
	}
	return nil, fmt.Errorf("no successful run found for job %s", jobID)
}

// RunArtifact downloads one artifact from a run, returned as raw bytes.
func (c *Client) RunArtifact(ctx context.Context, runID, artifactPath string) ([]byte, error) {
	body, err := c.get(ctx,
		fmt.Sprintf("/accounts/%s/runs/%s/artifacts/%s", c.accountID, runID, artifactPath), nil)
	if err != nil {
		return nil, fmt.Errorf("fetch artifact %s from run %s: %w", artifactPath, runID, err)
	}
	return body, nil
}

// Manifest downloads manifest.json for a job. When runID is empty the
// latest successful run is resolved first.
func (c *Client) Manifest(ctx context.Context, jobID, runID string) ([]byte, error) {
	if runID == "" {
		run, err := c.LatestSuccessfulRun(ctx, jobID)
		if err != nil {
			return nil, err
		}
		runID = fmt.Sprintf("%d", run.ID)
	}
	c.logger.Info("fetching manifest from dbt Cloud", "job_id", jobID, "run_id", runID)
	return c.RunArtifact(ctx, runID, "manifest.json")
}

// get performs one rate-limited GET with retries on transient failures.
func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	backoff := retry.WithMaxRetries(3, retry.NewExponential(500*time.Millisecond))

	var body []byte
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Token "+c.token)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			c.logger.Warn("dbt Cloud request failed, retrying",
				"path", path, "status", resp.StatusCode)
			return retry.RetryableError(fmt.Errorf("GET %s: status %d", path, resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("GET %s: status %d", path, resp.StatusCode)
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}
