package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sethvargo/go-retry"

	"hosh/internal/domain"
)

// Job is one unit of work returned by GET /api/v1/jobs, mirroring
// internal/dispatch's wire shape exactly.
type Job struct {
	Host          string  `json:"host"`
	Port          int     `json:"port"`
	CheckID       *string `json:"check_id,omitempty"`
	UserSubmitted bool    `json:"user_submitted,omitempty"`
}

// resultEnvelope is what gets POSTed to /api/v1/results: the full
// decoded probe response plus the two fields the data model needs that
// ResponseData itself doesn't carry.
type resultEnvelope struct {
	domain.ResponseData
	CheckerModule domain.Module `json:"checker_module"`
	Status        domain.Status `json:"status"`
}

// dispatchClient is the HTTP client a probe worker uses to poll for
// jobs and submit results against the Dispatch API.
type dispatchClient struct {
	baseURL string
	apiKey  string
	module  domain.Module
	http    *http.Client
}

func newDispatchClient(baseURL, apiKey string, module domain.Module) *dispatchClient {
	return &dispatchClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		module:  module,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// poll calls GET /api/v1/jobs. Transient failures (network errors, 5xx
// responses) are retried a bounded number of times with a Fibonacci
// backoff — losing one poll cycle isn't fatal, but a worker shouldn't
// silently go idle forever on a blip in the Dispatch API.
func (c *dispatchClient) poll(ctx context.Context, limit int) ([]Job, error) {
	u, err := url.Parse(c.baseURL + "/api/v1/jobs")
	if err != nil {
		return nil, fmt.Errorf("invalid dispatch base url: %w", err)
	}
	q := u.Query()
	q.Set("api_key", c.apiKey)
	q.Set("checker_module", string(c.module))
	q.Set("limit", strconv.Itoa(limit))
	u.RawQuery = q.Encode()

	backoff := retry.WithMaxRetries(3, retry.NewFibonacci(500*time.Millisecond))

	var jobs []Job
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return retry.RetryableError(fmt.Errorf("dispatch poll returned %s", resp.Status))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("dispatch poll rejected: %s", resp.Status)
		}

		jobs = nil
		return json.NewDecoder(resp.Body).Decode(&jobs)
	})
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

// submit posts a probe result. There is no retry here: a POST failure
// is logged and dropped, and the same target naturally resurfaces on
// the next poll once it falls out of the recency window (spec.md §4.4).
func (c *dispatchClient) submit(ctx context.Context, job Job, module domain.Module, resp domain.ResponseData) error {
	resp.Host = job.Host
	resp.Port = job.Port

	envelope := resultEnvelope{
		ResponseData:  resp,
		CheckerModule: module,
		Status:        resp.ImpliedStatus(),
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	u, err := url.Parse(c.baseURL + "/api/v1/results")
	if err != nil {
		return fmt.Errorf("invalid dispatch base url: %w", err)
	}
	q := u.Query()
	q.Set("api_key", c.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("dispatch rejected result: %s", res.Status)
	}
	return nil
}
