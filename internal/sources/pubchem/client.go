// Package pubchem downloads 3D conformer SDF records from the PubChem PUG
// REST API for compounds already listed in a dataset manifest. The output
// feeds the structure loader unchanged.
package pubchem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mzaitsev/molecule-explorer/internal/ratelimit"
)

// DefaultBaseURL is the public PUG REST endpoint.
const DefaultBaseURL = "https://pubchem.ncbi.nlm.nih.gov/rest/pug"

// ErrNoConformers is returned when none of the requested compounds has a
// 3D conformer on record. PUG answers such requests with 404.
var ErrNoConformers = errors.New("no 3d conformers for requested cids")

// Client issues rate-limited PUG REST requests.
type Client struct {
	httpClient *http.Client
	limiter    ratelimit.Limiter
	baseURL    string
	maxRetries int
}

// NewClient creates a PubChem client. An empty baseURL selects the public
// endpoint.
func NewClient(limiter ratelimit.Limiter, baseURL string, maxRetries int) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		limiter:    limiter,
		baseURL:    baseURL,
		maxRetries: maxRetries,
	}
}

// FetchConformerSDF retrieves the 3D SDF records for one batch of CIDs in a
// single request. Throttled responses and server errors are retried with
// backoff; other failures are returned as-is.
func (c *Client) FetchConformerSDF(ctx context.Context, cids []int64) ([]byte, error) {
	if len(cids) == 0 {
		return nil, nil
	}

	u := fmt.Sprintf("%s/compound/cid/%s/record/SDF?record_type=3d", c.baseURL, joinCIDs(cids))

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.limiter.RetryAfter(attempt)
			log.Printf("pubchem retry %d in %v: %v", attempt, backoff, lastErr)
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		body, retryable, err := c.get(ctx, u)
		if err == nil {
			return body, nil
		}
		if !retryable {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("fetch conformers: %w", lastErr)
}

func (c *Client) get(ctx context.Context, u string) (body []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("execute request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, true, fmt.Errorf("read response: %w", err)
		}
		return body, false, nil

	case resp.StatusCode == http.StatusNotFound:
		return nil, false, ErrNoConformers

	case resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode == http.StatusServiceUnavailable,
		resp.StatusCode >= http.StatusInternalServerError:
		return nil, true, fmt.Errorf("pubchem status %d", resp.StatusCode)

	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, false, fmt.Errorf("pubchem status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
}

func joinCIDs(cids []int64) string {
	parts := make([]string, len(cids))
	for i, cid := range cids {
		parts[i] = strconv.FormatInt(cid, 10)
	}
	return strings.Join(parts, ",")
}
