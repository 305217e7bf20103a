package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"github.com/suzarilshah/aquanexus-sub003/pkg/config"
	"golang.org/x/time/rate"
)

const (
	telemetryPath = "/telemetry"
	maxErrorBody  = 512
)

// HTTPClient is the Client for the ingestion API. Requests are rate limited
// and go through a circuit breaker that only counts transport errors and 5xx
// responses, so a single misconfigured device cannot open it.
type HTTPClient struct {
	baseURL    string
	client     *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	bufferPool *sync.Pool
	onState    func(name, state string)
}

// ClientOption configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithStateListener is called with the breaker's new state on every change.
func WithStateListener(fn func(name, state string)) ClientOption {
	return func(c *HTTPClient) {
		c.onState = fn
	}
}

// NewHTTPClient builds a client from validated configuration.
func NewHTTPClient(cfg *config.IngestConfig, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		client: &http.Client{
			Timeout: time.Duration(cfg.Timeout),
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		bufferPool: &sync.Pool{
			New: func() interface{} {
				return new(bytes.Buffer)
			},
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	c.breaker = c.newBreaker("ingest", cfg.Breaker.MaxFailures, time.Duration(cfg.Breaker.OpenTimeout))

	return c
}

func (c *HTTPClient) newBreaker(name string, fails int, open time.Duration) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: open,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(fails) //nolint:gosec // validated positive
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errClientStatus)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("Circuit breaker %s changed from %s to %s", name, from, to)

			if c.onState != nil {
				c.onState(name, to.String())
			}
		},
	})
}

// Submit posts a telemetry payload.
func (c *HTTPClient) Submit(ctx context.Context, payload *Payload) error {
	return c.send(ctx, http.MethodPost, payload)
}

// Purge asks the ingestion API to drop a device's stored telemetry.
func (c *HTTPClient) Purge(ctx context.Context, req *PurgeRequest) error {
	return c.send(ctx, http.MethodDelete, req)
}

// BreakerState reports the circuit breaker state, e.g. "closed" or "open".
func (c *HTTPClient) BreakerState() string {
	return c.breaker.State().String()
}

func (c *HTTPClient) send(ctx context.Context, method string, body interface{}) error {
	buf := c.bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer c.bufferPool.Put(buf)

	// Local encoding failures never count against the breaker.
	if err := json.NewEncoder(buf).Encode(body); err != nil {
		return fmt.Errorf("%w: %w", errEncode, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+telemetryPath, buf)
	if err != nil {
		return fmt.Errorf("%w: %w", errEncode, err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %w", errRequest, err)
	}

	_, err = c.breaker.Execute(func() (interface{}, error) {
		return nil, c.do(req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	return err
}

func (c *HTTPClient) do(req *http.Request) error {
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", errRequest, err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			log.Printf("failed to close response body: %v", err)
		}
	}(resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)

		return nil
	}

	msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	statusErr := errClientStatus
	if resp.StatusCode >= http.StatusInternalServerError {
		statusErr = errServerStatus
	}

	return fmt.Errorf("%w: status=%d body=%s", statusErr, resp.StatusCode, strings.TrimSpace(string(msg)))
}
