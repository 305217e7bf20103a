package migration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/suzarilshah/aquanexus-sub003/pkg/config"
)

const (
	schedulerTimeout = 10 * time.Second
	maxErrorBody     = 512
)

type jobPatch struct {
	Job struct {
		Enabled bool `json:"enabled"`
	} `json:"job"`
}

// HTTPScheduler disables jobs through the scheduler's REST API.
type HTTPScheduler struct {
	baseURL    string
	token      string
	maxElapsed time.Duration
	client     *http.Client
	newBackOff func() backoff.BackOff
}

// NewHTTPScheduler builds a scheduler client from configuration.
func NewHTTPScheduler(cfg *config.SchedulerConfig) *HTTPScheduler {
	s := &HTTPScheduler{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		token:      cfg.Token,
		maxElapsed: time.Duration(cfg.MaxElapsed),
		client:     &http.Client{Timeout: schedulerTimeout},
	}

	s.newBackOff = func() backoff.BackOff {
		bo := backoff.NewExponentialBackOff()
		bo.MaxElapsedTime = s.maxElapsed

		return bo
	}

	return s
}

// DisableJob turns the job off. Server errors and transport failures are
// retried with exponential backoff; other 4xx responses are final. A job
// that no longer exists is treated as disabled.
func (s *HTTPScheduler) DisableJob(ctx context.Context, jobID string) error {
	var patch jobPatch

	body, err := json.Marshal(patch)
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/jobs/%s", s.baseURL, url.PathEscape(jobID))
	attempt := 0

	operation := func() error {
		attempt++

		return s.patch(ctx, endpoint, body)
	}

	err = backoff.Retry(operation, backoff.WithContext(s.newBackOff(), ctx))
	if err != nil {
		return fmt.Errorf("%w: job %s after %d attempts: %w", ErrScheduler, jobID, attempt, err)
	}

	return nil
}

func (s *HTTPScheduler) patch(ctx context.Context, endpoint string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(err)
	}

	req.Header.Set("Content-Type", "application/json")

	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		log.Printf("Scheduler request failed: %v", err)

		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	switch {
	case resp.StatusCode < http.StatusMultipleChoices:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		log.Printf("Scheduler job %s not found, treating as retired", endpoint)

		return nil
	case resp.StatusCode < http.StatusInternalServerError && resp.StatusCode != http.StatusTooManyRequests:
		return backoff.Permanent(fmt.Errorf("%w: %d %s", errSchedulerRejected, resp.StatusCode, msg))
	default:
		log.Printf("Scheduler returned %d, retrying", resp.StatusCode)

		return fmt.Errorf("%w: %d %s", errSchedulerStatus, resp.StatusCode, msg)
	}
}
