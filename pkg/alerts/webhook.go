package alerts

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
	"text/template"
	"time"

	"github.com/suzarilshah/aquanexus-sub003/pkg/config"
)

var (
	errWebhookDisabled   = errors.New("webhook alerter is disabled")
	errWebhookCooldown   = errors.New("alert is within cooldown period")
	errInvalidJSON       = errors.New("invalid JSON generated")
	errWebhookStatus     = errors.New("webhook returned non-2xx status")
	errTemplateParse     = errors.New("template parsing failed")
	errTemplateExecution = errors.New("template execution failed")
)

const webhookTimeout = 10 * time.Second

type AlertLevel string

const (
	Info    AlertLevel = "info"
	Warning AlertLevel = "warning"
	Error   AlertLevel = "error"
)

// Alert is a notification about a streaming session.
type Alert struct {
	Level         AlertLevel     `json:"level"`
	Title         string         `json:"title"`
	Message       string         `json:"message"`
	Timestamp     string         `json:"timestamp"`
	EnvironmentID string         `json:"environment_id"`
	SessionID     string         `json:"session_id,omitempty"`
	DeviceType    string         `json:"device_type,omitempty"`
	Details       map[string]any `json:"details,omitempty"`
}

func (a *Alert) cooldownKey() string {
	return a.Title + "|" + a.EnvironmentID + "|" + a.DeviceType
}

type WebhookAlerter struct {
	config         config.WebhookConfig
	template       *template.Template
	client         *http.Client
	lastAlertTimes map[string]time.Time
	mu             sync.Mutex
	bufferPool     *sync.Pool
}

// NewWebhookAlerter creates an alerter. The template "discord" selects the
// built-in Discord embed layout.
func NewWebhookAlerter(cfg config.WebhookConfig) (*WebhookAlerter, error) {
	w := &WebhookAlerter{
		config: cfg,
		client: &http.Client{
			Timeout: webhookTimeout,
		},
		lastAlertTimes: make(map[string]time.Time),
		bufferPool: &sync.Pool{
			New: func() interface{} {
				return new(bytes.Buffer)
			},
		},
	}

	text := cfg.Template
	if text == "discord" {
		text = DiscordTemplate
	}

	if text != "" {
		tmpl, err := template.New("webhook").Funcs(w.getTemplateFuncs()).Parse(text)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errTemplateParse, err)
		}

		w.template = tmpl
	}

	return w, nil
}

func (w *WebhookAlerter) IsEnabled() bool {
	return w.config.Enabled
}

func (w *WebhookAlerter) getTemplateFuncs() template.FuncMap {
	return template.FuncMap{
		"json": func(v interface{}) (string, error) {
			b, err := json.Marshal(v)
			if err != nil {
				return "", fmt.Errorf("JSON marshaling failed: %w", err)
			}

			return string(b), nil
		},
	}
}

func (w *WebhookAlerter) Alert(ctx context.Context, alert *Alert) error {
	if !w.IsEnabled() {
		return errWebhookDisabled
	}

	if err := w.checkCooldown(alert.cooldownKey()); err != nil {
		return err
	}

	if alert.Timestamp == "" {
		alert.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	payload, err := w.preparePayload(alert)
	if err != nil {
		return fmt.Errorf("failed to prepare payload: %w", err)
	}

	return w.sendRequest(ctx, payload)
}

func (w *WebhookAlerter) checkCooldown(key string) error {
	if w.config.Cooldown <= 0 {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	lastAlertTime, exists := w.lastAlertTimes[key]
	if exists && time.Since(lastAlertTime) < time.Duration(w.config.Cooldown) {
		log.Printf("Alert '%s' is within cooldown period, skipping", key)
		return errWebhookCooldown
	}

	w.lastAlertTimes[key] = time.Now()

	return nil
}

func (w *WebhookAlerter) preparePayload(alert *Alert) ([]byte, error) {
	buf := w.bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer w.bufferPool.Put(buf)

	if w.template == nil {
		if err := json.NewEncoder(buf).Encode(alert); err != nil {
			return nil, fmt.Errorf("failed to marshal alert: %w", err)
		}

		return append([]byte(nil), buf.Bytes()...), nil
	}

	if err := w.template.Execute(buf, map[string]interface{}{
		"alert": alert,
	}); err != nil {
		return nil, fmt.Errorf("%w: %w", errTemplateExecution, err)
	}

	if !json.Valid(buf.Bytes()) {
		return nil, errInvalidJSON
	}

	return append([]byte(nil), buf.Bytes()...), nil
}

func (w *WebhookAlerter) sendRequest(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.config.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	w.setHeaders(req)

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			log.Printf("failed to close response body: %v", err)
		}
	}(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

		return fmt.Errorf("%w: status=%d body=%s", errWebhookStatus, resp.StatusCode, string(body))
	}

	return nil
}

func (w *WebhookAlerter) setHeaders(req *http.Request) {
	hasContentType := false

	for _, header := range w.config.Headers {
		if strings.EqualFold(header.Key, "content-type") {
			hasContentType = true
		}

		req.Header.Set(header.Key, header.Value)
	}

	if !hasContentType {
		req.Header.Set("Content-Type", "application/json")
	}
}
