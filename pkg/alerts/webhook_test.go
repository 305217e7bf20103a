package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suzarilshah/aquanexus-sub003/pkg/config"
	"go.uber.org/mock/gomock"
)

func failedAlert() *Alert {
	return &Alert{
		Level:         Error,
		Title:         "Session failed",
		Message:       "5 consecutive errors",
		EnvironmentID: "env-1",
		SessionID:     "s-1",
		DeviceType:    "fish",
		Details:       map[string]any{"cursor": 42},
	}
}

func TestWebhookAlerter_DefaultPayload(t *testing.T) {
	var got Alert

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "token", r.Header.Get("X-Token"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	w, err := NewWebhookAlerter(config.WebhookConfig{
		Enabled: true,
		URL:     srv.URL,
		Headers: []config.Header{{Key: "X-Token", Value: "token"}},
	})
	require.NoError(t, err)

	require.NoError(t, w.Alert(context.Background(), failedAlert()))
	assert.Equal(t, "env-1", got.EnvironmentID)
	assert.Equal(t, Error, got.Level)
	assert.NotEmpty(t, got.Timestamp)
}

func TestWebhookAlerter_DiscordTemplate(t *testing.T) {
	var body map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	}))
	defer srv.Close()

	w, err := NewWebhookAlerter(config.WebhookConfig{Enabled: true, URL: srv.URL, Template: "discord"})
	require.NoError(t, err)

	require.NoError(t, w.Alert(context.Background(), failedAlert()))

	embeds, ok := body["embeds"].([]any)
	require.True(t, ok)
	require.Len(t, embeds, 1)

	embed := embeds[0].(map[string]any)
	assert.Equal(t, "Session failed", embed["title"])
	assert.InDelta(t, 15158332, embed["color"], 0)
}

func TestWebhookAlerter_Errors(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		w, err := NewWebhookAlerter(config.WebhookConfig{})
		require.NoError(t, err)
		require.ErrorIs(t, w.Alert(context.Background(), failedAlert()), errWebhookDisabled)
	})

	t.Run("bad template", func(t *testing.T) {
		_, err := NewWebhookAlerter(config.WebhookConfig{Enabled: true, Template: "{{"})
		require.ErrorIs(t, err, errTemplateParse)
	})

	t.Run("template producing invalid JSON", func(t *testing.T) {
		w, err := NewWebhookAlerter(config.WebhookConfig{Enabled: true, URL: "http://unused", Template: "{{.alert.Title}}"})
		require.NoError(t, err)
		require.ErrorIs(t, w.Alert(context.Background(), failedAlert()), errInvalidJSON)
	})

	t.Run("non-2xx", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "nope", http.StatusForbidden)
		}))
		defer srv.Close()

		w, err := NewWebhookAlerter(config.WebhookConfig{Enabled: true, URL: srv.URL})
		require.NoError(t, err)

		err = w.Alert(context.Background(), failedAlert())
		require.ErrorIs(t, err, errWebhookStatus)
		assert.Contains(t, err.Error(), "403")
	})
}

func TestWebhookAlerter_Cooldown(t *testing.T) {
	var hits atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	w, err := NewWebhookAlerter(config.WebhookConfig{
		Enabled:  true,
		URL:      srv.URL,
		Cooldown: config.Duration(time.Hour),
	})
	require.NoError(t, err)

	ctx := context.Background()

	require.NoError(t, w.Alert(ctx, failedAlert()))
	require.ErrorIs(t, w.Alert(ctx, failedAlert()), errWebhookCooldown)

	// Same title for another environment is a different alert.
	other := failedAlert()
	other.EnvironmentID = "env-2"
	require.NoError(t, w.Alert(ctx, other))

	assert.Equal(t, int32(2), hits.Load())
}

func TestMulti(t *testing.T) {
	ctrl := gomock.NewController(t)

	enabled := NewMockAlertService(ctrl)
	cooling := NewMockAlertService(ctrl)
	disabled := NewMockAlertService(ctrl)
	broken := NewMockAlertService(ctrl)

	enabled.EXPECT().IsEnabled().Return(true).AnyTimes()
	cooling.EXPECT().IsEnabled().Return(true).AnyTimes()
	disabled.EXPECT().IsEnabled().Return(false).AnyTimes()
	broken.EXPECT().IsEnabled().Return(true).AnyTimes()

	enabled.EXPECT().Alert(gomock.Any(), gomock.Any()).Return(nil)
	cooling.EXPECT().Alert(gomock.Any(), gomock.Any()).Return(errWebhookCooldown)
	broken.EXPECT().Alert(gomock.Any(), gomock.Any()).Return(errors.New("boom"))

	m := Multi{enabled, cooling, disabled, broken}
	assert.True(t, m.IsEnabled())

	err := m.Alert(context.Background(), failedAlert())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.NotContains(t, err.Error(), "cooldown")

	assert.False(t, Multi{disabled}.IsEnabled())
}
