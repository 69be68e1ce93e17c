// Package alert forwards warning-and-above log records to an operator
// webhook, on top of normal log output.
package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// Handler wraps another slog.Handler and additionally posts records at
// slog.LevelWarn or above to a webhook as JSON. Webhook delivery failures are
// swallowed: alerting must never take the bot down or recurse into itself.
type Handler struct {
	next       slog.Handler
	webhookURL string
	client     *retryablehttp.Client
}

// NewHandler wraps next. An empty webhookURL disables forwarding.
func NewHandler(next slog.Handler, webhookURL string) *Handler {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.RetryWaitMin = 100 * time.Millisecond
	client.RetryWaitMax = time.Second
	client.HTTPClient.Timeout = 10 * time.Second
	client.Logger = nil

	return &Handler{
		next:       next,
		webhookURL: webhookURL,
		client:     client,
	}
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *Handler) Handle(ctx context.Context, record slog.Record) error {
	if h.webhookURL != "" && record.Level >= slog.LevelWarn {
		h.forward(ctx, record)
	}
	return h.next.Handle(ctx, record)
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{next: h.next.WithAttrs(attrs), webhookURL: h.webhookURL, client: h.client}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{next: h.next.WithGroup(name), webhookURL: h.webhookURL, client: h.client}
}

func (h *Handler) forward(ctx context.Context, record slog.Record) {
	payload := map[string]any{
		"level":   record.Level.String(),
		"message": record.Message,
		"time":    record.Time.UTC().Format(time.RFC3339),
	}
	record.Attrs(func(a slog.Attr) bool {
		payload[a.Key] = a.Value.String()
		return true
	})

	body, err := json.Marshal(payload)
	if err != nil {
		return
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, "POST", h.webhookURL, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return
	}
	resp.Body.Close()
}
