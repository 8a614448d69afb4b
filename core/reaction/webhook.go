package reaction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/davenhart/slopwatch/core/pattern"
)

// webhookTimeout caps each delivery attempt.
const webhookTimeout = 5 * time.Second

// =============================================================================
// WebhookHandler
// =============================================================================

// WebhookHandler posts matches as JSON to an external URL. Delivery is
// best-effort and non-blocking; failures are logged and dropped.
type WebhookHandler struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

// NewWebhookHandler creates a webhook handler targeting url.
func NewWebhookHandler(url string, logger *slog.Logger) *WebhookHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookHandler{
		url:    url,
		client: &http.Client{Timeout: webhookTimeout},
		logger: logger,
	}
}

// Kind returns pattern.ReactionWebhook.
func (h *WebhookHandler) Kind() pattern.Reaction {
	return pattern.ReactionWebhook
}

// Handle posts the match asynchronously and returns immediately.
func (h *WebhookHandler) Handle(ctx context.Context, match *pattern.Match) error {
	payload, err := json.Marshal(match)
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	go h.post(context.WithoutCancel(ctx), payload)
	return nil
}

// post delivers one payload and logs any failure.
func (h *WebhookHandler) post(ctx context.Context, payload []byte) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(payload))
	if err != nil {
		h.logger.Warn("webhook request build failed", "url", h.url, "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		h.logger.Warn("webhook delivery failed", "url", h.url, "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		h.logger.Warn("webhook rejected", "url", h.url, "status", resp.StatusCode)
	}
}
