package publishers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/samvad-hq/signed-book-watch/pkg/httpclient"
)

const maxWebhookSnippet = 512

// httpPublisher posts each event as JSON to a webhook.
type httpPublisher struct {
	id     string
	hook   HTTPPublisherConfig
	client *resty.Client
	log    Logger
}

func newHTTPPublisher(_ context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("publisher %q missing http configuration", cfg.ID)
	}
	return &httpPublisher{
		id:   cfg.ID,
		hook: *cfg.HTTP,
		client: httpclient.NewRestyHTTPClient(httpclient.Options{
			Timeout:   time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second,
			UserAgent: webhookUserAgent,
		}),
		log: ensureLogger(log),
	}, nil
}

func (h *httpPublisher) ID() string   { return h.id }
func (h *httpPublisher) Type() string { return TypeHTTP }
func (h *httpPublisher) Close() error { return nil }

func (h *httpPublisher) Publish(ctx context.Context, evt Event) error {
	resp, err := h.client.R().
		SetContext(ctx).
		SetHeaders(h.hook.Headers).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Event-Type", evt.Type).
		SetBody(evt).
		Execute(h.hook.Method, h.hook.URL)
	if err != nil {
		return fmt.Errorf("deliver webhook: %w", err)
	}
	if code := resp.StatusCode(); code < 200 || code > 299 {
		return fmt.Errorf("webhook answered %d: %s", code, webhookSnippet(resp.Body()))
	}

	h.log.DebugObj("webhook accepted event", "webhook", map[string]any{
		"publisher_id": h.id,
		"status":       resp.StatusCode(),
	})
	return nil
}

func webhookSnippet(body []byte) string {
	if len(body) > maxWebhookSnippet {
		body = body[:maxWebhookSnippet]
	}
	return strings.TrimSpace(string(body))
}
