package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"sitewatch/internal/monitor"
)

// WebhookNotifier posts the notification payload to the external mailer
// service. Delivery semantics past the POST are the mailer's concern.
type WebhookNotifier struct {
	endpoint   string
	httpClient *http.Client
}

var _ monitor.Notifier = (*WebhookNotifier)(nil)

// NewWebhookNotifier builds a notifier for the given endpoint.
func NewWebhookNotifier(endpoint string, timeout time.Duration) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookNotifier{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Send posts the payload as JSON.
func (n *WebhookNotifier) Send(ctx context.Context, notification monitor.Notification) error {
	if n.endpoint == "" {
		return fmt.Errorf("notifier endpoint not configured")
	}

	body, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("notifier status %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}
	return nil
}
