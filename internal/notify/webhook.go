package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// WebhookNotifier posts each message as JSON to a mail-relay webhook
// (an n8n or Zapier flow that performs the actual SMTP send).
type WebhookNotifier struct {
	url    string
	from   string
	client *http.Client
}

// NewWebhookNotifier creates a WebhookNotifier. A zero timeout defaults to
// 15 seconds.
func NewWebhookNotifier(url, from string, timeout time.Duration) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &WebhookNotifier{
		url:    url,
		from:   from,
		client: &http.Client{Timeout: timeout},
	}
}

type webhookMessage struct {
	From    string `json:"from,omitempty"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Send posts the message once. Any non-2xx status is an error.
func (w *WebhookNotifier) Send(ctx context.Context, to, subject, body string) error {
	payload, err := json.Marshal(webhookMessage{From: w.from, To: to, Subject: subject, Body: body})
	if err != nil {
		return eris.Wrap(err, "notify: marshal webhook message")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "notify: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "notify: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return eris.Errorf("notify: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
