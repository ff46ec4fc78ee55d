package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Provider is the opaque push service invoked by the notifier. Delivery is
// best effort; the return value is only ever logged.
type Provider interface {
	Send(ctx context.Context, userID, body string) error
}

// WebhookProvider POSTs notifications to an external push relay.
type WebhookProvider struct {
	url    string
	client *http.Client
}

func NewWebhookProvider(url string) *WebhookProvider {
	return &WebhookProvider{
		url:    url,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

func (p *WebhookProvider) Send(ctx context.Context, userID, body string) error {
	payload, err := json.Marshal(map[string]string{
		"user_id": userID,
		"body":    body,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("push provider returned %d", resp.StatusCode)
	}
	return nil
}

// LogProvider is the dry-run provider used when no webhook is configured.
type LogProvider struct {
	Log *zap.Logger
}

func (p *LogProvider) Send(ctx context.Context, userID, body string) error {
	p.Log.Info("push (dry run)", zap.String("user_id", userID), zap.String("body", body))
	return nil
}
