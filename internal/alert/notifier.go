package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// WebhookNotifier posts each alert message as a JSON body to a fixed
// URL. It is the reference Notifier: the retrieval pack carries no
// Nostr (or any other direct-message) client library, so the outbound
// half of the admin-alert contract is kept generic rather than
// fabricating a protocol dependency (see DESIGN.md).
type WebhookNotifier struct {
	URL    string
	client *http.Client
}

// NewWebhookNotifier builds a WebhookNotifier posting to url.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{URL: url, client: &http.Client{Timeout: 10 * time.Second}}
}

// Notify posts {"message": message} to the configured webhook URL.
func (n *WebhookNotifier) Notify(ctx context.Context, message string) error {
	body, err := json.Marshal(map[string]string{"message": message})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
