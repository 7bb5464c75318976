package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	retryablehttp "github.com/hashicorp/go-retryablehttp"

	"github.com/ddns-tools/renewer"
)

// Webhook posts a JSON payload describing the run to an HTTP endpoint.
// Transient HTTP failures are retried with backoff by the underlying client.
type Webhook struct {
	url     string
	client  *retryablehttp.Client
	payload func(*renewer.RunResult) any
}

// webhookPayload is the default body: the structured result plus a rendered
// text summary for consumers that only display strings.
type webhookPayload struct {
	Result  *renewer.RunResult `json:"result"`
	Summary string             `json:"summary"`
}

// NewWebhook returns a notifier that POSTs the run result to url.
func NewWebhook(url string) (*Webhook, error) {
	if url == "" {
		return nil, fmt.Errorf("webhook notifier: url required")
	}
	return &Webhook{
		url:    url,
		client: newHTTPClient(),
		payload: func(result *renewer.RunResult) any {
			return webhookPayload{Result: result, Summary: Render(result)}
		},
	}, nil
}

// NewTelegram returns a notifier that delivers the rendered summary through
// the Telegram Bot API sendMessage endpoint.
func NewTelegram(botToken, chatID string) (*Webhook, error) {
	if botToken == "" || chatID == "" {
		return nil, fmt.Errorf("telegram notifier: bot token and chat id required")
	}
	return &Webhook{
		url:    fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", botToken),
		client: newHTTPClient(),
		payload: func(result *renewer.RunResult) any {
			return map[string]string{
				"chat_id": chatID,
				"text":    Render(result),
			}
		},
	}, nil
}

func newHTTPClient() *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.RetryMax = 3
	c.RetryWaitMin = 1 * time.Second
	c.RetryWaitMax = 10 * time.Second
	c.HTTPClient.Timeout = 30 * time.Second
	c.Logger = log.New(io.Discard, "", 0)
	return c
}

// Notify implements the engine's Notifier interface.
func (w *Webhook) Notify(ctx context.Context, result *renewer.RunResult) error {
	body, err := json.Marshal(w.payload(result))
	if err != nil {
		return fmt.Errorf("webhook notifier: encode payload: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook notifier: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook notifier: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook notifier: endpoint returned %s", resp.Status)
	}
	return nil
}
