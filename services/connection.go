package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// TestConnectionResult is returned by the integration connection tests.
// Tests never fail with an error; the outcome is always in the result.
type TestConnectionResult struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ConnectionTester pings externally configured webhook endpoints with a
// test action envelope to verify they are reachable.
type ConnectionTester struct {
	httpClient *http.Client
}

func NewConnectionTester() *ConnectionTester {
	return &ConnectionTester{
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (t *ConnectionTester) ping(ctx context.Context, webhookURL string, payload map[string]interface{}, headers map[string]string) TestConnectionResult {
	body, err := json.Marshal(payload)
	if err != nil {
		return TestConnectionResult{Success: false, Message: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewBuffer(body))
	if err != nil {
		return TestConnectionResult{Success: false, Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return TestConnectionResult{
			Success: false,
			Message: err.Error(),
			Details: map[string]interface{}{"error": err.Error()},
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return TestConnectionResult{
			Success: false,
			Message: fmt.Sprintf("Connection failed: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
			Details: map[string]interface{}{"status": resp.StatusCode},
		}
	}

	var details map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&details)

	return TestConnectionResult{
		Success: true,
		Message: "Connection successful",
		Details: details,
	}
}

// TestN8N pings a generic n8n webhook.
func (t *ConnectionTester) TestN8N(ctx context.Context, webhookURL string) TestConnectionResult {
	if strings.TrimSpace(webhookURL) == "" {
		return TestConnectionResult{Success: false, Message: "Webhook URL is required"}
	}
	return t.ping(ctx, webhookURL, map[string]interface{}{
		"action":    "test",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}, nil)
}

// TestWhatsApp pings the WhatsApp integration endpoint, passing the API key
// as a header when present.
func (t *ConnectionTester) TestWhatsApp(ctx context.Context, webhookURL, apiKey string) TestConnectionResult {
	if webhookURL == "" {
		return TestConnectionResult{Success: false, Message: "WhatsApp webhook URL is required"}
	}
	headers := map[string]string{}
	if apiKey != "" {
		headers["X-API-Key"] = apiKey
	}
	return t.ping(ctx, webhookURL, map[string]interface{}{
		"action":    "test",
		"service":   "whatsapp",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}, headers)
}

// TestTelegram pings the Telegram integration endpoint. The bot token rides
// in the payload, matching what the workflow expects.
func (t *ConnectionTester) TestTelegram(ctx context.Context, webhookURL, botToken string) TestConnectionResult {
	if webhookURL == "" {
		return TestConnectionResult{Success: false, Message: "Telegram webhook URL is required"}
	}
	return t.ping(ctx, webhookURL, map[string]interface{}{
		"action":    "test",
		"service":   "telegram",
		"botToken":  botToken,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}, nil)
}

// TestInstagram pings the Instagram integration endpoint with a bearer token
// when one is configured.
func (t *ConnectionTester) TestInstagram(ctx context.Context, webhookURL, token string) TestConnectionResult {
	if webhookURL == "" {
		return TestConnectionResult{Success: false, Message: "Instagram webhook URL is required"}
	}
	headers := map[string]string{}
	if token != "" {
		headers["Authorization"] = "Bearer " + token
	}
	return t.ping(ctx, webhookURL, map[string]interface{}{
		"action":    "test",
		"service":   "instagram",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}, headers)
}
