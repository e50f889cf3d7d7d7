package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/maheshrc27/crosspost/internal/models"
)

type WebhookErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// WebhookAdapter posts the JSON request to a publishing endpoint that fronts
// one social network and expects {"post_id": ..., "url": ...} back.
type WebhookAdapter struct {
	endpoint string
	token    string
	client   *http.Client
}

func NewWebhookAdapter(endpoint, token string, client *http.Client) *WebhookAdapter {
	if client == nil {
		client = http.DefaultClient
	}
	return &WebhookAdapter{endpoint: endpoint, token: token, client: client}
}

func (a *WebhookAdapter) Publish(ctx context.Context, req models.PublishRequest) (*models.PublishResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if a.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.client.Do(httpReq)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp WebhookErrorResponse
		if json.Unmarshal(raw, &errResp) == nil && errResp.Error.Message != "" {
			return nil, fmt.Errorf("%s returned %d: %s", req.Platform, resp.StatusCode, errResp.Error.Message)
		}
		return nil, fmt.Errorf("%s returned status %d", req.Platform, resp.StatusCode)
	}

	var out models.PublishResponse
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
		var all map[string]any
		if json.Unmarshal(raw, &all) == nil {
			out.Raw = all
		}
	}
	return &out, nil
}
