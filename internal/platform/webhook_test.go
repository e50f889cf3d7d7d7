package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookAdapterPublish(t *testing.T) {
	var got models.PublishRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"post_id":"123","url":"https://x.example/123","extra":true}`))
	}))
	defer srv.Close()

	a := NewWebhookAdapter(srv.URL, "token-1", srv.Client())
	resp, err := a.Publish(context.Background(), models.PublishRequest{
		PostID:   "p1",
		Platform: models.PlatformTwitter,
		Text:     "Hello",
		Extra:    models.PlatformExtra{"thread": true},
	})
	require.NoError(t, err)

	assert.Equal(t, "123", resp.PostID)
	assert.Equal(t, "https://x.example/123", resp.URL)
	assert.Equal(t, true, resp.Raw["extra"])
	assert.Equal(t, "Hello", got.Text)
	assert.Equal(t, true, got.Extra["thread"])
}

func TestWebhookAdapterErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited","code":88}}`))
	}))
	defer srv.Close()

	a := NewWebhookAdapter(srv.URL, "", srv.Client())
	_, err := a.Publish(context.Background(), models.PublishRequest{Platform: models.PlatformTwitter})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "rate limited")
}

func TestWebhookAdapterPlainErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewWebhookAdapter(srv.URL, "", nil).Publish(context.Background(), models.PublishRequest{Platform: models.PlatformReddit})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reddit returned status 502")
}
