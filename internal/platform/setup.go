package platform

import (
	"log/slog"
	"net/http"

	configs "github.com/maheshrc27/crosspost/configs"
	"github.com/maheshrc27/crosspost/internal/models"
)

// NewRegistryFromConfig registers a webhook adapter for every platform with a
// configured endpoint and the YouTube adapter when credentials are present.
func NewRegistryFromConfig(cfg *configs.Config, media mediaSource, client *http.Client) (*Registry, error) {
	r := NewRegistry()

	for _, p := range models.Platforms {
		hook, ok := cfg.Webhooks[p]
		if !ok || hook.URL == "" {
			continue
		}
		if err := r.Register(p, NewWebhookAdapter(hook.URL, hook.Token, client)); err != nil {
			return nil, err
		}
		slog.Info("platform adapter registered", "platform", p, "kind", "webhook")
	}

	if cfg.Youtube.RefreshToken != "" {
		if err := r.Register(models.PlatformYoutube, NewYoutubeAdapter(cfg.Youtube, media)); err != nil {
			return nil, err
		}
		slog.Info("platform adapter registered", "platform", models.PlatformYoutube, "kind", "youtube")
	}

	return r, nil
}
