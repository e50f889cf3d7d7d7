package platform

import (
	"context"
	"fmt"

	"github.com/maheshrc27/crosspost/internal/models"
)

// Adapter publishes one payload to one destination.
type Adapter interface {
	Publish(ctx context.Context, req models.PublishRequest) (*models.PublishResponse, error)
}

type AdapterFunc func(ctx context.Context, req models.PublishRequest) (*models.PublishResponse, error)

func (f AdapterFunc) Publish(ctx context.Context, req models.PublishRequest) (*models.PublishResponse, error) {
	return f(ctx, req)
}

// Registry dispatches publish calls by platform. Only platforms of the
// closed models.Platforms set can be registered.
type Registry struct {
	adapters map[models.Platform]Adapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[models.Platform]Adapter)}
}

func (r *Registry) Register(p models.Platform, a Adapter) error {
	if !p.Valid() {
		return fmt.Errorf("%w: %q", models.ErrUnsupportedPlatform, p)
	}
	if a == nil {
		return fmt.Errorf("nil adapter for %s", p)
	}
	r.adapters[p] = a
	return nil
}

func (r *Registry) Supports(p models.Platform) bool {
	_, ok := r.adapters[p]
	return ok
}

func (r *Registry) Publish(ctx context.Context, p models.Platform, req models.PublishRequest) (*models.PublishResponse, error) {
	a, ok := r.adapters[p]
	if !ok {
		return nil, fmt.Errorf("%w: %q", models.ErrUnsupportedPlatform, p)
	}
	return a.Publish(ctx, req)
}
