package persistence

import (
	"context"

	"github.com/felixbrock/cropadvisory/internal/domain"
)

type HealthRepo struct {
	Backend
}

func (r HealthRepo) Check(ctx context.Context) (string, error) {
	h, err := request[domain.Health](ctx, r.Backend, reqConfig{Method: "GET", Path: "/health"}, 200)
	if err != nil {
		return "", err
	}

	return h.Status, nil
}
