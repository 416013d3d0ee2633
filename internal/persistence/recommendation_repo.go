package persistence

import (
	"context"
	"encoding/json"

	"github.com/felixbrock/cropadvisory/internal/domain"
	"github.com/pkg/errors"
)

type RecommendationRepo struct {
	Backend
}

func (r RecommendationRepo) Recommend(ctx context.Context, inputs domain.SoilInputs) (string, error) {
	body, err := json.Marshal(inputs)
	if err != nil {
		return "", errors.Wrap(err, "encode soil inputs")
	}

	rec, err := request[domain.Recommendation](ctx, r.Backend, reqConfig{
		Method:  "POST",
		Path:    "/recommend-crop",
		Body:    body,
		Headers: []string{"Content-Type:application/json"}},
		200)
	if err != nil {
		return "", err
	}

	return rec.Crop, nil
}
