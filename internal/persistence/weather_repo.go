package persistence

import (
	"context"
	"net/url"

	"github.com/felixbrock/cropadvisory/internal/domain"
	"github.com/pkg/errors"
)

type WeatherRepo struct {
	Backend
}

func (r WeatherRepo) Read(ctx context.Context, district string) (*domain.WeatherReport, error) {
	report, err := request[domain.WeatherReport](ctx, r.Backend, reqConfig{
		Method:    "GET",
		Path:      "/weather",
		UrlParams: url.Values{"district": {district}}},
		200)
	if err != nil {
		return nil, err
	}

	if report.Latest == nil {
		return nil, errors.Errorf("weather for %s: no latest reading", district)
	}

	return report, nil
}
