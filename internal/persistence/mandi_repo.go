package persistence

import (
	"context"
	"net/url"

	"github.com/felixbrock/cropadvisory/internal/domain"
)

type MandiRepo struct {
	Backend
	State string
}

// Price returns the quoted price of crop in the repo's region. A nil
// price means the backend had no quote.
func (r MandiRepo) Price(ctx context.Context, crop string) (*float64, error) {
	state := r.State
	if state == "" {
		state = domain.DefaultState
	}

	quote, err := request[domain.MandiQuote](ctx, r.Backend, reqConfig{
		Method:    "GET",
		Path:      "/mandi-price",
		UrlParams: url.Values{"crop": {crop}, "state": {state}}},
		200)
	if err != nil {
		return nil, err
	}

	return quote.Price, nil
}
