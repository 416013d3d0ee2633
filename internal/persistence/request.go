package persistence

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/felixbrock/cropadvisory/internal/app"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

var ErrUnexpectedStatus = errors.New("unexpected response status code error")

// Backend is the advisory service every repo talks to.
type Backend struct {
	BaseUrl     string
	BaseHeaders []string
	Client      *http.Client
	// Limiter throttles outgoing calls when set.
	Limiter *rate.Limiter
}

type reqConfig struct {
	Method    string
	Path      string
	UrlParams url.Values
	Headers   []string
	Body      []byte
}

func (b Backend) client() *http.Client {
	if b.Client != nil {
		return b.Client
	}
	return http.DefaultClient
}

func (b Backend) url(path string, params url.Values) string {
	u := strings.TrimSuffix(b.BaseUrl, "/") + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

func request[T any](ctx context.Context, b Backend, config reqConfig, expectedResCode int) (*T, error) {
	if b.Limiter != nil {
		if err := b.Limiter.Wait(ctx); err != nil {
			return nil, errors.Wrap(err, "backend rate limit")
		}
	}

	req, err := http.NewRequestWithContext(ctx, config.Method, b.url(config.Path, config.UrlParams), bytes.NewReader(config.Body))
	if err != nil {
		return nil, errors.Wrapf(err, "build %s %s", config.Method, config.Path)
	}

	headers := append(append([]string{}, b.BaseHeaders...), config.Headers...)
	for i := 0; i < len(headers); i++ {
		headerKV := strings.SplitN(headers[i], ":", 2)
		if len(headerKV) != 2 {
			continue
		}
		req.Header.Set(strings.TrimSpace(headerKV[0]), strings.TrimSpace(headerKV[1]))
	}

	requestId := uuid.New().String()
	req.Header.Set("X-Request-Id", requestId)

	slog.Debug("backend request", "method", config.Method, "path", config.Path, "request_id", requestId)

	resp, err := b.client().Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", config.Method, config.Path)
	}

	body, err := app.Read(resp.Body)
	if resp.StatusCode != expectedResCode {
		return nil, errors.Wrapf(ErrUnexpectedStatus, "%s %s: got %d", config.Method, config.Path, resp.StatusCode)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", config.Method, config.Path)
	}

	t, err := app.ReadJSON[T](body)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", config.Method, config.Path)
	}

	return t, nil
}
