package persistence

import (
	"context"
	"encoding/json"

	"github.com/felixbrock/cropadvisory/internal/domain"
	"github.com/pkg/errors"
)

type AuthRepo struct {
	Backend
}

// Authenticate posts credentials to the login or signup route and reports
// the backend's success flag.
func (r AuthRepo) Authenticate(ctx context.Context, mode domain.AuthMode, creds domain.Credentials) (bool, error) {
	body, err := json.Marshal(creds)
	if err != nil {
		return false, errors.Wrap(err, "encode credentials")
	}

	res, err := request[domain.AuthResult](ctx, r.Backend, reqConfig{
		Method:  "POST",
		Path:    mode.Path(),
		Body:    body,
		Headers: []string{"Content-Type:application/json"}},
		200)
	if err != nil {
		return false, err
	}

	return res.Success, nil
}
