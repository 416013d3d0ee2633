package app

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/pkg/errors"
)

// MaxBodyBytes caps how much of a backend answer is buffered.
const MaxBodyBytes = 1 << 20

var ErrEmptyBody = errors.New("no reader content error")

// Read drains and closes reader. An empty body is an error: every backend
// endpoint answers with a JSON object.
func Read(reader io.ReadCloser) ([]byte, error) {
	defer func() {
		if err := reader.Close(); err != nil {
			slog.Error(fmt.Sprintf("Error occured: %s", err.Error()))
		}
	}()

	content, err := io.ReadAll(io.LimitReader(reader, MaxBodyBytes))
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}

	if len(content) == 0 {
		return nil, ErrEmptyBody
	}

	return content, nil
}

func ReadJSON[T any](content []byte) (*T, error) {
	var t T
	if err := json.Unmarshal(content, &t); err != nil {
		return nil, errors.Wrap(err, "decode body")
	}

	return &t, nil
}
