package persistence

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/url"

	"github.com/felixbrock/cropadvisory/internal/domain"
	"github.com/pkg/errors"
)

type ChatRepo struct {
	Backend
}

func (r ChatRepo) Send(ctx context.Context, chat domain.ChatRequest) (*domain.ChatReply, error) {
	body, err := json.Marshal(chat)
	if err != nil {
		return nil, errors.Wrap(err, "encode chat request")
	}

	reply, err := request[domain.ChatReply](ctx, r.Backend, reqConfig{
		Method:  "POST",
		Path:    "/chatbot",
		Body:    body,
		Headers: []string{"Content-Type:application/json"}},
		200)
	if err != nil {
		return nil, err
	}

	return reply, nil
}

// Voice uploads a recorded question. Context travels in the query string,
// the recording as the multipart "file" part.
func (r ChatRepo) Voice(ctx context.Context, q domain.VoiceQuery) (*domain.VoiceReply, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", q.Filename)
	if err != nil {
		return nil, errors.Wrap(err, "create file part")
	}
	if _, err = part.Write(q.Audio); err != nil {
		return nil, errors.Wrap(err, "write file part")
	}
	if err = mw.Close(); err != nil {
		return nil, errors.Wrap(err, "close multipart body")
	}

	reply, err := request[domain.VoiceReply](ctx, r.Backend, reqConfig{
		Method: "POST",
		Path:   "/voice-query",
		UrlParams: url.Values{
			"district": {q.District},
			"crop":     {q.Crop},
			"lang":     {string(q.Lang)}},
		Body:    buf.Bytes(),
		Headers: []string{"Content-Type:" + mw.FormDataContentType()}},
		200)
	if err != nil {
		return nil, err
	}

	return reply, nil
}
