package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

type renderer interface {
	Render(ctx context.Context, w io.Writer) error
}

type ComponentResponse struct {
	Error       error
	Message     string
	Code        int
	ContentType string
	Component   renderer
	// Redirect answers with 303 See Other (HX-Redirect for htmx) instead
	// of rendering Component.
	Redirect string
}

type ComponentHandler func(http.ResponseWriter, *http.Request) *ComponentResponse

func (ch ComponentHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := ch(w, r)

	if resp.Error != nil {
		slog.Error(fmt.Sprintf(`Error occured: %s`, resp.Error.Error()), "path", r.URL.Path, "message", resp.Message)
	}

	if resp.Redirect != "" {
		if isHX(r) {
			w.Header().Set("HX-Redirect", resp.Redirect)
			w.WriteHeader(http.StatusOK)
			return
		}
		http.Redirect(w, r, resp.Redirect, http.StatusSeeOther)
		return
	}

	code := resp.Code
	if code == 0 {
		code = http.StatusOK
	}

	contentType := resp.ContentType
	if contentType == "" {
		contentType = "text/html; charset=utf-8"
	}

	var buf bytes.Buffer
	if err := resp.Component.Render(r.Context(), &buf); err != nil {
		slog.Error(fmt.Sprintf(`Error occured: %s`, err.Error()))
		http.Error(w, "templ: failed to render template", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(code)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Error(fmt.Sprintf(`Error occured: %s`, err.Error()))
	}
}

func isHX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
