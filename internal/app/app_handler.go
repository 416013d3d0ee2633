package app

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// AppResp is a JSON answer for machine callers.
type AppResp struct {
	Error   error
	Message string
	Code    int
	Body    any
}

type Controller interface {
	Handle(http.ResponseWriter, *http.Request) *AppResp
}

type AppHandler struct {
	c Controller
}

func (h AppHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := h.c.Handle(w, r)

	if resp.Error != nil {
		slog.Error(fmt.Sprintf(`Error occured: %s`, resp.Error.Error()), "message", resp.Message)
	}

	code := resp.Code
	if code == 0 {
		code = http.StatusOK
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(resp.Body); err != nil {
		slog.Error(fmt.Sprintf(`Error occured: %s`, err.Error()))
	}
}

type healthController struct {
	repo HealthRepo
}

func (c healthController) Handle(w http.ResponseWriter, r *http.Request) *AppResp {
	status, err := c.repo.Check(r.Context())
	if err != nil {
		return &AppResp{
			Error:   err,
			Message: "advisory backend unreachable",
			Code:    http.StatusServiceUnavailable,
			Body:    map[string]string{"status": "degraded", "backend": "unreachable"},
		}
	}

	return &AppResp{Code: http.StatusOK, Body: map[string]string{"status": "ok", "backend": status}}
}
