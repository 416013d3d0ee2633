package app

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/felixbrock/cropadvisory/internal/domain"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
)

type Config struct {
	Port        string
	ApiBase     string
	State       string
	DefaultLang domain.Language
	SessionTTL  time.Duration
	SweepSpec   string
	RateLimit   float64
	RateBurst   int
}

type App struct {
	AuthRepo           AuthRepo
	WeatherRepo        WeatherRepo
	MandiRepo          MandiRepo
	RecommendationRepo RecommendationRepo
	ChatRepo           ChatRepo
	HealthRepo         HealthRepo
	Sessions           *SessionStore
	// Limiter is optional; nil disables inbound rate limiting.
	Limiter *ClientLimiter
	Static  fs.FS
	Config  Config
}

func (a *App) Router() *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = ComponentHandler(a.notFound)
	r.MethodNotAllowedHandler = ComponentHandler(a.methodNotAllowed)

	if a.Static != nil {
		r.PathPrefix("/static/").
			Handler(http.StripPrefix("/static/", http.FileServer(http.FS(a.Static)))).
			Methods("GET")
	}

	r.Handle("/", ComponentHandler(a.index)).Methods("GET")
	r.Handle("/healthz", AppHandler{c: healthController{repo: a.HealthRepo}}).Methods("GET")

	post := func(path string, h ComponentHandler) {
		var handler http.Handler = h
		if a.Limiter != nil {
			handler = a.Limiter.Middleware(ComponentHandler(a.tooManyRequests))(handler)
		}
		r.Handle(path, handler).Methods("POST")
	}

	post("/auth", a.authenticate)
	post("/auth/mode", a.toggleAuthMode)
	post("/lang", a.setLanguage)
	post("/weather", a.fetchWeather)
	post("/mandi-price", a.fetchMandiPrice)
	post("/recommend-crop", a.fetchRecommendation)
	post("/chatbot", a.sendChatMessage)
	post("/voice-query", a.sendVoiceQuery)

	return r
}

// Start serves until ctx is done, then shuts down gracefully.
func (a *App) Start(ctx context.Context) error {
	sweeper, err := a.scheduleSweeps()
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + a.Config.Port,
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info(fmt.Sprintf("App running on %s...", a.Config.Port), "backend", a.Config.ApiBase)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		<-sweeper.Stop().Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		slog.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func (a *App) scheduleSweeps() (*cron.Cron, error) {
	spec := a.Config.SweepSpec
	if spec == "" {
		spec = "@every 10m"
	}

	c := cron.New()
	if _, err := c.AddFunc(spec, a.sweep); err != nil {
		return nil, errors.Wrapf(err, "schedule sweeps %q", spec)
	}
	c.Start()

	return c, nil
}

func (a *App) sweep() {
	sessions := a.Sessions.Sweep()

	clients := 0
	if a.Limiter != nil {
		clients = a.Limiter.Sweep()
	}

	slog.Info("swept idle state", "sessions", sessions, "clients", clients, "live", a.Sessions.Len())
}

// audioURL resolves a relative audio link against the backend base URL.
func (a *App) audioURL(rel string) string {
	return strings.TrimSuffix(a.Config.ApiBase, "/") + rel
}
