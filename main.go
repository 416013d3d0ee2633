package main

import (
	"context"
	"embed"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/felixbrock/cropadvisory/internal/app"
	"github.com/felixbrock/cropadvisory/internal/domain"
	"github.com/felixbrock/cropadvisory/internal/persistence"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	_ "go.uber.org/automaxprocs"
	"golang.org/x/time/rate"
)

//go:embed static
var staticFiles embed.FS

const (
	envPrefix   = "ADVISORY"
	limiterIdle = time.Hour
)

func newRootCmd() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:          "cropadvisory",
		Short:        "Smart Crop Advisory web front end",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(v)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), v)
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file (yaml, toml or json)")
	flags.String("port", "3000", "listen port")
	flags.String("api-base", "http://127.0.0.1:8000", "advisory backend base URL")
	flags.String("state", domain.DefaultState, "mandi price region")
	flags.String("lang", string(domain.LanguageEnglish), "default language (en, pa)")
	flags.Duration("request-timeout", 15*time.Second, "backend request timeout")
	flags.Duration("session-ttl", 12*time.Hour, "idle session lifetime")
	flags.String("sweep-spec", "@every 10m", "cron spec for idle session sweeps")
	flags.Float64("rate-limit", 5, "form posts per second per client, 0 disables")
	flags.Int("rate-burst", 20, "form post burst per client")
	flags.Float64("backend-rps", 0, "backend requests per second, 0 is unlimited")
	flags.BoolP("verbose", "v", false, "debug logging")

	if err := v.BindPFlags(flags); err != nil {
		panic(err)
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Serve the advisory UI",
			RunE: func(cmd *cobra.Command, args []string) error {
				return serve(cmd.Context(), v)
			},
		},
		&cobra.Command{
			Use:   "health",
			Short: "Check that the advisory backend answers",
			RunE: func(cmd *cobra.Command, args []string) error {
				return health(cmd.Context(), v, cmd.OutOrStdout())
			},
		},
	)

	return root
}

func initConfig(v *viper.Viper) error {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindEnv("port", envPrefix+"_PORT", "GOPORT"); err != nil {
		return err
	}

	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return errors.Wrapf(err, "read config %s", file)
		}
	}

	level := slog.LevelInfo
	if v.GetBool("verbose") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	return nil
}

func config(v *viper.Viper) (app.Config, error) {
	lang, err := domain.ParseLanguage(v.GetString("lang"))
	if err != nil {
		return app.Config{}, err
	}

	apiBase := v.GetString("api-base")
	if apiBase == "" {
		return app.Config{}, errors.New("api-base must be set")
	}

	return app.Config{
		Port:        v.GetString("port"),
		ApiBase:     apiBase,
		State:       v.GetString("state"),
		DefaultLang: lang,
		SessionTTL:  v.GetDuration("session-ttl"),
		SweepSpec:   v.GetString("sweep-spec"),
		RateLimit:   v.GetFloat64("rate-limit"),
		RateBurst:   v.GetInt("rate-burst"),
	}, nil
}

func backend(v *viper.Viper) persistence.Backend {
	b := persistence.Backend{
		BaseUrl:     v.GetString("api-base"),
		BaseHeaders: []string{"Accept:application/json"},
		Client:      &http.Client{Timeout: v.GetDuration("request-timeout")},
	}

	if rps := v.GetFloat64("backend-rps"); rps > 0 {
		b.Limiter = rate.NewLimiter(rate.Limit(rps), max(1, int(rps)))
	}

	return b
}

func newApp(v *viper.Viper) (*app.App, error) {
	cfg, err := config(v)
	if err != nil {
		return nil, err
	}

	static, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return nil, err
	}

	b := backend(v)

	a := &app.App{
		AuthRepo:           persistence.AuthRepo{Backend: b},
		WeatherRepo:        persistence.WeatherRepo{Backend: b},
		MandiRepo:          persistence.MandiRepo{Backend: b, State: cfg.State},
		RecommendationRepo: persistence.RecommendationRepo{Backend: b},
		ChatRepo:           persistence.ChatRepo{Backend: b},
		HealthRepo:         persistence.HealthRepo{Backend: b},
		Sessions:           app.NewSessionStore(cfg.SessionTTL, app.DefaultState(cfg.DefaultLang)),
		Static:             static,
		Config:             cfg,
	}

	if cfg.RateLimit > 0 {
		a.Limiter = app.NewClientLimiter(cfg.RateLimit, cfg.RateBurst, limiterIdle)
	}

	return a, nil
}

func serve(ctx context.Context, v *viper.Viper) error {
	a, err := newApp(v)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return a.Start(ctx)
}

func health(ctx context.Context, v *viper.Viper, out io.Writer) error {
	ctx, cancel := context.WithTimeout(ctx, v.GetDuration("request-timeout"))
	defer cancel()

	status, err := persistence.HealthRepo{Backend: backend(v)}.Check(ctx)
	if err != nil {
		return errors.Wrapf(err, "backend %s unreachable", v.GetString("api-base"))
	}

	_, err = fmt.Fprintf(out, "backend %s: %s\n", v.GetString("api-base"), status)
	return err
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
