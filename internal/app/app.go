package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hcchou0425/line-jielong/internal/bot"
	"github.com/hcchou0425/line-jielong/internal/config"
	"github.com/hcchou0425/line-jielong/internal/line"
	"github.com/hcchou0425/line-jielong/internal/scheduler"
	"github.com/hcchou0425/line-jielong/internal/store"
)

type App struct {
	cfg    config.Config
	log    *zap.Logger
	client *line.Client
	loc    *time.Location
}

func New(cfg config.Config, log *zap.Logger) (*App, error) {
	client, err := line.New(cfg.ChannelSecret, cfg.ChannelToken, log)
	if err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(cfg.TZ)
	if err != nil {
		return nil, err
	}
	return &App{cfg: cfg, log: log, client: client, loc: loc}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting line-jielong",
		zap.String("http", a.cfg.HTTPAddr),
		zap.String("tz", a.cfg.TZ),
	)

	repo, err := store.OpenSQLite(ctx, a.cfg.DBPath)
	if err != nil {
		a.log.Error("open sqlite failed", zap.Error(err))
		return err
	}
	defer func() { _ = repo.Close() }()
	a.log.Info("sqlite ready")

	sched := scheduler.New(repo, a.log, a.client, a.loc)
	router := bot.New(repo, a.log, sched, a.loc)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.HandleFunc("/webhook", a.client.WebhookHandler(router))
	srv := &http.Server{
		Addr:         a.cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http server error", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sched.Run(ctx)

	<-ctx.Done()
	a.log.Info("shutdown signal received")

	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = srv.Shutdown(shCtx)
	cancel()
	if err != nil {
		a.log.Warn("http server shutdown error", zap.Error(err))
	}
	return nil
}
