package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kai9kono/Kuiz/internal/history"
	"github.com/kai9kono/Kuiz/internal/httpapi"
	"github.com/kai9kono/Kuiz/internal/hub"
	"github.com/kai9kono/Kuiz/internal/questions"
)

func main() {
	_ = godotenv.Load()
	cfg := &Config{}
	cobra.CheckErr(newCmd(cfg).Execute())
}

func run(parent context.Context, cfg *Config) error {
	logger, err := newLogger(cfg.verbose)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bank, rec, cleanup, err := buildStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	h := hub.NewHub(ctx, cfg.lobbyConfig(), bank, rec, logger)

	addr := net.JoinHostPort(cfg.bind, strconv.Itoa(cfg.port))
	srv := &http.Server{
		Addr:    addr,
		Handler: httpapi.SetupRoutes(h, logger),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		h.Inbox() <- hub.ShutdownHub{}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// buildStores wires the question bank and history log. With no DSN the
// server runs standalone on the sample bank and drops history.
func buildStores(ctx context.Context, cfg *Config, logger *zap.Logger) (questions.Bank, history.Recorder, func(), error) {
	if cfg.dsn == "" {
		logger.Info("no dsn configured, using built-in sample questions")
		return questions.NewMemoryBank(questions.SampleQuestions()), history.NopRecorder{}, func() {}, nil
	}

	bank, err := questions.NewPostgresBank(ctx, cfg.dsn)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("question bank: %w", err)
	}

	rec, err := history.NewGormRecorder(cfg.dsn)
	if err != nil {
		bank.Close()
		return nil, nil, nil, fmt.Errorf("history log: %w", err)
	}

	return bank, rec, bank.Close, nil
}
