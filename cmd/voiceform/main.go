package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"

	"github.com/tbxark/voiceform/agent"
	"github.com/tbxark/voiceform/oracle"
	"github.com/tbxark/voiceform/session"
	"github.com/tbxark/voiceform/speech"
	"github.com/tbxark/voiceform/types"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := run(context.Background(), cfg); err != nil {
		log.Fatalf("run: %v", err)
	}
}

func run(ctx context.Context, cfg *config) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		BaseURL: cfg.BaseURL,
	})
	if err != nil {
		return err
	}
	orc, err := oracle.NewToolBased(chatModel)
	if err != nil {
		return err
	}

	registry := session.NewRegistry(
		session.WithTTL(cfg.SessionTTL),
		session.WithEvictionInterval(cfg.EvictionInterval),
		session.WithLogger(logger),
	)
	defer registry.Close()

	flow := agent.NewFlow(registry, orc,
		agent.WithOracleTimeout(cfg.OracleTimeout),
		agent.WithHistoryWindow(cfg.HistoryWindow),
		agent.WithLogger(logger),
	)

	forms := types.NewFormStore()
	for _, form := range types.SampleForms() {
		if _, err := forms.Add(form); err != nil {
			return err
		}
	}

	var synthesizer speech.Synthesizer
	if cfg.TTSBackend == "mock" {
		synthesizer = speech.MockSynthesizer{}
	}

	srv := &server{
		flow:        flow,
		forms:       forms,
		synthesizer: synthesizer,
		mediaDir:    cfg.MediaDir,
		logger:      logger,
	}
	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: srv.routes(cfg.AllowedOrigins),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
