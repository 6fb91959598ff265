package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GowthamiKadiyala/ai-interview-coach/internal/archive"
	"github.com/GowthamiKadiyala/ai-interview-coach/internal/config"
	"github.com/GowthamiKadiyala/ai-interview-coach/internal/httpserver"
	"github.com/GowthamiKadiyala/ai-interview-coach/internal/llm"
	"github.com/GowthamiKadiyala/ai-interview-coach/internal/observability"
	"github.com/GowthamiKadiyala/ai-interview-coach/internal/report"
	"github.com/GowthamiKadiyala/ai-interview-coach/internal/session"
	"github.com/GowthamiKadiyala/ai-interview-coach/internal/stt"
	"github.com/GowthamiKadiyala/ai-interview-coach/internal/tts"
)

func main() {
	log := observability.Logger()
	slog.SetDefault(log)

	cfg := config.Load()

	chat := llm.NewClient(cfg.OpenAIKey, cfg.OpenAIModelID)
	if cfg.OpenAIBaseURL != "" {
		chat.BaseURL = cfg.OpenAIBaseURL
	}

	hub := httpserver.NewHub(log)
	listeners := hub.Listeners()

	player := tts.NewPlayer(newSynthesizer(cfg, log), hub, log)
	orch := session.NewOrchestrator(
		stt.NewAzureClient(cfg.AzureSpeechKey, cfg.AzureSpeechRegion),
		llm.NewInterviewer(chat),
		player,
		session.WithTurnTimeout(cfg.TurnTimeout),
		session.WithLogger(log),
		session.WithListeners(listeners),
	)

	ctrlOpts := []session.ControllerOption{
		session.WithControllerLogger(log),
		session.WithControllerListeners(listeners),
	}
	if cfg.SupabaseURL != "" && cfg.SupabaseServiceRoleKey != "" && cfg.SupabaseBucket != "" {
		store, err := archive.New(archive.Config{
			URL:            cfg.SupabaseURL,
			ServiceRoleKey: cfg.SupabaseServiceRoleKey,
			Bucket:         cfg.SupabaseBucket,
		})
		if err != nil {
			log.Warn("archiving disabled", "error", err)
		} else {
			ctrlOpts = append(ctrlOpts, session.WithArchiver(store))
		}
	}
	ctrl := session.NewController(orch, report.NewGenerator(chat), player, ctrlOpts...)

	e := httpserver.New(ctrl, stt.NewTokenIssuer(cfg.AzureSpeechKey, cfg.AzureSpeechRegion), hub)

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("server listening", "address", cfg.HTTPAddress)
		serverErrors <- e.Start(cfg.HTTPAddress)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	case sig := <-sigChan:
		log.Info("shutdown signal received", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		_ = e.Close()
	}
}

func newSynthesizer(cfg config.Config, log *slog.Logger) tts.Synthesizer {
	switch cfg.TTSProvider {
	case "elevenlabs":
		return tts.NewElevenLabsClient(cfg.ElevenLabsKey, cfg.ElevenLabsVoiceID)
	case "deepgram":
		return tts.NewDeepgramClient(cfg.DeepgramKey, "")
	case "azure":
	default:
		log.Warn("unknown TTS_PROVIDER, using azure", "provider", cfg.TTSProvider)
	}
	return tts.NewAzureClient(cfg.AzureSpeechKey, cfg.AzureSpeechRegion, cfg.AzureTTSVoice)
}
