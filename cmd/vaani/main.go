package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	transcribesdk "github.com/aws/aws-sdk-go-v2/service/transcribe"

	"github.com/vaani-ai/vaani/internal/bedrock"
	"github.com/vaani-ai/vaani/internal/config"
	"github.com/vaani-ai/vaani/internal/conversation"
	"github.com/vaani-ai/vaani/internal/engine"
	"github.com/vaani-ai/vaani/internal/httpapi"
	"github.com/vaani-ai/vaani/internal/knowledge"
	"github.com/vaani-ai/vaani/internal/observability"
	"github.com/vaani-ai/vaani/internal/speech"
	"github.com/vaani-ai/vaani/internal/transcribe"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	store, err := conversation.NewStore(ctx, cfg.DatabaseURL, cfg.SessionDir)
	if err != nil {
		log.Fatalf("session store init failed: %v", err)
	}
	defer store.Close()

	contexts := conversation.NewManager(store, cfg.ContextWindow)
	matcher := knowledge.NewMatcher(cfg.KnowledgeDirs, logger)
	cacheWriter := knowledge.NewCacheWriter(cfg.CacheDir, cfg.CacheMaxEntries, logger)

	invoker, err := bedrock.NewClient(ctx, bedrock.Options{
		Region:         cfg.AWSRegion,
		ModelID:        cfg.ModelID,
		MaxTokens:      cfg.MaxTokens,
		Temperature:    cfg.Temperature,
		TopP:           cfg.TopP,
		TopK:           cfg.TopK,
		ConnectTimeout: cfg.ConnectTimeout,
		ReadTimeout:    cfg.ReadTimeout,
	})
	if err != nil {
		log.Fatalf("bedrock client init failed: %v", err)
	}

	eng := engine.New(matcher, contexts, invoker, cacheWriter, metrics, logger, engine.Options{
		Threshold:   cfg.MatchThreshold,
		Attempts:    cfg.ModelAttempts,
		BackoffBase: cfg.BackoffBase,
	})

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		log.Fatalf("aws config load failed: %v", err)
	}

	var transcriber httpapi.Transcriber
	if strings.TrimSpace(cfg.AudioBucket) != "" {
		transcriber = transcribe.NewClient(
			s3.NewFromConfig(awsCfg),
			transcribesdk.NewFromConfig(awsCfg),
			cfg.AudioBucket,
			cfg.TranscribePollWait,
			logger,
		)
	} else {
		logger.Warn("AUDIO_BUCKET not set, /transcribe is disabled")
	}

	synth := speech.NewSynthesizer(polly.NewFromConfig(awsCfg), cfg.TTSOutputDir, cfg.PollyVoiceID)

	api := httpapi.New(cfg, eng, transcriber, synth, metrics, logger)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	go func() {
		logger.Info("server listening", "addr", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		_ = httpServer.Close()
	}

	logger.Info("shutdown complete")
}
