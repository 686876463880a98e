// Command vaani-batch answers a CSV of questions offline, writing a
// Question,Response CSV. It runs the same answer pipeline as the server,
// with a fixed delay between model calls to stay under rate limits.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/vaani-ai/vaani/internal/bedrock"
	"github.com/vaani-ai/vaani/internal/config"
	"github.com/vaani-ai/vaani/internal/conversation"
	"github.com/vaani-ai/vaani/internal/engine"
	"github.com/vaani-ai/vaani/internal/knowledge"
	"github.com/vaani-ai/vaani/internal/observability"
)

const questionColumn = "Question"

func main() {
	var (
		inPath  = flag.String("in", "questions.csv", "input CSV with a Question column")
		outPath = flag.String("out", "answers.csv", "output CSV path")
		session = flag.String("session", "batch", "session id shared by the batch run")
		delay   = flag.Duration("delay", 500*time.Millisecond, "pause between questions")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	ctx := context.Background()
	store, err := conversation.NewStore(ctx, cfg.DatabaseURL, cfg.SessionDir)
	if err != nil {
		log.Fatalf("session store init failed: %v", err)
	}
	defer store.Close()

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

	eng := engine.New(
		knowledge.NewMatcher(cfg.KnowledgeDirs, logger),
		conversation.NewManager(store, cfg.ContextWindow),
		invoker,
		knowledge.NewCacheWriter(cfg.CacheDir, cfg.CacheMaxEntries, logger),
		observability.NewMetrics(cfg.MetricsNamespace),
		logger,
		engine.Options{
			Threshold:   cfg.MatchThreshold,
			Attempts:    cfg.ModelAttempts,
			BackoffBase: cfg.BackoffBase,
		},
	)

	if err := run(ctx, eng, *inPath, *outPath, *session, *delay, logger); err != nil {
		log.Fatalf("batch run failed: %v", err)
	}
}

func run(ctx context.Context, eng *engine.Engine, inPath, outPath, session string, delay time.Duration, logger *slog.Logger) error {
	in, err := os.Open(inPath)
	if err != nil {
		return fmt.Errorf("opening input: %w", err)
	}
	defer in.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	defer out.Close()

	reader := csv.NewReader(in)
	reader.FieldsPerRecord = -1
	writer := csv.NewWriter(out)
	defer writer.Flush()

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("reading header: %w", err)
	}
	col := -1
	for i, name := range header {
		if strings.TrimSpace(name) == questionColumn {
			col = i
			break
		}
	}
	if col < 0 {
		return fmt.Errorf("input CSV has no %q column", questionColumn)
	}

	if err := writer.Write([]string{questionColumn, "Response"}); err != nil {
		return err
	}

	answered := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading row: %w", err)
		}
		if col >= len(row) {
			continue
		}
		question := strings.TrimSpace(row[col])
		if question == "" {
			continue
		}

		res := eng.Answer(ctx, question, session, "")
		logger.Info("answered", "question", question, "source", res.Source, "outcome", res.Outcome)
		if err := writer.Write([]string{question, res.Text}); err != nil {
			return err
		}
		writer.Flush()
		answered++

		time.Sleep(delay)
	}

	logger.Info("batch complete", "questions", answered, "output", outPath)
	return writer.Error()
}
