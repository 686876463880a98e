package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the voicebot backend.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	AllowAnyOrigin bool

	SessionDir    string
	KnowledgeDirs []string
	CacheDir      string
	UploadDir     string
	TTSOutputDir  string

	MatchThreshold  float64
	ContextWindow   int
	CacheMaxEntries int

	ModelID        string
	MaxTokens      int
	Temperature    float64
	TopP           float64
	TopK           int
	ModelAttempts  int
	BackoffBase    time.Duration
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration

	AWSRegion          string
	AudioBucket        string
	PollyVoiceID       string
	TranscribePollWait time.Duration

	DatabaseURL string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:           envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:   envOrDefault("APP_METRICS_NAMESPACE", "vaani"),
		AllowAnyOrigin:     false,
		SessionDir:         envOrDefault("APP_SESSION_DIR", "data/session_store"),
		CacheDir:           envOrDefault("APP_CACHE_DIR", "data/answer_cache"),
		UploadDir:          envOrDefault("APP_UPLOAD_DIR", "data/uploads"),
		TTSOutputDir:       envOrDefault("APP_TTS_OUTPUT_DIR", "data/tts_outputs"),
		MatchThreshold:     0.92,
		ContextWindow:      10,
		CacheMaxEntries:    0,
		ModelID:            envOrDefault("MODEL_ID", "anthropic.claude-3-5-sonnet-20240620-v1:0"),
		MaxTokens:          400,
		Temperature:        0.7,
		TopP:               1.0,
		TopK:               250,
		ModelAttempts:      3,
		BackoffBase:        2 * time.Second,
		ConnectTimeout:     10 * time.Second,
		ReadTimeout:        30 * time.Second,
		AWSRegion:          envOrDefault("AWS_REGION", "us-west-2"),
		AudioBucket:        stringsTrimSpace("AUDIO_BUCKET"),
		PollyVoiceID:       envOrDefault("POLLY_VOICE_ID", "Aditi"),
		TranscribePollWait: 5 * time.Second,
		DatabaseURL:        stringsTrimSpace("DATABASE_URL"),
		ShutdownTimeout:    15 * time.Second,
	}

	for _, dir := range strings.Split(envOrDefault("APP_KNOWLEDGE_DIRS", "data/local_jsons"), ",") {
		dir = strings.TrimSpace(dir)
		if dir != "" {
			cfg.KnowledgeDirs = append(cfg.KnowledgeDirs, dir)
		}
	}
	// Cached answers are themselves searchable knowledge on later queries.
	cfg.KnowledgeDirs = append(cfg.KnowledgeDirs, cfg.CacheDir)

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.MatchThreshold, err = floatFromEnv("APP_MATCH_THRESHOLD", cfg.MatchThreshold)
	if err != nil {
		return Config{}, err
	}
	cfg.ContextWindow, err = intFromEnv("APP_CONTEXT_WINDOW", cfg.ContextWindow)
	if err != nil {
		return Config{}, err
	}
	cfg.CacheMaxEntries, err = intFromEnv("APP_CACHE_MAX_ENTRIES", cfg.CacheMaxEntries)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxTokens, err = intFromEnv("MODEL_MAX_TOKENS", cfg.MaxTokens)
	if err != nil {
		return Config{}, err
	}
	cfg.Temperature, err = floatFromEnv("MODEL_TEMPERATURE", cfg.Temperature)
	if err != nil {
		return Config{}, err
	}
	cfg.TopP, err = floatFromEnv("MODEL_TOP_P", cfg.TopP)
	if err != nil {
		return Config{}, err
	}
	cfg.TopK, err = intFromEnv("MODEL_TOP_K", cfg.TopK)
	if err != nil {
		return Config{}, err
	}
	cfg.ModelAttempts, err = intFromEnv("MODEL_MAX_ATTEMPTS", cfg.ModelAttempts)
	if err != nil {
		return Config{}, err
	}
	cfg.BackoffBase, err = durationFromEnv("MODEL_BACKOFF_BASE", cfg.BackoffBase)
	if err != nil {
		return Config{}, err
	}
	cfg.ConnectTimeout, err = durationFromEnv("MODEL_CONNECT_TIMEOUT", cfg.ConnectTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.ReadTimeout, err = durationFromEnv("MODEL_READ_TIMEOUT", cfg.ReadTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.TranscribePollWait, err = durationFromEnv("TRANSCRIBE_POLL_WAIT", cfg.TranscribePollWait)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if cfg.MatchThreshold < 0 || cfg.MatchThreshold > 1 {
		return Config{}, fmt.Errorf("APP_MATCH_THRESHOLD must be within [0,1]")
	}
	if cfg.ContextWindow <= 0 {
		return Config{}, fmt.Errorf("APP_CONTEXT_WINDOW must be positive")
	}
	if cfg.CacheMaxEntries < 0 {
		return Config{}, fmt.Errorf("APP_CACHE_MAX_ENTRIES must be >= 0")
	}
	if cfg.MaxTokens <= 0 {
		return Config{}, fmt.Errorf("MODEL_MAX_TOKENS must be positive")
	}
	if cfg.ModelAttempts <= 0 {
		return Config{}, fmt.Errorf("MODEL_MAX_ATTEMPTS must be positive")
	}
	if cfg.BackoffBase <= 0 {
		return Config{}, fmt.Errorf("MODEL_BACKOFF_BASE must be positive")
	}
	if cfg.TranscribePollWait < time.Second {
		return Config{}, fmt.Errorf("TRANSCRIBE_POLL_WAIT must be at least 1s")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
