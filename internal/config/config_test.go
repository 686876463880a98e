package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	setCoreEnvEmpty(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.MatchThreshold != 0.92 {
		t.Fatalf("MatchThreshold = %v, want 0.92", cfg.MatchThreshold)
	}
	if cfg.ContextWindow != 10 {
		t.Fatalf("ContextWindow = %d, want 10", cfg.ContextWindow)
	}
	if cfg.ModelAttempts != 3 {
		t.Fatalf("ModelAttempts = %d, want 3", cfg.ModelAttempts)
	}
	if cfg.BackoffBase != 2*time.Second {
		t.Fatalf("BackoffBase = %v, want 2s", cfg.BackoffBase)
	}
	if cfg.ConnectTimeout != 10*time.Second || cfg.ReadTimeout != 30*time.Second {
		t.Fatalf("timeouts = %v/%v, want 10s/30s", cfg.ConnectTimeout, cfg.ReadTimeout)
	}
}

func TestLoadAppendsCacheDirToKnowledgeDirs(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("APP_KNOWLEDGE_DIRS", "kb/a, kb/b")
	t.Setenv("APP_CACHE_DIR", "kb/cache")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := []string{"kb/a", "kb/b", "kb/cache"}
	if len(cfg.KnowledgeDirs) != len(want) {
		t.Fatalf("KnowledgeDirs = %v, want %v", cfg.KnowledgeDirs, want)
	}
	for i := range want {
		if cfg.KnowledgeDirs[i] != want[i] {
			t.Fatalf("KnowledgeDirs[%d] = %q, want %q", i, cfg.KnowledgeDirs[i], want[i])
		}
	}
}

func TestLoadRejectsBadThreshold(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("APP_MATCH_THRESHOLD", "1.5")

	if _, err := Load(); err == nil {
		t.Fatalf("Load() expected error for threshold > 1")
	}
}

func TestLoadRejectsNonPositiveAttempts(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("MODEL_MAX_ATTEMPTS", "0")

	if _, err := Load(); err == nil {
		t.Fatalf("Load() expected error for zero attempts")
	}
}

func setCoreEnvEmpty(t *testing.T) {
	t.Helper()
	keys := []string{
		"APP_BIND_ADDR",
		"APP_SHUTDOWN_TIMEOUT",
		"APP_METRICS_NAMESPACE",
		"APP_ALLOW_ANY_ORIGIN",
		"APP_SESSION_DIR",
		"APP_KNOWLEDGE_DIRS",
		"APP_CACHE_DIR",
		"APP_UPLOAD_DIR",
		"APP_TTS_OUTPUT_DIR",
		"APP_MATCH_THRESHOLD",
		"APP_CONTEXT_WINDOW",
		"APP_CACHE_MAX_ENTRIES",
		"MODEL_ID",
		"MODEL_MAX_TOKENS",
		"MODEL_TEMPERATURE",
		"MODEL_TOP_P",
		"MODEL_TOP_K",
		"MODEL_MAX_ATTEMPTS",
		"MODEL_BACKOFF_BASE",
		"MODEL_CONNECT_TIMEOUT",
		"MODEL_READ_TIMEOUT",
		"AWS_REGION",
		"AUDIO_BUCKET",
		"POLLY_VOICE_ID",
		"TRANSCRIBE_POLL_WAIT",
		"DATABASE_URL",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}
