package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vaani-ai/vaani/internal/config"
	"github.com/vaani-ai/vaani/internal/engine"
	"github.com/vaani-ai/vaani/internal/observability"
	"github.com/vaani-ai/vaani/internal/transcribe"
)

// AnswerEngine is the response pipeline consumed by the web layer.
type AnswerEngine interface {
	Answer(ctx context.Context, prompt, sessionID, detectedLang string) engine.Result
	Reset(ctx context.Context, sessionID string) error
}

// Transcriber converts uploaded audio into text plus a detected language.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, filename string) (transcribe.Result, error)
}

// Synthesizer renders reply text as a playable audio file and returns its
// filename.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (string, error)
}

type Server struct {
	cfg         config.Config
	engine      AnswerEngine
	transcriber Transcriber
	synth       Synthesizer
	metrics     *observability.Metrics
	logger      *slog.Logger
	upgrader    websocket.Upgrader
}

// New builds the API server. transcriber and synth may be nil when the
// corresponding AWS collaborators are not configured; the text endpoints
// keep working without them.
func New(cfg config.Config, eng AnswerEngine, transcriber Transcriber, synth Synthesizer, metrics *observability.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:         cfg,
		engine:      eng,
		transcriber: transcriber,
		synth:       synth,
		metrics:     metrics,
		logger:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only allow browser websocket connections from the same
				// origin unless explicitly opened up.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/query", s.handleQuery)
	r.Post("/transcribe", s.handleTranscribe)
	r.Get("/audio/{filename}", s.handleAudio)
	r.Post("/v1/session/{id}/reset", s.handleResetSession)
	r.Get("/v1/chat/ws", s.handleChatWS)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":              "ok",
		"transcription":       s.transcriber != nil,
		"speech_synthesis":    s.synth != nil,
		"knowledge_dir_count": len(s.cfg.KnowledgeDirs),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

type queryRequest struct {
	Text      string `json:"text"`
	SessionID string `json:"session_id"`
}

type queryResponse struct {
	Response string `json:"response"`
	Source   string `json:"source,omitempty"`
	AudioURL string `json:"audio_url,omitempty"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respondError(w, http.StatusBadRequest, "empty_prompt", "Empty prompt provided.")
		return
	}

	res := s.engine.Answer(r.Context(), req.Text, req.SessionID, "")
	respondJSON(w, http.StatusOK, queryResponse{
		Response: res.Text,
		Source:   string(res.Source),
		AudioURL: s.audioURL(r.Context(), res),
	})
}

type transcribeResponse struct {
	Transcript string `json:"transcript"`
	Language   string `json:"language,omitempty"`
	Response   string `json:"response"`
	AudioURL   string `json:"audio_url,omitempty"`
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if s.transcriber == nil {
		respondError(w, http.StatusServiceUnavailable, "transcription_unavailable", "transcription service is not configured")
		return
	}

	file, _, err := r.FormFile("audio")
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing_audio", "No audio file provided in the request.")
		return
	}
	defer file.Close()

	// Stage the upload on disk first; the transcription service reads it by
	// reference and the file is removed once the request finishes.
	filename := uuid.NewString() + ".mp3"
	path := filepath.Join(s.cfg.UploadDir, filename)
	if err := saveUpload(path, file); err != nil {
		s.logger.Error("saving uploaded audio failed", "error", err)
		respondError(w, http.StatusInternalServerError, "upload_failed", err.Error())
		return
	}
	defer func() {
		if err := os.Remove(path); err != nil {
			s.logger.Warn("upload cleanup failed", "file", path, "error", err)
		}
	}()

	staged, err := os.Open(path)
	if err != nil {
		s.logger.Error("reading staged audio failed", "error", err)
		respondError(w, http.StatusInternalServerError, "upload_failed", err.Error())
		return
	}
	defer staged.Close()

	result, err := s.transcriber.Transcribe(r.Context(), staged, filename)
	if err != nil {
		s.logger.Error("transcription failed", "error", err)
		respondError(w, http.StatusInternalServerError, "transcription_failed", err.Error())
		return
	}

	res := s.engine.Answer(r.Context(), result.Transcript, r.FormValue("session_id"), result.Language)
	respondJSON(w, http.StatusOK, transcribeResponse{
		Transcript: result.Transcript,
		Language:   result.Language,
		Response:   res.Text,
		AudioURL:   s.audioURL(r.Context(), res),
	})
}

func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	if filename == "" || strings.ContainsAny(filename, "/\\") || strings.Contains(filename, "..") {
		respondError(w, http.StatusBadRequest, "invalid_filename", "invalid audio filename")
		return
	}
	path := filepath.Join(s.cfg.TTSOutputDir, filename)
	if _, err := os.Stat(path); err != nil {
		respondError(w, http.StatusNotFound, "audio_not_found", "audio file not found")
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	http.ServeFile(w, r, path)
}

func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	if strings.TrimSpace(sessionID) == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return
	}
	if err := s.engine.Reset(r.Context(), sessionID); err != nil {
		s.logger.Error("session reset failed", "session", sessionID, "error", err)
		respondError(w, http.StatusInternalServerError, "reset_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok", "session_id": sessionID})
}

// audioURL synthesizes the reply when a synthesizer is configured. A
// synthesis failure never fails the text response.
func (s *Server) audioURL(ctx context.Context, res engine.Result) string {
	if s.synth == nil || !res.OK() {
		return ""
	}
	filename, err := s.synth.Synthesize(ctx, res.Text)
	if err != nil {
		s.logger.Warn("speech synthesis failed", "error", err)
		if s.metrics != nil {
			s.metrics.SynthesisErrors.Inc()
		}
		return ""
	}
	return "/audio/" + filename
}

func saveUpload(path string, src io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	defer dst.Close()
	_, err = io.Copy(dst, src)
	return err
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
