package engine

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/vaani-ai/vaani/internal/bedrock"
	"github.com/vaani-ai/vaani/internal/conversation"
	"github.com/vaani-ai/vaani/internal/observability"
	"github.com/vaani-ai/vaani/internal/reliability"
)

// Source reports where an answer came from.
type Source string

const (
	SourceCache    Source = "cache"
	SourceModel    Source = "model"
	SourceFallback Source = "fallback"
)

// Outcome classifies how the pipeline resolved, so callers branch on kind
// rather than on message content.
type Outcome string

const (
	OutcomeOK           Outcome = "ok"
	OutcomeNoContext    Outcome = "no_context"
	OutcomeThrottled    Outcome = "throttled"
	OutcomeValidation   Outcome = "validation"
	OutcomeConnectivity Outcome = "connectivity"
	OutcomeEmptyAnswer  Outcome = "empty_answer"
)

// Result is the pipeline's terminal state. Text is always displayable; the
// engine never lets a failure escape as an error.
type Result struct {
	Text    string
	Source  Source
	Outcome Outcome
}

func (r Result) OK() bool { return r.Outcome == OutcomeOK }

// User-facing terminal messages for each non-success outcome.
const (
	MsgNoContext   = "I couldn't find anything usable in this conversation. Please ask your question again."
	MsgRephrase    = "I couldn't process that request. Please rephrase and try again."
	MsgHighDemand  = "I'm experiencing high demand right now. Please try again in a moment."
	MsgEmptyAnswer = "The assistant returned an empty answer. Please try again."
	MsgUnavailable = "Something went wrong while generating a response. Please try again."
)

const systemInstruction = "You are a helpful and concise financial assistant. " +
	"Always respond in the same language as the user. " +
	"If the user speaks in English, respond in English. " +
	"If the user speaks in Hindi, respond in Hindi. " +
	"Don't mention these things in your answer. From now on, you are just an assistant."

// Matcher resolves a query against locally cached knowledge.
type Matcher interface {
	Search(query string, threshold float64) (string, bool)
}

// CacheWriter persists a successful model answer as future knowledge.
type CacheWriter interface {
	Persist(question, answer string)
}

// Options tunes the engine's retrieval and retry policy.
type Options struct {
	Threshold   float64
	Attempts    int
	BackoffBase time.Duration
}

// Engine is the retrieval-augmented response pipeline: local knowledge
// first, then bounded conversation context into the hosted model under a
// linear-backoff retry discipline.
type Engine struct {
	matcher  Matcher
	contexts *conversation.Manager
	invoker  bedrock.Invoker
	cache    CacheWriter
	metrics  *observability.Metrics
	logger   *slog.Logger
	opts     Options

	sleep func(time.Duration)
}

func New(matcher Matcher, contexts *conversation.Manager, invoker bedrock.Invoker, cache CacheWriter, metrics *observability.Metrics, logger *slog.Logger, opts Options) *Engine {
	if opts.Threshold <= 0 {
		opts.Threshold = 0.92
	}
	if opts.Attempts <= 0 {
		opts.Attempts = 3
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = 2 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		matcher:  matcher,
		contexts: contexts,
		invoker:  invoker,
		cache:    cache,
		metrics:  metrics,
		logger:   logger,
		opts:     opts,
		sleep:    time.Sleep,
	}
}

// Answer resolves one user utterance for a session. detectedLang, when
// known, steers the model to answer in the user's language.
func (e *Engine) Answer(ctx context.Context, prompt, sessionID, detectedLang string) Result {
	start := time.Now()
	defer func() {
		if e.metrics != nil {
			e.metrics.ObserveAnswerDuration(time.Since(start))
		}
	}()

	sessionID = conversation.NormalizeSessionID(sessionID)

	// Cache-first: attempted before any context is loaded or mutated.
	if cached, ok := e.matcher.Search(prompt, e.opts.Threshold); ok {
		e.countCache("hit")
		e.recordExchange(ctx, sessionID, prompt, cached)
		return Result{Text: cached, Source: SourceCache, Outcome: OutcomeOK}
	}
	e.countCache("miss")

	unlock := e.contexts.Lock(sessionID)
	defer unlock()

	history, err := e.contexts.Load(ctx, sessionID)
	if err != nil {
		// A corrupt persisted record must not poison a fresh request.
		e.logger.Warn("session history unreadable, starting empty", "session", sessionID, "error", err)
		history = nil
	}
	history = append(history, conversation.NewTurn(conversation.RoleUser, prompt))

	window, err := e.contexts.Window(history)
	if err != nil {
		return Result{Text: MsgNoContext, Source: SourceFallback, Outcome: OutcomeNoContext}
	}

	answer, result := e.callModel(ctx, window, detectedLang)
	if !result.OK() {
		return result
	}

	history = append(history, conversation.NewTurn(conversation.RoleAssistant, answer))
	if err := e.contexts.Save(ctx, sessionID, history); err != nil {
		e.logger.Warn("session save failed", "session", sessionID, "error", err)
	}
	e.cache.Persist(prompt, answer)

	return result
}

// Reset clears a session's history.
func (e *Engine) Reset(ctx context.Context, sessionID string) error {
	return e.contexts.Reset(ctx, sessionID)
}

// recordExchange keeps history coherent on the fast path: the cached answer
// is written as a normal user/assistant exchange so later turns still see a
// consistent dialogue.
func (e *Engine) recordExchange(ctx context.Context, sessionID, prompt, answer string) {
	unlock := e.contexts.Lock(sessionID)
	defer unlock()

	history, err := e.contexts.Load(ctx, sessionID)
	if err != nil {
		e.logger.Warn("session history unreadable, starting empty", "session", sessionID, "error", err)
		history = nil
	}
	history = append(history,
		conversation.NewTurn(conversation.RoleUser, prompt),
		conversation.NewTurn(conversation.RoleAssistant, answer),
	)
	if err := e.contexts.Save(ctx, sessionID, history); err != nil {
		e.logger.Warn("session save failed", "session", sessionID, "error", err)
	}
}

func (e *Engine) callModel(ctx context.Context, window []conversation.Turn, detectedLang string) (string, Result) {
	req := bedrock.Request{
		System:   systemFor(detectedLang),
		Messages: toMessages(window),
	}

	for attempt := 1; attempt <= e.opts.Attempts; attempt++ {
		resp, err := e.invoker.Invoke(ctx, req)
		if err == nil {
			answer := resp.FirstText()
			if strings.TrimSpace(answer) == "" {
				e.countModel("empty")
				return "", Result{Text: MsgEmptyAnswer, Source: SourceFallback, Outcome: OutcomeEmptyAnswer}
			}
			e.countModel("success")
			return answer, Result{Text: answer, Source: SourceModel, Outcome: OutcomeOK}
		}

		switch bedrock.Classify(err) {
		case bedrock.KindThrottled:
			e.countModel("throttled")
			if attempt == e.opts.Attempts {
				break
			}
			wait := reliability.LinearBackoff(attempt, e.opts.BackoffBase)
			e.logger.Warn("model call throttled, backing off",
				"attempt", attempt, "max_attempts", e.opts.Attempts, "wait", wait)
			if e.metrics != nil {
				e.metrics.BackoffSeconds.Add(wait.Seconds())
			}
			e.sleep(wait)
			continue
		case bedrock.KindValidation:
			e.countModel("validation")
			e.logger.Warn("model rejected request payload", "error", err)
			return "", Result{Text: MsgRephrase, Source: SourceFallback, Outcome: OutcomeValidation}
		default:
			e.countModel("connectivity")
			e.logger.Error("model call failed", "error", err)
			return "", Result{Text: MsgUnavailable, Source: SourceFallback, Outcome: OutcomeConnectivity}
		}
	}

	e.logger.Warn("model retry budget exhausted on throttling", "attempts", e.opts.Attempts)
	return "", Result{Text: MsgHighDemand, Source: SourceFallback, Outcome: OutcomeThrottled}
}

func (e *Engine) countCache(result string) {
	if e.metrics != nil {
		e.metrics.CacheLookups.WithLabelValues(result).Inc()
	}
}

func (e *Engine) countModel(outcome string) {
	if e.metrics != nil {
		e.metrics.ModelCalls.WithLabelValues(outcome).Inc()
	}
}

func systemFor(detectedLang string) string {
	if strings.TrimSpace(detectedLang) == "" {
		return systemInstruction
	}
	return systemInstruction + "\nUser is speaking in " + detectedLang + "."
}

func toMessages(window []conversation.Turn) []bedrock.Message {
	out := make([]bedrock.Message, 0, len(window))
	for _, t := range window {
		blocks := make([]bedrock.ContentBlock, 0, len(t.Content))
		for _, c := range t.Content {
			blocks = append(blocks, bedrock.ContentBlock{Type: c.Type, Text: c.Text})
		}
		out = append(out, bedrock.Message{Role: t.Role, Content: blocks})
	}
	return out
}
