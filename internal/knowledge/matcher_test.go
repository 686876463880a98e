package knowledge

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeKnowledgeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write knowledge file: %v", err)
	}
}

func TestSearchExactMatchAtThreshold(t *testing.T) {
	dir := t.TempDir()
	writeKnowledgeFile(t, dir, "transcript.json", `{
		"segments": [
			{"text": "Equity is the ownership value in an asset."},
			{"text": "A mutual fund pools money from many investors."}
		]
	}`)

	m := NewMatcher([]string{dir}, quietLogger())
	got, ok := m.Search("Equity is the ownership value in an asset.", DefaultThreshold)
	if !ok {
		t.Fatalf("Search() expected confident match")
	}
	if got != "Equity is the ownership value in an asset." {
		t.Fatalf("Search() = %q", got)
	}
}

func TestSearchBelowThresholdReturnsNoMatch(t *testing.T) {
	dir := t.TempDir()
	writeKnowledgeFile(t, dir, "transcript.json", `{
		"segments": [
			{"text": "Equity is the ownership value in an asset minus liabilities."}
		]
	}`)

	m := NewMatcher([]string{dir}, quietLogger())
	// Shares a single term with the fragment; nowhere near the bar.
	if got, ok := m.Search("what is an inflation target", DefaultThreshold); ok {
		t.Fatalf("Search() = %q, want no match", got)
	}
}

func TestSearchNoSharedTermsReturnsNoMatch(t *testing.T) {
	dir := t.TempDir()
	writeKnowledgeFile(t, dir, "transcript.json", `{"note": "compound interest grows savings"}`)

	m := NewMatcher([]string{dir}, quietLogger())
	if _, ok := m.Search("quarterly weather forecast", 0.1); ok {
		t.Fatalf("Search() expected no match with disjoint vocabulary")
	}
}

func TestSearchCachedQuestionReturnsPairedAnswer(t *testing.T) {
	dir := t.TempDir()
	writeKnowledgeFile(t, dir, "cached.json", `{
		"source": "auto_cache",
		"original_question": "What is a loan?",
		"answer": "A loan is borrowed money.",
		"timestamp": "2026-01-12T09:30:00Z"
	}`)

	m := NewMatcher([]string{dir}, quietLogger())
	got, ok := m.Search("What is a loan?", DefaultThreshold)
	if !ok {
		t.Fatalf("Search() expected confident match against cached question")
	}
	if got != "A loan is borrowed money." {
		t.Fatalf("Search() = %q, want the paired answer", got)
	}
}

func TestSearchEmptyCorpusReturnsNoMatch(t *testing.T) {
	m := NewMatcher([]string{t.TempDir()}, quietLogger())
	if _, ok := m.Search("anything at all", 0.0); ok {
		t.Fatalf("Search() expected no match for empty corpus")
	}
}

func TestSearchSkipsMalformedFiles(t *testing.T) {
	dir := t.TempDir()
	writeKnowledgeFile(t, dir, "broken.json", `{not json`)
	writeKnowledgeFile(t, dir, "good.json", `{"text": "a bond pays fixed interest"}`)

	m := NewMatcher([]string{dir}, quietLogger())
	got, ok := m.Search("a bond pays fixed interest", DefaultThreshold)
	if !ok || got != "a bond pays fixed interest" {
		t.Fatalf("Search() = (%q, %v), want good fragment", got, ok)
	}
}

func TestSearchIgnoresNonStringFields(t *testing.T) {
	dir := t.TempDir()
	writeKnowledgeFile(t, dir, "mixed.json", `{
		"count": 42,
		"enabled": true,
		"scores": [1, 2, 3],
		"text": "dividends are paid per share"
	}`)

	m := NewMatcher([]string{dir}, quietLogger())
	if _, ok := m.Search("42", DefaultThreshold); ok {
		t.Fatalf("numeric fields must not become fragments")
	}
	if _, ok := m.Search("dividends are paid per share", DefaultThreshold); !ok {
		t.Fatalf("string field should be searchable")
	}
}

func TestSearchPicksUpNewFilesAfterFit(t *testing.T) {
	dir := t.TempDir()
	writeKnowledgeFile(t, dir, "first.json", `{"text": "stocks trade on an exchange"}`)

	m := NewMatcher([]string{dir}, quietLogger())
	if _, ok := m.Search("stocks trade on an exchange", DefaultThreshold); !ok {
		t.Fatalf("initial fragment should match")
	}

	writeKnowledgeFile(t, dir, "second.json", `{"text": "an index fund tracks a market index"}`)
	got, ok := m.Search("an index fund tracks a market index", DefaultThreshold)
	if !ok || got != "an index fund tracks a market index" {
		t.Fatalf("Search() = (%q, %v), want newly added fragment", got, ok)
	}
}
