package knowledge

import (
	"log/slog"
	"math"
	"strings"
	"sync"
	"unicode"
)

// DefaultThreshold is the production match bar: biased toward exact or
// near-exact reuse over loose paraphrase.
const DefaultThreshold = 0.92

const (
	cacheQuestionField = "original_question"
	cacheAnswerField   = "answer"
)

// Matcher performs similarity search over locally cached text fragments.
// It is a pure function of on-disk content at call time; the fitted corpus
// is only memoized until the underlying file set changes.
type Matcher struct {
	dirs   []string
	logger *slog.Logger

	mu          sync.Mutex
	fingerprint string
	corpus      []Fragment
	docTokens   [][]string
	docFreq     map[string]int
}

func NewMatcher(dirs []string, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{dirs: dirs, logger: logger}
}

// Search returns the best-matching fragment text when its cosine similarity
// against the query reaches threshold. The second return value reports
// whether a confident match was found; no match is not an error. When the
// winning fragment is a cached question, its paired answer is returned
// instead of echoing the question back.
func (m *Matcher) Search(query string, threshold float64) (string, bool) {
	queryTokens := tokenize(query)
	if len(queryTokens) == 0 {
		return "", false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshLocked()
	if len(m.corpus) == 0 {
		return "", false
	}

	best, score := m.bestMatchLocked(queryTokens)
	if best < 0 || score < threshold {
		return "", false
	}

	frag := m.corpus[best]
	if frag.Field == cacheQuestionField {
		if answer, ok := frag.Record[cacheAnswerField].(string); ok && strings.TrimSpace(answer) != "" {
			return answer, true
		}
	}
	return frag.Text, true
}

func (m *Matcher) refreshLocked() {
	fp := fingerprintDirs(m.dirs)
	if fp == m.fingerprint && m.corpus != nil {
		return
	}

	corpus := collectFragments(m.dirs, m.logger)
	docTokens := make([][]string, len(corpus))
	docFreq := make(map[string]int)
	for i, frag := range corpus {
		docTokens[i] = tokenize(frag.Text)
		for _, term := range uniqueTerms(docTokens[i]) {
			docFreq[term]++
		}
	}

	m.fingerprint = fp
	m.corpus = corpus
	m.docTokens = docTokens
	m.docFreq = docFreq
}

// bestMatchLocked vectorizes the query in the same fitted space as the
// corpus (the query participates as a document, so document frequencies and
// idf weights include it) and returns the index and cosine similarity of
// the highest-scoring fragment.
func (m *Matcher) bestMatchLocked(queryTokens []string) (int, float64) {
	n := len(m.docTokens) + 1

	idf := func(term string) float64 {
		df := m.docFreq[term]
		if containsTerm(queryTokens, term) {
			df++
		}
		return math.Log(float64(1+n)/float64(1+df)) + 1
	}

	queryVec := weightedVector(queryTokens, idf)
	if len(queryVec) == 0 {
		return -1, 0
	}

	bestIdx, bestScore := -1, 0.0
	for i, tokens := range m.docTokens {
		docVec := weightedVector(tokens, idf)
		score := cosine(queryVec, docVec)
		if score > bestScore || bestIdx < 0 {
			bestIdx, bestScore = i, score
		}
	}
	return bestIdx, bestScore
}

// weightedVector builds an l2-normalized tf-idf vector.
func weightedVector(tokens []string, idf func(string) float64) map[string]float64 {
	if len(tokens) == 0 {
		return nil
	}
	vec := make(map[string]float64)
	for _, term := range tokens {
		vec[term]++
	}
	var norm float64
	for term, tf := range vec {
		w := tf * idf(term)
		vec[term] = w
		norm += w * w
	}
	if norm == 0 {
		return nil
	}
	norm = math.Sqrt(norm)
	for term := range vec {
		vec[term] /= norm
	}
	return vec
}

func cosine(a, b map[string]float64) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}
	var dot float64
	for term, wa := range a {
		dot += wa * b[term]
	}
	return dot
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func uniqueTerms(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func containsTerm(tokens []string, term string) bool {
	for _, t := range tokens {
		if t == term {
			return true
		}
	}
	return false
}
