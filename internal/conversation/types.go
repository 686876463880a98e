package conversation

import "strings"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultSessionID is used when a caller does not name a session.
const DefaultSessionID = "default"

// ContentBlock is one typed element of a turn's content, matching the
// generative model's message shape.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Turn is a single role-tagged message in a conversation.
type Turn struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

// NewTurn wraps plain text in the content-block shape.
func NewTurn(role, text string) Turn {
	return Turn{
		Role:    role,
		Content: []ContentBlock{{Type: "text", Text: text}},
	}
}

// Text flattens a turn's text blocks into one string.
func (t Turn) Text() string {
	var b strings.Builder
	for _, c := range t.Content {
		b.WriteString(c.Text)
	}
	return b.String()
}

// Valid reports whether the turn carries usable content. A persisted turn
// whose text reduces to whitespace must never reach the model request.
func (t Turn) Valid() bool {
	return strings.TrimSpace(t.Text()) != ""
}

// NormalizeSessionID maps an empty caller-supplied key to the default session.
func NormalizeSessionID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return DefaultSessionID
	}
	return id
}
