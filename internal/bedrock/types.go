package bedrock

import "context"

// ContentBlock is one typed element of a message, per the Anthropic
// messages API carried over Bedrock.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Message is a role-tagged entry in the outbound conversation.
type Message struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

// Request is the normalized generation request.
type Request struct {
	System   string
	Messages []Message
}

// Response is the model's list of typed content blocks.
type Response struct {
	Content []ContentBlock `json:"content"`
}

// FirstText returns the first text block's value, or "" when the response
// carries no text.
func (r Response) FirstText() string {
	for _, c := range r.Content {
		if c.Type == "text" {
			return c.Text
		}
	}
	return ""
}

// Invoker executes one generation call against the hosted model service.
type Invoker interface {
	Invoke(ctx context.Context, req Request) (Response, error)
}
