package llm

import "context"

type Message struct {
	Role    string
	Content string
}

type Response struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Client is a chat-completion provider. Temperature is the sampling
// temperature for this single request; the chaos ramp varies it per
// call, so it is a parameter rather than client state.
type Client interface {
	Generate(ctx context.Context, messages []Message, temperature float32) (Response, error)
}
