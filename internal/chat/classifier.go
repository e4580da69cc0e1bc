package chat

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/Clayjohnson75/Bookshelfapp-sub000/internal/llm"
)

const classifierSystemPrompt = `You are a strict binary classifier for a personal book library assistant.
Decide whether the user's question is about their (or a named user's) personal book collection: finding, filtering, summarizing, counting, or recommending from owned books.
Questions about anything else are out of scope, including general knowledge, news, people, or books the user does not own.
Respond with only a JSON object: {"in_scope": true} or {"in_scope": false}.`

// Classifier is the binary gate deciding whether a question is
// library-scoped at all. Any failure means "not in scope".
type Classifier struct {
	llm     CompletionClient
	timeout time.Duration
}

func NewClassifier(client CompletionClient, timeout time.Duration) *Classifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Classifier{llm: client, timeout: timeout}
}

type classifierResult struct {
	InScope bool `json:"in_scope"`
}

// InScope reports whether the question concerns the caller's book
// collection. Timeouts, malformed output and missing credentials all
// fail closed to false.
func (c *Classifier) InScope(ctx context.Context, question string) bool {
	if !c.llm.Configured() {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := c.llm.Complete(ctx, llm.Request{
		System:      classifierSystemPrompt,
		Messages:    []llm.Message{{Role: "user", Content: question}},
		Temperature: 0,
		MaxTokens:   16,
		JSONMode:    true,
	})
	if err != nil {
		slog.Warn("classifier call failed, treating as out of scope", "error", err)
		return false
	}

	var result classifierResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		slog.Warn("classifier returned malformed output, treating as out of scope", "output", raw)
		return false
	}
	return result.InScope
}
