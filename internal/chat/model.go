// Package chat implements the library question-answering pipeline:
// validate the request, classify the question, resolve whose shelf is being
// asked about, retrieve the relevant books, generate a grounded answer and
// verify it before it leaves the service.
package chat

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/Clayjohnson75/Bookshelfapp-sub000/internal/books"
	"github.com/Clayjohnson75/Bookshelfapp-sub000/internal/llm"
)

// Refusal is the one fixed sentence returned whenever the pipeline cannot or
// will not answer. Every fail-closed path funnels into this exact string so
// the wire contract never varies by error type.
const Refusal = "Sorry, I can only help with questions about your book library."

// Request is the raw POST body. Conversation stays raw so a malformed
// transcript degrades gracefully instead of failing the whole request.
type Request struct {
	Message        string          `json:"message"`
	Conversation   json.RawMessage `json:"conversation,omitempty"`
	TargetUsername string          `json:"targetUsername,omitempty"`
}

// Turn is one entry of the caller-supplied transcript.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Validated is a normalized request: trimmed message, at most the last six
// well-formed conversation turns, lower-casing of the target deferred to
// lookup time.
type Validated struct {
	Message        string `validate:"required,min=1,max=2000"`
	Conversation   []Turn
	TargetUsername string
}

// QueryContext is the resolved target of a question: whose library, and
// under which datastore privilege.
type QueryContext struct {
	CallerID      uuid.UUID
	TargetOwnerID uuid.UUID
	OwnLibrary    bool
	Access        books.AccessLevel
}

// Candidate is a book annotated with ranking signals. It exists only inside
// the retrieval engine and is discarded after ranking.
type Candidate struct {
	Book         books.Book
	Score        int
	MatchedTerms int
}

// MatchedBook is the per-book projection of the response envelope.
type MatchedBook struct {
	ID     uuid.UUID `json:"id"`
	Title  string    `json:"title"`
	Author string    `json:"author"`
}

// Envelope is the only shape the chat endpoint ever returns on a 200.
type Envelope struct {
	Reply        string        `json:"reply"`
	MatchedBooks []MatchedBook `json:"matchedBooks"`
}

// RefusalEnvelope is the uniform fail-closed response body.
func RefusalEnvelope() *Envelope {
	return &Envelope{Reply: Refusal, MatchedBooks: []MatchedBook{}}
}

func envelopeFor(reply string, candidates []Candidate) *Envelope {
	matched := make([]MatchedBook, 0, len(candidates))
	for _, c := range candidates {
		matched = append(matched, MatchedBook{ID: c.Book.ID, Title: c.Book.Title, Author: c.Book.Author})
	}
	return &Envelope{Reply: reply, MatchedBooks: matched}
}

// CompletionClient is the capability boundary to the hosted completion
// service: submit a prompt, receive text or fail.
type CompletionClient interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
	Configured() bool
}
