package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Clayjohnson75/Bookshelfapp-sub000/internal/books"
	"github.com/Clayjohnson75/Bookshelfapp-sub000/internal/llm"
)

const semanticSystemPrompt = `You select books relevant to a question about someone's personal library.
You are given the question and a JSON list of the library's candidate books.
Return the ids of up to 20 books genuinely relevant to the question, best first.
Include subtle topical matches, not just literal keyword hits: a question about WWII matches a book about the Battle of Normandy even if "WWII" never appears.
Respond with only a JSON object: {"ids": ["id1", "id2", ...]}. Return {"ids": []} if nothing is relevant.`

const (
	projectionDescriptionLimit = 300
	projectionCategoryLimit    = 3
)

// bookProjection is the compact shape sent to the completion service.
type bookProjection struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Author      string   `json:"author"`
	Description string   `json:"description,omitempty"`
	Categories  []string `json:"categories,omitempty"`
}

// SemanticRanker asks the completion service to pick the genuinely relevant
// candidates. It exists because substring matching cannot capture thematic
// relevance; any failure here is absorbed by the weighted fallback.
type SemanticRanker struct {
	llm     CompletionClient
	timeout time.Duration
}

func NewSemanticRanker(client CompletionClient, timeout time.Duration) *SemanticRanker {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &SemanticRanker{llm: client, timeout: timeout}
}

type semanticResult struct {
	IDs []string `json:"ids"`
}

func (s *SemanticRanker) Rank(ctx context.Context, question string, _ []string, candidates []books.Book) ([]Candidate, error) {
	if !s.llm.Configured() {
		return nil, fmt.Errorf("completion service not configured")
	}

	projections := make([]bookProjection, 0, len(candidates))
	byID := make(map[string]*books.Book, len(candidates))
	for i := range candidates {
		b := &candidates[i]
		p := bookProjection{
			ID:          b.ID.String(),
			Title:       b.Title,
			Author:      b.Author,
			Description: truncate(b.Description, projectionDescriptionLimit),
			Categories:  b.Categories,
		}
		if len(p.Categories) > projectionCategoryLimit {
			p.Categories = p.Categories[:projectionCategoryLimit]
		}
		projections = append(projections, p)
		byID[p.ID] = b
	}

	payload, err := json.Marshal(projections)
	if err != nil {
		return nil, fmt.Errorf("marshaling candidate projections: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	prompt := fmt.Sprintf("Question: %s\n\nCandidate books:\n%s", question, payload)
	raw, err := s.llm.Complete(ctx, llm.Request{
		System:      semanticSystemPrompt,
		Messages:    []llm.Message{{Role: "user", Content: prompt}},
		Temperature: 0,
		JSONMode:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("semantic selection: %w", err)
	}

	var result semanticResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		slog.Warn("semantic ranker returned malformed output", "output", truncate(raw, 200))
		return nil, fmt.Errorf("decoding semantic selection: %w", err)
	}

	// Map ids back in the order the model supplied; unknown ids are
	// dropped rather than trusted.
	ranked := make([]Candidate, 0, maxResults)
	seen := make(map[string]struct{}, len(result.IDs))
	for _, id := range result.IDs {
		id = strings.TrimSpace(id)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if b, ok := byID[id]; ok {
			ranked = append(ranked, Candidate{Book: *b})
			if len(ranked) == maxResults {
				break
			}
		}
	}
	return ranked, nil
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
