package chat

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Clayjohnson75/Bookshelfapp-sub000/internal/books"
)

const (
	bulkFetchLimit = 1000
	// With no usable search terms there is no lexical signal to filter on;
	// hand the first slice of the shelf to the ranker as-is.
	noTermCandidateLimit = 100
	// Above this many candidates the semantic projection would blow the
	// prompt budget; fall straight through to weighted scoring.
	semanticMaxCandidates = 200
	maxResults            = 20
)

// stopWords are tokens with no retrieval signal: articles, auxiliaries,
// question words and domain filler.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {},
	"is": {}, "are": {}, "was": {}, "were": {}, "be": {}, "been": {}, "being": {}, "am": {},
	"do": {}, "does": {}, "did": {}, "have": {}, "has": {}, "had": {},
	"can": {}, "could": {}, "will": {}, "would": {}, "should": {}, "shall": {}, "may": {}, "might": {}, "must": {},
	"what": {}, "which": {}, "who": {}, "whom": {}, "whose": {}, "when": {}, "where": {}, "why": {}, "how": {},
	"i": {}, "me": {}, "my": {}, "mine": {}, "you": {}, "your": {}, "yours": {}, "we": {}, "our": {},
	"it": {}, "its": {}, "this": {}, "that": {}, "these": {}, "those": {}, "there": {},
	"and": {}, "or": {}, "not": {}, "no": {}, "but": {}, "if": {}, "so": {},
	"of": {}, "in": {}, "on": {}, "at": {}, "to": {}, "for": {}, "from": {}, "with": {}, "about": {},
	"any": {}, "some": {}, "all": {}, "tell": {}, "show": {}, "find": {}, "give": {}, "please": {},
	"book": {}, "books": {}, "library": {}, "libraries": {}, "shelf": {}, "bookshelf": {}, "collection": {},
}

// extractTerms lower-cases the question, splits on whitespace and drops
// short tokens and stop words. Edge punctuation is trimmed so "dinosaurs?"
// still matches, and a trailing plural s is dropped so "dinosaurs" finds a
// record that only says "dinosaur".
func extractTerms(question string) []string {
	fields := strings.Fields(strings.ToLower(question))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, `.,!?;:'"()[]{}`)
		if len(f) < 2 {
			continue
		}
		if _, stop := stopWords[f]; stop {
			continue
		}
		if len(f) > 3 && strings.HasSuffix(f, "s") && !strings.HasSuffix(f, "ss") {
			f = f[:len(f)-1]
		}
		terms = append(terms, f)
	}
	return terms
}

// matchesAnyTerm reports whether any term appears as a substring of the
// book's title, author, description or joined categories.
func matchesAnyTerm(b *books.Book, terms []string) bool {
	haystack := strings.ToLower(b.Title + " " + b.Author + " " + b.Description + " " + strings.Join(b.Categories, " "))
	for _, term := range terms {
		if strings.Contains(haystack, term) {
			return true
		}
	}
	return false
}

// Ranker narrows an admitted candidate set to the most relevant books.
type Ranker interface {
	Rank(ctx context.Context, question string, terms []string, candidates []books.Book) ([]Candidate, error)
}

// Engine is the two-phase retrieval pipeline: bulk fetch, keyword
// pre-filter, then either LLM-assisted semantic selection or deterministic
// weighted scoring. The weighted path is the mandatory fallback so
// retrieval keeps working when the completion service is degraded.
type Engine struct {
	repo     books.Repository
	semantic Ranker
	weighted Ranker
}

func NewEngine(repo books.Repository, semantic, weighted Ranker) *Engine {
	if weighted == nil {
		weighted = &WeightedRanker{}
	}
	return &Engine{repo: repo, semantic: semantic, weighted: weighted}
}

// Retrieve returns at most 20 candidates, most relevant first, and the name
// of the ranking path that produced them ("semantic", "weighted" or "none").
func (e *Engine) Retrieve(ctx context.Context, question string, qc *QueryContext) ([]Candidate, string, error) {
	shelf, err := e.repo.ListApprovedByOwner(ctx, qc.CallerID, qc.TargetOwnerID, qc.Access, bulkFetchLimit)
	if err != nil {
		return nil, "none", fmt.Errorf("fetching library: %w", err)
	}
	if len(shelf) == 0 {
		return nil, "none", nil
	}

	terms := extractTerms(question)

	var candidates []books.Book
	if len(terms) == 0 {
		if len(shelf) > noTermCandidateLimit {
			candidates = shelf[:noTermCandidateLimit]
		} else {
			candidates = shelf
		}
	} else {
		for i := range shelf {
			if matchesAnyTerm(&shelf[i], terms) {
				candidates = append(candidates, shelf[i])
			}
		}
	}
	if len(candidates) == 0 {
		return nil, "none", nil
	}

	if e.semantic != nil && len(candidates) <= semanticMaxCandidates {
		ranked, err := e.semantic.Rank(ctx, question, terms, candidates)
		if err == nil && len(ranked) > 0 {
			return ranked, "semantic", nil
		}
	}

	ranked, err := e.weighted.Rank(ctx, question, terms, candidates)
	if err != nil {
		return nil, "none", err
	}
	if len(ranked) == 0 {
		return nil, "none", nil
	}
	return ranked, "weighted", nil
}

// Field weights for the deterministic scorer. Description matches also earn
// a per-occurrence bonus because topical depth shows up as repeated
// mentions.
const (
	titleWeight       = 15
	authorWeight      = 10
	categoryWeight    = 12
	subtitleWeight    = 10
	descriptionWeight = 8
	descriptionRepeat = 3

	fullCoverageBonus = 30
	perTermCoverage   = 5
)

// WeightedRanker is the deterministic fallback: multi-signal scoring with a
// coverage bonus, no external dependency.
type WeightedRanker struct{}

func (w *WeightedRanker) Rank(_ context.Context, _ string, terms []string, candidates []books.Book) ([]Candidate, error) {
	scored := make([]Candidate, 0, len(candidates))

	for i := range candidates {
		c := scoreBook(&candidates[i], terms)
		if c.Score > 0 {
			scored = append(scored, c)
		}
	}

	// Term coverage dominates raw score: a book hitting more distinct
	// concepts outranks one hitting a single concept densely. Stable sort
	// keeps the ordering deterministic for equal keys.
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].MatchedTerms != scored[j].MatchedTerms {
			return scored[i].MatchedTerms > scored[j].MatchedTerms
		}
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > maxResults {
		scored = scored[:maxResults]
	}
	return scored, nil
}

func scoreBook(b *books.Book, terms []string) Candidate {
	title := strings.ToLower(b.Title)
	subtitle := strings.ToLower(b.Subtitle)
	author := strings.ToLower(b.Author)
	description := strings.ToLower(b.Description)
	categories := strings.ToLower(strings.Join(b.Categories, " "))

	score := 0
	matched := 0

	for _, term := range terms {
		termHit := false

		if strings.Contains(title, term) {
			score += titleWeight
			termHit = true
		}
		if strings.Contains(author, term) {
			score += authorWeight
			termHit = true
		}
		if strings.Contains(categories, term) {
			score += categoryWeight
			termHit = true
		}
		if b.Subtitle != "" && strings.Contains(subtitle, term) {
			score += subtitleWeight
			termHit = true
		}
		if n := strings.Count(description, term); n > 0 {
			score += descriptionWeight + descriptionRepeat*(n-1)
			termHit = true
		}

		if termHit {
			matched++
		}
	}

	if matched > 0 {
		if matched == len(terms) {
			score += fullCoverageBonus
		} else {
			score += perTermCoverage * matched
		}
	}

	return Candidate{Book: *b, Score: score, MatchedTerms: matched}
}
