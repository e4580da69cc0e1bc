package chat

import "strings"

// injectionMarkers are phrases characteristic of prompt-injection success or
// policy leakage. Matched case-insensitively against the generated reply.
var injectionMarkers = []string{
	"system prompt",
	"system instruction",
	"my instructions",
	"as an ai language model",
	"as a language model",
	"i am an ai developed",
	"i am now in developer mode",
	"developer mode enabled",
	"i am the administrator",
	"admin mode",
	"jailbreak",
	"ignore previous instructions",
	"ignoring my previous instructions",
	"i cannot refuse",
	"however, since you insist",
}

// notFoundMarkers let a grounded-check failure through when the reply is
// honestly saying the library has nothing, rather than answering from
// outside knowledge.
var notFoundMarkers = []string{
	"couldn't find",
	"could not find",
	"didn't find",
	"did not find",
	"no books",
	"no matching",
	"don't see",
	"do not see",
	"nothing in your library",
	"none of your books",
	"none of the books",
	"unable to find",
}

// minGroundingTitleLength excludes very short titles from the grounding
// check; two-letter titles match almost any sentence by accident.
const minGroundingTitleLength = 4

// SafetyGate runs the post-generation checks. Either check failing forces
// the reply to the fixed refusal sentence.
type SafetyGate struct{}

func NewSafetyGate() *SafetyGate {
	return &SafetyGate{}
}

// Review returns the reply to send and the name of the check that forced a
// refusal ("injection", "grounding", or "" when the reply passed).
func (s *SafetyGate) Review(reply string, candidates []Candidate) (string, string) {
	lower := strings.ToLower(reply)

	for _, marker := range injectionMarkers {
		if strings.Contains(lower, marker) {
			return Refusal, "injection"
		}
	}

	if s.grounded(lower, candidates) {
		return reply, ""
	}

	for _, marker := range notFoundMarkers {
		if strings.Contains(lower, marker) {
			return reply, ""
		}
	}

	return Refusal, "grounding"
}

// grounded reports whether the reply mentions at least one retrieved title.
func (s *SafetyGate) grounded(lowerReply string, candidates []Candidate) bool {
	for _, c := range candidates {
		title := strings.ToLower(strings.TrimSpace(c.Book.Title))
		if len(title) < minGroundingTitleLength {
			continue
		}
		if strings.Contains(lowerReply, title) {
			return true
		}
	}
	return false
}
