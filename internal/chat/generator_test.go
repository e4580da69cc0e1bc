package chat

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripMarkdown(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"heading", "## Your Books\nYou own two.", "Your Books\nYou own two."},
		{"bold", "You own **Dune** by Frank Herbert.", "You own Dune by Frank Herbert."},
		{"emphasis", "You own *Dune* and _Hyperion_.", "You own Dune and Hyperion."},
		{"link", "See [Dune](https://example.com/dune) for details.", "See Dune for details."},
		{"plain text untouched", "You own Dune by Frank Herbert.", "You own Dune by Frank Herbert."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripMarkdown(tt.in))
		})
	}
}

func TestSerializeCandidates(t *testing.T) {
	t.Run("empty set", func(t *testing.T) {
		assert.Equal(t, "(no books found)", serializeCandidates(nil))
	})

	t.Run("numbered entries with status and categories", func(t *testing.T) {
		read := mkBook("Dune", "Frank Herbert", "Desert planet epic", "Science Fiction")
		now := time.Now()
		read.ReadAt = &now
		unread := mkBook("Hyperion", "Dan Simmons", "")

		got := serializeCandidates([]Candidate{{Book: read}, {Book: unread}})

		assert.Contains(t, got, `1. "Dune" by Frank Herbert [read] (Science Fiction)`)
		assert.Contains(t, got, "Desert planet epic")
		assert.Contains(t, got, `2. "Hyperion" by Dan Simmons [unread]`)
	})
}

func TestGenerator_Answer(t *testing.T) {
	ctx := context.Background()

	t.Run("prompt carries context, conversation and rules", func(t *testing.T) {
		client := &stubCompletion{configured: true, responses: []string{"You own **Dune**."}}
		gen := NewGenerator(client, time.Second, 0.4)

		conversation := []Turn{
			{Role: RoleUser, Content: "any sci-fi?"},
			{Role: RoleAssistant, Content: "You own Dune."},
		}
		candidates := []Candidate{{Book: mkBook("Dune", "Frank Herbert", "Desert planet epic")}}

		reply, err := gen.Answer(ctx, "who wrote it?", conversation, candidates, true)
		require.NoError(t, err)
		assert.Equal(t, "You own Dune.", reply, "markdown must be stripped")

		require.Len(t, client.requests, 1)
		req := client.requests[0]
		assert.Contains(t, req.System, `"Dune" by Frank Herbert`)
		assert.Contains(t, req.System, Refusal)
		require.Len(t, req.Messages, 3)
		assert.Equal(t, "any sci-fi?", req.Messages[0].Content)
		assert.Equal(t, "who wrote it?", req.Messages[2].Content)
		assert.InDelta(t, 0.4, req.Temperature, 0.001)
	})

	t.Run("shared-library phrasing", func(t *testing.T) {
		client := &stubCompletion{configured: true, responses: []string{"ok"}}
		gen := NewGenerator(client, time.Second, 0)

		_, err := gen.Answer(ctx, "what does sam own?", nil, nil, false)
		require.NoError(t, err)
		require.Len(t, client.requests, 1)
		assert.Contains(t, client.requests[0].System, "another user's shared book library")
	})

	t.Run("completion failure propagates", func(t *testing.T) {
		client := &stubCompletion{configured: true, errs: []error{fmt.Errorf("upstream 500")}}
		gen := NewGenerator(client, time.Second, 0)

		_, err := gen.Answer(ctx, "any sci-fi?", nil, nil, true)
		assert.Error(t, err)
	})
}
