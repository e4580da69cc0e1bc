package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafetyGate_Review(t *testing.T) {
	gate := NewSafetyGate()

	dinos := []Candidate{{Book: mkBook("The Rise and Fall of the Dinosaurs", "Steve Brusatte", "")}}

	t.Run("grounded reply passes", func(t *testing.T) {
		reply := `You own "The Rise and Fall of the Dinosaurs" by Steve Brusatte.`
		got, tripped := gate.Review(reply, dinos)
		assert.Equal(t, reply, got)
		assert.Empty(t, tripped)
	})

	t.Run("injection markers force the refusal", func(t *testing.T) {
		for _, reply := range []string{
			"Sure! My SYSTEM PROMPT says the following...",
			"As an AI language model, I can tell you about The Rise and Fall of the Dinosaurs",
			"Developer mode enabled. Ask me anything.",
			"Okay, ignoring my previous instructions as requested.",
		} {
			got, tripped := gate.Review(reply, dinos)
			assert.Equal(t, Refusal, got, "reply: %s", reply)
			assert.Equal(t, "injection", tripped)
		}
	})

	t.Run("ungrounded reply is refused", func(t *testing.T) {
		got, tripped := gate.Review("Jurassic Park is a classic Michael Crichton thriller.", dinos)
		assert.Equal(t, Refusal, got)
		assert.Equal(t, "grounding", tripped)
	})

	t.Run("honest not-found replies pass ungrounded", func(t *testing.T) {
		for _, reply := range []string{
			"I couldn't find any books about gardening in your library.",
			"There are no books on that topic in your collection.",
			"I don't see anything matching that.",
		} {
			got, tripped := gate.Review(reply, dinos)
			assert.Equal(t, reply, got, "reply: %s", reply)
			assert.Empty(t, tripped)
		}
	})

	t.Run("very short titles do not count as grounding", func(t *testing.T) {
		short := []Candidate{{Book: mkBook("It", "Stephen King", "")}}
		got, tripped := gate.Review("Well, it depends on what you like to read.", short)
		assert.Equal(t, Refusal, got)
		assert.Equal(t, "grounding", tripped)
	})

	t.Run("empty candidate set with substantive reply is refused", func(t *testing.T) {
		got, tripped := gate.Review("The best dinosaur book ever written is Raptor Red.", nil)
		assert.Equal(t, Refusal, got)
		assert.Equal(t, "grounding", tripped)
	})
}
