package chat

import (
	"encoding/json"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Clayjohnson75/Bookshelfapp-sub000/internal/api"
)

const (
	maxMessageLength = 2000
	maxTurnLength    = 4000
	maxTurns         = 6
)

// Validator normalizes and rejects malformed request bodies. A bad message
// fails the request; conversation and target problems degrade gracefully.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{validate: validator.New()}
}

// Normalize returns the validated request or an *api.AppError.
func (v *Validator) Normalize(req *Request) (*Validated, error) {
	out := &Validated{
		Message:        strings.TrimSpace(req.Message),
		Conversation:   normalizeConversation(req.Conversation),
		TargetUsername: strings.TrimSpace(req.TargetUsername),
	}

	if err := v.validate.Struct(out); err != nil {
		if out.Message == "" {
			return nil, api.NewValidationError("message is required")
		}
		if len(out.Message) > maxMessageLength {
			return nil, api.NewValidationError("message exceeds 2000 characters")
		}
		return nil, api.NewValidationError(err.Error())
	}

	return out, nil
}

// normalizeConversation keeps the last six well-formed turns and silently
// drops everything else, including a transcript that is not an array at all.
func normalizeConversation(raw json.RawMessage) []Turn {
	if len(raw) == 0 {
		return nil
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil
	}

	valid := make([]Turn, 0, len(entries))
	for _, entry := range entries {
		var turn Turn
		if err := json.Unmarshal(entry, &turn); err != nil {
			continue
		}
		if turn.Role != RoleUser && turn.Role != RoleAssistant {
			continue
		}
		if turn.Content == "" || len(turn.Content) > maxTurnLength {
			continue
		}
		valid = append(valid, turn)
	}

	if len(valid) > maxTurns {
		valid = valid[len(valid)-maxTurns:]
	}
	if len(valid) == 0 {
		return nil
	}
	return valid
}
