package chat

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/Clayjohnson75/Bookshelfapp-sub000/internal/api"
	"github.com/Clayjohnson75/Bookshelfapp-sub000/internal/auth"
	"github.com/Clayjohnson75/Bookshelfapp-sub000/internal/profile"
)

// Handler wires the HTTP surface to the pipeline: pre-pipeline gates get
// real HTTP error statuses, everything after authorization is a 200 with
// the envelope.
type Handler struct {
	svc          *Service
	entitlements *profile.EntitlementGate
	llm          CompletionClient
	validator    *Validator
}

func NewHandler(svc *Service, entitlements *profile.EntitlementGate, llm CompletionClient) *Handler {
	return &Handler{
		svc:          svc,
		entitlements: entitlements,
		llm:          llm,
		validator:    NewValidator(),
	}
}

// Ask handles POST /api/v1/chat.
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	session := auth.GetSession(r.Context())
	if session == nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	callerID, err := uuid.Parse(session.UserID)
	if err != nil {
		api.HandleError(w, api.ErrInvalidToken)
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}

	validated, err := h.validator.Normalize(&req)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	if !h.entitlements.Entitled(r.Context(), callerID) {
		api.HandleError(w, api.ErrNotEntitled)
		return
	}

	// Missing completion-service credentials is a deployment problem, not
	// a conversational one; surface it before any model call is attempted.
	if !h.llm.Configured() {
		api.HandleError(w, api.ErrServiceConfig)
		return
	}

	envelope, err := h.svc.Ask(r.Context(), callerID, validated)
	if err != nil {
		var appErr *api.AppError
		if errors.As(err, &appErr) {
			api.HandleError(w, appErr)
			return
		}
		// Datastore trouble during target resolution is a dependency
		// failure: refuse conversationally, keep the contract uniform.
		slog.Error("pipeline error", "error", err, "caller_id", callerID)
		api.JSONRaw(w, http.StatusOK, RefusalEnvelope())
		return
	}

	api.JSONRaw(w, http.StatusOK, envelope)
}
