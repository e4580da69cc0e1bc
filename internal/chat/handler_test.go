package chat

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Clayjohnson75/Bookshelfapp-sub000/internal/auth"
	"github.com/Clayjohnson75/Bookshelfapp-sub000/internal/books"
	"github.com/Clayjohnson75/Bookshelfapp-sub000/internal/profile"
)

func mintToken(t *testing.T, subject string, expiresAt time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})
	signed, err := token.SignedString([]byte("handler-test-secret"))
	require.NoError(t, err)
	return signed
}

func paidProfile(id uuid.UUID) *profile.Profile {
	return &profile.Profile{
		ID:       id,
		Username: "reader",
		Tier:     profile.TierPremium,
		Status:   profile.StatusActive,
	}
}

// chatEndpoint builds the handler behind the auth middleware, exactly as the
// router mounts it.
func chatEndpoint(client *stubCompletion, shelf *stubShelf, profiles *stubProfiles) http.Handler {
	svc := newPipeline(client, shelf, profiles)
	handler := NewHandler(svc, profile.NewEntitlementGate(profiles, nil), client)
	return auth.Middleware(auth.NewResolver(""))(http.HandlerFunc(handler.Ask))
}

func postChat(t *testing.T, endpoint http.Handler, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	endpoint.ServeHTTP(rec, req)
	return rec
}

func TestHandler_Ask(t *testing.T) {
	caller := uuid.New()
	token := mintToken(t, caller.String(), time.Now().Add(time.Hour))

	entitled := func() *stubProfiles {
		return &stubProfiles{
			byID:       map[uuid.UUID]*profile.Profile{caller: paidProfile(caller)},
			byUsername: map[string]*profile.Profile{},
		}
	}

	t.Run("missing token is 401", func(t *testing.T) {
		endpoint := chatEndpoint(&stubCompletion{configured: true}, &stubShelf{}, entitled())
		rec := postChat(t, endpoint, "", `{"message":"any dinosaurs?"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired token is 401", func(t *testing.T) {
		endpoint := chatEndpoint(&stubCompletion{configured: true}, &stubShelf{}, entitled())
		expired := mintToken(t, caller.String(), time.Now().Add(-time.Hour))
		rec := postChat(t, endpoint, expired, `{"message":"any dinosaurs?"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("non-uuid subject is 401", func(t *testing.T) {
		endpoint := chatEndpoint(&stubCompletion{configured: true}, &stubShelf{}, entitled())
		rec := postChat(t, endpoint, mintToken(t, "not-a-uuid", time.Now().Add(time.Hour)), `{"message":"hi there"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed body is 400", func(t *testing.T) {
		endpoint := chatEndpoint(&stubCompletion{configured: true}, &stubShelf{}, entitled())
		rec := postChat(t, endpoint, token, `{"message":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("empty message is 400", func(t *testing.T) {
		endpoint := chatEndpoint(&stubCompletion{configured: true}, &stubShelf{}, entitled())
		rec := postChat(t, endpoint, token, `{"message":"   "}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("overlong message is 400", func(t *testing.T) {
		endpoint := chatEndpoint(&stubCompletion{configured: true}, &stubShelf{}, entitled())
		body, _ := json.Marshal(Request{Message: strings.Repeat("x", 2001)})
		rec := postChat(t, endpoint, token, string(body))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("free tier is 403", func(t *testing.T) {
		free := paidProfile(caller)
		free.Tier = profile.TierFree
		profiles := &stubProfiles{byID: map[uuid.UUID]*profile.Profile{caller: free}}

		endpoint := chatEndpoint(&stubCompletion{configured: true}, &stubShelf{}, profiles)
		rec := postChat(t, endpoint, token, `{"message":"any dinosaurs?"}`)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("unconfigured completion service is 500", func(t *testing.T) {
		endpoint := chatEndpoint(&stubCompletion{}, &stubShelf{}, entitled())
		rec := postChat(t, endpoint, token, `{"message":"any dinosaurs?"}`)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("unknown target username is 404", func(t *testing.T) {
		client := &stubCompletion{configured: true, responses: []string{`{"in_scope": true}`}}
		endpoint := chatEndpoint(client, &stubShelf{}, entitled())

		rec := postChat(t, endpoint, token, `{"message":"what does sam own?","targetUsername":"sam"}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("out-of-scope question is 200 with the refusal envelope", func(t *testing.T) {
		client := &stubCompletion{configured: true, responses: []string{`{"in_scope": false}`}}
		shelf := &stubShelf{}
		endpoint := chatEndpoint(client, shelf, entitled())

		rec := postChat(t, endpoint, token, `{"message":"what's the weather today?"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var env Envelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
		assert.Equal(t, Refusal, env.Reply)
		assert.Empty(t, env.MatchedBooks)
		assert.Contains(t, rec.Body.String(), `"matchedBooks":[]`)
		assert.Zero(t, shelf.calls)
	})

	t.Run("classifier outage is 200 with the refusal envelope", func(t *testing.T) {
		client := &stubCompletion{configured: true, errs: []error{assert.AnError}}
		endpoint := chatEndpoint(client, &stubShelf{}, entitled())

		rec := postChat(t, endpoint, token, `{"message":"any dinosaurs?"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var env Envelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
		assert.Equal(t, Refusal, env.Reply)
		assert.Empty(t, env.MatchedBooks)
	})

	t.Run("happy path is 200 with reply and matched books", func(t *testing.T) {
		book := mkBook("The Rise and Fall of the Dinosaurs", "Steve Brusatte", "A new history of dinosaurs")
		client := &stubCompletion{
			configured: true,
			responses: []string{
				`{"in_scope": true}`,
				`You own "The Rise and Fall of the Dinosaurs" by Steve Brusatte.`,
			},
		}
		endpoint := chatEndpoint(client, &stubShelf{shelf: []books.Book{book}}, entitled())

		rec := postChat(t, endpoint, token, `{"message":"any dinosaurs?"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var env Envelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
		assert.Contains(t, env.Reply, "The Rise and Fall of the Dinosaurs")
		require.Len(t, env.MatchedBooks, 1)
		assert.Equal(t, book.ID, env.MatchedBooks[0].ID)
	})
}
