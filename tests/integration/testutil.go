//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Clayjohnson75/Bookshelfapp-sub000/internal/api"
	"github.com/Clayjohnson75/Bookshelfapp-sub000/internal/auth"
	"github.com/Clayjohnson75/Bookshelfapp-sub000/internal/books"
	"github.com/Clayjohnson75/Bookshelfapp-sub000/internal/chat"
	"github.com/Clayjohnson75/Bookshelfapp-sub000/internal/config"
	"github.com/Clayjohnson75/Bookshelfapp-sub000/internal/llm"
	"github.com/Clayjohnson75/Bookshelfapp-sub000/internal/profile"
)

type TestEnv struct {
	Pool        *pgxpool.Pool
	RedisClient *redis.Client
}

var testEnv *TestEnv

func SetupTestEnv(t *testing.T) *TestEnv {
	t.Helper()
	if testEnv != nil {
		return testEnv
	}

	ctx := context.Background()

	// Start PostgreSQL container
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "bookshelf_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting postgres container: %v", err)
	}
	t.Cleanup(func() { pgContainer.Terminate(ctx) })

	pgHost, _ := pgContainer.Host(ctx)
	pgPort, _ := pgContainer.MappedPort(ctx, "5432")

	// Start Redis container
	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting redis container: %v", err)
	}
	t.Cleanup(func() { redisContainer.Terminate(ctx) })

	redisHost, _ := redisContainer.Host(ctx)
	redisPort, _ := redisContainer.MappedPort(ctx, "6379")

	// Connect to PostgreSQL
	dsn := fmt.Sprintf("postgres://test:test@%s:%s/bookshelf_test?sslmode=disable", pgHost, pgPort.Port())
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connecting to postgres: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	// Run migrations
	m, err := migrate.New(fmt.Sprintf("file://%s", getMigrationsPath()), dsn)
	if err != nil {
		t.Fatalf("creating migrator: %v", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		t.Fatalf("running migrations: %v", err)
	}

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s", redisHost, redisPort.Port()),
	})
	t.Cleanup(func() { redisClient.Close() })

	testEnv = &TestEnv{Pool: pool, RedisClient: redisClient}
	return testEnv
}

func getMigrationsPath() string {
	paths := []string{
		"../../migrations",
		"../../../migrations",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	log.Fatal("migrations directory not found")
	return ""
}

// NewChatServer wires the full pipeline against the test datastores and a
// scripted completion backend, mounted the way cmd/api does it.
func NewChatServer(t *testing.T, env *TestEnv, llmBaseURL string) *httptest.Server {
	t.Helper()

	llmClient := llm.NewClient(config.LLMConfig{
		BaseURL:     llmBaseURL,
		APIKey:      "test-key",
		Model:       "test-model",
		Temperature: 0,
	})

	profileRepo := profile.NewRepository(env.Pool)
	entitlements := profile.NewEntitlementGate(profileRepo, env.RedisClient)
	bookRepo := books.NewRepository(env.Pool)

	svc := chat.NewService(
		chat.NewClassifier(llmClient, 5*time.Second),
		chat.NewTargetResolver(profileRepo),
		chat.NewEngine(bookRepo, chat.NewSemanticRanker(llmClient, 5*time.Second), &chat.WeightedRanker{}),
		chat.NewGenerator(llmClient, 5*time.Second, 0),
		chat.NewSafetyGate(),
	)
	handler := chat.NewHandler(svc, entitlements, llmClient)

	router := api.NewRouter(env.Pool, env.RedisClient, api.RouterConfig{}, api.HandlerSet{
		Chat:           handler.Ask,
		AuthMiddleware: auth.Middleware(auth.NewResolver("")),
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

// NewCompletionStub returns an OpenAI-compatible endpoint that answers each
// pipeline stage by recognizing its system prompt.
func NewCompletionStub(t *testing.T, semanticIDs []string, generatorReply string) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) == 0 {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		system := req.Messages[0].Content
		var content string
		switch {
		case strings.Contains(system, "binary classifier"):
			content = `{"in_scope": true}`
		case strings.Contains(system, "select books"):
			b, _ := json.Marshal(map[string][]string{"ids": semanticIDs})
			content = string(b)
		default:
			content = generatorReply
		}

		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(server.Close)
	return server
}

// Seed helpers

func InsertProfile(t *testing.T, env *TestEnv, username, tier, status string, expiresAt *time.Time) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := env.Pool.Exec(context.Background(),
		`INSERT INTO profiles (id, username, subscription_tier, subscription_status, subscription_expires_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		id, username, tier, status, expiresAt)
	if err != nil {
		t.Fatalf("inserting profile: %v", err)
	}
	return id
}

func InsertBook(t *testing.T, env *TestEnv, ownerID uuid.UUID, title, author, description string, approved bool, categories ...string) uuid.UUID {
	t.Helper()
	if categories == nil {
		categories = []string{}
	}
	id := uuid.New()
	_, err := env.Pool.Exec(context.Background(),
		`INSERT INTO books (id, owner_id, title, author, description, categories, approved)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, ownerID, title, author, description, categories, approved)
	if err != nil {
		t.Fatalf("inserting book: %v", err)
	}
	return id
}

func MintToken(t *testing.T, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte("integration-test-secret"))
	if err != nil {
		t.Fatalf("minting token: %v", err)
	}
	return signed
}

func PostChat(t *testing.T, server *httptest.Server, token string, body any) *http.Response {
	t.Helper()
	b, _ := json.Marshal(body)
	req, err := http.NewRequest(http.MethodPost, server.URL+"/api/v1/chat", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("doing request: %v", err)
	}
	return resp
}

func DecodeEnvelope(t *testing.T, resp *http.Response) chat.Envelope {
	t.Helper()
	defer resp.Body.Close()
	var env chat.Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decoding envelope: %v", err)
	}
	return env
}

func DrainBody(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
