package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"grana/internal/ai"
	"grana/internal/cache"
	"grana/internal/core"
)

type contextKey string

const (
	ctxKeyRequestID contextKey = "request_id"
	ctxKeyUserID    contextKey = "user_id"
)

// defaultUser is assumed when no API tokens are configured. It keeps local
// development usable without credentials.
const defaultUser = "local"

// TransactionService is what the handlers need from the service layer.
type TransactionService interface {
	List(ctx context.Context, userID string) ([]core.Transaction, error)
	Create(ctx context.Context, draft core.Draft) ([]core.Transaction, error)
	Update(ctx context.Context, userID, id string, tx core.Transaction) (core.Transaction, error)
	Delete(ctx context.Context, userID, id string) error
}

// CategoryStore is the persistence surface for categories.
type CategoryStore interface {
	ListCategories(ctx context.Context, userID string, typ core.TransactionType) ([]core.Category, error)
	InsertCategory(ctx context.Context, c core.Category) (core.Category, error)
	UpdateCategory(ctx context.Context, userID, id string, c core.Category) (core.Category, error)
	DeleteCategory(ctx context.Context, userID, id string) error
}

type Server struct {
	http.Server

	transactions TransactionService
	categories   CategoryStore
	suggester    *ai.Suggester

	// tokens maps bearer credentials to user ids. Empty means open access
	// under defaultUser.
	tokens map[string]string

	dashCache  *cache.LRU[dashboardResponse]
	chartCache *cache.LRU[chartsResponse]

	shutdownOnce sync.Once
}

type Options struct {
	Addr      string
	Tokens    map[string]string
	CacheSize int
	CacheTTL  time.Duration

	// CacheManager, when set, takes over periodic eviction of the server's
	// memoization caches.
	CacheManager *cache.Manager
}

// NewServer wires routes and returns a ready-to-run server.
func NewServer(opts Options, txs TransactionService, cats CategoryStore, suggester *ai.Suggester) *Server {
	if opts.CacheSize <= 0 {
		opts.CacheSize = 256
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:    opts.Addr,
			Handler: mux,
		},
		transactions: txs,
		categories:   cats,
		suggester:    suggester,
		tokens:       opts.Tokens,
		dashCache:    cache.NewLRU[dashboardResponse](opts.CacheSize, opts.CacheTTL),
		chartCache:   cache.NewLRU[chartsResponse](opts.CacheSize, opts.CacheTTL),
	}

	if opts.CacheManager != nil {
		opts.CacheManager.Register(s.dashCache)
		opts.CacheManager.Register(s.chartCache)
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("GET /transactions", s.withRequest(s.handleListTransactions))
	mux.HandleFunc("POST /transactions", s.withRequest(s.handleCreateTransaction))
	mux.HandleFunc("PUT /transactions/{id}", s.withRequest(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /transactions/{id}", s.withRequest(s.handleDeleteTransaction))

	mux.HandleFunc("GET /categories", s.withRequest(s.handleListCategories))
	mux.HandleFunc("POST /categories", s.withRequest(s.handleCreateCategory))
	mux.HandleFunc("PUT /categories/{id}", s.withRequest(s.handleUpdateCategory))
	mux.HandleFunc("DELETE /categories/{id}", s.withRequest(s.handleDeleteCategory))

	mux.HandleFunc("POST /ai/categorize", s.withRequest(requireBearer(s.handleCategorize)))

	mux.HandleFunc("GET /dashboard", s.withRequest(s.handleDashboard))
	mux.HandleFunc("GET /charts", s.withRequest(s.handleCharts))

	return s
}

// withRequest attaches a request id, resolves the caller from the bearer
// token and logs the request around the handler.
func (s *Server) withRequest(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), ctxKeyRequestID, requestID)

		userID, ok := s.authenticate(r)
		if !ok {
			slog.WarnContext(ctx, "Unauthorized request",
				"request_id", requestID,
				"method", r.Method,
				"url", r.URL.Path)
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, http.StatusUnauthorized, "missing or invalid bearer token")
			return
		}
		ctx = context.WithValue(ctx, ctxKeyUserID, userID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"user", userID)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds())
	}
}

// authenticate resolves the bearer token to a user id. With no tokens
// configured every request maps to defaultUser.
func (s *Server) authenticate(r *http.Request) (string, bool) {
	if len(s.tokens) == 0 {
		return defaultUser, true
	}

	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", false
	}
	user, ok := s.tokens[strings.TrimSpace(token)]
	return user, ok
}

// requireBearer rejects requests carrying no bearer credential. The model
// route demands one even when no tokens are configured and the other routes
// run open.
func requireBearer(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, http.StatusUnauthorized, "missing or invalid bearer token")
			return
		}
		next(w, r)
	}
}

func userID(r *http.Request) string {
	if v, ok := r.Context().Value(ctxKeyUserID).(string); ok {
		return v
	}
	return defaultUser
}

// invalidateAggregates drops the user's memoized dashboard and chart data
// after any mutation.
func (s *Server) invalidateAggregates(user string) {
	s.dashCache.DeletePrefix(user + ":")
	s.chartCache.DeletePrefix(user + ":")
}

func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		err = s.Server.Shutdown(ctx)
	})
	return err
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
