package app

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/countryexplorer/internal/config"
	"github.com/hitoshi/countryexplorer/internal/metrics"
	"github.com/hitoshi/countryexplorer/internal/model"
	"github.com/hitoshi/countryexplorer/internal/repository"
	"github.com/hitoshi/countryexplorer/internal/worker/cleanup"
)

func testConfig() *config.Config {
	return &config.Config{
		StoreDriver:         config.StoreDriverPostgres,
		GoogleClientID:      "google-id",
		GoogleClientSecret:  "google-secret",
		GoogleRedirectURL:   "http://localhost:5001/api/auth/google/callback",
		SessionSecret:       "wiring-test-secret",
		SessionMaxAge:       3600,
		CountriesAPIURL:     "http://127.0.0.1:0",
		RateLimitGeneral:    120,
		RateLimitListCreate: 20,
		ClientURL:           "http://localhost:3000",
		CORSAllowedOrigin:   "http://localhost:3000",
	}
}

func memoryStores() *stores {
	mem := repository.NewMemoryStore()
	return &stores{users: mem.NewUserRepo(), sessions: mem.NewSessionRepo()}
}

func TestNewOAuthProviders_OnlyConfiguredProviders(t *testing.T) {
	cfg := testConfig()

	providers := newOAuthProviders(cfg)
	if len(providers) != 1 || providers[0].Name() != "google" {
		t.Fatalf("providers = %v, want [google]", providers)
	}

	cfg.GitHubClientID = "gh-id"
	cfg.GitHubClientSecret = "gh-secret"
	cfg.GitHubRedirectURL = "http://localhost:5001/api/auth/github/callback"

	providers = newOAuthProviders(cfg)
	if len(providers) != 2 || providers[1].Name() != "github" {
		t.Fatalf("providers = %v, want [google github]", providers)
	}
}

func TestOpenStores_UnsupportedDriver_ReturnsError(t *testing.T) {
	cfg := testConfig()
	cfg.StoreDriver = "sqlite"

	if _, err := openStores(context.Background(), cfg); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestNewRouter_WiresPublicRoutes(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router, stop := newRouter(testConfig(), memoryStores(), logger, prometheus.NewRegistry())
	defer stop()

	tests := []struct {
		path     string
		wantCode int
	}{
		{"/health", http.StatusOK},
		{"/api/health", http.StatusOK},
		{"/metrics", http.StatusOK},
		{"/api/csrf-token", http.StatusOK},
		{"/api/auth/status", http.StatusOK},
		{"/api/auth/google/login", http.StatusTemporaryRedirect},
		{"/api/auth/github/login", http.StatusNotFound},
		{"/api/countries", http.StatusUnauthorized},
		{"/api/users/profile", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if w.Code != tt.wantCode {
				t.Errorf("GET %s status = %d, want %d", tt.path, w.Code, tt.wantCode)
			}
		})
	}
}

func TestNewRouter_GoogleLoginRedirectsToGoogle(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router, stop := newRouter(testConfig(), memoryStores(), logger, prometheus.NewRegistry())
	defer stop()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/auth/google/login", nil))

	loc := w.Header().Get("Location")
	if !strings.HasPrefix(loc, "https://accounts.google.com/") {
		t.Errorf("Location = %q, want Google authorize URL", loc)
	}
	if !strings.Contains(loc, "client_id=google-id") {
		t.Errorf("Location = %q, want client_id", loc)
	}
}

func TestNewRouter_CSRFTokenSignedWithSessionSecret(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := testConfig()
	router, stop := newRouter(cfg, memoryStores(), logger, prometheus.NewRegistry())
	defer stop()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil))

	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	nonce, sig, ok := strings.Cut(body.Token, ".")
	if !ok {
		t.Fatalf("token = %q, want <nonce>.<signature>", body.Token)
	}
	mac := hmac.New(sha256.New, []byte(cfg.SessionSecret))
	mac.Write([]byte(nonce))
	if want := hex.EncodeToString(mac.Sum(nil)); sig != want {
		t.Errorf("signature = %q, want HMAC of nonce with SESSION_SECRET", sig)
	}
}

func TestWorkerMetricsServer_ExposesSessionsPurged(t *testing.T) {
	ctx := context.Background()
	st := memoryStores()
	for _, id := range []string{"expired-1", "expired-2"} {
		if err := st.sessions.Create(ctx, &model.Session{ID: id, UserID: "u1", ExpiresAt: time.Now().Add(-time.Minute)}); err != nil {
			t.Fatalf("Create session: %v", err)
		}
	}

	reg := prometheus.NewRegistry()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := cleanup.NewCleanupJob(st.sessions, metrics.NewCollector(reg), logger).Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	srv := newWorkerMetricsServer("9091", reg)
	if srv.Addr != ":9091" {
		t.Errorf("Addr = %q, want %q", srv.Addr, ":9091")
	}

	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET /metrics status = %d, want 200", w.Code)
	}
	if body := w.Body.String(); !strings.Contains(body, "countryexplorer_sessions_purged_total 2") {
		t.Errorf("metrics output missing purged count:\n%s", body)
	}

	w = httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("GET /health status = %d, want 200", w.Code)
	}
}
