package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/countryexplorer/internal/auth"
	"github.com/hitoshi/countryexplorer/internal/config"
	"github.com/hitoshi/countryexplorer/internal/country"
	"github.com/hitoshi/countryexplorer/internal/database"
	"github.com/hitoshi/countryexplorer/internal/handler"
	"github.com/hitoshi/countryexplorer/internal/metrics"
	"github.com/hitoshi/countryexplorer/internal/middleware"
	"github.com/hitoshi/countryexplorer/internal/repository"
	"github.com/hitoshi/countryexplorer/internal/restcountries"
	"github.com/hitoshi/countryexplorer/internal/security"
	"github.com/hitoshi/countryexplorer/internal/user"
)

// stores はSTORE_DRIVERに応じて選択されたリポジトリと、その後始末を保持する。
type stores struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	close    func()
}

// Close はストア接続を閉じる。
func (s *stores) Close() {
	if s.close != nil {
		s.close()
	}
}

// openStores は設定されたドライバーでストアに接続し、リポジトリを生成する。
func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMongo:
		client, db, err := database.OpenMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		if err := database.EnsureMongoIndexes(ctx, db); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		slog.Info("mongodb connection established", slog.String("database", cfg.MongoDatabase))
		return &stores{
			users:    repository.NewMongoUserRepo(db),
			sessions: repository.NewMongoSessionRepo(db),
			close:    func() { _ = client.Disconnect(context.Background()) },
		}, nil

	case config.StoreDriverPostgres:
		db, err := database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		slog.Info("database connection established")
		return &stores{
			users:    repository.NewPostgresUserRepo(db),
			sessions: repository.NewPostgresSessionRepo(db),
			close:    func() { db.Close() },
		}, nil

	default:
		return nil, fmt.Errorf("unsupported STORE_DRIVER: %q", cfg.StoreDriver)
	}
}

// newOAuthProviders は認証情報が設定されたOAuthプロバイダーのみを生成する。
func newOAuthProviders(cfg *config.Config) []auth.OAuthProvider {
	var providers []auth.OAuthProvider
	if cfg.GoogleEnabled() {
		providers = append(providers, auth.NewGoogleOAuthProvider(auth.GoogleOAuthConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
		}))
	}
	if cfg.GitHubEnabled() {
		providers = append(providers, auth.NewGitHubOAuthProvider(auth.GitHubOAuthConfig{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			RedirectURL:  cfg.GitHubRedirectURL,
		}))
	}
	return providers
}

// newRouter は全依存関係をワイヤリングしてHTTPハンドラーを構築する。
// 戻り値の関数はレートリミッターのクリーンアップgoroutineを停止する。
func newRouter(cfg *config.Config, st *stores, logger *slog.Logger, reg *prometheus.Registry) (http.Handler, func()) {
	mc := metrics.NewCollector(reg)

	// 1. 外部プロバイダー
	countriesClient := restcountries.NewClient(
		&http.Client{Timeout: cfg.CountriesAPITimeout},
		cfg.CountriesAPIURL,
		logger,
		mc,
	)

	// 2. ドメインサービス
	authService := auth.NewService(
		newOAuthProviders(cfg), st.users, st.sessions,
		auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge},
	)
	countryService := country.NewService(countriesClient, logger)
	userService := user.NewService(st.users, security.NewTextSanitizer(), mc, logger)

	// 3. ルーター
	rl := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitListCreate))

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            logger,
		SessionFinder:     st.sessions,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rl,
		CSRFConfig: middleware.CSRFConfig{
			Secret:       []byte(cfg.SessionSecret),
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		Metrics:        mc,
		MetricsHandler: metrics.Handler(reg),

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			ClientURL:     cfg.ClientURL,
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		CountryService: countryService,

		UserService: userService,
		UserConfig: handler.UserHandlerConfig{
			CookieDomain: cfg.CookieDomain,
			CookieSecure: cfg.CookieSecure,
		},
	})

	return router, rl.Stop
}

// newWorkerMetricsServer はワーカーのメトリクスを公開するHTTPサーバーを構築する。
// GET /metrics と GET /health のみを提供する。
func newWorkerMetricsServer(port string, gatherer prometheus.Gatherer) *http.Server {
	r := chi.NewRouter()
	r.Method(http.MethodGet, "/metrics", metrics.Handler(gatherer))
	r.Get("/health", handler.Health)

	return &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
