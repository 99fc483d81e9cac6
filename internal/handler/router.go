package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/countryexplorer/internal/metrics"
	"github.com/hitoshi/countryexplorer/internal/middleware"
	"github.com/hitoshi/countryexplorer/internal/model"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig
	Metrics           metrics.MetricsCollector
	MetricsHandler    http.Handler

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// 国情報
	CountryService CountryServiceInterface

	// ユーザー・リスト
	UserService UserServiceInterface
	UserConfig  UserHandlerConfig
}

// healthResponse はヘルスチェックのレスポンス。
type healthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Health はサーバーの稼働状態を返す。
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "OK", Message: "Server is running"})
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Recovery → Logging → SecurityHeaders → CORS → Metrics
//	（保護ルートのみ）→ Session → RateLimit(General) → CSRF
//
// 認証ルート（/api/auth/*）とヘルスチェックはセッション不要。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mc := deps.Metrics
	if mc == nil {
		mc = metrics.NopCollector{}
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewMetricsMiddleware(mc))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewRouteNotFoundError())
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewRouteNotFoundError())
	})

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	countryHandler := NewCountryHandler(deps.CountryService)
	userHandler := NewUserHandler(deps.UserService, deps.UserConfig)
	listHandler := NewListHandler(deps.UserService)

	// --- 認証不要のルート ---

	r.Get("/health", Health)
	r.Get("/api/health", Health)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}
	r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

	// 認証ルート（OAuthフロー）
	r.Route("/api/auth", func(r chi.Router) {
		r.Get("/{provider}/login", authHandler.Login)
		r.Get("/{provider}/callback", authHandler.Callback)
		r.Post("/logout", authHandler.Logout)
		r.Get("/status", authHandler.Status)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General) → CSRF
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		// 国情報
		r.Route("/api/countries", func(r chi.Router) {
			r.Get("/", countryHandler.ListAll)
			r.Get("/region/{region}", countryHandler.ListByRegion)
			r.Get("/search", countryHandler.Search)
			r.Get("/name/{name}", countryHandler.GetByName)
		})

		// ユーザー
		r.Route("/api/users", func(r chi.Router) {
			r.Get("/profile", userHandler.GetProfile)
			r.Delete("/account", userHandler.DeleteAccount)

			r.Post("/favorites", userHandler.AddFavorite)
			r.Delete("/favorites/{countryCode}", userHandler.RemoveFavorite)

			// 国リスト
			r.Route("/lists", func(r chi.Router) {
				r.Get("/", listHandler.ListLists)
				// POST /api/users/lists - リスト作成（作成専用レート制限を追加）
				r.With(deps.RateLimiter.ListCreateMiddleware()).Post("/", listHandler.CreateList)

				r.Route("/{listId}", func(r chi.Router) {
					r.Get("/", listHandler.GetList)
					r.Put("/", listHandler.UpdateList)
					r.Delete("/", listHandler.DeleteList)

					r.Post("/countries", listHandler.AddCountry)
					r.Delete("/countries/{countryCode}", listHandler.RemoveCountry)
				})
			})
		})
	})

	return r
}
