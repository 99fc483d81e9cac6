// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/countryexplorer/internal/auth"
	"github.com/hitoshi/countryexplorer/internal/middleware"
	"github.com/hitoshi/countryexplorer/internal/model"
)

const (
	oauthStateCookie = "oauth_state"
	oauthStateMaxAge = 600 // 10分
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	HasProvider(provider string) bool
	GetLoginURL(provider, state, prompt string) (string, error)
	HandleCallback(ctx context.Context, provider, code string) (*model.User, *model.Session, error)
	Logout(ctx context.Context, sessionID string) error
	GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	ClientURL     string // ログイン完了後のリダイレクト先（フロントエンド）
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler はOAuth認証関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		config:  config,
	}
}

// sessionUser はリダイレクトURLとステータスAPIで返す最小限のユーザー情報。
type sessionUser struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar,omitempty"`
}

func toSessionUser(u *model.User) sessionUser {
	return sessionUser{ID: u.ID, Name: u.Name, Email: u.Email, Avatar: u.AvatarURL}
}

// authStatusResponse はGET /api/auth/statusのレスポンス。
type authStatusResponse struct {
	Authenticated bool         `json:"authenticated"`
	User          *sessionUser `json:"user,omitempty"`
}

// Login はOAuthフローを開始する。
// GET /api/auth/{provider}/login?prompt=select_account
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	if !h.service.HasProvider(provider) {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewRouteNotFoundError())
		return
	}

	state, err := generateState()
	if err != nil {
		slog.Error("failed to generate oauth state", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	loginURL, err := h.service.GetLoginURL(provider, state, r.URL.Query().Get("prompt"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	// stateをCookieに保存（CSRF対策）
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   oauthStateMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, loginURL, http.StatusTemporaryRedirect)
}

// Callback はOAuthコールバックを処理する。
// 成功時はセッションCookieを設定し、ユーザー情報を付けてフロントエンドにリダイレクトする。
// GET /api/auth/{provider}/callback?code=xxx&state=yyy
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	if !h.service.HasProvider(provider) {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewRouteNotFoundError())
		return
	}

	// 1. stateの検証（CSRF対策）
	state := r.URL.Query().Get("state")
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || state == "" || stateCookie.Value != state {
		slog.Warn("oauth state mismatch", slog.String("provider", provider))
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("Invalid state parameter"))
		return
	}
	h.clearCookie(w, oauthStateCookie, "")

	// 2. 認可コードの取得
	code := r.URL.Query().Get("code")
	if code == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("Missing authorization code"))
		return
	}

	// 3. 認証処理
	user, session, err := h.service.HandleCallback(r.Context(), provider, code)
	if err != nil {
		slog.Error("oauth callback failed",
			slog.String("provider", provider),
			slog.String("error", err.Error()),
		)
		reason := "authentication_failed"
		if errors.Is(err, auth.ErrEmailRequired) {
			reason = "email_required"
		}
		http.Redirect(w, r, h.config.ClientURL+"/login?error="+reason, http.StatusTemporaryRedirect)
		return
	}

	// 4. セッションCookieを設定（HTTP Only）
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    session.ID,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: h.sessionSameSite(),
	})

	// 5. フロントエンドにリダイレクト
	userJSON, err := json.Marshal(toSessionUser(user))
	if err != nil {
		slog.Error("failed to encode user", slog.String("error", err.Error()))
		http.Redirect(w, r, h.config.ClientURL+"/auth/success", http.StatusTemporaryRedirect)
		return
	}
	redirect := h.config.ClientURL + "/auth/success?user=" + url.QueryEscape(string(userJSON))
	http.Redirect(w, r, redirect, http.StatusTemporaryRedirect)
}

// Logout はセッションを破棄する。
// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err == nil && cookie.Value != "" {
		if logoutErr := h.service.Logout(r.Context(), cookie.Value); logoutErr != nil {
			slog.Error("failed to logout", slog.String("error", logoutErr.Error()))
			// ログアウト失敗してもCookieはクリアする
		}
	}

	h.clearCookie(w, middleware.SessionCookieName, h.config.CookieDomain)
	writeJSON(w, http.StatusOK, messageResponse{Message: "Logged out successfully"})
}

// Status は現在のログイン状態を返す。未ログインでも200で応答する。
// GET /api/auth/status
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err != nil || cookie.Value == "" {
		writeJSON(w, http.StatusOK, authStatusResponse{Authenticated: false})
		return
	}

	user, err := h.service.GetCurrentUser(r.Context(), cookie.Value)
	if errors.Is(err, auth.ErrSessionNotFound) {
		writeJSON(w, http.StatusOK, authStatusResponse{Authenticated: false})
		return
	}
	if err != nil {
		handleServiceError(w, err)
		return
	}

	su := toSessionUser(user)
	writeJSON(w, http.StatusOK, authStatusResponse{Authenticated: true, User: &su})
}

// sessionSameSite はセッションCookieのSameSite属性を返す。
// HTTPS運用ではフロントエンドが別サイトでもCookieを送れるようNoneにする。
func (h *AuthHandler) sessionSameSite() http.SameSite {
	if h.config.CookieSecure {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

// clearCookie は指定Cookieを削除する。
func (h *AuthHandler) clearCookie(w http.ResponseWriter, name, domain string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// generateState はCSRF対策用のランダムなstate値を生成する。
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
