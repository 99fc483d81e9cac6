package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/countryexplorer/internal/middleware"
	"github.com/hitoshi/countryexplorer/internal/model"
)

// UserServiceInterface はユーザー・リストハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	GetProfile(ctx context.Context, userID string) (*model.User, error)
	AddFavorite(ctx context.Context, userID, countryCode, countryName string) ([]model.CountryEntry, error)
	RemoveFavorite(ctx context.Context, userID, countryCode string) ([]model.CountryEntry, error)
	ListLists(ctx context.Context, userID string) ([]model.CountryList, error)
	GetList(ctx context.Context, userID, listID string) (*model.CountryList, error)
	CreateList(ctx context.Context, userID, name, description string) (*model.CountryList, error)
	UpdateList(ctx context.Context, userID, listID string, name, description *string) (*model.CountryList, error)
	DeleteList(ctx context.Context, userID, listID string) error
	AddCountryToList(ctx context.Context, userID, listID, countryCode, countryName string) (*model.CountryList, error)
	RemoveCountryFromList(ctx context.Context, userID, listID, countryCode string) (*model.CountryList, error)
	// DeleteAccount はユーザーとその全セッションを削除する。
	DeleteAccount(ctx context.Context, userID string) error
}

// UserHandlerConfig はユーザーハンドラーの設定。
type UserHandlerConfig struct {
	CookieDomain string
	CookieSecure bool
}

// UserHandler はプロフィール、お気に入り、アカウントのHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
	config  UserHandlerConfig
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface, config UserHandlerConfig) *UserHandler {
	return &UserHandler{
		service: service,
		config:  config,
	}
}

// countryEntryRequest はお気に入り・リストへの国追加リクエストのボディ。
type countryEntryRequest struct {
	CountryCode string `json:"countryCode"`
	CountryName string `json:"countryName"`
}

// favoritesResponse はお気に入り変更のレスポンス。
type favoritesResponse struct {
	Message   string               `json:"message"`
	Favorites []model.CountryEntry `json:"favorites"`
}

// GetProfile はログインユーザーのプロフィールを返す。
// GET /api/users/profile
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	user, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// AddFavorite は国をお気に入りに追加する。
// POST /api/users/favorites
func (h *UserHandler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req countryEntryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w)
		return
	}

	favorites, err := h.service.AddFavorite(r.Context(), userID, req.CountryCode, req.CountryName)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, favoritesResponse{
		Message:   "Country added to favorites",
		Favorites: favorites,
	})
}

// RemoveFavorite は国をお気に入りから削除する。
// DELETE /api/users/favorites/{countryCode}
func (h *UserHandler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	favorites, err := h.service.RemoveFavorite(r.Context(), userID, chi.URLParam(r, "countryCode"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, favoritesResponse{
		Message:   "Country removed from favorites",
		Favorites: favorites,
	})
}

// DeleteAccount はアカウントを削除し、セッションCookieをクリアする。
// DELETE /api/users/account
func (h *UserHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteAccount(r.Context(), userID); err != nil {
		handleServiceError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, messageResponse{Message: "Account deleted successfully"})
}
