package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/countryexplorer/internal/model"
)

// CountryServiceInterface は国情報ハンドラーが必要とするサービスインターフェース。
type CountryServiceInterface interface {
	ListAll(ctx context.Context) ([]model.Country, error)
	ListByRegion(ctx context.Context, region string) ([]model.Country, error)
	Search(ctx context.Context, query string) ([]model.Country, error)
	GetByName(ctx context.Context, name string) (*model.Country, error)
}

// CountryHandler は国情報参照のHTTPハンドラー。
type CountryHandler struct {
	service CountryServiceInterface
}

// NewCountryHandler はCountryHandlerを生成する。
func NewCountryHandler(service CountryServiceInterface) *CountryHandler {
	return &CountryHandler{service: service}
}

// ListAll は全ての国を返す。
// GET /api/countries
func (h *CountryHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	countries, err := h.service.ListAll(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, countries)
}

// ListByRegion は指定地域の国を返す。
// GET /api/countries/region/{region}
func (h *CountryHandler) ListByRegion(w http.ResponseWriter, r *http.Request) {
	countries, err := h.service.ListByRegion(r.Context(), chi.URLParam(r, "region"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, countries)
}

// Search は名前で国を検索する。
// GET /api/countries/search?q=xxx
func (h *CountryHandler) Search(w http.ResponseWriter, r *http.Request) {
	countries, err := h.service.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, countries)
}

// GetByName は名前に一致する国の詳細を返す。
// GET /api/countries/name/{name}
func (h *CountryHandler) GetByName(w http.ResponseWriter, r *http.Request) {
	country, err := h.service.GetByName(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, country)
}
