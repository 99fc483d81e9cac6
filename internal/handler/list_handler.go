package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ListHandler は国リストのHTTPハンドラー。
type ListHandler struct {
	service UserServiceInterface
}

// NewListHandler はListHandlerを生成する。
func NewListHandler(service UserServiceInterface) *ListHandler {
	return &ListHandler{service: service}
}

// createListRequest はリスト作成リクエストのボディ。
type createListRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// updateListRequest はリスト更新リクエストのボディ。
// 省略されたフィールドは変更しない。
type updateListRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// listResponse はリスト変更のレスポンス。
type listResponse struct {
	Message string `json:"message"`
	List    any    `json:"list"`
}

// ListLists はユーザーの国リスト一覧を返す。
// GET /api/users/lists
func (h *ListHandler) ListLists(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	lists, err := h.service.ListLists(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lists)
}

// GetList は指定リストを返す。
// GET /api/users/lists/{listId}
func (h *ListHandler) GetList(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	list, err := h.service.GetList(r.Context(), userID, chi.URLParam(r, "listId"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// CreateList は国リストを作成する。
// POST /api/users/lists
func (h *ListHandler) CreateList(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req createListRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w)
		return
	}

	list, err := h.service.CreateList(r.Context(), userID, req.Name, req.Description)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, listResponse{Message: "List created successfully", List: list})
}

// UpdateList はリストの名前・説明を更新する。
// PUT /api/users/lists/{listId}
func (h *ListHandler) UpdateList(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req updateListRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w)
		return
	}

	list, err := h.service.UpdateList(r.Context(), userID, chi.URLParam(r, "listId"), req.Name, req.Description)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Message: "List updated successfully", List: list})
}

// DeleteList はリストを削除する。
// DELETE /api/users/lists/{listId}
func (h *ListHandler) DeleteList(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteList(r.Context(), userID, chi.URLParam(r, "listId")); err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "List deleted successfully"})
}

// AddCountry はリストに国を追加する。
// POST /api/users/lists/{listId}/countries
func (h *ListHandler) AddCountry(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req countryEntryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w)
		return
	}

	list, err := h.service.AddCountryToList(r.Context(), userID, chi.URLParam(r, "listId"), req.CountryCode, req.CountryName)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, listResponse{Message: "Country added to list", List: list})
}

// RemoveCountry はリストから国を削除する。
// DELETE /api/users/lists/{listId}/countries/{countryCode}
func (h *ListHandler) RemoveCountry(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	list, err := h.service.RemoveCountryFromList(r.Context(), userID, chi.URLParam(r, "listId"), chi.URLParam(r, "countryCode"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Message: "Country removed from list", List: list})
}
