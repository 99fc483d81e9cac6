// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// クライアントに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, collection, upstream, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeInvalidRequest    = "INVALID_REQUEST"
	ErrCodeUserNotFound      = "USER_NOT_FOUND"
	ErrCodeListNotFound      = "LIST_NOT_FOUND"
	ErrCodeCountryNotFound   = "COUNTRY_NOT_FOUND"
	ErrCodeFavoriteExists    = "FAVORITE_EXISTS"
	ErrCodeListNameExists    = "LIST_NAME_EXISTS"
	ErrCodeListCountryExists = "LIST_COUNTRY_EXISTS"
	ErrCodeUpstreamFailed    = "UPSTREAM_FAILED"
	ErrCodeInternal          = "INTERNAL_ERROR"
	ErrCodeRouteNotFound     = "ROUTE_NOT_FOUND"
	ErrCodeCSRFInvalid       = "CSRF_INVALID"
	ErrCodeRateLimited       = "rate_limit_exceeded"
)

// NewUnauthorizedError は認証が必要な場合のエラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "Authentication required",
		Category: "auth",
		Action:   "Sign in and try again.",
	}
}

// NewValidationError は必須項目の欠落などリクエスト不正のエラーを生成する。
func NewValidationError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  message,
		Category: "validation",
		Action:   "Check the request parameters and try again.",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "User not found",
		Category: "auth",
		Action:   "Sign in again.",
	}
}

// NewListNotFoundError はリストが見つからない場合のエラーを生成する。
func NewListNotFoundError(listID string) *APIError {
	return &APIError{
		Code:     ErrCodeListNotFound,
		Message:  fmt.Sprintf("List not found: %s", listID),
		Category: "collection",
		Action:   "Reload your lists and try again.",
	}
}

// NewCountryNotFoundError は国が見つからない場合のエラーを生成する。
func NewCountryNotFoundError(name string) *APIError {
	return &APIError{
		Code:     ErrCodeCountryNotFound,
		Message:  fmt.Sprintf("Country not found: %s", name),
		Category: "upstream",
		Action:   "Check the country name.",
	}
}

// NewFavoriteExistsError は既にお気に入り登録済みの国を追加しようとした場合のエラーを生成する。
func NewFavoriteExistsError(countryCode string) *APIError {
	return &APIError{
		Code:     ErrCodeFavoriteExists,
		Message:  fmt.Sprintf("Country already in favorites: %s", countryCode),
		Category: "collection",
		Action:   "The country is already in your favorites.",
	}
}

// NewListNameExistsError は同名（大文字小文字無視）のリストが既に存在する場合のエラーを生成する。
func NewListNameExistsError(name string) *APIError {
	return &APIError{
		Code:     ErrCodeListNameExists,
		Message:  fmt.Sprintf("List with this name already exists: %s", name),
		Category: "collection",
		Action:   "Choose a different list name.",
	}
}

// NewListCountryExistsError はリストに既に含まれる国を追加しようとした場合のエラーを生成する。
func NewListCountryExistsError(countryCode string) *APIError {
	return &APIError{
		Code:     ErrCodeListCountryExists,
		Message:  fmt.Sprintf("Country already in list: %s", countryCode),
		Category: "collection",
		Action:   "The country is already in this list.",
	}
}

// NewUpstreamFailedError は外部の国情報プロバイダーの呼び出しに失敗した場合のエラーを生成する。
func NewUpstreamFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeUpstreamFailed,
		Message:  "Failed to fetch country data",
		Category: "upstream",
		Action:   "Please try again later.",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログにのみ記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "Something went wrong",
		Category: "system",
		Action:   "Please try again later.",
	}
}

// NewRouteNotFoundError は未定義のルートへのリクエストに対するエラーを生成する。
func NewRouteNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeRouteNotFound,
		Message:  "Route not found",
		Category: "system",
		Action:   "Check the request URL.",
	}
}

// NewCSRFInvalidError はCSRFトークンの検証に失敗した場合のエラーを生成する。
func NewCSRFInvalidError() *APIError {
	return &APIError{
		Code:     ErrCodeCSRFInvalid,
		Message:  "CSRF token validation failed",
		Category: "auth",
		Action:   "Reload the page and try again.",
	}
}

// NewRateLimitError はレート制限を超過した場合のエラーを生成する。
func NewRateLimitError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "Too many requests. Please try again later.",
		Category: "system",
		Action:   "Please wait and retry after the specified time.",
	}
}
