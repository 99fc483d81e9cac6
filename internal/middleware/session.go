// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/countryexplorer/internal/model"
)

// SessionCookieName はセッションIDを保持するCookieの名前。
const SessionCookieName = "session_id"

type contextKey string

var userIDContextKey = contextKey("user_id")

// errNoUserInContext はセッションミドルウェアを経由していないリクエストで返される。
var errNoUserInContext = errors.New("user ID not found in context")

// SessionFinder はCookieのセッションIDから有効なセッションを引く。
// 期限切れまたは存在しない場合は (nil, nil) を返す。
type SessionFinder interface {
	FindByID(ctx context.Context, id string) (*model.Session, error)
}

// NewSessionMiddleware はsession_id Cookieを検証し、ユーザーIDをコンテキストに載せるミドルウェアを返す。
// 有効なセッションが無ければ401で打ち切る。
func NewSessionMiddleware(sessions SessionFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := resolveSessionUser(r, sessions)
			if !ok {
				WriteUnauthorized(w)
				return
			}

			setLogUserID(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ContextWithUserID(r.Context(), userID)))
		})
	}
}

// resolveSessionUser はリクエストのCookieからセッションを解決し、ユーザーIDを返す。
// ストアのエラーは未認証として扱い、ログにのみ残す。
func resolveSessionUser(r *http.Request, sessions SessionFinder) (string, bool) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}

	session, err := sessions.FindByID(r.Context(), cookie.Value)
	switch {
	case err != nil:
		slog.Error("failed to find session",
			slog.String("error", err.Error()),
		)
		return "", false
	case session == nil, session.UserID == "":
		return "", false
	}
	return session.UserID, true
}

// UserIDFromContext はセッションミドルウェアが注入したユーザーIDを返す。
func UserIDFromContext(ctx context.Context) (string, error) {
	if userID, ok := ctx.Value(userIDContextKey).(string); ok && userID != "" {
		return userID, nil
	}
	return "", errNoUserInContext
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}
