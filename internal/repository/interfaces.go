// Package repository はデータ永続化のインターフェースと実装を定義する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/countryexplorer/internal/model"
)

// ErrNotFound は更新・削除対象のドキュメントが存在しない場合に返される。
var ErrNotFound = errors.New("document not found")

// UserRepository はユーザードキュメントの永続化インターフェース。
// お気に入りとリストはユーザードキュメントの一部として保存される。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByProviderID はOAuthプロバイダーのユーザーIDでユーザーを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderID(ctx context.Context, provider, providerUserID string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。
	Create(ctx context.Context, user *model.User) error

	// Save はユーザードキュメント全体を上書き保存する。
	// 対象が存在しない場合はErrNotFoundを返す。
	Save(ctx context.Context, user *model.User) error

	// DeleteWithSessions はユーザーとそのユーザーの全セッションを削除する。
	// 対象が存在しない場合はErrNotFoundを返す。
	DeleteWithSessions(ctx context.Context, id string) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。
	// 期限切れ、または所有ユーザーが存在しない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
	// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// ensureCollections はnilのスライスを空スライスに置き換える。
// JSONレスポンスでnullではなく[]を返すために読み込み直後に呼ぶ。
func ensureCollections(u *model.User) {
	if u.FavoriteCountries == nil {
		u.FavoriteCountries = []model.CountryEntry{}
	}
	if u.CountryLists == nil {
		u.CountryLists = []model.CountryList{}
	}
	for i := range u.CountryLists {
		if u.CountryLists[i].Countries == nil {
			u.CountryLists[i].Countries = []model.CountryEntry{}
		}
	}
}
