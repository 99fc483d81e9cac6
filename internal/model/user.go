// Package model はドメインモデルを定義する。
package model

import (
	"strings"
	"time"
)

// User はサービス利用ユーザーを表す。
// お気に入りと国リストを所有する集約ルートであり、1ドキュメントとして永続化する。
type User struct {
	ID                string         `json:"id" bson:"_id"`
	GoogleID          string         `json:"-" bson:"google_id,omitempty"`
	GitHubID          string         `json:"-" bson:"github_id,omitempty"`
	Name              string         `json:"name" bson:"name"`
	Email             string         `json:"email" bson:"email"`
	AvatarURL         string         `json:"avatar,omitempty" bson:"avatar,omitempty"`
	FavoriteCountries []CountryEntry `json:"favoriteCountries" bson:"favorite_countries"`
	CountryLists      []CountryList  `json:"countryLists" bson:"country_lists"`
	CreatedAt         time.Time      `json:"createdAt" bson:"created_at"`
	LastLogin         time.Time      `json:"lastLogin" bson:"last_login"`
}

// CountryEntry はお気に入りまたはリストに登録された国を表す。
type CountryEntry struct {
	CountryCode string    `json:"countryCode" bson:"country_code"`
	CountryName string    `json:"countryName" bson:"country_name"`
	AddedAt     time.Time `json:"addedAt" bson:"added_at"`
}

// CountryList はユーザーが名前を付けて管理する国のリスト。
type CountryList struct {
	ID          string         `json:"id" bson:"id"`
	Name        string         `json:"name" bson:"name"`
	Description string         `json:"description" bson:"description"`
	Countries   []CountryEntry `json:"countries" bson:"countries"`
	CreatedAt   time.Time      `json:"createdAt" bson:"created_at"`
	UpdatedAt   time.Time      `json:"updatedAt" bson:"updated_at"`
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string    `db:"id" bson:"_id"`
	UserID    string    `db:"user_id" bson:"user_id"`
	ExpiresAt time.Time `db:"expires_at" bson:"expires_at"`
	CreatedAt time.Time `db:"created_at" bson:"created_at"`
}

// OAuthプロバイダー名
const (
	ProviderGoogle = "google"
	ProviderGitHub = "github"
)

// ProviderID は指定プロバイダーのユーザーIDを返す。未知のプロバイダーは空文字を返す。
func (u *User) ProviderID(provider string) string {
	switch provider {
	case ProviderGoogle:
		return u.GoogleID
	case ProviderGitHub:
		return u.GitHubID
	}
	return ""
}

// LinkProvider は指定プロバイダーのユーザーIDを紐付ける。
func (u *User) LinkProvider(provider, providerUserID string) {
	switch provider {
	case ProviderGoogle:
		u.GoogleID = providerUserID
	case ProviderGitHub:
		u.GitHubID = providerUserID
	}
}

// HasFavorite は指定国コードがお気に入りに含まれるかを返す。
func (u *User) HasFavorite(countryCode string) bool {
	for _, f := range u.FavoriteCountries {
		if f.CountryCode == countryCode {
			return true
		}
	}
	return false
}

// FindList は指定IDのリストへのポインタを返す。見つからない場合はnilを返す。
// 返り値を書き換えるとUserのリストが直接変更される。
func (u *User) FindList(listID string) *CountryList {
	for i := range u.CountryLists {
		if u.CountryLists[i].ID == listID {
			return &u.CountryLists[i]
		}
	}
	return nil
}

// HasListNamed は大文字小文字を区別せずに同名のリストが存在するかを返す。
// exceptIDに一致するリストは比較対象から除外する（リネーム時の自己衝突回避）。
func (u *User) HasListNamed(name, exceptID string) bool {
	for _, l := range u.CountryLists {
		if l.ID == exceptID {
			continue
		}
		if strings.EqualFold(l.Name, name) {
			return true
		}
	}
	return false
}

// HasCountry はリストに指定国コードが含まれるかを返す。
func (l *CountryList) HasCountry(countryCode string) bool {
	for _, c := range l.Countries {
		if c.CountryCode == countryCode {
			return true
		}
	}
	return false
}
