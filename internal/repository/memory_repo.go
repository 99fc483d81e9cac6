package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hitoshi/countryexplorer/internal/model"
)

// MemoryStore はユーザーとセッションをプロセス内に保持するストア。
// 開発用途とサービス・ハンドラーのシナリオテストで使う。
type MemoryStore struct {
	mu       sync.Mutex
	users    map[string]*model.User
	sessions map[string]*model.Session
}

// NewMemoryStore は空のMemoryStoreを生成する。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]*model.User),
		sessions: make(map[string]*model.Session),
	}
}

// NewUserRepo はこのストアを使うユーザーリポジトリを返す。
func (s *MemoryStore) NewUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{store: s}
}

// NewSessionRepo はこのストアを使うセッションリポジトリを返す。
func (s *MemoryStore) NewSessionRepo() *MemorySessionRepo {
	return &MemorySessionRepo{store: s}
}

// cloneUser はスライスを含めてユーザーを複製する。
// 呼び出し元がSaveせずに書き換えた内容がストアに漏れないようにする。
func cloneUser(u *model.User) *model.User {
	c := *u
	c.FavoriteCountries = append([]model.CountryEntry(nil), u.FavoriteCountries...)
	c.CountryLists = make([]model.CountryList, len(u.CountryLists))
	for i, l := range u.CountryLists {
		l.Countries = append([]model.CountryEntry(nil), l.Countries...)
		c.CountryLists[i] = l
	}
	ensureCollections(&c)
	return &c
}

// --- UserRepository ---

// MemoryUserRepo はMemoryStoreを使うユーザーリポジトリ。
type MemoryUserRepo struct {
	store *MemoryStore
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *MemoryUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if u, ok := r.store.users[id]; ok {
		return cloneUser(u), nil
	}
	return nil, nil
}

// FindByProviderID はOAuthプロバイダーのユーザーIDでユーザーを検索する。
func (r *MemoryUserRepo) FindByProviderID(ctx context.Context, provider, providerUserID string) (*model.User, error) {
	if provider != model.ProviderGoogle && provider != model.ProviderGitHub {
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
	if providerUserID == "" {
		return nil, nil
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, u := range r.store.users {
		if u.ProviderID(provider) == providerUserID {
			return cloneUser(u), nil
		}
	}
	return nil, nil
}

// FindByEmail はメールアドレスでユーザーを検索する。
func (r *MemoryUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, u := range r.store.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, nil
}

// Create はユーザーを作成する。IDまたはメールアドレスが重複する場合はエラーを返す。
func (r *MemoryUserRepo) Create(ctx context.Context, user *model.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.users[user.ID]; ok {
		return fmt.Errorf("failed to insert user: duplicate id %s", user.ID)
	}
	for _, u := range r.store.users {
		if u.Email == user.Email {
			return fmt.Errorf("failed to insert user: duplicate email %s", user.Email)
		}
	}
	r.store.users[user.ID] = cloneUser(user)
	return nil
}

// Save はユーザードキュメント全体を置き換える。
func (r *MemoryUserRepo) Save(ctx context.Context, user *model.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.users[user.ID]; !ok {
		return ErrNotFound
	}
	r.store.users[user.ID] = cloneUser(user)
	return nil
}

// DeleteWithSessions はユーザーとそのセッションを一括で削除する。
func (r *MemoryUserRepo) DeleteWithSessions(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.users[id]; !ok {
		return ErrNotFound
	}
	for sid, s := range r.store.sessions {
		if s.UserID == id {
			delete(r.store.sessions, sid)
		}
	}
	delete(r.store.users, id)
	return nil
}

// --- SessionRepository ---

// MemorySessionRepo はMemoryStoreを使うセッションリポジトリ。
type MemorySessionRepo struct {
	store *MemoryStore
}

// Create はセッションを作成する。
func (r *MemorySessionRepo) Create(ctx context.Context, session *model.Session) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	s := *session
	r.store.sessions[session.ID] = &s
	return nil
}

// FindByID は指定IDのセッションを取得する。
// 期限切れ、または所有ユーザーが存在しない場合はnilを返す。
func (r *MemorySessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	s, ok := r.store.sessions[id]
	if !ok || !time.Now().Before(s.ExpiresAt) {
		return nil, nil
	}
	if _, ok := r.store.users[s.UserID]; !ok {
		return nil, nil
	}
	c := *s
	return &c, nil
}

// DeleteByID は指定IDのセッションを削除する。
func (r *MemorySessionRepo) DeleteByID(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	delete(r.store.sessions, id)
	return nil
}

// DeleteByUserID は指定ユーザーの全セッションを削除する。
func (r *MemorySessionRepo) DeleteByUserID(ctx context.Context, userID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for id, s := range r.store.sessions {
		if s.UserID == userID {
			delete(r.store.sessions, id)
		}
	}
	return nil
}

// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
func (r *MemorySessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	now := time.Now()
	var n int64
	for id, s := range r.store.sessions {
		if !now.Before(s.ExpiresAt) {
			delete(r.store.sessions, id)
			n++
		}
	}
	return n, nil
}

// Ensure interfaces are met.
var _ UserRepository = (*MemoryUserRepo)(nil)
var _ SessionRepository = (*MemorySessionRepo)(nil)
