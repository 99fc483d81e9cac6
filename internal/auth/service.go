// Package auth はOAuth認証フロー、セッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/countryexplorer/internal/model"
	"github.com/hitoshi/countryexplorer/internal/repository"
)

var (
	// ErrUnknownProvider は設定されていないOAuthプロバイダーが指定された場合に返される。
	ErrUnknownProvider = errors.New("unknown oauth provider")
	// ErrEmailRequired はメールアドレスを取得できず新規ユーザーを作成できない場合に返される。
	ErrEmailRequired = errors.New("email address is required to create an account")
	// ErrSessionNotFound はセッションが存在しない、期限切れ、またはユーザーが削除済みの場合に返される。
	ErrSessionNotFound = errors.New("session not found or expired")
)

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	providers   map[string]OAuthProvider
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	config      ServiceConfig
	now         func() time.Time
}

// NewService はServiceを生成する。providersは有効なプロバイダーのみを渡す。
func NewService(
	providers []OAuthProvider,
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	config ServiceConfig,
) *Service {
	m := make(map[string]OAuthProvider, len(providers))
	for _, p := range providers {
		m[p.Name()] = p
	}
	return &Service{
		providers:   m,
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		config:      config,
		now:         time.Now,
	}
}

// HasProvider は指定プロバイダーが有効かを返す。
func (s *Service) HasProvider(provider string) bool {
	_, ok := s.providers[provider]
	return ok
}

// GetLoginURL は指定プロバイダーのOAuth認証URLを生成する。
func (s *Service) GetLoginURL(provider, state, prompt string) (string, error) {
	p, ok := s.providers[provider]
	if !ok {
		return "", ErrUnknownProvider
	}
	return p.GetLoginURL(state, prompt), nil
}

// HandleCallback はOAuthコールバックを処理し、セッションを発行する。
// プロバイダーIDで既存ユーザーを検索し、見つからなければ同じメールアドレスの
// ユーザーにプロバイダーIDを紐付ける。どちらもなければユーザーを新規作成する。
func (s *Service) HandleCallback(ctx context.Context, provider, code string) (*model.User, *model.Session, error) {
	p, ok := s.providers[provider]
	if !ok {
		return nil, nil, ErrUnknownProvider
	}

	// 1. 認可コードをトークンに交換し、ユーザー情報を取得
	info, err := p.ExchangeCode(ctx, code)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	// 2. ユーザーを特定または作成
	user, err := s.resolveUser(ctx, info)
	if err != nil {
		return nil, nil, err
	}

	// 3. セッションを発行
	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	return user, session, nil
}

// resolveUser はOAuthユーザー情報に対応するユーザーを返し、最終ログイン日時を更新する。
func (s *Service) resolveUser(ctx context.Context, info *OAuthUserInfo) (*model.User, error) {
	now := s.now()

	user, err := s.userRepo.FindByProviderID(ctx, info.Provider, info.ProviderUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by provider id: %w", err)
	}

	if user == nil && info.Email != "" {
		user, err = s.userRepo.FindByEmail(ctx, info.Email)
		if err != nil {
			return nil, fmt.Errorf("failed to find user by email: %w", err)
		}
		if user != nil {
			user.LinkProvider(info.Provider, info.ProviderUserID)
			slog.Info("linked provider to existing user",
				slog.String("user_id", user.ID),
				slog.String("provider", info.Provider),
			)
		}
	}

	if user == nil {
		if info.Email == "" {
			return nil, ErrEmailRequired
		}
		user = &model.User{
			ID:                uuid.New().String(),
			Name:              info.Name,
			Email:             info.Email,
			AvatarURL:         info.AvatarURL,
			FavoriteCountries: []model.CountryEntry{},
			CountryLists:      []model.CountryList{},
			CreatedAt:         now,
			LastLogin:         now,
		}
		if user.Name == "" {
			user.Name = info.Email
		}
		user.LinkProvider(info.Provider, info.ProviderUserID)

		if err := s.userRepo.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		slog.Info("new user created",
			slog.String("user_id", user.ID),
			slog.String("provider", info.Provider),
		)
		return user, nil
	}

	user.LastLogin = now
	if user.AvatarURL == "" {
		user.AvatarURL = info.AvatarURL
	}
	if err := s.userRepo.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	slog.Info("existing user logged in",
		slog.String("user_id", user.ID),
		slog.String("provider", info.Provider),
	)
	return user, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out")
	return nil
}

// GetCurrentUser はセッションから現在のユーザーを取得する。
// 有効なセッションがない場合はErrSessionNotFoundを返す。
func (s *Service) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if sessionID == "" {
		return nil, ErrSessionNotFound
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, ErrSessionNotFound
	}

	return user, nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, userID string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := s.now()
	session := &model.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: now.Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
