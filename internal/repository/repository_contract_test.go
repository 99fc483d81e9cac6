package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/countryexplorer/internal/model"
)

// --- 共通テスト ---
// 各実装（memory / postgres / mongo）に対して同じ振る舞いを検証する。

func newTestUser(email string) *model.User {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &model.User{
		ID:        uuid.New().String(),
		GoogleID:  "google-" + email,
		Name:      "Test User",
		Email:     email,
		AvatarURL: "https://example.com/avatar.png",
		CreatedAt: now,
		LastLogin: now,
	}
}

func runUserRepositoryContract(t *testing.T, users UserRepository, sessions SessionRepository) {
	ctx := context.Background()

	t.Run("Create_FindByID_空コレクション", func(t *testing.T) {
		u := newTestUser("create-" + uuid.NewString() + "@example.com")
		if err := users.Create(ctx, u); err != nil {
			t.Fatalf("Create: %v", err)
		}

		got, err := users.FindByID(ctx, u.ID)
		if err != nil {
			t.Fatalf("FindByID: %v", err)
		}
		if got == nil {
			t.Fatal("expected user, got nil")
		}
		if got.Email != u.Email || got.Name != u.Name || got.AvatarURL != u.AvatarURL {
			t.Errorf("got %+v, want %+v", got, u)
		}
		if got.FavoriteCountries == nil || len(got.FavoriteCountries) != 0 {
			t.Errorf("FavoriteCountries = %v, want empty slice", got.FavoriteCountries)
		}
		if got.CountryLists == nil || len(got.CountryLists) != 0 {
			t.Errorf("CountryLists = %v, want empty slice", got.CountryLists)
		}
	})

	t.Run("FindByID_存在しない場合はnil", func(t *testing.T) {
		got, err := users.FindByID(ctx, uuid.NewString())
		if err != nil {
			t.Fatalf("FindByID: %v", err)
		}
		if got != nil {
			t.Errorf("expected nil, got %+v", got)
		}
	})

	t.Run("FindByProviderID_FindByEmail", func(t *testing.T) {
		u := newTestUser("lookup-" + uuid.NewString() + "@example.com")
		if err := users.Create(ctx, u); err != nil {
			t.Fatalf("Create: %v", err)
		}

		got, err := users.FindByProviderID(ctx, model.ProviderGoogle, u.GoogleID)
		if err != nil {
			t.Fatalf("FindByProviderID: %v", err)
		}
		if got == nil || got.ID != u.ID {
			t.Errorf("FindByProviderID = %+v, want id %s", got, u.ID)
		}

		got, err = users.FindByProviderID(ctx, model.ProviderGitHub, "unknown-"+uuid.NewString())
		if err != nil {
			t.Fatalf("FindByProviderID: %v", err)
		}
		if got != nil {
			t.Errorf("expected nil for unknown github id, got %+v", got)
		}

		got, err = users.FindByEmail(ctx, u.Email)
		if err != nil {
			t.Fatalf("FindByEmail: %v", err)
		}
		if got == nil || got.ID != u.ID {
			t.Errorf("FindByEmail = %+v, want id %s", got, u.ID)
		}
	})

	t.Run("FindByProviderID_未知のプロバイダーはエラー", func(t *testing.T) {
		if _, err := users.FindByProviderID(ctx, "twitter", "x"); err == nil {
			t.Error("expected error for unsupported provider, got nil")
		}
	})

	t.Run("Save_お気に入りとリストを保存", func(t *testing.T) {
		u := newTestUser("save-" + uuid.NewString() + "@example.com")
		if err := users.Create(ctx, u); err != nil {
			t.Fatalf("Create: %v", err)
		}

		now := time.Now().UTC().Truncate(time.Millisecond)
		u.FavoriteCountries = []model.CountryEntry{
			{CountryCode: "FR", CountryName: "France", AddedAt: now},
		}
		u.CountryLists = []model.CountryList{
			{
				ID:          uuid.NewString(),
				Name:        "Europe Trip",
				Description: "summer",
				Countries:   []model.CountryEntry{{CountryCode: "DE", CountryName: "Germany", AddedAt: now}},
				CreatedAt:   now,
				UpdatedAt:   now,
			},
		}
		u.GitHubID = "gh-" + uuid.NewString()
		if err := users.Save(ctx, u); err != nil {
			t.Fatalf("Save: %v", err)
		}

		got, err := users.FindByID(ctx, u.ID)
		if err != nil {
			t.Fatalf("FindByID: %v", err)
		}
		if len(got.FavoriteCountries) != 1 || got.FavoriteCountries[0].CountryCode != "FR" {
			t.Errorf("FavoriteCountries = %+v", got.FavoriteCountries)
		}
		if len(got.CountryLists) != 1 {
			t.Fatalf("CountryLists = %+v", got.CountryLists)
		}
		l := got.CountryLists[0]
		if l.Name != "Europe Trip" || l.Description != "summer" {
			t.Errorf("list = %+v", l)
		}
		if len(l.Countries) != 1 || l.Countries[0].CountryCode != "DE" {
			t.Errorf("list countries = %+v", l.Countries)
		}
		if got.GitHubID != u.GitHubID {
			t.Errorf("GitHubID = %q, want %q", got.GitHubID, u.GitHubID)
		}
	})

	t.Run("Save_存在しない場合はErrNotFound", func(t *testing.T) {
		u := newTestUser("ghost-" + uuid.NewString() + "@example.com")
		if err := users.Save(ctx, u); !errors.Is(err, ErrNotFound) {
			t.Errorf("Save = %v, want ErrNotFound", err)
		}
	})

	t.Run("Session_作成と検索", func(t *testing.T) {
		u := newTestUser("session-" + uuid.NewString() + "@example.com")
		if err := users.Create(ctx, u); err != nil {
			t.Fatalf("Create: %v", err)
		}

		s := &model.Session{
			ID:        "s-" + uuid.NewString(),
			UserID:    u.ID,
			ExpiresAt: time.Now().Add(time.Hour),
			CreatedAt: time.Now(),
		}
		if err := sessions.Create(ctx, s); err != nil {
			t.Fatalf("Create session: %v", err)
		}

		got, err := sessions.FindByID(ctx, s.ID)
		if err != nil {
			t.Fatalf("FindByID: %v", err)
		}
		if got == nil || got.UserID != u.ID {
			t.Fatalf("FindByID = %+v, want user %s", got, u.ID)
		}

		if err := sessions.DeleteByID(ctx, s.ID); err != nil {
			t.Fatalf("DeleteByID: %v", err)
		}
		got, err = sessions.FindByID(ctx, s.ID)
		if err != nil {
			t.Fatalf("FindByID: %v", err)
		}
		if got != nil {
			t.Errorf("expected nil after delete, got %+v", got)
		}
	})

	t.Run("Session_期限切れは返さず削除される", func(t *testing.T) {
		u := newTestUser("expired-" + uuid.NewString() + "@example.com")
		if err := users.Create(ctx, u); err != nil {
			t.Fatalf("Create: %v", err)
		}

		s := &model.Session{
			ID:        "s-" + uuid.NewString(),
			UserID:    u.ID,
			ExpiresAt: time.Now().Add(-time.Minute),
			CreatedAt: time.Now().Add(-time.Hour),
		}
		if err := sessions.Create(ctx, s); err != nil {
			t.Fatalf("Create session: %v", err)
		}

		got, err := sessions.FindByID(ctx, s.ID)
		if err != nil {
			t.Fatalf("FindByID: %v", err)
		}
		if got != nil {
			t.Errorf("expected nil for expired session, got %+v", got)
		}

		n, err := sessions.DeleteExpired(ctx)
		if err != nil {
			t.Fatalf("DeleteExpired: %v", err)
		}
		if n < 1 {
			t.Errorf("DeleteExpired = %d, want >= 1", n)
		}
	})

	t.Run("DeleteWithSessions_セッションも無効になる", func(t *testing.T) {
		u := newTestUser("delete-" + uuid.NewString() + "@example.com")
		if err := users.Create(ctx, u); err != nil {
			t.Fatalf("Create: %v", err)
		}

		s := &model.Session{
			ID:        "s-" + uuid.NewString(),
			UserID:    u.ID,
			ExpiresAt: time.Now().Add(time.Hour),
			CreatedAt: time.Now(),
		}
		if err := sessions.Create(ctx, s); err != nil {
			t.Fatalf("Create session: %v", err)
		}

		if err := users.DeleteWithSessions(ctx, u.ID); err != nil {
			t.Fatalf("DeleteWithSessions: %v", err)
		}

		if got, _ := users.FindByID(ctx, u.ID); got != nil {
			t.Errorf("expected user to be deleted, got %+v", got)
		}
		got, err := sessions.FindByID(ctx, s.ID)
		if err != nil {
			t.Fatalf("FindByID: %v", err)
		}
		if got != nil {
			t.Errorf("expected session to be gone, got %+v", got)
		}

		if err := users.DeleteWithSessions(ctx, u.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("second DeleteWithSessions = %v, want ErrNotFound", err)
		}
	})

	t.Run("DeleteByUserID", func(t *testing.T) {
		u := newTestUser("logout-all-" + uuid.NewString() + "@example.com")
		if err := users.Create(ctx, u); err != nil {
			t.Fatalf("Create: %v", err)
		}
		ids := []string{"s-" + uuid.NewString(), "s-" + uuid.NewString()}
		for _, id := range ids {
			err := sessions.Create(ctx, &model.Session{ID: id, UserID: u.ID, ExpiresAt: time.Now().Add(time.Hour), CreatedAt: time.Now()})
			if err != nil {
				t.Fatalf("Create session: %v", err)
			}
		}

		if err := sessions.DeleteByUserID(ctx, u.ID); err != nil {
			t.Fatalf("DeleteByUserID: %v", err)
		}
		for _, id := range ids {
			if got, _ := sessions.FindByID(ctx, id); got != nil {
				t.Errorf("session %s still exists", id)
			}
		}
	})
}
