// Package user はユーザーのプロフィール、お気に入り、国リストのドメインロジックを提供する。
//
// お気に入りとリストはユーザードキュメントに埋め込まれており、
// 全ての変更操作は「読み込み→検証→変更→ドキュメント全体の保存」で行う。
// 同時更新は後勝ちとなる。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/countryexplorer/internal/metrics"
	"github.com/hitoshi/countryexplorer/internal/model"
	"github.com/hitoshi/countryexplorer/internal/repository"
	"github.com/hitoshi/countryexplorer/internal/security"
)

// メトリクスに記録する変更操作名
const (
	OpAddFavorite       = "add_favorite"
	OpRemoveFavorite    = "remove_favorite"
	OpCreateList        = "create_list"
	OpUpdateList        = "update_list"
	OpDeleteList        = "delete_list"
	OpAddListCountry    = "add_list_country"
	OpRemoveListCountry = "remove_list_country"
	OpDeleteAccount     = "delete_account"
)

// Service はユーザーのコレクション管理のサービス層。
type Service struct {
	userRepo  repository.UserRepository
	sanitizer security.TextSanitizer
	metrics   metrics.MetricsCollector
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	userRepo repository.UserRepository,
	sanitizer security.TextSanitizer,
	mc metrics.MetricsCollector,
	logger *slog.Logger,
) *Service {
	if mc == nil {
		mc = metrics.NopCollector{}
	}
	return &Service{
		userRepo:  userRepo,
		sanitizer: sanitizer,
		metrics:   mc,
		logger:    logger,
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
	}
}

// GetProfile はユーザードキュメントを返す。
func (s *Service) GetProfile(ctx context.Context, userID string) (*model.User, error) {
	return s.load(ctx, userID)
}

// AddFavorite は国をお気に入りに追加し、更新後のお気に入り一覧を返す。
// 国コードと国名は必須。既に登録済みの国コードはFAVORITE_EXISTSとなる。
func (s *Service) AddFavorite(ctx context.Context, userID, countryCode, countryName string) ([]model.CountryEntry, error) {
	code := normalizeCode(countryCode)
	name := s.sanitizer.Clean(countryName)
	if code == "" || name == "" {
		return nil, model.NewValidationError("Country code and name are required")
	}

	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.HasFavorite(code) {
		return nil, model.NewFavoriteExistsError(code)
	}

	user.FavoriteCountries = append(user.FavoriteCountries, model.CountryEntry{
		CountryCode: code,
		CountryName: name,
		AddedAt:     s.now(),
	})

	if err := s.save(ctx, user, OpAddFavorite); err != nil {
		return nil, err
	}
	return user.FavoriteCountries, nil
}

// RemoveFavorite は国をお気に入りから削除し、更新後のお気に入り一覧を返す。
// 登録されていない国コードの場合も成功として扱う。
func (s *Service) RemoveFavorite(ctx context.Context, userID, countryCode string) ([]model.CountryEntry, error) {
	code := normalizeCode(countryCode)

	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.FavoriteCountries = removeEntry(user.FavoriteCountries, code)

	if err := s.save(ctx, user, OpRemoveFavorite); err != nil {
		return nil, err
	}
	return user.FavoriteCountries, nil
}

// ListLists はユーザーの国リスト一覧を返す。
func (s *Service) ListLists(ctx context.Context, userID string) ([]model.CountryList, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.CountryLists, nil
}

// GetList は指定IDの国リストを返す。
func (s *Service) GetList(ctx context.Context, userID, listID string) (*model.CountryList, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	list := user.FindList(listID)
	if list == nil {
		return nil, model.NewListNotFoundError(listID)
	}
	return list, nil
}

// CreateList は空の国リストを作成する。
// 名前は必須で、既存リストと大文字小文字を無視して重複する場合はLIST_NAME_EXISTSとなる。
func (s *Service) CreateList(ctx context.Context, userID, name, description string) (*model.CountryList, error) {
	name = s.sanitizer.Clean(name)
	if name == "" {
		return nil, model.NewValidationError("List name is required")
	}
	description = s.sanitizer.Clean(description)

	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.HasListNamed(name, "") {
		return nil, model.NewListNameExistsError(name)
	}

	now := s.now()
	user.CountryLists = append(user.CountryLists, model.CountryList{
		ID:          s.newID(),
		Name:        name,
		Description: description,
		Countries:   []model.CountryEntry{},
		CreatedAt:   now,
		UpdatedAt:   now,
	})

	if err := s.save(ctx, user, OpCreateList); err != nil {
		return nil, err
	}
	return &user.CountryLists[len(user.CountryLists)-1], nil
}

// UpdateList はリストの名前と説明を更新する。nilのフィールドは変更しない。
// 空の名前は無視し、他のリストと重複する名前への変更はLIST_NAME_EXISTSとなる。
func (s *Service) UpdateList(ctx context.Context, userID, listID string, name, description *string) (*model.CountryList, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	list := user.FindList(listID)
	if list == nil {
		return nil, model.NewListNotFoundError(listID)
	}

	if name != nil {
		if cleaned := s.sanitizer.Clean(*name); cleaned != "" {
			if user.HasListNamed(cleaned, listID) {
				return nil, model.NewListNameExistsError(cleaned)
			}
			list.Name = cleaned
		}
	}
	if description != nil {
		list.Description = s.sanitizer.Clean(*description)
	}
	list.UpdatedAt = s.now()

	if err := s.save(ctx, user, OpUpdateList); err != nil {
		return nil, err
	}
	return list, nil
}

// DeleteList はリストとその中の国を削除する。
func (s *Service) DeleteList(ctx context.Context, userID, listID string) error {
	user, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	if user.FindList(listID) == nil {
		return model.NewListNotFoundError(listID)
	}

	lists := make([]model.CountryList, 0, len(user.CountryLists))
	for _, l := range user.CountryLists {
		if l.ID != listID {
			lists = append(lists, l)
		}
	}
	user.CountryLists = lists

	return s.save(ctx, user, OpDeleteList)
}

// AddCountryToList はリストに国を追加する。
// リスト内に同じ国コードがある場合はLIST_COUNTRY_EXISTSとなる。
func (s *Service) AddCountryToList(ctx context.Context, userID, listID, countryCode, countryName string) (*model.CountryList, error) {
	code := normalizeCode(countryCode)
	name := s.sanitizer.Clean(countryName)
	if code == "" || name == "" {
		return nil, model.NewValidationError("Country code and name are required")
	}

	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	list := user.FindList(listID)
	if list == nil {
		return nil, model.NewListNotFoundError(listID)
	}
	if list.HasCountry(code) {
		return nil, model.NewListCountryExistsError(code)
	}

	now := s.now()
	list.Countries = append(list.Countries, model.CountryEntry{
		CountryCode: code,
		CountryName: name,
		AddedAt:     now,
	})
	list.UpdatedAt = now

	if err := s.save(ctx, user, OpAddListCountry); err != nil {
		return nil, err
	}
	return list, nil
}

// RemoveCountryFromList はリストから国を削除する。
// リストに含まれない国コードの場合も成功として扱う。
func (s *Service) RemoveCountryFromList(ctx context.Context, userID, listID, countryCode string) (*model.CountryList, error) {
	code := normalizeCode(countryCode)

	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	list := user.FindList(listID)
	if list == nil {
		return nil, model.NewListNotFoundError(listID)
	}

	list.Countries = removeEntry(list.Countries, code)
	list.UpdatedAt = s.now()

	if err := s.save(ctx, user, OpRemoveListCountry); err != nil {
		return nil, err
	}
	return list, nil
}

// DeleteAccount はユーザーとその全セッションを削除する。
// 削除後は旧セッションでのリクエストは認証エラーとなる。
func (s *Service) DeleteAccount(ctx context.Context, userID string) error {
	s.logger.Info("アカウント削除を開始します",
		slog.String("user_id", userID),
	)

	err := s.userRepo.DeleteWithSessions(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.NewUserNotFoundError()
	}
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}

	s.metrics.RecordCollectionMutation(OpDeleteAccount)
	s.logger.Info("アカウント削除が完了しました",
		slog.String("user_id", userID),
	)
	return nil
}

// load はユーザーを取得する。存在しない場合はUSER_NOT_FOUNDを返す。
func (s *Service) load(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// save はユーザードキュメント全体を保存し、変更操作をメトリクスに記録する。
func (s *Service) save(ctx context.Context, user *model.User, op string) error {
	err := s.userRepo.Save(ctx, user)
	if errors.Is(err, repository.ErrNotFound) {
		return model.NewUserNotFoundError()
	}
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}

	s.metrics.RecordCollectionMutation(op)
	s.logger.Debug("collection updated",
		slog.String("user_id", user.ID),
		slog.String("operation", op),
	)
	return nil
}

// normalizeCode は国コードの前後空白を除去し大文字に揃える。
func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// removeEntry は指定国コードのエントリを除いたスライスを返す。
func removeEntry(entries []model.CountryEntry, code string) []model.CountryEntry {
	out := make([]model.CountryEntry, 0, len(entries))
	for _, e := range entries {
		if e.CountryCode != code {
			out = append(out, e)
		}
	}
	return out
}
