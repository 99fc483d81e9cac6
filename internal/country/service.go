// Package country は国情報の参照ロジックを提供する。
// 外部プロバイダーの結果をそのまま返し、not-foundやエラーをAPIエラーに変換する。
package country

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/hitoshi/countryexplorer/internal/model"
	"github.com/hitoshi/countryexplorer/internal/restcountries"
)

// Provider は国情報プロバイダーのインターフェース。
type Provider interface {
	All(ctx context.Context) ([]model.Country, error)
	ByRegion(ctx context.Context, region string) ([]model.Country, error)
	ByName(ctx context.Context, name string) ([]model.Country, error)
}

// Service は国情報参照のサービス層。
type Service struct {
	provider Provider
	logger   *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(provider Provider, logger *slog.Logger) *Service {
	return &Service{
		provider: provider,
		logger:   logger,
	}
}

// ListAll は全ての国を返す。
func (s *Service) ListAll(ctx context.Context) ([]model.Country, error) {
	countries, err := s.provider.All(ctx)
	if err != nil {
		return nil, s.upstreamError("all", err)
	}
	return nonNil(countries), nil
}

// ListByRegion は指定地域の国を返す。該当地域がない場合は空配列を返す。
func (s *Service) ListByRegion(ctx context.Context, region string) ([]model.Country, error) {
	region = strings.TrimSpace(region)
	if region == "" {
		return nil, model.NewValidationError("Region is required")
	}

	countries, err := s.provider.ByRegion(ctx, region)
	if errors.Is(err, restcountries.ErrNotFound) {
		return []model.Country{}, nil
	}
	if err != nil {
		return nil, s.upstreamError("region", err)
	}
	return nonNil(countries), nil
}

// Search は名前の部分一致で国を検索する。該当がない場合は空配列を返す。
func (s *Service) Search(ctx context.Context, query string) ([]model.Country, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, model.NewValidationError("Search query is required")
	}

	countries, err := s.provider.ByName(ctx, query)
	if errors.Is(err, restcountries.ErrNotFound) {
		return []model.Country{}, nil
	}
	if err != nil {
		return nil, s.upstreamError("search", err)
	}
	return nonNil(countries), nil
}

// GetByName は名前に一致する最初の国を返す。
// 見つからない場合はCOUNTRY_NOT_FOUNDを返す。
func (s *Service) GetByName(ctx context.Context, name string) (*model.Country, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, model.NewValidationError("Country name is required")
	}

	countries, err := s.provider.ByName(ctx, name)
	if errors.Is(err, restcountries.ErrNotFound) || (err == nil && len(countries) == 0) {
		return nil, model.NewCountryNotFoundError(name)
	}
	if err != nil {
		return nil, s.upstreamError("name", err)
	}
	return &countries[0], nil
}

// upstreamError はプロバイダーのエラーをログに記録し、UPSTREAM_FAILEDに変換する。
func (s *Service) upstreamError(op string, err error) error {
	s.logger.Error("failed to fetch countries",
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
	return model.NewUpstreamFailedError()
}

func nonNil(countries []model.Country) []model.Country {
	if countries == nil {
		return []model.Country{}
	}
	return countries
}
