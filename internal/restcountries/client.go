// Package restcountries は外部の国情報プロバイダー（REST Countries v3.1）のクライアントを提供する。
package restcountries

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/countryexplorer/internal/metrics"
	"github.com/hitoshi/countryexplorer/internal/model"
)

const (
	// DefaultBaseURL はREST Countries APIのベースURL。
	DefaultBaseURL = "https://restcountries.com/v3.1"

	// プロバイダーは1リクエストあたりのfieldsを10個までに制限しているため2回に分けて取得する。
	basicFields  = "name,capital,region,subregion,population,area,flags,cca2,cca3,continents"
	detailFields = "name,cca3,ccn3,currencies,languages,timezones,borders"

	// maxResponseBytes はレスポンスボディの最大読み取りサイズ。
	maxResponseBytes = 10 << 20
)

// ErrNotFound はプロバイダーが404を返した場合のエラー。
var ErrNotFound = errors.New("country not found at provider")

// StatusError はプロバイダーが200/404以外のステータスを返した場合のエラー。
type StatusError struct {
	Endpoint   string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("country provider returned status %d for %s", e.StatusCode, e.Endpoint)
}

// rawCountry はプロバイダーのレスポンス1件を表す。
type rawCountry struct {
	Name struct {
		Common   string `json:"common"`
		Official string `json:"official"`
	} `json:"name"`
	Capital    []string `json:"capital"`
	Region     string   `json:"region"`
	Subregion  string   `json:"subregion"`
	Population int64    `json:"population"`
	Area       float64  `json:"area"`
	Flags      struct {
		SVG string `json:"svg"`
		PNG string `json:"png"`
	} `json:"flags"`
	CCA2       string                    `json:"cca2"`
	CCA3       string                    `json:"cca3"`
	CCN3       string                    `json:"ccn3"`
	Continents []string                  `json:"continents"`
	Currencies map[string]model.Currency `json:"currencies"`
	Languages  map[string]string         `json:"languages"`
	Timezones  []string                  `json:"timezones"`
	Borders    []string                  `json:"borders"`
}

// Client はREST Countries APIのクライアント。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    metrics.MetricsCollector
	baseURL    string
}

// NewClient はClientの新しいインスタンスを生成する。
// baseURLが空の場合はDefaultBaseURLを使用する。
func NewClient(httpClient *http.Client, baseURL string, logger *slog.Logger, mc metrics.MetricsCollector) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if mc == nil {
		mc = metrics.NopCollector{}
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		metrics:    mc,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// All は全ての国を取得する。
func (c *Client) All(ctx context.Context) ([]model.Country, error) {
	return c.fetchMerged(ctx, "all", "/all")
}

// ByRegion は指定地域の国を取得する。
func (c *Client) ByRegion(ctx context.Context, region string) ([]model.Country, error) {
	return c.fetchMerged(ctx, "region", "/region/"+url.PathEscape(region))
}

// ByName は名前（部分一致）で国を取得する。
func (c *Client) ByName(ctx context.Context, name string) ([]model.Country, error) {
	return c.fetchMerged(ctx, "name", "/name/"+url.PathEscape(name))
}

// fetchMerged は基本フィールドと詳細フィールドを並列に取得し、cca3をキーにマージする。
// どちらか一方が失敗した場合はもう一方もキャンセルされる。
func (c *Client) fetchMerged(ctx context.Context, endpoint, path string) ([]model.Country, error) {
	start := time.Now()

	var basic, detail []rawCountry
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		basic, err = c.get(gctx, endpoint, path, basicFields)
		return err
	})
	g.Go(func() error {
		var err error
		detail, err = c.get(gctx, endpoint, path, detailFields)
		return err
	})

	err := g.Wait()
	c.metrics.RecordUpstreamLatency(time.Since(start))
	switch {
	case errors.Is(err, ErrNotFound):
		c.metrics.RecordUpstreamRequest(endpoint, metrics.OutcomeNotFound)
		return nil, err
	case err != nil:
		c.metrics.RecordUpstreamRequest(endpoint, metrics.OutcomeError)
		return nil, err
	}
	c.metrics.RecordUpstreamRequest(endpoint, metrics.OutcomeSuccess)

	return merge(basic, detail), nil
}

// get はプロバイダーにGETリクエストを送り、国の配列をデコードする。
func (c *Client) get(ctx context.Context, endpoint, path, fields string) ([]rawCountry, error) {
	reqURL, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("failed to build provider url: %w", err)
	}
	q := reqURL.Query()
	q.Set("fields", fields)
	reqURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "CountryExplorer/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("country provider request canceled: %w", err)
		}
		c.logger.Error("国情報プロバイダーの呼び出しに失敗しました",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to call country provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Error("国情報プロバイダーがエラーステータスを返しました",
			slog.String("endpoint", endpoint),
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, &StatusError{Endpoint: endpoint, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read provider response: %w", err)
	}

	var countries []rawCountry
	if err := json.Unmarshal(body, &countries); err != nil {
		c.logger.Error("国情報プロバイダーのレスポンスのパースに失敗しました",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to decode provider response: %w", err)
	}

	return countries, nil
}

// merge は基本フィールドの並び順を保ったまま詳細フィールドを補完する。
func merge(basic, detail []rawCountry) []model.Country {
	details := make(map[string]rawCountry, len(detail))
	for _, d := range detail {
		details[d.CCA3] = d
	}

	countries := make([]model.Country, 0, len(basic))
	for _, b := range basic {
		country := model.Country{
			Name:         b.Name.Common,
			OfficialName: b.Name.Official,
			Capital:      b.Capital,
			Region:       b.Region,
			Subregion:    b.Subregion,
			Population:   b.Population,
			Area:         b.Area,
			Flag:         b.Flags.SVG,
			FlagPNG:      b.Flags.PNG,
			CCA2:         b.CCA2,
			CCA3:         b.CCA3,
			Continents:   b.Continents,
		}
		if d, ok := details[b.CCA3]; ok {
			country.CCN3 = d.CCN3
			country.Currencies = d.Currencies
			country.Languages = d.Languages
			country.Timezones = d.Timezones
			country.Borders = d.Borders
		}
		countries = append(countries, country)
	}
	return countries
}
