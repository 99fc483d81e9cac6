package auth

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	"github.com/hitoshi/countryexplorer/internal/model"
)

const defaultGitHubAPIURL = "https://api.github.com"

// GitHubOAuthConfig はGitHub OAuthプロバイダーの設定。
type GitHubOAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// テスト用にオーバーライド可能な項目
	AuthURL    string
	TokenURL   string
	APIURL     string
	HTTPClient *http.Client
}

// GitHubOAuthProvider はGitHub OAuthによる認証を提供する。
type GitHubOAuthProvider struct {
	oauth      *oauth2.Config
	apiURL     string
	httpClient *http.Client
}

// NewGitHubOAuthProvider はGitHubOAuthProviderを生成する。
func NewGitHubOAuthProvider(config GitHubOAuthConfig) *GitHubOAuthProvider {
	endpoint := github.Endpoint
	if config.AuthURL != "" {
		endpoint.AuthURL = config.AuthURL
	}
	if config.TokenURL != "" {
		endpoint.TokenURL = config.TokenURL
	}
	apiURL := strings.TrimRight(config.APIURL, "/")
	if apiURL == "" {
		apiURL = defaultGitHubAPIURL
	}

	return &GitHubOAuthProvider{
		oauth: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			RedirectURL:  config.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       []string{"user:email"},
		},
		apiURL:     apiURL,
		httpClient: config.HTTPClient,
	}
}

// Name はプロバイダー名を返す。
func (p *GitHubOAuthProvider) Name() string {
	return model.ProviderGitHub
}

// GetLoginURL はGitHub OAuthの認証URLを生成する。GitHubはpromptを扱わないため無視する。
func (p *GitHubOAuthProvider) GetLoginURL(state, _ string) string {
	return p.oauth.AuthCodeURL(state)
}

type githubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// ExchangeCode は認可コードをアクセストークンに交換し、ユーザー情報を取得する。
// プロフィールでメールアドレスが非公開の場合は検証済みのプライマリアドレスを取得する。
func (p *GitHubOAuthProvider) ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error) {
	ctx = withHTTPClient(ctx, p.httpClient)

	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}
	client := p.oauth.Client(ctx, token)
	header := http.Header{"Accept": {"application/vnd.github+json"}}

	var u githubUser
	if err := getJSON(ctx, client, p.apiURL+"/user", header, &u); err != nil {
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	if u.ID == 0 {
		return nil, fmt.Errorf("empty id in user response")
	}

	email := u.Email
	if email == "" {
		var emails []githubEmail
		if err := getJSON(ctx, client, p.apiURL+"/user/emails", header, &emails); err != nil {
			return nil, fmt.Errorf("failed to fetch user emails: %w", err)
		}
		email = primaryEmail(emails)
	}

	name := u.Name
	if name == "" {
		name = u.Login
	}

	return &OAuthUserInfo{
		Provider:       model.ProviderGitHub,
		ProviderUserID: strconv.FormatInt(u.ID, 10),
		Email:          email,
		Name:           name,
		AvatarURL:      u.AvatarURL,
	}, nil
}

// primaryEmail は検証済みのプライマリアドレスを返す。見つからない場合は空文字を返す。
func primaryEmail(emails []githubEmail) string {
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email
		}
	}
	return ""
}

// compile-time interface check
var _ OAuthProvider = (*GitHubOAuthProvider)(nil)
