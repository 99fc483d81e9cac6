package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/hitoshi/countryexplorer/internal/model"
)

// userRow はusersテーブルの1行を表す。
// favorite_countries、country_listsはJSONBで保存する。
type userRow struct {
	ID                string         `db:"id"`
	GoogleID          sql.NullString `db:"google_id"`
	GitHubID          sql.NullString `db:"github_id"`
	Name              string         `db:"name"`
	Email             string         `db:"email"`
	Avatar            string         `db:"avatar"`
	FavoriteCountries []byte         `db:"favorite_countries"`
	CountryLists      []byte         `db:"country_lists"`
	CreatedAt         time.Time      `db:"created_at"`
	LastLogin         time.Time      `db:"last_login"`
}

const userColumns = `id, google_id, github_id, name, email, avatar,
	favorite_countries, country_lists, created_at, last_login`

func toUserRow(u *model.User) (*userRow, error) {
	favorites := u.FavoriteCountries
	if favorites == nil {
		favorites = []model.CountryEntry{}
	}
	lists := u.CountryLists
	if lists == nil {
		lists = []model.CountryList{}
	}

	favJSON, err := json.Marshal(favorites)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal favorite countries: %w", err)
	}
	listJSON, err := json.Marshal(lists)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal country lists: %w", err)
	}

	return &userRow{
		ID:                u.ID,
		GoogleID:          sql.NullString{String: u.GoogleID, Valid: u.GoogleID != ""},
		GitHubID:          sql.NullString{String: u.GitHubID, Valid: u.GitHubID != ""},
		Name:              u.Name,
		Email:             u.Email,
		Avatar:            u.AvatarURL,
		FavoriteCountries: favJSON,
		CountryLists:      listJSON,
		CreatedAt:         u.CreatedAt,
		LastLogin:         u.LastLogin,
	}, nil
}

func (row *userRow) toModel() (*model.User, error) {
	u := &model.User{
		ID:        row.ID,
		GoogleID:  row.GoogleID.String,
		GitHubID:  row.GitHubID.String,
		Name:      row.Name,
		Email:     row.Email,
		AvatarURL: row.Avatar,
		CreatedAt: row.CreatedAt,
		LastLogin: row.LastLogin,
	}
	if err := json.Unmarshal(row.FavoriteCountries, &u.FavoriteCountries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal favorite countries: %w", err)
	}
	if err := json.Unmarshal(row.CountryLists, &u.CountryLists); err != nil {
		return nil, fmt.Errorf("failed to unmarshal country lists: %w", err)
	}
	ensureCollections(u)
	return u, nil
}

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sqlx.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sqlx.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// FindByProviderID はOAuthプロバイダーのユーザーIDでユーザーを検索する。
func (r *PostgresUserRepo) FindByProviderID(ctx context.Context, provider, providerUserID string) (*model.User, error) {
	var column string
	switch provider {
	case model.ProviderGoogle:
		column = "google_id"
	case model.ProviderGitHub:
		column = "github_id"
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE `+column+` = $1`, providerUserID)
}

// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *PostgresUserRepo) findOne(ctx context.Context, query string, arg string) (*model.User, error) {
	var row userRow
	err := r.db.GetContext(ctx, &row, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return row.toModel()
}

// Create はユーザーを作成する。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	row, err := toUserRow(user)
	if err != nil {
		return err
	}

	_, err = r.db.NamedExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (:id, :google_id, :github_id, :name, :email, :avatar,
		         :favorite_countries, :country_lists, :created_at, :last_login)`,
		row,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// Save はユーザードキュメント全体を上書き保存する。
func (r *PostgresUserRepo) Save(ctx context.Context, user *model.User) error {
	row, err := toUserRow(user)
	if err != nil {
		return err
	}

	result, err := r.db.NamedExecContext(ctx,
		`UPDATE users SET
		   google_id = :google_id,
		   github_id = :github_id,
		   name = :name,
		   email = :email,
		   avatar = :avatar,
		   favorite_countries = :favorite_countries,
		   country_lists = :country_lists,
		   last_login = :last_login
		 WHERE id = :id`,
		row,
	)
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteWithSessions はユーザーとそのセッションを同一トランザクションで削除する。
func (r *PostgresUserRepo) DeleteWithSessions(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete user sessions: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
