package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/hitoshi/countryexplorer/internal/model"
)

// MongoUserRepo はMongoDBを使用したユーザーリポジトリ。
// ユーザーはお気に入りとリストを埋め込んだ1ドキュメントとして保存する。
type MongoUserRepo struct {
	users    *mongo.Collection
	sessions *mongo.Collection
}

// NewMongoUserRepo はMongoUserRepoを生成する。
func NewMongoUserRepo(db *mongo.Database) *MongoUserRepo {
	return &MongoUserRepo{
		users:    db.Collection("users"),
		sessions: db.Collection("sessions"),
	}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *MongoUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.findOne(ctx, bson.D{{Key: "_id", Value: id}})
}

// FindByProviderID はOAuthプロバイダーのユーザーIDでユーザーを検索する。
func (r *MongoUserRepo) FindByProviderID(ctx context.Context, provider, providerUserID string) (*model.User, error) {
	var field string
	switch provider {
	case model.ProviderGoogle:
		field = "google_id"
	case model.ProviderGitHub:
		field = "github_id"
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
	return r.findOne(ctx, bson.D{{Key: field, Value: providerUserID}})
}

// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
func (r *MongoUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, bson.D{{Key: "email", Value: email}})
}

func (r *MongoUserRepo) findOne(ctx context.Context, filter bson.D) (*model.User, error) {
	var user model.User
	err := r.users.FindOne(ctx, filter).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	ensureCollections(&user)
	return &user, nil
}

// Create はユーザーを作成する。
func (r *MongoUserRepo) Create(ctx context.Context, user *model.User) error {
	doc := *user
	ensureCollections(&doc)
	if _, err := r.users.InsertOne(ctx, &doc); err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// Save はユーザードキュメント全体を置き換える。
func (r *MongoUserRepo) Save(ctx context.Context, user *model.User) error {
	doc := *user
	ensureCollections(&doc)
	result, err := r.users.ReplaceOne(ctx, bson.D{{Key: "_id", Value: user.ID}}, &doc)
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteWithSessions はユーザーのセッションを削除した後にユーザーを削除する。
// セッション検索は所有ユーザーの存在も確認するため、途中で失敗しても有効なセッションは残らない。
func (r *MongoUserRepo) DeleteWithSessions(ctx context.Context, id string) error {
	if _, err := r.sessions.DeleteMany(ctx, bson.D{{Key: "user_id", Value: id}}); err != nil {
		return fmt.Errorf("failed to delete user sessions: %w", err)
	}

	result, err := r.users.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// compile-time interface check
var _ UserRepository = (*MongoUserRepo)(nil)
