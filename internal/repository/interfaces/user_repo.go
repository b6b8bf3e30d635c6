package interfaces

import (
	"errors"
	"context"

	"socialverse-backend/internal/model"
)

// ProfileRepository 用户资料；身份由外部系统签发，这里只保存公开资料
type ProfileRepository interface {
	FindByID(ctx context.Context, id string) (*model.UserProfile, error)
	FindByUsername(ctx context.Context, username string) (*model.UserProfile, error)
	FindSummaries(ctx context.Context, ids []string) (map[string]*model.ProfileSummary, error)
	Search(ctx context.Context, query string, limit int) ([]*model.UserProfile, error)
	Upsert(ctx context.Context, id string, update model.ProfileUpdate) error
}

var (
	// ErrNotFound 记录不存在
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate 违反唯一约束，例如用户名已被占用
	ErrDuplicate = errors.New("duplicate record")
)
