package mysql

import (
	"context"
	"database/sql"

	"socialverse-backend/internal/model"
	"socialverse-backend/internal/util"

	"go.uber.org/zap"
)

type followRepository struct {
	db *sql.DB
}

func NewFollowRepository(db *sql.DB) *followRepository {
	return &followRepository{db: db}
}

func (r *followRepository) CreateFollow(ctx context.Context, follow *model.Follow) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT IGNORE INTO follows (follower_id, following_id, created_at) VALUES (?, ?, ?)`,
		follow.FollowerID, follow.FollowingID, follow.CreatedAt)
	if err != nil {
		util.Logger.Error("关注失败", zap.Error(err),
			zap.String("follower_id", follow.FollowerID),
			zap.String("following_id", follow.FollowingID))
		return false, err
	}
	affected, err := result.RowsAffected()
	return affected > 0, err
}

func (r *followRepository) DeleteFollow(ctx context.Context, followerID, followingID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM follows WHERE follower_id = ? AND following_id = ?`, followerID, followingID)
	if err != nil {
		util.Logger.Error("取消关注失败", zap.Error(err),
			zap.String("follower_id", followerID),
			zap.String("following_id", followingID))
		return false, err
	}
	affected, err := result.RowsAffected()
	return affected > 0, err
}

func (r *followRepository) IsFollowing(ctx context.Context, followerID, followingID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM follows WHERE follower_id = ? AND following_id = ?)`,
		followerID, followingID).Scan(&exists)
	return exists, err
}

func (r *followRepository) ListFollowing(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT following_id FROM follows WHERE follower_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
