package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"socialverse-backend/internal/model"
	"socialverse-backend/internal/util"

	"go.uber.org/zap"
)

// profileRepository 实现了 ProfileRepository 接口
type profileRepository struct {
	db *sql.DB
}

// NewProfileRepository 创建一个新的 profileRepository 实例
func NewProfileRepository(db *sql.DB) *profileRepository {
	return &profileRepository{db}
}

const profileSelect = `
        SELECT p.id, p.username, p.display_name, p.avatar_url, p.bio, p.created_at,
               (SELECT COUNT(*) FROM follows f WHERE f.following_id = p.id) AS follower_count,
               (SELECT COUNT(*) FROM follows f WHERE f.follower_id = p.id) AS following_count
        FROM profiles p`

func scanProfile(s scanner) (*model.UserProfile, error) {
	var p model.UserProfile
	var username sql.NullString
	err := s.Scan(&p.ID, &username, &p.DisplayName, &p.AvatarURL, &p.Bio, &p.CreatedAt,
		&p.FollowerCount, &p.FollowingCount)
	if err != nil {
		return nil, err
	}
	p.Username = username.String
	return &p, nil
}

// FindByID 通过ID查找资料，关注数与粉丝数实时统计
func (r *profileRepository) FindByID(ctx context.Context, id string) (*model.UserProfile, error) {
	p, err := scanProfile(r.db.QueryRowContext(ctx, profileSelect+` WHERE p.id = ?`, id))
	return p, translate(err)
}

// FindByUsername 用户名不区分大小写
func (r *profileRepository) FindByUsername(ctx context.Context, username string) (*model.UserProfile, error) {
	p, err := scanProfile(r.db.QueryRowContext(ctx, profileSelect+` WHERE LOWER(p.username) = LOWER(?)`, username))
	return p, translate(err)
}

func (r *profileRepository) FindSummaries(ctx context.Context, ids []string) (map[string]*model.ProfileSummary, error) {
	summaries := make(map[string]*model.ProfileSummary, len(ids))
	if len(ids) == 0 {
		return summaries, nil
	}

	query := fmt.Sprintf(`SELECT id, username, display_name, avatar_url FROM profiles WHERE id IN (%s)`, placeholders(len(ids)))
	rows, err := r.db.QueryContext(ctx, query, stringArgs(ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var cols profileCols
		if err := rows.Scan(append([]interface{}{&id}, cols.dest()...)...); err != nil {
			return nil, err
		}
		summaries[id] = cols.summary(id)
	}
	return summaries, rows.Err()
}

// Search 用户名或昵称的部分匹配（不区分大小写）
func (r *profileRepository) Search(ctx context.Context, query string, limit int) ([]*model.UserProfile, error) {
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	rows, err := r.db.QueryContext(ctx,
		profileSelect+` WHERE LOWER(p.username) LIKE ? OR LOWER(p.display_name) LIKE ?
        ORDER BY p.username ASC LIMIT ?`, pattern, pattern, limit)
	if err != nil {
		util.Logger.Error("搜索用户失败", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	profiles := []*model.UserProfile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// Upsert 首次调用时创建资料行；空字段保持原值
func (r *profileRepository) Upsert(ctx context.Context, id string, update model.ProfileUpdate) error {
	query := `
        INSERT INTO profiles (id, username, display_name, avatar_url, bio, created_at)
        VALUES (?, NULLIF(?, ''), ?, ?, ?, ?)
        ON DUPLICATE KEY UPDATE
            username     = COALESCE(NULLIF(?, ''), username),
            display_name = COALESCE(NULLIF(?, ''), display_name),
            avatar_url   = COALESCE(NULLIF(?, ''), avatar_url),
            bio          = COALESCE(NULLIF(?, ''), bio)`
	_, err := r.db.ExecContext(ctx, query,
		id, update.Username, update.DisplayName, update.AvatarURL, update.Bio, time.Now().UTC(),
		update.Username, update.DisplayName, update.AvatarURL, update.Bio)
	if err != nil {
		util.Logger.Error("更新资料失败", zap.Error(err), zap.String("user_id", id))
		return translate(err)
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
