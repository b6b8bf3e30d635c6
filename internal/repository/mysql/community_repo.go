package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"socialverse-backend/internal/model"
	"socialverse-backend/internal/util"

	"go.uber.org/zap"
)

type communityRepository struct {
	db *sql.DB
}

func NewCommunityRepository(db *sql.DB) *communityRepository {
	return &communityRepository{db: db}
}

// 第一个占位符是查看者ID，用于计算 is_liked
const postSelect = `
        SELECT p.id, p.user_id, p.content, p.like_count, p.created_at,
               pr.username, pr.display_name, pr.avatar_url,
               EXISTS(SELECT 1 FROM likes l WHERE l.post_id = p.id AND l.user_id = ?) AS is_liked
        FROM posts p
        LEFT JOIN profiles pr ON pr.id = p.user_id`

func (r *communityRepository) CreatePost(ctx context.Context, post *model.Post) error {
	query := `INSERT INTO posts (id, user_id, content, like_count, created_at) VALUES (?, ?, ?, 0, ?)`
	_, err := r.db.ExecContext(ctx, query, post.ID, post.UserID, post.Content, post.CreatedAt)
	if err != nil {
		util.Logger.Error("创建帖子失败", zap.Error(err))
		return err
	}

	util.Logger.Info("帖子创建成功", zap.String("post_id", post.ID))
	return nil
}

func (r *communityRepository) GetPostByID(ctx context.Context, id, viewerID string) (*model.Post, error) {
	row := r.db.QueryRowContext(ctx, postSelect+` WHERE p.id = ?`, viewerID, id)
	post, err := scanPost(row)
	if err != nil {
		return nil, translate(err)
	}
	return post, nil
}

func (r *communityRepository) ListPosts(ctx context.Context, viewerID, authorID string) ([]*model.Post, error) {
	if authorID == "" {
		return r.queryPosts(ctx, postSelect+` ORDER BY p.created_at DESC, p.id DESC`, viewerID)
	}
	return r.queryPosts(ctx, postSelect+` WHERE p.user_id = ? ORDER BY p.created_at DESC, p.id DESC`, viewerID, authorID)
}

func (r *communityRepository) ListPostsByAuthors(ctx context.Context, viewerID string, authorIDs []string) ([]*model.Post, error) {
	if len(authorIDs) == 0 {
		return []*model.Post{}, nil
	}
	query := fmt.Sprintf(postSelect+` WHERE p.user_id IN (%s) ORDER BY p.created_at DESC, p.id DESC`, placeholders(len(authorIDs)))
	args := append([]interface{}{viewerID}, stringArgs(authorIDs)...)
	return r.queryPosts(ctx, query, args...)
}

func (r *communityRepository) queryPosts(ctx context.Context, query string, args ...interface{}) ([]*model.Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		util.Logger.Error("查询帖子失败", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	posts := []*model.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanPost(s scanner) (*model.Post, error) {
	var post model.Post
	var author profileCols
	dest := []interface{}{&post.ID, &post.UserID, &post.Content, &post.LikeCount, &post.CreatedAt}
	dest = append(dest, author.dest()...)
	dest = append(dest, &post.IsLiked)
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}
	post.Author = author.summary(post.UserID)
	return &post, nil
}

// lockLikeCount 锁住帖子行，保证计数与点赞边在同一事务内一致
func lockLikeCount(ctx context.Context, tx *sql.Tx, postID string) (int, error) {
	var count int
	err := tx.QueryRowContext(ctx, `SELECT like_count FROM posts WHERE id = ? FOR UPDATE`, postID).Scan(&count)
	return count, translate(err)
}

func (r *communityRepository) LikePost(ctx context.Context, like *model.Like) (int, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, err
	}
	defer tx.Rollback()

	count, err := lockLikeCount(ctx, tx, like.PostID)
	if err != nil {
		return 0, false, err
	}

	result, err := tx.ExecContext(ctx,
		`INSERT IGNORE INTO likes (post_id, user_id, created_at) VALUES (?, ?, ?)`,
		like.PostID, like.UserID, like.CreatedAt)
	if err != nil {
		util.Logger.Error("点赞失败", zap.Error(err), zap.String("post_id", like.PostID))
		return 0, false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, false, err
	}
	if affected == 0 {
		return count, false, nil
	}

	if _, err := tx.ExecContext(ctx, `UPDATE posts SET like_count = like_count + 1 WHERE id = ?`, like.PostID); err != nil {
		return 0, false, err
	}
	if err := tx.Commit(); err != nil {
		util.Logger.Error("提交事务失败", zap.Error(err))
		return 0, false, err
	}
	return count + 1, true, nil
}

func (r *communityRepository) UnlikePost(ctx context.Context, postID, userID string) (int, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, err
	}
	defer tx.Rollback()

	count, err := lockLikeCount(ctx, tx, postID)
	if err != nil {
		return 0, false, err
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM likes WHERE post_id = ? AND user_id = ?`, postID, userID)
	if err != nil {
		util.Logger.Error("取消点赞失败", zap.Error(err), zap.String("post_id", postID))
		return 0, false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, false, err
	}
	if affected == 0 {
		return count, false, nil
	}

	if _, err := tx.ExecContext(ctx, `UPDATE posts SET like_count = GREATEST(like_count, 1) - 1 WHERE id = ?`, postID); err != nil {
		return 0, false, err
	}
	if err := tx.Commit(); err != nil {
		util.Logger.Error("提交事务失败", zap.Error(err))
		return 0, false, err
	}
	if count > 0 {
		count--
	}
	return count, true, nil
}

func (r *communityRepository) IsPostLiked(ctx context.Context, postID, userID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM likes WHERE post_id = ? AND user_id = ?)`, postID, userID).Scan(&exists)
	return exists, err
}

func (r *communityRepository) ListPostLikes(ctx context.Context, postID string) ([]*model.Like, error) {
	query := `
        SELECT l.post_id, l.user_id, l.created_at, pr.username, pr.display_name, pr.avatar_url
        FROM likes l
        LEFT JOIN profiles pr ON pr.id = l.user_id
        WHERE l.post_id = ?
        ORDER BY l.created_at DESC, l.user_id ASC`
	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		util.Logger.Error("查询点赞列表失败", zap.Error(err), zap.String("post_id", postID))
		return nil, err
	}
	defer rows.Close()

	likes := []*model.Like{}
	for rows.Next() {
		var like model.Like
		var user profileCols
		dest := append([]interface{}{&like.PostID, &like.UserID, &like.CreatedAt}, user.dest()...)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		like.User = user.summary(like.UserID)
		likes = append(likes, &like)
	}
	return likes, rows.Err()
}
