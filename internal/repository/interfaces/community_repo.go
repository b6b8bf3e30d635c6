package interfaces

import (
	"context"

	"socialverse-backend/internal/model"
)

// PostRepository 帖子与点赞
type PostRepository interface {
	CreatePost(ctx context.Context, post *model.Post) error
	GetPostByID(ctx context.Context, id, viewerID string) (*model.Post, error)
	// ListPosts authorID 为空时返回全部帖子
	ListPosts(ctx context.Context, viewerID, authorID string) ([]*model.Post, error)
	ListPostsByAuthors(ctx context.Context, viewerID string, authorIDs []string) ([]*model.Post, error)

	// LikePost 与 UnlikePost 在同一事务内写边并维护 like_count。
	// changed 为 false 表示边已存在（或不存在），计数未变。
	LikePost(ctx context.Context, like *model.Like) (count int, changed bool, err error)
	UnlikePost(ctx context.Context, postID, userID string) (count int, changed bool, err error)
	IsPostLiked(ctx context.Context, postID, userID string) (bool, error)
	ListPostLikes(ctx context.Context, postID string) ([]*model.Like, error)
}

// FollowRepository 关注关系
type FollowRepository interface {
	CreateFollow(ctx context.Context, follow *model.Follow) (changed bool, err error)
	DeleteFollow(ctx context.Context, followerID, followingID string) (changed bool, err error)
	IsFollowing(ctx context.Context, followerID, followingID string) (bool, error)
	ListFollowing(ctx context.Context, userID string) ([]string, error)
}
