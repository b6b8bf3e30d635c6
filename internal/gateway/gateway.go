// Package gateway 定义读写社交数据的一次性请求接口。
//
// 写操作可安全重试：重复的点赞、取消点赞、关注、取消关注、标记已读都是空操作。
// 除了调用前的参数校验（errors.IsValidation）之外，所有失败都以
// errors.ErrOperationFailed 统一返回。
package gateway

import (
	"context"

	"socialverse-backend/internal/model"
	"socialverse-backend/internal/storage"
)

// SearchLimit 用户搜索返回的最大条数
const SearchLimit = 10

type Gateway interface {
	// ListPosts authorID 为空时返回全部帖子，按 created_at 降序
	ListPosts(ctx context.Context, viewerID, authorID string) ([]*model.Post, error)
	// ListFeedPosts 查看者关注的用户发布的帖子
	ListFeedPosts(ctx context.Context, viewerID string) ([]*model.Post, error)
	ListFollowing(ctx context.Context, userID string) ([]string, error)
	ListPostLikes(ctx context.Context, postID string) ([]*model.Like, error)
	// ListMessages 双方向的消息，按 created_at 升序
	ListMessages(ctx context.Context, viewerID, counterpartID string) ([]*model.Message, error)
	ListConversations(ctx context.Context, viewerID string) ([]*model.Conversation, error)
	SearchUsers(ctx context.Context, query string) ([]*model.UserProfile, error)
	GetProfile(ctx context.Context, userID string) (*model.UserProfile, error)
	GetProfileByUsername(ctx context.Context, username string) (*model.UserProfile, error)
	IsFollowing(ctx context.Context, followerID, followingID string) (bool, error)
	IsPostLiked(ctx context.Context, postID, userID string) (bool, error)

	CreatePost(ctx context.Context, authorID, content string) (*model.Post, error)
	// LikePost 返回点赞后的计数
	LikePost(ctx context.Context, postID, userID string) (int, error)
	UnlikePost(ctx context.Context, postID, userID string) (int, error)
	Follow(ctx context.Context, followerID, followingID string) error
	Unfollow(ctx context.Context, followerID, followingID string) error
	// SendMessage image 可以为 nil；文本与图片至少有一个
	SendMessage(ctx context.Context, senderID, recipientID, text string, image *storage.File) (*model.Message, error)
	MarkRead(ctx context.Context, viewerID, counterpartID string) error
	// DeleteConversation 删除双方之间的全部消息，不可恢复
	DeleteConversation(ctx context.Context, ownerID, counterpartID string) error
	UpdateProfile(ctx context.Context, userID string, update model.ProfileUpdate) (*model.UserProfile, error)
	UploadImage(ctx context.Context, ownerID string, file *storage.File) (string, error)
}
