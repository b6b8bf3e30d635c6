// Package gatewaytest 提供 gateway.Gateway 的 testify 模拟实现
package gatewaytest

import (
	"context"

	"socialverse-backend/internal/gateway"
	"socialverse-backend/internal/model"
	"socialverse-backend/internal/storage"

	"github.com/stretchr/testify/mock"
)

type MockGateway struct {
	mock.Mock
}

var _ gateway.Gateway = (*MockGateway)(nil)

func (m *MockGateway) ListPosts(ctx context.Context, viewerID, authorID string) ([]*model.Post, error) {
	args := m.Called(viewerID, authorID)
	return posts(args.Get(0)), args.Error(1)
}

func (m *MockGateway) ListFeedPosts(ctx context.Context, viewerID string) ([]*model.Post, error) {
	args := m.Called(viewerID)
	return posts(args.Get(0)), args.Error(1)
}

func (m *MockGateway) ListFollowing(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockGateway) ListPostLikes(ctx context.Context, postID string) ([]*model.Like, error) {
	args := m.Called(postID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Like), args.Error(1)
}

func (m *MockGateway) ListMessages(ctx context.Context, viewerID, counterpartID string) ([]*model.Message, error) {
	args := m.Called(viewerID, counterpartID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Message), args.Error(1)
}

func (m *MockGateway) ListConversations(ctx context.Context, viewerID string) ([]*model.Conversation, error) {
	args := m.Called(viewerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Conversation), args.Error(1)
}

func (m *MockGateway) SearchUsers(ctx context.Context, query string) ([]*model.UserProfile, error) {
	args := m.Called(query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.UserProfile), args.Error(1)
}

func (m *MockGateway) GetProfile(ctx context.Context, userID string) (*model.UserProfile, error) {
	args := m.Called(userID)
	return profile(args.Get(0)), args.Error(1)
}

func (m *MockGateway) GetProfileByUsername(ctx context.Context, username string) (*model.UserProfile, error) {
	args := m.Called(username)
	return profile(args.Get(0)), args.Error(1)
}

func (m *MockGateway) IsFollowing(ctx context.Context, followerID, followingID string) (bool, error) {
	args := m.Called(followerID, followingID)
	return args.Bool(0), args.Error(1)
}

func (m *MockGateway) IsPostLiked(ctx context.Context, postID, userID string) (bool, error) {
	args := m.Called(postID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockGateway) CreatePost(ctx context.Context, authorID, content string) (*model.Post, error) {
	args := m.Called(authorID, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Post), args.Error(1)
}

func (m *MockGateway) LikePost(ctx context.Context, postID, userID string) (int, error) {
	args := m.Called(postID, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockGateway) UnlikePost(ctx context.Context, postID, userID string) (int, error) {
	args := m.Called(postID, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockGateway) Follow(ctx context.Context, followerID, followingID string) error {
	return m.Called(followerID, followingID).Error(0)
}

func (m *MockGateway) Unfollow(ctx context.Context, followerID, followingID string) error {
	return m.Called(followerID, followingID).Error(0)
}

func (m *MockGateway) SendMessage(ctx context.Context, senderID, recipientID, text string, image *storage.File) (*model.Message, error) {
	args := m.Called(senderID, recipientID, text, image)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Message), args.Error(1)
}

func (m *MockGateway) MarkRead(ctx context.Context, viewerID, counterpartID string) error {
	return m.Called(viewerID, counterpartID).Error(0)
}

func (m *MockGateway) DeleteConversation(ctx context.Context, ownerID, counterpartID string) error {
	return m.Called(ownerID, counterpartID).Error(0)
}

func (m *MockGateway) UpdateProfile(ctx context.Context, userID string, update model.ProfileUpdate) (*model.UserProfile, error) {
	args := m.Called(userID, update)
	return profile(args.Get(0)), args.Error(1)
}

func (m *MockGateway) UploadImage(ctx context.Context, ownerID string, file *storage.File) (string, error) {
	args := m.Called(ownerID, file)
	return args.String(0), args.Error(1)
}

func posts(v interface{}) []*model.Post {
	if v == nil {
		return nil
	}
	return v.([]*model.Post)
}

func profile(v interface{}) *model.UserProfile {
	if v == nil {
		return nil
	}
	return v.(*model.UserProfile)
}
