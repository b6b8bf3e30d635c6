package service

import (
	"context"
	"io"
	"sync"

	"socialverse-backend/internal/model"
	"socialverse-backend/internal/realtime"
	"socialverse-backend/internal/storage"

	"github.com/stretchr/testify/mock"
)

// MockPostRepository 是 PostRepository 接口的模拟实现
type MockPostRepository struct {
	mock.Mock
}

func (m *MockPostRepository) CreatePost(ctx context.Context, post *model.Post) error {
	return m.Called(post).Error(0)
}

func (m *MockPostRepository) GetPostByID(ctx context.Context, id, viewerID string) (*model.Post, error) {
	args := m.Called(id, viewerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Post), args.Error(1)
}

func (m *MockPostRepository) ListPosts(ctx context.Context, viewerID, authorID string) ([]*model.Post, error) {
	args := m.Called(viewerID, authorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Post), args.Error(1)
}

func (m *MockPostRepository) ListPostsByAuthors(ctx context.Context, viewerID string, authorIDs []string) ([]*model.Post, error) {
	args := m.Called(viewerID, authorIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Post), args.Error(1)
}

func (m *MockPostRepository) LikePost(ctx context.Context, like *model.Like) (int, bool, error) {
	args := m.Called(like)
	return args.Int(0), args.Bool(1), args.Error(2)
}

func (m *MockPostRepository) UnlikePost(ctx context.Context, postID, userID string) (int, bool, error) {
	args := m.Called(postID, userID)
	return args.Int(0), args.Bool(1), args.Error(2)
}

func (m *MockPostRepository) IsPostLiked(ctx context.Context, postID, userID string) (bool, error) {
	args := m.Called(postID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockPostRepository) ListPostLikes(ctx context.Context, postID string) ([]*model.Like, error) {
	args := m.Called(postID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Like), args.Error(1)
}

// MockFollowRepository 是 FollowRepository 接口的模拟实现
type MockFollowRepository struct {
	mock.Mock
}

func (m *MockFollowRepository) CreateFollow(ctx context.Context, follow *model.Follow) (bool, error) {
	args := m.Called(follow)
	return args.Bool(0), args.Error(1)
}

func (m *MockFollowRepository) DeleteFollow(ctx context.Context, followerID, followingID string) (bool, error) {
	args := m.Called(followerID, followingID)
	return args.Bool(0), args.Error(1)
}

func (m *MockFollowRepository) IsFollowing(ctx context.Context, followerID, followingID string) (bool, error) {
	args := m.Called(followerID, followingID)
	return args.Bool(0), args.Error(1)
}

func (m *MockFollowRepository) ListFollowing(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockProfileRepository 是 ProfileRepository 接口的模拟实现
type MockProfileRepository struct {
	mock.Mock
}

func (m *MockProfileRepository) FindByID(ctx context.Context, id string) (*model.UserProfile, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserProfile), args.Error(1)
}

func (m *MockProfileRepository) FindByUsername(ctx context.Context, username string) (*model.UserProfile, error) {
	args := m.Called(username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserProfile), args.Error(1)
}

func (m *MockProfileRepository) FindSummaries(ctx context.Context, ids []string) (map[string]*model.ProfileSummary, error) {
	args := m.Called(ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]*model.ProfileSummary), args.Error(1)
}

func (m *MockProfileRepository) Search(ctx context.Context, query string, limit int) ([]*model.UserProfile, error) {
	args := m.Called(query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.UserProfile), args.Error(1)
}

func (m *MockProfileRepository) Upsert(ctx context.Context, id string, update model.ProfileUpdate) error {
	return m.Called(id, update).Error(0)
}

// MockMessageRepository 是 MessageRepository 接口的模拟实现
type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) CreateMessage(ctx context.Context, msg *model.Message) error {
	return m.Called(msg).Error(0)
}

func (m *MockMessageRepository) ListBetween(ctx context.Context, a, b string) ([]*model.Message, error) {
	args := m.Called(a, b)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Message), args.Error(1)
}

func (m *MockMessageRepository) ListLatestPerCounterpart(ctx context.Context, viewerID string) ([]*model.Message, error) {
	args := m.Called(viewerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Message), args.Error(1)
}

func (m *MockMessageRepository) MarkRead(ctx context.Context, viewerID, counterpartID string) ([]*model.Message, error) {
	args := m.Called(viewerID, counterpartID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Message), args.Error(1)
}

func (m *MockMessageRepository) DeleteBetween(ctx context.Context, a, b string) ([]*model.Message, error) {
	args := m.Called(a, b)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Message), args.Error(1)
}

// MockStorage 是 Storage 接口的模拟实现
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) UploadFile(ctx context.Context, file *storage.File, path string) (string, error) {
	if file.Body != nil {
		_, _ = io.Copy(io.Discard, file.Body)
	}
	args := m.Called(file, path)
	return args.String(0), args.Error(1)
}

// recorder 记录发布的事件
type recorder struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (r *recorder) Publish(ctx context.Context, e realtime.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) Events() []realtime.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]realtime.Event(nil), r.events...)
}

type fixture struct {
	posts    *MockPostRepository
	follows  *MockFollowRepository
	profiles *MockProfileRepository
	messages *MockMessageRepository
	storage  *MockStorage
	events   *recorder
	service  *SocialService
}

func newFixture() *fixture {
	f := &fixture{
		posts:    new(MockPostRepository),
		follows:  new(MockFollowRepository),
		profiles: new(MockProfileRepository),
		messages: new(MockMessageRepository),
		storage:  new(MockStorage),
		events:   &recorder{},
	}
	f.service = NewSocialService(Repositories{
		Posts:    f.posts,
		Follows:  f.follows,
		Profiles: f.profiles,
		Messages: f.messages,
	}, f.storage, f.events, storage.MaxImageBytes)

	ids := 0
	f.service.newID = func() string {
		ids++
		return "id" + string(rune('0'+ids))
	}
	return f
}

func (f *fixture) assertExpectations(t mock.TestingT) {
	f.posts.AssertExpectations(t)
	f.follows.AssertExpectations(t)
	f.profiles.AssertExpectations(t)
	f.messages.AssertExpectations(t)
	f.storage.AssertExpectations(t)
}

func ctx() context.Context {
	return context.Background()
}
