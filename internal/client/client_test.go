package client

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"socialverse-backend/internal/api"
	"socialverse-backend/internal/errors"
	"socialverse-backend/internal/gateway/gatewaytest"
	"socialverse-backend/internal/model"
	"socialverse-backend/internal/realtime"
	"socialverse-backend/internal/storage"
	"socialverse-backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const secret = "client-test-secret"

type harness struct {
	gw  *gatewaytest.MockGateway
	hub *realtime.Hub
	url string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	gw := new(gatewaytest.MockGateway)
	hub := realtime.NewHub()
	router := api.NewRouter(api.RouterConfig{JWTSecret: secret}, gw, realtime.NewServer(hub))
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	t.Cleanup(func() { gw.AssertExpectations(t) })
	return &harness{gw: gw, hub: hub, url: ts.URL}
}

func (h *harness) client(t *testing.T, userID string) *Client {
	t.Helper()
	return New(h.url, tokenFor(t, userID))
}

func tokenFor(t *testing.T, userID string) string {
	t.Helper()
	tok, err := util.GenerateToken(secret, userID, time.Hour)
	require.NoError(t, err)
	return tok
}

func png(size int) *storage.File {
	body := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, size)...)
	return &storage.File{Name: "a.png", ContentType: "image/png", Size: int64(len(body)), Body: bytes.NewReader(body)}
}

func TestClient_ListPosts(t *testing.T) {
	h := newHarness(t)
	h.gw.On("ListPosts", "alice", "bob").Return([]*model.Post{{ID: "p1", UserID: "bob", LikeCount: 2}}, nil)

	posts, err := h.client(t, "alice").ListPosts(context.Background(), "alice", "bob")
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "p1", posts[0].ID)
	assert.Equal(t, 2, posts[0].LikeCount)
}

func TestClient_CreatePost(t *testing.T) {
	h := newHarness(t)
	h.gw.On("CreatePost", "alice", "hello").Return(&model.Post{ID: "p1", UserID: "alice", Content: "hello"}, nil)

	post, err := h.client(t, "alice").CreatePost(context.Background(), "alice", "  hello ")
	require.NoError(t, err)
	assert.Equal(t, "hello", post.Content)
}

// 本地校验失败时不会发出请求，MockGateway 没有任何调用
func TestClient_ValidationBeforeNetwork(t *testing.T) {
	h := newHarness(t)
	c := h.client(t, "alice")
	ctx := context.Background()

	_, err := c.CreatePost(ctx, "alice", strings.Repeat("x", model.MaxPostLength+1))
	assert.Equal(t, errors.ErrPostTooLong, errors.Code(err))

	_, err = c.CreatePost(ctx, "alice", "   ")
	assert.Equal(t, errors.ErrValidation, errors.Code(err))

	_, err = c.SendMessage(ctx, "alice", "bob", "  ", nil)
	assert.Equal(t, errors.ErrEmptyMessage, errors.Code(err))

	_, err = c.SendMessage(ctx, "alice", "bob", "", png(6<<20))
	assert.Equal(t, errors.ErrImageTooLarge, errors.Code(err))

	text := &storage.File{Name: "a.txt", Size: 5, Body: strings.NewReader("hello")}
	_, err = c.UploadImage(ctx, "alice", text)
	assert.Equal(t, errors.ErrUnsupportedImage, errors.Code(err))

	err = c.Follow(ctx, "alice", "alice")
	assert.Equal(t, errors.ErrSelfFollow, errors.Code(err))

	assert.Empty(t, h.gw.Calls)
}

func TestClient_RemoteFailureIsOperationFailure(t *testing.T) {
	h := newHarness(t)
	h.gw.On("ListFeedPosts", "alice").Return(nil, errors.New(errors.ErrDatabase, "db down"))

	_, err := h.client(t, "alice").ListFeedPosts(context.Background(), "alice")
	require.Error(t, err)
	assert.Equal(t, errors.ErrOperationFailed, errors.Code(err))
	assert.True(t, errors.IsOperationFailure(err))
}

func TestClient_RemoteRejectionIsOperationFailure(t *testing.T) {
	h := newHarness(t)
	c := h.client(t, "alice")
	h.gw.On("ListFeedPosts", "alice").Return(nil, errors.New(errors.ErrValidation, "rejected by store"))

	_, err := c.ListFeedPosts(context.Background(), "alice")
	require.Error(t, err)
	assert.Equal(t, errors.ErrOperationFailed, errors.Code(err))
	assert.False(t, errors.IsValidation(err))
	assert.Contains(t, err.Error(), "rejected by store")

	// 服务端绑定校验失败同样是调用失败
	_, err = c.UpdateProfile(context.Background(), "alice", model.ProfileUpdate{Username: "not a handle"})
	require.Error(t, err)
	assert.Equal(t, errors.ErrOperationFailed, errors.Code(err))
}

func TestClient_Unauthorized(t *testing.T) {
	h := newHarness(t)
	c := New(h.url, "not-a-token")

	_, err := c.ListConversations(context.Background(), "alice")
	assert.Equal(t, errors.ErrOperationFailed, errors.Code(err))
}

func TestClient_TransportFailure(t *testing.T) {
	c := New("http://127.0.0.1:1", "")
	_, err := c.ListPosts(context.Background(), "", "")
	assert.Equal(t, errors.ErrOperationFailed, errors.Code(err))
}

func TestClient_LikeAndUnlike(t *testing.T) {
	h := newHarness(t)
	h.gw.On("LikePost", "p1", "alice").Return(3, nil)
	h.gw.On("UnlikePost", "p1", "alice").Return(2, nil)
	c := h.client(t, "alice")

	n, err := c.LikePost(context.Background(), "p1", "alice")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = c.UnlikePost(context.Background(), "p1", "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestClient_FollowStatus(t *testing.T) {
	h := newHarness(t)
	h.gw.On("Follow", "alice", "bob").Return(nil)
	h.gw.On("IsFollowing", "alice", "bob").Return(true, nil)
	c := h.client(t, "alice")

	require.NoError(t, c.Follow(context.Background(), "alice", "bob"))
	ok, err := c.IsFollowing(context.Background(), "alice", "bob")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClient_SendMessageWithImage(t *testing.T) {
	h := newHarness(t)
	h.gw.On("SendMessage", "alice", "bob", "look", mock.MatchedBy(func(f *storage.File) bool {
		return f != nil && f.Name == "a.png" && f.ContentType == "image/png"
	})).Return(&model.Message{ID: "m1", SenderID: "alice", RecipientID: "bob", Content: "look", ImageURL: "/uploads/x.png"}, nil)

	msg, err := h.client(t, "alice").SendMessage(context.Background(), "alice", "bob", " look ", png(64))
	require.NoError(t, err)
	assert.Equal(t, "m1", msg.ID)
	assert.Equal(t, "/uploads/x.png", msg.ImageURL)
}

func TestClient_ConversationLifecycle(t *testing.T) {
	h := newHarness(t)
	h.gw.On("ListConversations", "alice").Return([]*model.Conversation{{ID: "m1", CounterpartID: "bob"}}, nil)
	h.gw.On("MarkRead", "alice", "bob").Return(nil)
	h.gw.On("DeleteConversation", "alice", "bob").Return(nil)
	c := h.client(t, "alice")
	ctx := context.Background()

	convs, err := c.ListConversations(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, "bob", convs[0].CounterpartID)

	require.NoError(t, c.MarkRead(ctx, "alice", "bob"))
	require.NoError(t, c.DeleteConversation(ctx, "alice", "bob"))
}

func TestClient_SearchUsersBlankQuery(t *testing.T) {
	h := newHarness(t)

	profiles, err := h.client(t, "alice").SearchUsers(context.Background(), "  ")
	require.NoError(t, err)
	assert.Empty(t, profiles)
	assert.Empty(t, h.gw.Calls)
}

func TestClient_UpdateProfile(t *testing.T) {
	h := newHarness(t)
	update := model.ProfileUpdate{DisplayName: "Alice"}
	h.gw.On("UpdateProfile", "alice", update).Return(&model.UserProfile{ID: "alice", DisplayName: "Alice"}, nil)

	p, err := h.client(t, "alice").UpdateProfile(context.Background(), "alice", update)
	require.NoError(t, err)
	assert.Equal(t, "Alice", p.DisplayName)
}

func TestClient_UploadImage(t *testing.T) {
	h := newHarness(t)
	h.gw.On("UploadImage", "alice", mock.Anything).Return("/uploads/images/alice/x.png", nil)

	u, err := h.client(t, "alice").UploadImage(context.Background(), "alice", png(16))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/images/alice/x.png", u)
}
