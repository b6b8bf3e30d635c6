// Package client 通过 HTTP 和 websocket 访问服务端，实现 gateway.Gateway 与 realtime.Listener。
// 服务端以令牌中的用户作为查看者，接口中的查看者参数只用于本地校验。
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"socialverse-backend/internal/errors"
	"socialverse-backend/internal/gateway"
	"socialverse-backend/internal/model"
	"socialverse-backend/internal/storage"
	"socialverse-backend/internal/util"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

type Client struct {
	baseURL       string
	token         string
	http          *http.Client
	maxImageBytes int64
}

var _ gateway.Gateway = (*Client)(nil)

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithMaxImageBytes(n int64) Option {
	return func(c *Client) { c.maxImageBytes = n }
}

func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		token:         token,
		http:          &http.Client{Timeout: 30 * time.Second},
		maxImageBytes: storage.MaxImageBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type request struct {
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
}

// do 发送请求并把 data 解码到 out；除本地校验外的失败一律返回 OperationFailure
func (c *Client) do(ctx context.Context, op string, req request, out interface{}) error {
	u := c.baseURL + req.path
	if len(req.query) > 0 {
		u += "?" + req.query.Encode()
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, u, req.body)
	if err != nil {
		return errors.OperationFailed(op, err)
	}
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		util.Logger.Error("请求失败", zap.String("op", op), zap.Error(err))
		return errors.OperationFailed(op, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil && err != io.EOF {
		return errors.OperationFailed(op, fmt.Errorf("decode %s response: %w", req.path, err))
	}

	if resp.StatusCode >= http.StatusBadRequest {
		remote := errors.New(errors.ErrorCode(env.Code), env.Message)
		util.Logger.Error("请求被拒绝", zap.String("op", op), zap.Int("status", resp.StatusCode), zap.Error(remote))
		// 服务端的拒绝一律是调用失败，远端错误码只保留在 Err 中
		return errors.Wrap(errors.ErrOperationFailed, op+" failed", remote)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return errors.OperationFailed(op, fmt.Errorf("decode %s data: %w", req.path, err))
	}
	return nil
}

func (c *Client) get(ctx context.Context, op, path string, query url.Values, out interface{}) error {
	return c.do(ctx, op, request{method: http.MethodGet, path: path, query: query}, out)
}

func (c *Client) sendJSON(ctx context.Context, op, method, path string, body, out interface{}) error {
	req := request{method: method, path: path}
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.OperationFailed(op, err)
		}
		req.body = bytes.NewReader(data)
		req.contentType = "application/json"
	}
	return c.do(ctx, op, req, out)
}

func seg(s string) string {
	return url.PathEscape(s)
}

func (c *Client) ListPosts(ctx context.Context, viewerID, authorID string) ([]*model.Post, error) {
	q := url.Values{}
	if authorID != "" {
		q.Set("author", authorID)
	}
	var posts []*model.Post
	if err := c.get(ctx, "list posts", "/api/posts", q, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (c *Client) ListFeedPosts(ctx context.Context, viewerID string) ([]*model.Post, error) {
	var posts []*model.Post
	if err := c.get(ctx, "list feed", "/api/feed", nil, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (c *Client) ListFollowing(ctx context.Context, userID string) ([]string, error) {
	if err := gateway.RequireIDs(userID); err != nil {
		return nil, err
	}
	var ids []string
	if err := c.get(ctx, "list following", "/api/users/"+seg(userID)+"/following", nil, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (c *Client) ListPostLikes(ctx context.Context, postID string) ([]*model.Like, error) {
	if err := gateway.RequireIDs(postID); err != nil {
		return nil, err
	}
	var likes []*model.Like
	if err := c.get(ctx, "list likes", "/api/posts/"+seg(postID)+"/likes", nil, &likes); err != nil {
		return nil, err
	}
	return likes, nil
}

func (c *Client) ListMessages(ctx context.Context, viewerID, counterpartID string) ([]*model.Message, error) {
	if err := gateway.RequireIDs(counterpartID); err != nil {
		return nil, err
	}
	var msgs []*model.Message
	if err := c.get(ctx, "list messages", "/api/conversations/"+seg(counterpartID)+"/messages", nil, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (c *Client) ListConversations(ctx context.Context, viewerID string) ([]*model.Conversation, error) {
	var convs []*model.Conversation
	if err := c.get(ctx, "list conversations", "/api/conversations", nil, &convs); err != nil {
		return nil, err
	}
	return convs, nil
}

func (c *Client) SearchUsers(ctx context.Context, query string) ([]*model.UserProfile, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []*model.UserProfile{}, nil
	}
	var profiles []*model.UserProfile
	if err := c.get(ctx, "search users", "/api/users/search", url.Values{"q": {query}}, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

func (c *Client) GetProfile(ctx context.Context, userID string) (*model.UserProfile, error) {
	if err := gateway.RequireIDs(userID); err != nil {
		return nil, err
	}
	var p model.UserProfile
	if err := c.get(ctx, "get profile", "/api/users/"+seg(userID), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) GetProfileByUsername(ctx context.Context, username string) (*model.UserProfile, error) {
	if err := gateway.RequireIDs(username); err != nil {
		return nil, err
	}
	var p model.UserProfile
	if err := c.get(ctx, "get profile", "/api/users/by-username/"+seg(username), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) IsFollowing(ctx context.Context, followerID, followingID string) (bool, error) {
	if err := gateway.RequireIDs(followingID); err != nil {
		return false, err
	}
	var resp struct {
		Following bool `json:"following"`
	}
	if err := c.get(ctx, "follow status", "/api/users/"+seg(followingID)+"/follow/status", nil, &resp); err != nil {
		return false, err
	}
	return resp.Following, nil
}

func (c *Client) IsPostLiked(ctx context.Context, postID, userID string) (bool, error) {
	if err := gateway.RequireIDs(postID); err != nil {
		return false, err
	}
	var resp struct {
		Liked bool `json:"liked"`
	}
	if err := c.get(ctx, "like status", "/api/posts/"+seg(postID)+"/likes/status", nil, &resp); err != nil {
		return false, err
	}
	return resp.Liked, nil
}

func (c *Client) CreatePost(ctx context.Context, authorID, content string) (*model.Post, error) {
	content, err := gateway.ValidatePost(content)
	if err != nil {
		return nil, err
	}
	var post model.Post
	if err := c.sendJSON(ctx, "create post", http.MethodPost, "/api/posts", map[string]string{"content": content}, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

type likeResponse struct {
	LikeCount int `json:"like_count"`
}

func (c *Client) LikePost(ctx context.Context, postID, userID string) (int, error) {
	if err := gateway.RequireIDs(postID); err != nil {
		return 0, err
	}
	var resp likeResponse
	if err := c.sendJSON(ctx, "like post", http.MethodPost, "/api/posts/"+seg(postID)+"/likes", nil, &resp); err != nil {
		return 0, err
	}
	return resp.LikeCount, nil
}

func (c *Client) UnlikePost(ctx context.Context, postID, userID string) (int, error) {
	if err := gateway.RequireIDs(postID); err != nil {
		return 0, err
	}
	var resp likeResponse
	if err := c.sendJSON(ctx, "unlike post", http.MethodDelete, "/api/posts/"+seg(postID)+"/likes", nil, &resp); err != nil {
		return 0, err
	}
	return resp.LikeCount, nil
}

func (c *Client) Follow(ctx context.Context, followerID, followingID string) error {
	if err := gateway.ValidateFollow(followerID, followingID); err != nil {
		return err
	}
	return c.sendJSON(ctx, "follow", http.MethodPost, "/api/users/"+seg(followingID)+"/follow", nil, nil)
}

func (c *Client) Unfollow(ctx context.Context, followerID, followingID string) error {
	if err := gateway.ValidateFollow(followerID, followingID); err != nil {
		return err
	}
	return c.sendJSON(ctx, "unfollow", http.MethodDelete, "/api/users/"+seg(followingID)+"/follow", nil, nil)
}

// SendMessage 校验通过后才构造请求，图片随表单一起上传
func (c *Client) SendMessage(ctx context.Context, senderID, recipientID, text string, image *storage.File) (*model.Message, error) {
	if err := gateway.RequireIDs(recipientID); err != nil {
		return nil, err
	}
	text, err := gateway.ValidateMessage(text, image, c.maxImageBytes)
	if err != nil {
		return nil, err
	}

	body, contentType, err := multipartForm(map[string]string{"content": text}, "image", image)
	if err != nil {
		return nil, errors.OperationFailed("send message", err)
	}
	var msg model.Message
	err = c.do(ctx, "send message", request{
		method:      http.MethodPost,
		path:        "/api/conversations/" + seg(recipientID) + "/messages",
		body:        body,
		contentType: contentType,
	}, &msg)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *Client) MarkRead(ctx context.Context, viewerID, counterpartID string) error {
	if err := gateway.RequireIDs(counterpartID); err != nil {
		return err
	}
	return c.sendJSON(ctx, "mark read", http.MethodPost, "/api/conversations/"+seg(counterpartID)+"/read", nil, nil)
}

func (c *Client) DeleteConversation(ctx context.Context, ownerID, counterpartID string) error {
	if err := gateway.RequireIDs(counterpartID); err != nil {
		return err
	}
	return c.sendJSON(ctx, "delete conversation", http.MethodDelete, "/api/conversations/"+seg(counterpartID), nil, nil)
}

func (c *Client) UpdateProfile(ctx context.Context, userID string, update model.ProfileUpdate) (*model.UserProfile, error) {
	var p model.UserProfile
	if err := c.sendJSON(ctx, "update profile", http.MethodPut, "/api/profile", update, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) UploadImage(ctx context.Context, ownerID string, file *storage.File) (string, error) {
	if err := storage.ValidateImage(file, c.maxImageBytes); err != nil {
		return "", err
	}
	body, contentType, err := multipartForm(nil, "file", file)
	if err != nil {
		return "", errors.OperationFailed("upload image", err)
	}
	var resp struct {
		URL string `json:"url"`
	}
	err = c.do(ctx, "upload image", request{
		method:      http.MethodPost,
		path:        "/api/uploads",
		body:        body,
		contentType: contentType,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.URL, nil
}

// multipartForm 图片不超过上限，直接在内存中构造表单
func multipartForm(fields map[string]string, fileField string, file *storage.File) (io.Reader, string, error) {
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}
	if file != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, fileField, file.Name))
		h.Set("Content-Type", file.ContentType)
		part, err := mw.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if file.Body != nil {
			if _, err := io.Copy(part, file.Body); err != nil {
				return nil, "", err
			}
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf, mw.FormDataContentType(), nil
}
