package community

import (
	"net/http"

	"socialverse-backend/internal/errors"
	"socialverse-backend/internal/gateway"
	"socialverse-backend/internal/middleware"

	"github.com/gin-gonic/gin"
)

type CommunityHandler struct {
	gw gateway.Gateway
}

func NewCommunityHandler(gw gateway.Gateway) *CommunityHandler {
	return &CommunityHandler{gw: gw}
}

type createPostRequest struct {
	Content string `json:"content" binding:"required,notblank"`
}

// ListPosts 全部帖子，或通过 ?author= 指定作者
func (h *CommunityHandler) ListPosts(c *gin.Context) {
	posts, err := h.gw.ListPosts(c.Request.Context(), middleware.UserID(c), c.Query("author"))
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, posts, "")
}

// ListFeed 关注的用户发布的帖子
func (h *CommunityHandler) ListFeed(c *gin.Context) {
	posts, err := h.gw.ListFeedPosts(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, posts, "")
}

func (h *CommunityHandler) CreatePost(c *gin.Context) {
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.HandleError(c, errors.Wrap(errors.ErrValidation, "无效的请求数据", err))
		return
	}

	post, err := h.gw.CreatePost(c.Request.Context(), middleware.UserID(c), req.Content)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleStatus(c, http.StatusCreated, post, "帖子创建成功")
}

func (h *CommunityHandler) ListPostLikes(c *gin.Context) {
	likes, err := h.gw.ListPostLikes(c.Request.Context(), c.Param("id"))
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, likes, "")
}

func (h *CommunityHandler) GetLikeStatus(c *gin.Context) {
	liked, err := h.gw.IsPostLiked(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, gin.H{"liked": liked}, "")
}

func (h *CommunityHandler) LikePost(c *gin.Context) {
	count, err := h.gw.LikePost(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, gin.H{"like_count": count, "liked": true}, "")
}

func (h *CommunityHandler) UnlikePost(c *gin.Context) {
	count, err := h.gw.UnlikePost(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, gin.H{"like_count": count, "liked": false}, "")
}

func (h *CommunityHandler) FollowUser(c *gin.Context) {
	if err := h.gw.Follow(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, gin.H{"following": true}, "")
}

func (h *CommunityHandler) UnfollowUser(c *gin.Context) {
	if err := h.gw.Unfollow(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, gin.H{"following": false}, "")
}

func (h *CommunityHandler) GetFollowStatus(c *gin.Context) {
	following, err := h.gw.IsFollowing(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, gin.H{"following": following}, "")
}

// GetFollowing 用户关注的ID列表
func (h *CommunityHandler) GetFollowing(c *gin.Context) {
	ids, err := h.gw.ListFollowing(c.Request.Context(), c.Param("id"))
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, ids, "")
}
