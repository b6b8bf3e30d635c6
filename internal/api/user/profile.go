package user

import (
	"socialverse-backend/internal/errors"
	"socialverse-backend/internal/gateway"
	"socialverse-backend/internal/middleware"
	"socialverse-backend/internal/model"
	"socialverse-backend/internal/storage"
	"socialverse-backend/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ProfileHandler struct {
	gw gateway.Gateway
}

func NewProfileHandler(gw gateway.Gateway) *ProfileHandler {
	return &ProfileHandler{gw: gw}
}

// GetProfile 当前用户的资料
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	profile, err := h.gw.GetProfile(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, profile, "")
}

func (h *ProfileHandler) GetUser(c *gin.Context) {
	profile, err := h.gw.GetProfile(c.Request.Context(), c.Param("id"))
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, profile, "")
}

func (h *ProfileHandler) GetUserByUsername(c *gin.Context) {
	profile, err := h.gw.GetProfileByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, profile, "")
}

func (h *ProfileHandler) SearchUsers(c *gin.Context) {
	profiles, err := h.gw.SearchUsers(c.Request.Context(), c.Query("q"))
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, profiles, "")
}

func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	var update model.ProfileUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		util.Logger.Debug("更新用户资料失败，无效的请求数据", zap.Error(err))
		errors.HandleError(c, errors.Wrap(errors.ErrValidation, "无效的请求数据", err))
		return
	}

	profile, err := h.gw.UpdateProfile(c.Request.Context(), middleware.UserID(c), update)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, profile, "资料更新成功")
}

// UploadAvatar 上传头像并写入资料
func (h *ProfileHandler) UploadAvatar(c *gin.Context) {
	fh, err := c.FormFile("avatar")
	if err != nil {
		errors.HandleError(c, errors.Wrap(errors.ErrBadRequest, "未找到上传的文件", err))
		return
	}
	file, closer, err := storage.FromMultipart(fh)
	if err != nil {
		errors.HandleError(c, errors.Wrap(errors.ErrBadRequest, "无法读取上传的文件", err))
		return
	}
	defer closer.Close()

	userID := middleware.UserID(c)
	url, err := h.gw.UploadImage(c.Request.Context(), userID, file)
	if err != nil {
		errors.HandleError(c, err)
		return
	}

	profile, err := h.gw.UpdateProfile(c.Request.Context(), userID, model.ProfileUpdate{AvatarURL: url})
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, profile, "头像上传成功")
}
