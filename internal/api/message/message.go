package message

import (
	stderrors "errors"
	"io"
	"net/http"

	"socialverse-backend/internal/errors"
	"socialverse-backend/internal/gateway"
	"socialverse-backend/internal/middleware"
	"socialverse-backend/internal/storage"

	"github.com/gin-gonic/gin"
)

// 表单除图片外只有一个文本字段
const formOverhead = 1 << 20

type MessageHandler struct {
	gw            gateway.Gateway
	maxImageBytes int64
}

func NewMessageHandler(gw gateway.Gateway, maxImageBytes int64) *MessageHandler {
	if maxImageBytes <= 0 {
		maxImageBytes = storage.MaxImageBytes
	}
	return &MessageHandler{gw: gw, maxImageBytes: maxImageBytes}
}

func (h *MessageHandler) ListConversations(c *gin.Context) {
	convs, err := h.gw.ListConversations(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, convs, "")
}

func (h *MessageHandler) ListMessages(c *gin.Context) {
	msgs, err := h.gw.ListMessages(c.Request.Context(), middleware.UserID(c), c.Param("user_id"))
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, msgs, "")
}

// SendMessage multipart 表单：content 文本，image 可选图片
func (h *MessageHandler) SendMessage(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxImageBytes+formOverhead)

	image, closer, err := formFile(c, "image")
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	if closer != nil {
		defer closer.Close()
	}

	msg, err := h.gw.SendMessage(c.Request.Context(), middleware.UserID(c), c.Param("user_id"), c.PostForm("content"), image)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleStatus(c, http.StatusCreated, msg, "")
}

func (h *MessageHandler) MarkRead(c *gin.Context) {
	if err := h.gw.MarkRead(c.Request.Context(), middleware.UserID(c), c.Param("user_id")); err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, nil, "")
}

func (h *MessageHandler) DeleteConversation(c *gin.Context) {
	if err := h.gw.DeleteConversation(c.Request.Context(), middleware.UserID(c), c.Param("user_id")); err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, nil, "会话已删除")
}

// UploadImage 通用图片上传，返回公开URL
func (h *MessageHandler) UploadImage(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxImageBytes+formOverhead)

	file, closer, err := formFile(c, "file")
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	if file == nil {
		errors.HandleError(c, errors.New(errors.ErrBadRequest, "未找到上传的文件"))
		return
	}
	defer closer.Close()

	url, err := h.gw.UploadImage(c.Request.Context(), middleware.UserID(c), file)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleStatus(c, http.StatusCreated, gin.H{"url": url}, "")
}

// formFile 字段不存在时返回 nil；请求体超过上限视为图片过大
func formFile(c *gin.Context, field string) (*storage.File, io.Closer, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case stderrors.Is(err, http.ErrMissingFile), stderrors.Is(err, http.ErrNotMultipart):
			return nil, nil, nil
		case stderrors.As(err, &tooLarge):
			return nil, nil, errors.Wrap(errors.ErrImageTooLarge, "上传的文件过大", err)
		}
		return nil, nil, errors.Wrap(errors.ErrBadRequest, "无法解析表单数据", err)
	}
	file, closer, err := storage.FromMultipart(fh)
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrBadRequest, "无法读取上传的文件", err)
	}
	return file, closer, nil
}
