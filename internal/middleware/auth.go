package middleware

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"socialverse-backend/internal/errors"
	"socialverse-backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// ContextUserID 认证通过后写入 gin.Context 的用户ID键
const ContextUserID = "user_id"

// bearerToken 优先读取 Authorization 头；浏览器的 websocket 无法设置请求头，退回到 access_token 参数
func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if token := c.Query("access_token"); token != "" {
			return token, true
		}
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if !(len(parts) == 2 && parts[0] == "Bearer") {
		return "", false
	}
	return parts[1], true
}

func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			errors.HandleError(c, errors.New(errors.ErrUnauthorized, "需要认证"))
			c.Abort()
			return
		}

		userID, err := util.ValidateToken(secret, token)
		if err != nil {
			util.Logger.Debug("令牌校验失败", zap.Error(err), zap.String("path", c.Request.URL.Path))
			if stderrors.Is(err, jwt.ErrTokenExpired) {
				errors.HandleError(c, errors.Wrap(errors.ErrTokenExpired, "令牌已过期", err))
			} else {
				errors.HandleError(c, errors.Wrap(errors.ErrInvalidToken, "无效的令牌", err))
			}
			c.Abort()
			return
		}

		c.Set(ContextUserID, userID)
		c.Next()
	}
}

// OptionalAuthMiddleware 公开接口使用：有合法令牌时记录查看者，否则匿名访问
func OptionalAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearerToken(c); ok {
			if userID, err := util.ValidateToken(secret, token); err == nil {
				c.Set(ContextUserID, userID)
			}
		}
		c.Next()
	}
}

// TimeoutMiddleware 给请求上下文设置超时，网关调用在超时后被取消
func TimeoutMiddleware(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// UserID 读取已认证的用户ID，未认证时返回空字符串
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}
