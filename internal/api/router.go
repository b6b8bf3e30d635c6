package api

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"socialverse-backend/internal/api/community"
	"socialverse-backend/internal/api/message"
	realtimeapi "socialverse-backend/internal/api/realtime"
	"socialverse-backend/internal/api/user"
	"socialverse-backend/internal/gateway"
	"socialverse-backend/internal/middleware"
	"socialverse-backend/internal/realtime"
	"socialverse-backend/internal/util"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var registerValidators sync.Once

type RouterConfig struct {
	JWTSecret        string
	FrontendURL      string
	LocalStoragePath string // 为空时不提供 /uploads 静态文件
	MaxImageBytes    int64
	RequestTimeout   time.Duration
	Monitor          *middleware.ErrorMonitor
}

// NewRouter 注册全部 HTTP 路由；realtimeServer 为 nil 时不提供 /api/realtime
func NewRouter(cfg RouterConfig, gw gateway.Gateway, realtimeServer *realtime.Server) *gin.Engine {
	if cfg.Monitor == nil {
		cfg.Monitor = middleware.NewErrorMonitor()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 15 * time.Second
	}

	registerValidators.Do(func() {
		// 注册自定义验证器
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			if err := util.RegisterValidators(v); err != nil {
				util.Logger.Error("注册验证器失败", zap.Error(err))
			}
		}
	})

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(middleware.ErrorMonitorMiddleware(cfg.Monitor))
	r.Use(middleware.RecoveryMiddleware())

	// 配置 CORS
	corsConfig := cors.DefaultConfig()
	if cfg.FrontendURL != "" {
		corsConfig.AllowOrigins = []string{cfg.FrontendURL}
		corsConfig.AllowCredentials = true
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	corsConfig.ExposeHeaders = []string{"Content-Length", "Content-Type"}
	r.Use(cors.New(corsConfig))

	if cfg.LocalStoragePath != "" {
		r.Static("/uploads", cfg.LocalStoragePath)
	}
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if gin.IsDebugging() {
		r.GET("/debug/errors", func(c *gin.Context) {
			c.JSON(http.StatusOK, cfg.Monitor.GetErrorCounts())
		})
	}

	communityHandler := community.NewCommunityHandler(gw)
	profileHandler := user.NewProfileHandler(gw)
	messageHandler := message.NewMessageHandler(gw, cfg.MaxImageBytes)

	auth := middleware.AuthMiddleware(cfg.JWTSecret)
	optionalAuth := middleware.OptionalAuthMiddleware(cfg.JWTSecret)

	// 定义 API 路由
	api := r.Group("/api")
	api.Use(middleware.TimeoutMiddleware(cfg.RequestTimeout))
	{
		// 帖子与点赞
		api.GET("/posts", optionalAuth, communityHandler.ListPosts)
		api.POST("/posts", auth, communityHandler.CreatePost)
		api.GET("/feed", auth, communityHandler.ListFeed)
		api.GET("/posts/:id/likes", communityHandler.ListPostLikes)
		api.GET("/posts/:id/likes/status", auth, communityHandler.GetLikeStatus)
		api.POST("/posts/:id/likes", auth, communityHandler.LikePost)
		api.DELETE("/posts/:id/likes", auth, communityHandler.UnlikePost)

		// 用户与关注
		api.GET("/users/search", profileHandler.SearchUsers)
		api.GET("/users/by-username/:username", profileHandler.GetUserByUsername)
		api.GET("/users/:id", profileHandler.GetUser)
		api.GET("/users/:id/following", communityHandler.GetFollowing)
		api.GET("/users/:id/follow/status", auth, communityHandler.GetFollowStatus)
		api.POST("/users/:id/follow", auth, communityHandler.FollowUser)
		api.DELETE("/users/:id/follow", auth, communityHandler.UnfollowUser)

		// 当前用户资料
		api.GET("/profile", auth, profileHandler.GetProfile)
		api.PUT("/profile", auth, profileHandler.UpdateProfile)
		api.POST("/profile/avatar", auth, profileHandler.UploadAvatar)

		// 私信
		api.GET("/conversations", auth, messageHandler.ListConversations)
		api.GET("/conversations/:user_id/messages", auth, messageHandler.ListMessages)
		api.POST("/conversations/:user_id/messages", auth, messageHandler.SendMessage)
		api.POST("/conversations/:user_id/read", auth, messageHandler.MarkRead)
		api.DELETE("/conversations/:user_id", auth, messageHandler.DeleteConversation)

		api.POST("/uploads", auth, messageHandler.UploadImage)
	}

	// websocket 连接是长连接，不套用请求超时
	if realtimeServer != nil {
		realtimeHandler := realtimeapi.NewRealtimeHandler(realtimeServer)
		r.GET("/api/realtime", auth, realtimeHandler.Connect)
	}

	return r
}

// AllowOrigin 供 websocket 升级时做跨域校验
func AllowOrigin(frontendURL string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || frontendURL == "" {
			return true
		}
		return strings.EqualFold(strings.TrimRight(origin, "/"), strings.TrimRight(frontendURL, "/"))
	}
}
