package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"socialverse-backend/config"
	"socialverse-backend/internal/api"
	"socialverse-backend/internal/middleware"
	"socialverse-backend/internal/realtime"
	"socialverse-backend/internal/repository/mysql"
	"socialverse-backend/internal/service"
	"socialverse-backend/internal/storage"
	"socialverse-backend/internal/util"

	"go.uber.org/zap"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			util.Logger.Error("程序发生严重错误", zap.Any("error", r))
		}
	}()

	// 初始化配置
	config.Init()

	// 初始化日志
	util.InitLogger(config.AppConfig.LogLevel)
	defer util.Logger.Sync()

	util.Logger.Info("应用程序启动")

	ctx := context.Background()
	cfg := config.AppConfig

	// 连接数据库
	dsn := mysql.DSN(cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
	db, err := mysql.Open(ctx, dsn)
	if err != nil {
		util.Logger.Fatal("连接数据库失败", zap.Error(err))
	}
	defer db.Close()
	util.Logger.Info("数据库连接成功")

	if err := mysql.EnsureSchema(ctx, db); err != nil {
		util.Logger.Fatal("初始化数据库结构失败", zap.Error(err))
	}

	store, closeStore := newStorage(ctx, cfg)
	defer closeStore()

	// 变更分发：单实例只用进程内 Hub，配置了 NATS 时经 NATS 在实例间广播
	hub := realtime.NewHub()
	var publisher realtime.Publisher = hub
	var listener realtime.Listener = hub
	if cfg.NATSURL != "" {
		nc, err := realtime.ConnectNATS(cfg.NATSURL)
		if err != nil {
			util.Logger.Fatal("连接 NATS 失败", zap.Error(err))
		}
		bridge := realtime.NewNATSBridge(nc, cfg.NATSSubject, hub)
		if err := bridge.Start(); err != nil {
			util.Logger.Fatal("订阅 NATS 失败", zap.Error(err))
		}
		defer bridge.Close()
		publisher, listener = bridge, bridge
		util.Logger.Info("已启用 NATS 变更广播", zap.String("subject", cfg.NATSSubject))
	}

	// 初始化存储库、服务
	socialService := service.NewSocialService(service.Repositories{
		Posts:    mysql.NewCommunityRepository(db),
		Follows:  mysql.NewFollowRepository(db),
		Profiles: mysql.NewProfileRepository(db),
		Messages: mysql.NewMessageRepository(db),
	}, store, publisher, cfg.MaxImageBytes)

	realtimeServer := realtime.NewServer(listener, realtime.WithCheckOrigin(api.AllowOrigin(cfg.FrontendURL)))

	// 初始化错误监控
	errorMonitor := middleware.NewErrorMonitor()

	routerCfg := api.RouterConfig{
		JWTSecret:      cfg.JWTSecret,
		FrontendURL:    cfg.FrontendURL,
		MaxImageBytes:  cfg.MaxImageBytes,
		RequestTimeout: 15 * time.Second,
		Monitor:        errorMonitor,
	}
	if cfg.StorageBackend == "local" {
		routerCfg.LocalStoragePath = cfg.LocalStoragePath
	}
	r := api.NewRouter(routerCfg, socialService, realtimeServer)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 在一个新的 goroutine 中启动服务器
	go func() {
		util.Logger.Info("服务器正在启动", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			util.Logger.Fatal("启动服务器失败", zap.Error(err))
		}
	}()

	if cfg.Debug {
		for _, route := range r.Routes() {
			util.Logger.Debug("路由",
				zap.String("method", route.Method),
				zap.String("path", route.Path),
				zap.String("handler", route.Handler))
		}
	}

	// 等待中断信号以优雅地关闭服务器（设置 5 秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	util.Logger.Info("正在关闭服务器...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		util.Logger.Error("服务器强制关闭", zap.Error(err))
	}

	util.Logger.Info("服务器已优雅关闭")
}

// newStorage 按配置选择对象存储后端
func newStorage(ctx context.Context, cfg config.Config) (storage.Storage, func()) {
	switch cfg.StorageBackend {
	case "s3":
		s3, err := storage.NewS3Client(cfg.S3Region, cfg.S3Bucket, cfg.MaxImageBytes)
		if err != nil {
			util.Logger.Fatal("初始化 S3 存储失败", zap.Error(err))
		}
		util.Logger.Info("使用 S3 存储", zap.String("bucket", cfg.S3Bucket))
		return s3, func() {}
	case "gcs":
		gcs, err := storage.NewGCSClient(ctx, cfg.GCSBucketName, cfg.GCSCredentialsFile, cfg.MaxImageBytes)
		if err != nil {
			util.Logger.Fatal("初始化 GCS 存储失败", zap.Error(err))
		}
		util.Logger.Info("使用 GCS 存储", zap.String("bucket", cfg.GCSBucketName))
		return gcs, func() {
			if err := gcs.Close(); err != nil {
				util.Logger.Warn("关闭 GCS 客户端失败", zap.Error(err))
			}
		}
	default:
		local, err := storage.NewLocalStorage(cfg.LocalStoragePath, cfg.BackendURL+"/uploads", cfg.MaxImageBytes)
		if err != nil {
			util.Logger.Fatal("初始化本地存储失败", zap.Error(err))
		}
		util.Logger.Info("上传文件夹已创建或已存在", zap.String("path", cfg.LocalStoragePath))
		return local, func() {}
	}
}
