package server

import (
	"context"
	"net/http"

	"edusloth/app/config"
	"edusloth/app/database"
	"edusloth/app/filewatcher"
	"edusloth/app/handler"
	"edusloth/app/logger"
	"edusloth/app/middleware"
	"edusloth/app/service"
	"edusloth/app/storage"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server 表示 HTTP 服务器
type Server struct {
	Config *config.Config
	Logger *logger.Logger
	gin    *gin.Engine
	http   *http.Server

	reminderScheduler *service.ReminderScheduler
	importWatcher     *filewatcher.ImportWatcher
}

// New 创建一个新的 Server 实例
func New(cfg *config.Config, log *logger.Logger) (*Server, error) {
	router := gin.Default()
	router.Use(middleware.Prometheus())

	db := database.GetDB()

	st, err := storage.New(&cfg.Storage, log)
	if err != nil {
		return nil, err
	}

	// 业务服务
	contents := service.NewContentService(db, st, log)
	transcriptions := service.NewTranscriptionService(db, st, &cfg.OpenAI, log)
	ai := service.NewAIService(db, st, &cfg.OpenAI, log)
	reminders := service.NewReminderService(db, log)

	watcher, err := filewatcher.New(&cfg.Import, db, contents, log)
	if err != nil {
		return nil, err
	}

	s := &Server{
		Config: cfg,
		Logger: log,
		gin:    router,
		http: &http.Server{
			Addr:    ":" + cfg.Server.Port,
			Handler: router,
		},
		reminderScheduler: service.NewReminderScheduler(db, &cfg.Reminder, log),
		importWatcher:     watcher,
	}

	s.setupRoutes(contents, transcriptions, ai, reminders)

	return s, nil
}

// Start 启动服务器
func (s *Server) Start() error {
	s.Logger.Infof("在端口 %s 启动服务器", s.http.Addr)

	// 启动提醒扫描器
	if err := s.reminderScheduler.Start(); err != nil {
		return err
	}

	// 启动导入目录监控
	if err := s.importWatcher.Start(); err != nil {
		return err
	}

	return s.http.ListenAndServe()
}

// Shutdown 优雅关闭
func (s *Server) Shutdown(ctx context.Context) error {
	s.reminderScheduler.Stop()

	if err := s.importWatcher.Stop(); err != nil {
		s.Logger.Errorf("停止导入监控失败: %v", err)
	}

	// 关闭数据库连接
	if err := database.Close(); err != nil {
		s.Logger.Errorf("关闭数据库连接失败: %v", err)
	}
	return s.http.Shutdown(ctx)
}

// setupRoutes 设置API路由
func (s *Server) setupRoutes(contents *service.ContentService, transcriptions *service.TranscriptionService, ai *service.AIService, reminders *service.ReminderService) {
	db := database.GetDB()

	authHandler := handler.NewAuthHandler(s.Config, db)
	contentHandler := handler.NewContentHandler(s.Config, contents)
	transcriptionHandler := handler.NewTranscriptionHandler(contents, transcriptions)
	aiHandler := handler.NewAIGenerationHandler(contents, transcriptions, ai)
	reminderHandler := handler.NewReminderHandler(reminders, contents)

	s.gin.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.gin.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API路由组
	api := s.gin.Group("/api")

	// 认证相关路由（不需要JWT验证）
	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/register", authHandler.Register)
	}

	// 需要JWT验证的路由
	protected := api.Group("/")
	protected.Use(middleware.JWTAuth(s.Config))
	{
		// 用户相关
		protected.GET("/users/me", authHandler.Me)
		protected.PUT("/users/me", authHandler.UpdateMe)
		protected.GET("/users/:id", authHandler.GetUser)

		// 学习内容相关路由
		content := protected.Group("/content")
		{
			content.POST("/upload", contentHandler.Upload)
			content.GET("", contentHandler.List)
			content.GET("/:id", contentHandler.Get)
			content.GET("/:id/download", contentHandler.DownloadURL)
			content.DELETE("/:id", contentHandler.Delete)
		}

		// 转写相关路由
		transcription := protected.Group("/transcription")
		{
			transcription.POST("/:id/start", transcriptionHandler.Start)
			transcription.GET("/:id", transcriptionHandler.Get)
		}

		// AI 生成相关路由
		aiGroup := protected.Group("/ai")
		{
			aiGroup.POST("/generate/:id/:type", aiHandler.Start)
			aiGroup.GET("/generated/:id", aiHandler.GetAll)
			aiGroup.GET("/generated/:id/mindmap/image", aiHandler.MindmapImage)
			aiGroup.GET("/generated/:id/:type", aiHandler.GetByType)
		}

		// 提醒相关路由
		reminderGroup := protected.Group("/reminders")
		{
			reminderGroup.GET("", reminderHandler.List)
			reminderGroup.GET("/upcoming", reminderHandler.Upcoming)
			reminderGroup.POST("", reminderHandler.Create)
			reminderGroup.GET("/:id", reminderHandler.Get)
			reminderGroup.PUT("/:id", reminderHandler.Update)
			reminderGroup.DELETE("/:id", reminderHandler.Delete)
		}
	}
}
