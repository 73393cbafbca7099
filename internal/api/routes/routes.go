package routes

import (
	"time"

	"collab-service/internal/api/handlers"
	"collab-service/internal/api/middleware"
	"collab-service/internal/database"
	"collab-service/internal/realtime"
	"collab-service/internal/repositories/postgres"
	"collab-service/internal/services"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

type Router struct {
	engine              *gin.Engine
	wsHandler           *handlers.WSHandler
	authHandler         *handlers.AuthHandler
	userHandler         *handlers.UserHandler
	projectHandler      *handlers.ProjectHandler
	taskHandler         *handlers.TaskHandler
	messageHandler      *handlers.MessageHandler
	notificationHandler *handlers.NotificationHandler
	attachmentHandler   *handlers.AttachmentHandler
	rateLimitMW         *middleware.RateLimitMiddleware
	authMW              *middleware.AuthMiddleware
}

func NewRouter(
	hub *realtime.Hub,
	redisService *services.RedisService,
	db *gorm.DB,
	storage *database.MinIOClient,
	jwtSecret string,
	jwtExpire time.Duration,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	// Add middlewares
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS())
	engine.Use(middleware.LogAPI())

	// Initialize repositories
	userRepo := postgres.NewUserRepository(db)
	projectRepo := postgres.NewProjectRepository(db)
	membershipRepo := postgres.NewMembershipRepository(db)
	taskRepo := postgres.NewTaskRepository(db)
	messageRepo := postgres.NewMessageRepository(db)
	notificationRepo := postgres.NewNotificationRepository(db)
	attachmentRepo := postgres.NewAttachmentRepository(db)
	activityRepo := postgres.NewActivityRepository(db)

	dispatcher := hub.Dispatcher()

	return &Router{
		engine:              engine,
		wsHandler:           handlers.NewWSHandler(hub, userRepo),
		authHandler:         handlers.NewAuthHandler(userRepo, jwtSecret, jwtExpire),
		userHandler:         handlers.NewUserHandler(userRepo, dispatcher),
		projectHandler:      handlers.NewProjectHandler(projectRepo, membershipRepo, userRepo, activityRepo, dispatcher),
		taskHandler:         handlers.NewTaskHandler(taskRepo, projectRepo, membershipRepo, userRepo, dispatcher),
		messageHandler:      handlers.NewMessageHandler(messageRepo, userRepo, dispatcher),
		notificationHandler: handlers.NewNotificationHandler(notificationRepo),
		attachmentHandler:   handlers.NewAttachmentHandler(attachmentRepo, taskRepo, membershipRepo, storage),
		rateLimitMW:         middleware.NewRateLimitMiddleware(redisService),
		authMW:              middleware.NewAuthMiddleware(jwtSecret),
	}
}

func (r *Router) SetupRoutes() {
	r.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.engine.Group("/api/v1")

	// WebSocket endpoint; the token rides the query string because browser
	// websocket clients cannot set an Authorization header.
	api.GET("/ws",
		r.authMW.WSAuth(),
		r.wsHandler.HandleWebSocket,
	)

	// Public routes (no authentication required)
	authRoutes := api.Group("/auth")
	authRoutes.Use(r.rateLimitMW.RateLimitIP(50, time.Minute))
	{
		authRoutes.POST("/register", r.authHandler.Register)
		authRoutes.POST("/login", r.authHandler.Login)
	}

	// Authenticated routes
	auth := api.Group("/")
	auth.Use(r.authMW.RequireAuth())
	{
		// User routes
		users := auth.Group("/users")
		users.Use(r.rateLimitMW.RateLimit(100, time.Minute))
		{
			users.GET("/profile", r.authHandler.GetProfile)
			users.PUT("/profile", r.authHandler.UpdateProfile)
			users.GET("/search", r.userHandler.Search)
			users.GET("/online/count", r.userHandler.OnlineCount)
			users.GET("/:userId", r.userHandler.GetByID)
			users.GET("/:userId/online", r.userHandler.Online)
		}

		// Project routes
		projects := auth.Group("/projects")
		projects.Use(r.rateLimitMW.RateLimit(100, time.Minute))
		{
			projects.GET("/", r.projectHandler.ListMine)
			projects.POST("/", r.projectHandler.Create)
			projects.GET("/:projectId", r.projectHandler.Get)
			projects.PUT("/:projectId", r.projectHandler.Update)
			projects.DELETE("/:projectId", r.projectHandler.Delete)
			// membership
			projects.GET("/:projectId/members", r.projectHandler.Members)
			projects.POST("/:projectId/members", r.projectHandler.AddMember)
			projects.DELETE("/:projectId/members/:userId", r.projectHandler.RemoveMember)
			projects.PUT("/:projectId/members/:userId/role", r.projectHandler.UpdateMemberRole)
			projects.GET("/:projectId/online", r.projectHandler.OnlineMembers)
			projects.GET("/:projectId/activity", r.projectHandler.Activity)
			// tasks and the discussion thread live under their project
			projects.GET("/:projectId/tasks", r.taskHandler.List)
			projects.POST("/:projectId/tasks", r.taskHandler.Create)
			projects.GET("/:projectId/comments", r.taskHandler.ListProjectComments)
			projects.POST("/:projectId/comments", r.taskHandler.CreateProjectComment)
		}

		// Task routes
		tasks := auth.Group("/tasks")
		tasks.Use(r.rateLimitMW.RateLimit(100, time.Minute))
		{
			tasks.GET("/mine", r.taskHandler.MyTasks)
			tasks.GET("/:taskId", r.taskHandler.Get)
			tasks.PUT("/:taskId", r.taskHandler.Update)
			tasks.DELETE("/:taskId", r.taskHandler.Delete)
			tasks.POST("/:taskId/assign", r.taskHandler.Assign)
			tasks.GET("/:taskId/comments", r.taskHandler.ListComments)
			tasks.POST("/:taskId/comments", r.taskHandler.CreateComment)
			tasks.GET("/:taskId/attachments", r.attachmentHandler.List)
			tasks.POST("/:taskId/attachments", r.attachmentHandler.Upload)
		}

		// Attachment routes
		attachments := auth.Group("/attachments")
		attachments.Use(r.rateLimitMW.RateLimit(100, time.Minute))
		{
			attachments.GET("/:attachmentId/url", r.attachmentHandler.DownloadURL)
			attachments.DELETE("/:attachmentId", r.attachmentHandler.Delete)
		}

		// Direct message routes
		messages := auth.Group("/messages")
		messages.Use(r.rateLimitMW.RateLimit(200, time.Minute))
		{
			messages.POST("/", r.messageHandler.Send)
			messages.GET("/conversations", r.messageHandler.Conversations)
			messages.GET("/unread/count", r.messageHandler.UnreadCount)
			messages.GET("/with/:userId", r.messageHandler.Conversation)
			messages.PUT("/with/:userId/read", r.messageHandler.MarkRead)
		}

		// Notification routes
		notifications := auth.Group("/notifications")
		notifications.Use(r.rateLimitMW.RateLimit(200, time.Minute))
		{
			notifications.GET("/", r.notificationHandler.List)
			notifications.GET("/unread/count", r.notificationHandler.UnreadCount)
			notifications.PUT("/:notificationId/read", r.notificationHandler.MarkRead)
		}
	}
}

func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
