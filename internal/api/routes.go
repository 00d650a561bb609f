package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"jobPilot/internal/config"
	"jobPilot/internal/hub"
	"jobPilot/internal/queue"
	"jobPilot/internal/storage"
)

// RegisterRoutes 注册 API 路由，不包含 /api 前缀。
func RegisterRoutes(
	router *gin.Engine,
	db *gorm.DB,
	manager *queue.Manager,
	events *hub.Hub,
	uploads *storage.Client,
	outputs *storage.Client,
	cfg *config.Config,
	logger *slog.Logger,
) {
	scraperHandler := NewScraperHandler(manager)
	generatorHandler := NewGeneratorHandler(db, manager)
	chatHandler := NewChatHandler(manager)
	profileHandler := NewProfileHandler(db, manager, uploads, cfg.API.ClamdAddr, logger)
	queueHandler := NewQueueHandler(manager, events)
	jobHandler := NewJobHandler(db, logger)
	documentHandler := NewDocumentHandler(outputs, logger)
	wsHandler := NewWsHandler(events, manager, logger, cfg.API.AllowedOrigins)

	v1 := router.Group("/v1")
	{
		v1.GET("/ws", wsHandler.HandleConnection)

		v1.POST("/scrapers/run", scraperHandler.RunScraper)

		generators := v1.Group("/generators")
		{
			generators.POST("/score_all", generatorHandler.ScoreAll)
			generators.POST("/:job_id/resume", generatorHandler.GenerateResume)
			generators.POST("/:job_id/cover_letter", generatorHandler.GenerateCoverLetter)
			generators.POST("/:job_id/documents", generatorHandler.GenerateDocuments)
			generators.POST("/:job_id/score", generatorHandler.ScoreJob)
			generators.POST("/:job_id/apply", generatorHandler.ApplyToJob)
		}

		v1.POST("/chat", chatHandler.PostMessage)

		profileGroup := v1.Group("/profile")
		{
			profileGroup.GET("", profileHandler.GetProfile)
			profileGroup.PUT("", profileHandler.UpdateProfile)
			profileGroup.POST("/resume", profileHandler.UploadResume)
		}

		queueGroup := v1.Group("/queue")
		{
			queueGroup.GET("/status", queueHandler.Status)
			queueGroup.GET("/tasks", queueHandler.ListTasks)
			queueGroup.GET("/tasks/:id", queueHandler.GetTask)
			queueGroup.DELETE("/tasks/:id", queueHandler.CancelTask)
		}

		jobsGroup := v1.Group("/jobs")
		{
			jobsGroup.GET("", jobHandler.ListJobs)
			jobsGroup.GET("/:id", jobHandler.GetJob)
			jobsGroup.POST("/:id/applied", jobHandler.MarkApplied)
		}

		v1.GET("/documents", documentHandler.Download)
	}
}
