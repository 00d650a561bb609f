package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gorm.io/gorm"

	"jobPilot/internal/ai"
	"jobPilot/internal/api"
	"jobPilot/internal/automation"
	"jobPilot/internal/config"
	"jobPilot/internal/database"
	"jobPilot/internal/docgen"
	"jobPilot/internal/hub"
	"jobPilot/internal/metrics"
	"jobPilot/internal/profile"
	"jobPilot/internal/queue"
	"jobPilot/internal/scoring"
	"jobPilot/internal/scrape"
	"jobPilot/internal/storage"
	"jobPilot/internal/tasks"
	"jobPilot/internal/worker"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	log.Printf("api bootstrapped with db host=%s port=%d db=%s sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	log.Printf("database connection ready")

	if err := database.Migrate(db); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}
	log.Printf("database migrated")

	seedProfile(db)

	uploads, err := storage.NewClient(cfg.Paths.UploadDir)
	if err != nil {
		log.Fatalf("init upload storage: %v", err)
	}
	outputs, err := storage.NewClient(cfg.Paths.OutputDir)
	if err != nil {
		log.Fatalf("init output storage: %v", err)
	}
	log.Printf("storage ready, uploads=%s outputs=%s", uploads.BaseDir(), outputs.BaseDir())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var provider ai.Provider
	if cfg.AI.APIKey == "" {
		logger.Warn("ai provider not configured, ai-dependent tasks will fail")
		provider = ai.Disabled{}
	} else {
		gemini, err := ai.NewGemini(ctx, logger, cfg.AI)
		if err != nil {
			log.Fatalf("init ai provider: %v", err)
		}
		provider = gemini
		logger.Info("ai provider ready", slog.String("model", cfg.AI.Model))
	}

	scrapers := scrape.New(cfg.Scrape, logger)
	docs := docgen.NewRenderer(provider, outputs, logger)
	scorer := scoring.NewScorer(provider, logger)
	parser := profile.NewParser(provider, logger)
	applicator := automation.New(cfg, uploads, outputs, logger)

	events := hub.NewHub(logger, cfg.Hub.SendBuffer)

	registry := tasks.NewRegistry()
	registry.Use(metrics.QueueMiddleware())
	worker.New(db, logger, provider, scrapers, docs, scorer, parser, applicator, uploads).
		Register(registry)

	manager, err := queue.NewManager(logger, registry, events, cfg.Queue.HistorySize)
	if err != nil {
		log.Fatalf("init queue manager: %v", err)
	}

	metrics.RegisterQueueDepth(func() float64 {
		return float64(manager.Status().PendingCount)
	})
	metrics.RegisterHub(
		func() float64 { return float64(events.ClientCount()) },
		func() float64 { return float64(events.Broadcasts()) },
		func() float64 { return float64(events.Dropped()) },
	)

	router := api.NewRouter(cfg, logger)
	api.RegisterRoutes(router, db, manager, events, uploads, outputs, cfg, logger)

	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		manager.Run(ctx)
	}()

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.API.Port),
		Handler: router,
	}
	go func() {
		logger.Info("api listening", slog.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server stopped", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", slog.Any("error", err))
	}

	// worker 不再开始新任务，等手上这个收尾。
	<-workerDone
	logger.Info("queue worker drained")
}

// seedProfile 保证默认档案行存在，系统按单用户设计。
func seedProfile(db *gorm.DB) {
	var prof database.Profile
	switch err := db.First(&prof, database.DefaultProfileID).Error; {
	case err == nil:
		// default profile already present
	case errors.Is(err, gorm.ErrRecordNotFound):
		seeded := database.Profile{Model: gorm.Model{ID: database.DefaultProfileID}}
		if err := db.Create(&seeded).Error; err != nil {
			log.Fatalf("seed default profile: %v", err)
		}
		log.Printf("seeded default profile with ID %d", database.DefaultProfileID)
	default:
		log.Fatalf("query default profile: %v", err)
	}
}
