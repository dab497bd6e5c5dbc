package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/lectern-ai/lectern/internal/config"
	"github.com/lectern-ai/lectern/internal/db"
	"github.com/lectern-ai/lectern/internal/filestore"
	"github.com/lectern-ai/lectern/internal/handler"
	"github.com/lectern-ai/lectern/internal/ingest"
	"github.com/lectern-ai/lectern/internal/job"
	"github.com/lectern-ai/lectern/internal/middleware"
	"github.com/lectern-ai/lectern/internal/repo"
	"github.com/lectern-ai/lectern/internal/schedule"
	"github.com/lectern-ai/lectern/internal/service"
	"github.com/lectern-ai/lectern/internal/task"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "lectern",
		Short: "lectern study assistant backend",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run lectern server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

			conn, err := db.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := db.ApplyMigrations(conn); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, conn)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config, conn *sql.DB) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logutil.GetLogger(ctx).Info("starting server",
		zap.Int("port", cfg.Port),
		zap.String("upload_dir", cfg.Storage.UploadDir),
		zap.String("audio_dir", cfg.Storage.AudioDir),
	)

	workspaceRepo := repo.NewWorkspaceRepo(conn)
	documentRepo := repo.NewDocumentRepo(conn)
	chunkRepo := repo.NewChunkRepo(conn)
	chatRepo := repo.NewChatRepo(conn)
	artifactRepo := repo.NewArtifactRepo(conn)
	podcastRepo := repo.NewPodcastRepo(conn)
	settingsRepo := repo.NewSettingsRepo(conn)

	bus := task.NewBus()
	runner := task.NewRunner(bus, 256)

	settingsService := service.NewSettingsService(settingsRepo, workspaceRepo, cfg.Provider, bus)
	if err := settingsService.Load(ctx); err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	store, err := filestore.New(cfg.Storage)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}

	chunker := ingest.NewChunker(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)
	pipeline := ingest.NewPipeline(documentRepo, chunkRepo, settingsService,
		service.StoreFileSource{Store: store}, chunker, cfg.Ingest.EmbedBatchSize)

	documentService := service.NewDocumentService(workspaceRepo, documentRepo, chunkRepo, store, runner, pipeline)
	workspaceService := service.NewWorkspaceService(workspaceRepo, documentRepo, settingsService)
	retriever := service.NewRetriever(settingsService, documentRepo, chunkRepo)
	chatService := service.NewChatService(settingsService, retriever, chatRepo)
	generatorService := service.NewGeneratorService(settingsService, retriever, artifactRepo)
	podcastService := service.NewPodcastService(settingsService, generatorService, podcastRepo,
		artifactRepo, runner, cfg.Storage.AudioDir, cfg.Podcast.MaxVersions)

	if err := documentService.ReconcileInterrupted(ctx); err != nil {
		logutil.GetLogger(ctx).Warn("startup reconcile failed", zap.Error(err))
	}
	if err := podcastService.SweepOrphans(ctx); err != nil {
		logutil.GetLogger(ctx).Warn("startup audio sweep failed", zap.Error(err))
	}

	runner.Start(ctx)

	scheduler := schedule.NewCronScheduler()
	if err := scheduler.AddJob(job.NewAudioSweepJob(podcastService), "17 * * * *"); err != nil {
		return err
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	deps := handler.RouterDeps{
		Workspaces: handler.NewWorkspaceHandler(workspaceService),
		Documents:  handler.NewDocumentHandler(documentService),
		Chat:       handler.NewChatHandler(chatService),
		Generate:   handler.NewGenerateHandler(generatorService, podcastService, settingsService),
		Podcasts:   handler.NewPodcastHandler(podcastService, bus),
		Settings:   handler.NewSettingsHandler(settingsService, bus),
		TTS:        handler.NewTTSHandler(settingsService),
		Files:      handler.NewFileHandler(store, cfg.Storage.AudioDir),
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestID())
	engine.Use(middleware.CORS(nil))
	engine.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/audio", "/podcast/synthesis"})))
	handler.RegisterRoutes(engine, deps)

	server := &http.Server{
		Addr:    fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		Handler: engine,
	}

	go func() {
		logutil.GetLogger(ctx).Info("http server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(ctx).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return server.Shutdown(context.Background())
}
