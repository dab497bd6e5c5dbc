package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/lectern-ai/lectern/internal/pkg/response"
)

type RouterDeps struct {
	Workspaces *WorkspaceHandler
	Documents  *DocumentHandler
	Chat       *ChatHandler
	Generate   *GenerateHandler
	Podcasts   *PodcastHandler
	Settings   *SettingsHandler
	TTS        *TTSHandler
	Files      *FileHandler
}

func RegisterRoutes(r *gin.Engine, deps RouterDeps) {
	r.GET("/", func(c *gin.Context) {
		response.Success(c, gin.H{"message": "Lectern study assistant API"})
	})
	r.GET("/health", func(c *gin.Context) {
		response.Success(c, gin.H{"status": "ok"})
	})

	r.GET("/workspaces", deps.Workspaces.List)
	r.POST("/workspaces", deps.Workspaces.Create)
	r.GET("/workspaces/:id", deps.Workspaces.Get)
	r.PUT("/workspaces/:id", deps.Workspaces.Update)
	r.POST("/workspaces/:id/upload", deps.Documents.Upload)

	r.GET("/documents/:id", deps.Documents.Get)
	r.DELETE("/documents/:id", deps.Documents.Delete)
	r.POST("/documents/:id/reprocess", deps.Documents.Reprocess)

	r.POST("/chat", deps.Chat.Chat)
	r.GET("/chat/history/:workspace_id", deps.Chat.History)

	r.POST("/generate/podcast", deps.Generate.Podcast)
	r.POST("/generate/podcast/resynthesize", deps.Generate.Resynthesize)
	r.GET("/generate/existing", deps.Generate.Existing)
	r.GET("/generate/narration", deps.Generate.Narration)
	r.POST("/generate/:kind", deps.Generate.Artifact)

	r.GET("/podcasts/versions", deps.Podcasts.Versions)
	r.GET("/podcasts/:version_id", deps.Podcasts.Get)
	r.DELETE("/podcasts/:version_id", deps.Podcasts.Delete)
	r.GET("/podcast/synthesis/progress/:version_id", deps.Podcasts.Progress)

	r.GET("/settings", deps.Settings.Get)
	r.POST("/settings", deps.Settings.Update)
	r.POST("/settings/download-model", deps.Settings.DownloadModel)
	r.POST("/settings/cancel-download", deps.Settings.CancelDownload)

	r.GET("/tts/voices", deps.TTS.Voices)

	r.GET("/files/*filepath", deps.Files.File)
	r.GET("/audio/:filename", deps.Files.Audio)
}
