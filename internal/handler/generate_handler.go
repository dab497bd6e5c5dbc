package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lectern-ai/lectern/internal/model"
	"github.com/lectern-ai/lectern/internal/pkg/response"
	"github.com/lectern-ai/lectern/internal/service"
)

type GenerateHandler struct {
	generator *service.GeneratorService
	podcasts  *service.PodcastService
	settings  *service.SettingsService
}

func NewGenerateHandler(generator *service.GeneratorService, podcasts *service.PodcastService, settings *service.SettingsService) *GenerateHandler {
	return &GenerateHandler{generator: generator, podcasts: podcasts, settings: settings}
}

type generateRequest struct {
	WorkspaceID int64  `json:"workspace_id" binding:"required"`
	Topic       string `json:"topic" binding:"required"`
}

var routeKinds = map[string]model.ArtifactKind{
	"lesson":     model.KindLesson,
	"flashcards": model.KindFlashcards,
	"quiz":       model.KindQuiz,
	"mindmap":    model.KindMindmap,
}

// Artifact serves POST /generate/{lesson|flashcards|quiz|mindmap}.
func (h *GenerateHandler) Artifact(c *gin.Context) {
	kind, ok := routeKinds[c.Param("kind")]
	if !ok {
		response.Error(c, http.StatusNotFound, "unknown artifact kind")
		return
	}
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "workspace_id and topic are required")
		return
	}
	artifact, err := h.generator.Generate(c.Request.Context(), req.WorkspaceID, req.Topic, kind)
	if err != nil {
		handleError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", artifact.Payload)
}

// Existing serves GET /generate/existing?workspace_id=&topic=.
func (h *GenerateHandler) Existing(c *gin.Context) {
	workspaceID, ok := queryID(c, "workspace_id")
	if !ok {
		return
	}
	topic := c.Query("topic")
	if topic == "" {
		response.Error(c, http.StatusBadRequest, "topic is required")
		return
	}
	artifacts, err := h.generator.GetExisting(c.Request.Context(), workspaceID, topic)
	if err != nil {
		handleError(c, err)
		return
	}
	out := gin.H{}
	for kind, artifact := range artifacts {
		if kind == model.KindPodcastScript {
			continue
		}
		out[string(kind)] = json.RawMessage(artifact.Payload)
	}
	// The newest voiced podcast rides along with the cached artifacts.
	for _, podcastType := range []model.PodcastType{model.PodcastDuo, model.PodcastSingle} {
		versions, err := h.podcasts.List(c.Request.Context(), workspaceID, topic, podcastType)
		if err == nil && len(versions) > 0 {
			out["podcast"] = versions[0]
			break
		}
	}
	response.Success(c, out)
}

type podcastRequest struct {
	WorkspaceID int64  `json:"workspace_id" binding:"required"`
	Topic       string `json:"topic" binding:"required"`
	VoiceA      string `json:"voice_a" binding:"required"`
	VoiceB      string `json:"voice_b"`
}

// Podcast serves POST /generate/podcast?type={single|duo}.
func (h *GenerateHandler) Podcast(c *gin.Context) {
	podcastType := model.PodcastType(c.DefaultQuery("type", string(model.PodcastDuo)))
	var req podcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "workspace_id, topic and voice_a are required")
		return
	}
	version, err := h.podcasts.Create(c.Request.Context(), req.WorkspaceID, req.Topic, podcastType, req.VoiceA, req.VoiceB)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, version)
}

// Resynthesize serves POST /generate/podcast/resynthesize?type=.
func (h *GenerateHandler) Resynthesize(c *gin.Context) {
	podcastType := model.PodcastType(c.DefaultQuery("type", string(model.PodcastDuo)))
	var req podcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "workspace_id, topic and voice_a are required")
		return
	}
	if _, err := h.podcasts.Resynthesize(c.Request.Context(), req.WorkspaceID, req.Topic, podcastType); err != nil {
		handleError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

// Narration serves GET /generate/narration?text=&voice= — a synchronous TTS
// preview used by voice pickers.
func (h *GenerateHandler) Narration(c *gin.Context) {
	text := c.Query("text")
	voice := c.Query("voice")
	if text == "" || voice == "" {
		response.Error(c, http.StatusBadRequest, "text and voice are required")
		return
	}
	tts, err := h.settings.TTSFor(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	wav, err := tts.Synthesize(c.Request.Context(), text, voice)
	if err != nil {
		handleError(c, err)
		return
	}
	c.Data(http.StatusOK, "audio/wav", wav)
}
