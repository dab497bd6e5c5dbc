package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lectern-ai/lectern/internal/model"
	"github.com/lectern-ai/lectern/internal/pkg/response"
	"github.com/lectern-ai/lectern/internal/service"
	"github.com/lectern-ai/lectern/internal/task"
)

type PodcastHandler struct {
	podcasts *service.PodcastService
	bus      *task.Bus
}

func NewPodcastHandler(podcasts *service.PodcastService, bus *task.Bus) *PodcastHandler {
	return &PodcastHandler{podcasts: podcasts, bus: bus}
}

// Versions serves GET /podcasts/versions?workspace_id=&topic=&type=.
func (h *PodcastHandler) Versions(c *gin.Context) {
	workspaceID, ok := queryID(c, "workspace_id")
	if !ok {
		return
	}
	topic := c.Query("topic")
	if topic == "" {
		response.Error(c, http.StatusBadRequest, "topic is required")
		return
	}
	podcastType := model.PodcastType(c.DefaultQuery("type", string(model.PodcastDuo)))
	versions, err := h.podcasts.List(c.Request.Context(), workspaceID, topic, podcastType)
	if err != nil {
		handleError(c, err)
		return
	}
	if versions == nil {
		versions = []model.PodcastVersion{}
	}
	response.Success(c, gin.H{
		"versions":     versions,
		"max_versions": h.podcasts.MaxVersions(),
	})
}

func (h *PodcastHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "version_id")
	if !ok {
		return
	}
	version, err := h.podcasts.Get(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, version)
}

func (h *PodcastHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "version_id")
	if !ok {
		return
	}
	if err := h.podcasts.Delete(c.Request.Context(), id); err != nil {
		handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Progress serves GET /podcast/synthesis/progress/{version_id} as SSE.
func (h *PodcastHandler) Progress(c *gin.Context) {
	id, ok := pathID(c, "version_id")
	if !ok {
		return
	}
	streamEvents(c, h.bus, task.PodcastKey(id))
}
