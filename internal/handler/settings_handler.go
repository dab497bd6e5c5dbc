package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lectern-ai/lectern/internal/model"
	"github.com/lectern-ai/lectern/internal/pkg/response"
	"github.com/lectern-ai/lectern/internal/service"
	"github.com/lectern-ai/lectern/internal/task"
)

type SettingsHandler struct {
	settings *service.SettingsService
	bus      *task.Bus
}

func NewSettingsHandler(settings *service.SettingsService, bus *task.Bus) *SettingsHandler {
	return &SettingsHandler{settings: settings, bus: bus}
}

type settingsView struct {
	model.Settings
	RuntimeInfo model.RuntimeInfo `json:"runtime_info"`
}

func (h *SettingsHandler) Get(c *gin.Context) {
	current := h.settings.Get()
	current.OpenAIAPIKey = maskSecret(current.OpenAIAPIKey)
	response.Success(c, settingsView{Settings: current, RuntimeInfo: h.settings.RuntimeInfo()})
}

func (h *SettingsHandler) Update(c *gin.Context) {
	current := h.settings.Get()
	updated := current
	if err := c.ShouldBindJSON(&updated); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid settings payload")
		return
	}
	// A masked key echoed back means "keep the stored one".
	if updated.OpenAIAPIKey == maskSecret(current.OpenAIAPIKey) {
		updated.OpenAIAPIKey = current.OpenAIAPIKey
	}
	if err := h.settings.Update(c.Request.Context(), &updated); err != nil {
		handleError(c, err)
		return
	}
	updated.OpenAIAPIKey = maskSecret(updated.OpenAIAPIKey)
	response.Success(c, settingsView{Settings: updated, RuntimeInfo: h.settings.RuntimeInfo()})
}

type downloadRequest struct {
	Provider      string `json:"provider" binding:"required"`
	ModelName     string `json:"model_name" binding:"required"`
	OllamaBaseURL string `json:"ollama_base_url"`
}

// DownloadModel starts a model download and streams its progress as SSE.
func (h *SettingsHandler) DownloadModel(c *gin.Context) {
	var req downloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "provider and model_name are required")
		return
	}
	if err := h.settings.DownloadModel(req.Provider, req.ModelName, req.OllamaBaseURL); err != nil {
		handleError(c, err)
		return
	}
	streamEvents(c, h.bus, task.DownloadKey())
}

func (h *SettingsHandler) CancelDownload(c *gin.Context) {
	h.settings.CancelDownload()
	c.Status(http.StatusNoContent)
}

func maskSecret(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "********"
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}
