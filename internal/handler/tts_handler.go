package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/lectern-ai/lectern/internal/pkg/response"
	"github.com/lectern-ai/lectern/internal/service"
)

type TTSHandler struct {
	settings *service.SettingsService
}

func NewTTSHandler(settings *service.SettingsService) *TTSHandler {
	return &TTSHandler{settings: settings}
}

// Voices serves GET /tts/voices.
func (h *TTSHandler) Voices(c *gin.Context) {
	tts, err := h.settings.TTSFor(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	info := tts.ListVoices()
	ids := make([]string, 0, len(info))
	for _, voice := range info {
		ids = append(ids, voice.ID)
	}
	response.Success(c, gin.H{
		"voices":      ids,
		"voices_info": info,
	})
}
