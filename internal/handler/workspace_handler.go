package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/lectern-ai/lectern/internal/model"
	"github.com/lectern-ai/lectern/internal/pkg/response"
	"github.com/lectern-ai/lectern/internal/service"
)

type WorkspaceHandler struct {
	workspaces *service.WorkspaceService
}

func NewWorkspaceHandler(workspaces *service.WorkspaceService) *WorkspaceHandler {
	return &WorkspaceHandler{workspaces: workspaces}
}

type createWorkspaceRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *WorkspaceHandler) List(c *gin.Context) {
	list, err := h.workspaces.List(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	if list == nil {
		list = []model.Workspace{}
	}
	response.Success(c, list)
}

func (h *WorkspaceHandler) Create(c *gin.Context) {
	var req createWorkspaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, 400, "name is required")
		return
	}
	ws, err := h.workspaces.Create(c.Request.Context(), req.Name)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, ws)
}

type workspaceOverridesRequest struct {
	LLMProvider       string `json:"llm_provider"`
	LLMModel          string `json:"llm_model"`
	EmbeddingProvider string `json:"embedding_provider"`
	EmbeddingModel    string `json:"embedding_model"`
}

// Update sets per-workspace provider overrides; empty strings clear them.
func (h *WorkspaceHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req workspaceOverridesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, 400, "invalid overrides payload")
		return
	}
	ws, err := h.workspaces.UpdateOverrides(c.Request.Context(), &model.Workspace{
		ID:                id,
		LLMProvider:       req.LLMProvider,
		LLMModel:          req.LLMModel,
		EmbeddingProvider: req.EmbeddingProvider,
		EmbeddingModel:    req.EmbeddingModel,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, ws)
}

func (h *WorkspaceHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	detail, err := h.workspaces.Get(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, detail)
}
