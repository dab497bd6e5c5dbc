package service

import (
	"context"
	"strings"

	"github.com/lectern-ai/lectern/internal/model"
	"github.com/lectern-ai/lectern/internal/pkg/errs"
	"github.com/lectern-ai/lectern/internal/repo"
)

type WorkspaceService struct {
	workspaces *repo.WorkspaceRepo
	docs       *repo.DocumentRepo
	settings   *SettingsService
}

func NewWorkspaceService(workspaces *repo.WorkspaceRepo, docs *repo.DocumentRepo, settings *SettingsService) *WorkspaceService {
	return &WorkspaceService{workspaces: workspaces, docs: docs, settings: settings}
}

func (s *WorkspaceService) Create(ctx context.Context, name string) (*model.Workspace, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errs.Validationf("name is required")
	}
	return s.workspaces.Create(ctx, name)
}

func (s *WorkspaceService) List(ctx context.Context) ([]model.Workspace, error) {
	return s.workspaces.List(ctx)
}

// UpdateOverrides sets the workspace's provider overrides; empty fields fall
// back to the global settings.
func (s *WorkspaceService) UpdateOverrides(ctx context.Context, ws *model.Workspace) (*model.Workspace, error) {
	if err := s.workspaces.UpdateOverrides(ctx, ws); err != nil {
		return nil, err
	}
	return s.workspaces.GetByID(ctx, ws.ID)
}

// Detail is the workspace with its documents and the effective provider
// configuration the next operation would use.
type Detail struct {
	model.Workspace
	Documents []model.Document `json:"documents"`
	Effective *Effective       `json:"effective"`
}

func (s *WorkspaceService) Get(ctx context.Context, id int64) (*Detail, error) {
	ws, err := s.workspaces.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	docs, err := s.docs.ListByWorkspace(ctx, id)
	if err != nil {
		return nil, err
	}
	effective, err := s.settings.Effective(ctx, id)
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []model.Document{}
	}
	return &Detail{Workspace: *ws, Documents: docs, Effective: effective}, nil
}
