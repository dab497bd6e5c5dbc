package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/didi/gendry/builder"

	"github.com/lectern-ai/lectern/internal/model"
	"github.com/lectern-ai/lectern/internal/pkg/dbutil"
	"github.com/lectern-ai/lectern/internal/pkg/errs"
)

type WorkspaceRepo struct {
	db *sql.DB
}

func NewWorkspaceRepo(db *sql.DB) *WorkspaceRepo {
	return &WorkspaceRepo{db: db}
}

const workspaceColumns = `id, name, llm_provider, llm_model, embedding_provider, embedding_model, created_at`

func (r *WorkspaceRepo) Create(ctx context.Context, name string) (*model.Workspace, error) {
	const query = `
		INSERT INTO workspaces (name, created_at)
		VALUES ($1, $2)
		RETURNING ` + workspaceColumns
	row := r.db.QueryRowContext(ctx, query, name, time.Now().Unix())
	return scanWorkspace(row)
}

func (r *WorkspaceRepo) GetByID(ctx context.Context, id int64) (*model.Workspace, error) {
	const query = `SELECT ` + workspaceColumns + ` FROM workspaces WHERE id = $1`
	ws, err := scanWorkspace(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errs.NotFoundf("workspace %d", id)
	}
	return ws, err
}

func (r *WorkspaceRepo) List(ctx context.Context) ([]model.Workspace, error) {
	const query = `SELECT ` + workspaceColumns + ` FROM workspaces ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []model.Workspace
	for rows.Next() {
		var ws model.Workspace
		if err := rows.Scan(&ws.ID, &ws.Name, &ws.LLMProvider, &ws.LLMModel,
			&ws.EmbeddingProvider, &ws.EmbeddingModel, &ws.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, ws)
	}
	return result, rows.Err()
}

func (r *WorkspaceRepo) UpdateOverrides(ctx context.Context, ws *model.Workspace) error {
	where := map[string]interface{}{"id": ws.ID}
	update := map[string]interface{}{
		"llm_provider":       ws.LLMProvider,
		"llm_model":          ws.LLMModel,
		"embedding_provider": ws.EmbeddingProvider,
		"embedding_model":    ws.EmbeddingModel,
	}
	sqlStr, args, err := builder.BuildUpdate("workspaces", where, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return errs.NotFoundf("workspace %d", ws.ID)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanWorkspace(row rowScanner) (*model.Workspace, error) {
	var ws model.Workspace
	if err := row.Scan(&ws.ID, &ws.Name, &ws.LLMProvider, &ws.LLMModel,
		&ws.EmbeddingProvider, &ws.EmbeddingModel, &ws.CreatedAt); err != nil {
		return nil, err
	}
	return &ws, nil
}
