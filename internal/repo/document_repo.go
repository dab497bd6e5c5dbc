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

type DocumentRepo struct {
	db *sql.DB
}

func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

const documentColumns = `id, workspace_id, title, file_type, file_path, status, error_message, embedding_provider, embedding_model, created_at`

func (r *DocumentRepo) Create(ctx context.Context, doc *model.Document) error {
	const query = `
		INSERT INTO documents (workspace_id, title, file_type, file_path, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	doc.CreatedAt = time.Now().Unix()
	if doc.Status == "" {
		doc.Status = model.DocumentPending
	}
	return r.db.QueryRowContext(ctx, query,
		doc.WorkspaceID, doc.Title, doc.FileType, doc.FilePath, doc.Status, doc.CreatedAt,
	).Scan(&doc.ID)
}

func (r *DocumentRepo) GetByID(ctx context.Context, id int64) (*model.Document, error) {
	const query = `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	doc, err := scanDocument(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errs.NotFoundf("document %d", id)
	}
	return doc, err
}

func (r *DocumentRepo) ListByWorkspace(ctx context.Context, workspaceID int64) ([]model.Document, error) {
	const query = `SELECT ` + documentColumns + ` FROM documents WHERE workspace_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var docs []model.Document
	for rows.Next() {
		doc, err := scanDocumentRows(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

func (r *DocumentRepo) CountByStatus(ctx context.Context, workspaceID int64, status model.DocumentStatus) (int, error) {
	const query = `SELECT COUNT(*) FROM documents WHERE workspace_id = $1 AND status = $2`
	var n int
	err := r.db.QueryRowContext(ctx, query, workspaceID, status).Scan(&n)
	return n, err
}

func (r *DocumentRepo) UpdateStatus(ctx context.Context, id int64, status model.DocumentStatus, errorMessage string) error {
	where := map[string]interface{}{"id": id}
	update := map[string]interface{}{
		"status":        string(status),
		"error_message": errorMessage,
	}
	sqlStr, args, err := builder.BuildUpdate("documents", where, update)
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
		return errs.NotFoundf("document %d", id)
	}
	return nil
}

func (r *DocumentRepo) SetFingerprint(ctx context.Context, id int64, provider, modelName string) error {
	where := map[string]interface{}{"id": id}
	update := map[string]interface{}{
		"embedding_provider": provider,
		"embedding_model":    modelName,
	}
	sqlStr, args, err := builder.BuildUpdate("documents", where, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

// FailProcessing marks every document stuck in processing as failed. Used
// by the startup reconcile after an unclean shutdown.
func (r *DocumentRepo) FailProcessing(ctx context.Context, reason string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE documents SET status = 'failed', error_message = $1 WHERE status = 'processing'`, reason)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *DocumentRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return errs.NotFoundf("document %d", id)
	}
	return nil
}

func scanDocument(row rowScanner) (*model.Document, error) {
	var doc model.Document
	if err := row.Scan(&doc.ID, &doc.WorkspaceID, &doc.Title, &doc.FileType, &doc.FilePath,
		&doc.Status, &doc.ErrorMessage, &doc.EmbeddingProvider, &doc.EmbeddingModel, &doc.CreatedAt); err != nil {
		return nil, err
	}
	return &doc, nil
}

func scanDocumentRows(rows *sql.Rows) (*model.Document, error) {
	return scanDocument(rows)
}
