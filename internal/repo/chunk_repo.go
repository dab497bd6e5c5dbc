package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/lectern-ai/lectern/internal/model"
)

type ChunkRepo struct {
	db *sql.DB
}

func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

func embeddingColumn(dim int) (string, error) {
	if !model.IsSupportedDim(dim) {
		return "", fmt.Errorf("unsupported embedding dimension: %d", dim)
	}
	return fmt.Sprintf("embedding_%d", dim), nil
}

// InsertChunks writes all chunks for a document in one transaction. Every
// chunk must carry an embedding of the given dimension.
func (r *ChunkRepo) InsertChunks(ctx context.Context, chunks []*model.Chunk, dim int) error {
	if len(chunks) == 0 {
		return nil
	}
	column, err := embeddingColumn(dim)
	if err != nil {
		return err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
		INSERT INTO document_chunks (document_id, workspace_id, ordinal, content, metadata, %s)
		VALUES ($1, $2, $3, $4, $5, $6)`, column)
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		if len(chunk.Embedding) != dim {
			return fmt.Errorf("chunk %d/%d embedding has %d values, want %d",
				chunk.DocumentID, chunk.Ordinal, len(chunk.Embedding), dim)
		}
		meta, err := json.Marshal(chunk.Metadata)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx,
			chunk.DocumentID, chunk.WorkspaceID, chunk.Ordinal, chunk.Content,
			meta, pgvector.NewVector(chunk.Embedding),
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ReplaceChunks atomically swaps a document's chunk set: concurrent readers
// observe either the old complete set or the new one, never a mix.
func (r *ChunkRepo) ReplaceChunks(ctx context.Context, documentID int64, chunks []*model.Chunk, dim int) error {
	column, err := embeddingColumn(dim)
	if err != nil {
		return err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM document_chunks WHERE document_id = $1`, documentID); err != nil {
		return err
	}
	query := fmt.Sprintf(`
		INSERT INTO document_chunks (document_id, workspace_id, ordinal, content, metadata, %s)
		VALUES ($1, $2, $3, $4, $5, $6)`, column)
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, chunk := range chunks {
		meta, err := json.Marshal(chunk.Metadata)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx,
			chunk.DocumentID, chunk.WorkspaceID, chunk.Ordinal, chunk.Content,
			meta, pgvector.NewVector(chunk.Embedding),
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *ChunkRepo) DeleteByDocument(ctx context.Context, documentID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM document_chunks WHERE document_id = $1`, documentID)
	return err
}

func (r *ChunkRepo) CountByDocument(ctx context.Context, documentID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM document_chunks WHERE document_id = $1`, documentID).Scan(&n)
	return n, err
}

// Search returns the top-k chunks in the workspace whose embedding dimension
// equals dim, ranked by cosine similarity descending. Ties break on
// (document_id, ordinal) ascending. Chunks from other workspaces are never
// returned; dimension mismatch is a filter, not an error.
func (r *ChunkRepo) Search(ctx context.Context, workspaceID int64, queryVec []float32, dim, k int) ([]model.ScoredChunk, error) {
	column, err := embeddingColumn(dim)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
		SELECT id, document_id, workspace_id, ordinal, content, metadata,
		       1 - (%s <=> $1) AS score
		FROM document_chunks
		WHERE workspace_id = $2 AND %s IS NOT NULL
		ORDER BY %s <=> $1, document_id, ordinal
		LIMIT $3`, column, column, column)
	rows, err := r.db.QueryContext(ctx, query, pgvector.NewVector(queryVec), workspaceID, k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var hits []model.ScoredChunk
	for rows.Next() {
		var hit model.ScoredChunk
		var meta []byte
		if err := rows.Scan(&hit.ID, &hit.DocumentID, &hit.WorkspaceID, &hit.Ordinal,
			&hit.Content, &meta, &hit.Score); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &hit.Metadata); err != nil {
				return nil, err
			}
		}
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

// Fingerprint identifies the embedding space a completed document lives in.
type Fingerprint struct {
	Provider string
	Model    string
}

// Fingerprints returns the distinct (provider, model) pairs across the
// workspace's completed documents, with the documents carrying each.
func (r *ChunkRepo) Fingerprints(ctx context.Context, workspaceID int64) (map[Fingerprint][]string, error) {
	const query = `
		SELECT embedding_provider, embedding_model, title
		FROM documents
		WHERE workspace_id = $1 AND status = 'completed'`
	rows, err := r.db.QueryContext(ctx, query, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := make(map[Fingerprint][]string)
	for rows.Next() {
		var fp Fingerprint
		var title string
		if err := rows.Scan(&fp.Provider, &fp.Model, &title); err != nil {
			return nil, err
		}
		result[fp] = append(result[fp], title)
	}
	return result, rows.Err()
}
