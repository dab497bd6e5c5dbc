package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/lectern-ai/lectern/internal/model"
	"github.com/lectern-ai/lectern/internal/pkg/errs"
)

type ArtifactRepo struct {
	db *sql.DB
}

func NewArtifactRepo(db *sql.DB) *ArtifactRepo {
	return &ArtifactRepo{db: db}
}

const artifactColumns = `id, workspace_id, topic, kind, payload, created_at`

// Upsert replaces the payload for (workspace, topic, kind). Podcast scripts
// are versioned and always insert a fresh row.
func (r *ArtifactRepo) Upsert(ctx context.Context, artifact *model.Artifact) error {
	artifact.CreatedAt = time.Now().Unix()
	if artifact.Kind == model.KindPodcastScript {
		const insert = `
			INSERT INTO artifacts (workspace_id, topic, kind, payload, created_at)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`
		return r.db.QueryRowContext(ctx, insert,
			artifact.WorkspaceID, artifact.Topic, artifact.Kind, []byte(artifact.Payload), artifact.CreatedAt,
		).Scan(&artifact.ID)
	}
	const upsert = `
		INSERT INTO artifacts (workspace_id, topic, kind, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (workspace_id, topic, kind) WHERE kind <> 'podcast_script'
		DO UPDATE SET payload = EXCLUDED.payload
		RETURNING id`
	return r.db.QueryRowContext(ctx, upsert,
		artifact.WorkspaceID, artifact.Topic, artifact.Kind, []byte(artifact.Payload), artifact.CreatedAt,
	).Scan(&artifact.ID)
}

func (r *ArtifactRepo) Get(ctx context.Context, workspaceID int64, topic string, kind model.ArtifactKind) (*model.Artifact, error) {
	const query = `
		SELECT ` + artifactColumns + `
		FROM artifacts
		WHERE workspace_id = $1 AND topic = $2 AND kind = $3
		ORDER BY id DESC
		LIMIT 1`
	artifact, err := scanArtifact(r.db.QueryRowContext(ctx, query, workspaceID, topic, kind))
	if err == sql.ErrNoRows {
		return nil, errs.NotFoundf("%s artifact for topic %q", kind, topic)
	}
	return artifact, err
}

func (r *ArtifactRepo) GetByID(ctx context.Context, id int64) (*model.Artifact, error) {
	const query = `SELECT ` + artifactColumns + ` FROM artifacts WHERE id = $1`
	artifact, err := scanArtifact(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errs.NotFoundf("artifact %d", id)
	}
	return artifact, err
}

// ListByTopic returns the newest artifact per kind for (workspace, topic).
func (r *ArtifactRepo) ListByTopic(ctx context.Context, workspaceID int64, topic string) (map[model.ArtifactKind]*model.Artifact, error) {
	const query = `
		SELECT DISTINCT ON (kind) ` + artifactColumns + `
		FROM artifacts
		WHERE workspace_id = $1 AND topic = $2
		ORDER BY kind, id DESC`
	rows, err := r.db.QueryContext(ctx, query, workspaceID, topic)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := make(map[model.ArtifactKind]*model.Artifact)
	for rows.Next() {
		var a model.Artifact
		var payload []byte
		if err := rows.Scan(&a.ID, &a.WorkspaceID, &a.Topic, &a.Kind, &payload, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Payload = json.RawMessage(payload)
		result[a.Kind] = &a
	}
	return result, rows.Err()
}

func scanArtifact(row rowScanner) (*model.Artifact, error) {
	var a model.Artifact
	var payload []byte
	if err := row.Scan(&a.ID, &a.WorkspaceID, &a.Topic, &a.Kind, &payload, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.Payload = json.RawMessage(payload)
	return &a, nil
}
