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

type PodcastRepo struct {
	db *sql.DB
}

func NewPodcastRepo(db *sql.DB) *PodcastRepo {
	return &PodcastRepo{db: db}
}

const podcastColumns = `id, workspace_id, topic, type, voice_a, voice_b, voice_a_name, voice_b_name, script_id, audio_path, created_at`

func (r *PodcastRepo) Create(ctx context.Context, v *model.PodcastVersion) error {
	const query = `
		INSERT INTO podcast_versions
			(workspace_id, topic, type, voice_a, voice_b, voice_a_name, voice_b_name, script_id, audio_path, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`
	v.CreatedAt = time.Now().Unix()
	return r.db.QueryRowContext(ctx, query,
		v.WorkspaceID, v.Topic, v.Type, v.VoiceA, v.VoiceB,
		v.VoiceAName, v.VoiceBName, v.ScriptID, v.AudioPath, v.CreatedAt,
	).Scan(&v.ID)
}

func (r *PodcastRepo) GetByID(ctx context.Context, id int64) (*model.PodcastVersion, error) {
	const query = `SELECT ` + podcastColumns + ` FROM podcast_versions WHERE id = $1`
	v, err := scanPodcast(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errs.NotFoundf("podcast version %d", id)
	}
	return v, err
}

// ListByKey returns versions for (workspace, topic, type) newest-first.
func (r *PodcastRepo) ListByKey(ctx context.Context, workspaceID int64, topic string, podcastType model.PodcastType) ([]model.PodcastVersion, error) {
	const query = `
		SELECT ` + podcastColumns + `
		FROM podcast_versions
		WHERE workspace_id = $1 AND topic = $2 AND type = $3
		ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query, workspaceID, topic, podcastType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var versions []model.PodcastVersion
	for rows.Next() {
		var v model.PodcastVersion
		if err := rows.Scan(&v.ID, &v.WorkspaceID, &v.Topic, &v.Type, &v.VoiceA, &v.VoiceB,
			&v.VoiceAName, &v.VoiceBName, &v.ScriptID, &v.AudioPath, &v.CreatedAt); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

func (r *PodcastRepo) SetAudioPath(ctx context.Context, id int64, audioPath string) error {
	where := map[string]interface{}{"id": id}
	update := map[string]interface{}{"audio_path": audioPath}
	sqlStr, args, err := builder.BuildUpdate("podcast_versions", where, update)
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
		return errs.NotFoundf("podcast version %d", id)
	}
	return nil
}

func (r *PodcastRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM podcast_versions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return errs.NotFoundf("podcast version %d", id)
	}
	return nil
}

// AllAudioPaths lists every non-empty audio path referenced by a version row.
// The audio sweep uses it to reconcile the audio directory after a crash.
func (r *PodcastRepo) AllAudioPaths(ctx context.Context) (map[string]bool, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT audio_path FROM podcast_versions WHERE audio_path <> ''`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	paths := make(map[string]bool)
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths[p] = true
	}
	return paths, rows.Err()
}

func scanPodcast(row rowScanner) (*model.PodcastVersion, error) {
	var v model.PodcastVersion
	if err := row.Scan(&v.ID, &v.WorkspaceID, &v.Topic, &v.Type, &v.VoiceA, &v.VoiceB,
		&v.VoiceAName, &v.VoiceBName, &v.ScriptID, &v.AudioPath, &v.CreatedAt); err != nil {
		return nil, err
	}
	return &v, nil
}
