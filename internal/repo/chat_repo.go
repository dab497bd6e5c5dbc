package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/lectern-ai/lectern/internal/model"
)

type ChatRepo struct {
	db *sql.DB
}

func NewChatRepo(db *sql.DB) *ChatRepo {
	return &ChatRepo{db: db}
}

func (r *ChatRepo) Append(ctx context.Context, msg *model.ChatMessage) error {
	const query = `
		INSERT INTO chat_messages (workspace_id, role, content, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	msg.CreatedAt = time.Now().Unix()
	return r.db.QueryRowContext(ctx, query,
		msg.WorkspaceID, msg.Role, msg.Content, msg.CreatedAt,
	).Scan(&msg.ID)
}

// History returns the workspace's messages oldest-first.
func (r *ChatRepo) History(ctx context.Context, workspaceID int64) ([]model.ChatMessage, error) {
	const query = `
		SELECT id, workspace_id, role, content, created_at
		FROM chat_messages
		WHERE workspace_id = $1
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var msgs []model.ChatMessage
	for rows.Next() {
		var m model.ChatMessage
		if err := rows.Scan(&m.ID, &m.WorkspaceID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// Recent returns the last n messages oldest-first.
func (r *ChatRepo) Recent(ctx context.Context, workspaceID int64, n int) ([]model.ChatMessage, error) {
	const query = `
		SELECT id, workspace_id, role, content, created_at
		FROM (
			SELECT id, workspace_id, role, content, created_at
			FROM chat_messages
			WHERE workspace_id = $1
			ORDER BY id DESC
			LIMIT $2
		) t
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, workspaceID, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var msgs []model.ChatMessage
	for rows.Next() {
		var m model.ChatMessage
		if err := rows.Scan(&m.ID, &m.WorkspaceID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
