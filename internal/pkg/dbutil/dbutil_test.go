package dbutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFinalizeRebindsPlaceholders(t *testing.T) {
	query, args := Finalize("SELECT * FROM documents WHERE workspace_id = ? AND status = ?", []interface{}{int64(1), "completed"})
	require.Equal(t, "SELECT * FROM documents WHERE workspace_id = $1 AND status = $2", query)
	require.Equal(t, []interface{}{int64(1), "completed"}, args)
}

func TestFinalizeRewritesLimitOffset(t *testing.T) {
	query, args := Finalize("SELECT id FROM chat_messages WHERE workspace_id = ? LIMIT ?,?", []interface{}{int64(7), 20, 10})
	require.Equal(t, "SELECT id FROM chat_messages WHERE workspace_id = $1 LIMIT $2 OFFSET $3", query)
	require.Equal(t, []interface{}{int64(7), 10, 20}, args)
}
