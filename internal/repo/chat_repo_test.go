package repo_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lectern-ai/lectern/internal/model"
	"github.com/lectern-ai/lectern/internal/repo"
	"github.com/lectern-ai/lectern/internal/testutil"
)

func TestChatHistoryOldestFirst(t *testing.T) {
	conn, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	testutil.Reset(t, conn)
	ctx := context.Background()
	chat := repo.NewChatRepo(conn)
	ws := seedWorkspace(t, conn, "chat")

	for i := 0; i < 6; i++ {
		role := model.RoleUser
		if i%2 == 1 {
			role = model.RoleAssistant
		}
		require.NoError(t, chat.Append(ctx, &model.ChatMessage{
			WorkspaceID: ws, Role: role, Content: fmt.Sprintf("message %d", i),
		}))
	}

	history, err := chat.History(ctx, ws)
	require.NoError(t, err)
	require.Len(t, history, 6)
	for i := 1; i < len(history); i++ {
		require.Greater(t, history[i].ID, history[i-1].ID)
		require.GreaterOrEqual(t, history[i].CreatedAt, history[i-1].CreatedAt)
	}
}

func TestChatRecentWindow(t *testing.T) {
	conn, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	testutil.Reset(t, conn)
	ctx := context.Background()
	chat := repo.NewChatRepo(conn)
	ws := seedWorkspace(t, conn, "recent")

	for i := 0; i < 15; i++ {
		require.NoError(t, chat.Append(ctx, &model.ChatMessage{
			WorkspaceID: ws, Role: model.RoleUser, Content: fmt.Sprintf("m%d", i),
		}))
	}
	recent, err := chat.Recent(ctx, ws, 10)
	require.NoError(t, err)
	require.Len(t, recent, 10)
	require.Equal(t, "m5", recent[0].Content)
	require.Equal(t, "m14", recent[9].Content)
}
