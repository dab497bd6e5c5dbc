package repo_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lectern-ai/lectern/internal/model"
	"github.com/lectern-ai/lectern/internal/repo"
	"github.com/lectern-ai/lectern/internal/testutil"
)

func seedWorkspace(t *testing.T, conn *sql.DB, name string) int64 {
	t.Helper()
	ws, err := repo.NewWorkspaceRepo(conn).Create(context.Background(), name)
	require.NoError(t, err)
	return ws.ID
}

func seedDocument(t *testing.T, conn *sql.DB, workspaceID int64, title string) *model.Document {
	t.Helper()
	docs := repo.NewDocumentRepo(conn)
	doc := &model.Document{
		WorkspaceID: workspaceID,
		Title:       title,
		FileType:    model.FileTypePDF,
		FilePath:    "1/test.pdf",
	}
	require.NoError(t, docs.Create(context.Background(), doc))
	return doc
}

// unitVec returns a 384-dim unit vector pointing mostly along axis.
func unitVec(axis int) []float32 {
	vec := make([]float32, 384)
	vec[axis] = 1
	return vec
}

func completeDocument(t *testing.T, conn *sql.DB, doc *model.Document, provider, modelName string) {
	t.Helper()
	docs := repo.NewDocumentRepo(conn)
	require.NoError(t, docs.SetFingerprint(context.Background(), doc.ID, provider, modelName))
	require.NoError(t, docs.UpdateStatus(context.Background(), doc.ID, model.DocumentCompleted, ""))
}

func TestChunkSearchScopedToWorkspace(t *testing.T) {
	conn, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	testutil.Reset(t, conn)
	ctx := context.Background()
	chunks := repo.NewChunkRepo(conn)

	wsA := seedWorkspace(t, conn, "a")
	wsB := seedWorkspace(t, conn, "b")
	docA := seedDocument(t, conn, wsA, "a.pdf")
	docB := seedDocument(t, conn, wsB, "b.pdf")

	require.NoError(t, chunks.InsertChunks(ctx, []*model.Chunk{
		{DocumentID: docA.ID, WorkspaceID: wsA, Ordinal: 0, Content: "workspace a chunk", Embedding: unitVec(0)},
	}, 384))
	require.NoError(t, chunks.InsertChunks(ctx, []*model.Chunk{
		{DocumentID: docB.ID, WorkspaceID: wsB, Ordinal: 0, Content: "workspace b chunk", Embedding: unitVec(0)},
	}, 384))

	hits, err := chunks.Search(ctx, wsA, unitVec(0), 384, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, wsA, hits[0].WorkspaceID)
	require.Equal(t, "workspace a chunk", hits[0].Content)
}

func TestChunkSearchRanksByCosineSimilarity(t *testing.T) {
	conn, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	testutil.Reset(t, conn)
	ctx := context.Background()
	chunks := repo.NewChunkRepo(conn)

	ws := seedWorkspace(t, conn, "rank")
	doc := seedDocument(t, conn, ws, "rank.pdf")

	near := unitVec(0)
	near[1] = 0.1
	require.NoError(t, chunks.InsertChunks(ctx, []*model.Chunk{
		{DocumentID: doc.ID, WorkspaceID: ws, Ordinal: 0, Content: "orthogonal", Embedding: unitVec(5)},
		{DocumentID: doc.ID, WorkspaceID: ws, Ordinal: 1, Content: "exact", Embedding: unitVec(0)},
		{DocumentID: doc.ID, WorkspaceID: ws, Ordinal: 2, Content: "near", Embedding: near},
	}, 384))

	hits, err := chunks.Search(ctx, ws, unitVec(0), 384, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	require.Equal(t, "exact", hits[0].Content)
	require.Equal(t, "near", hits[1].Content)
	require.Greater(t, hits[0].Score, hits[1].Score)
}

func TestChunkSearchFiltersDimension(t *testing.T) {
	conn, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	testutil.Reset(t, conn)
	ctx := context.Background()
	chunks := repo.NewChunkRepo(conn)

	ws := seedWorkspace(t, conn, "dims")
	doc384 := seedDocument(t, conn, ws, "small.pdf")
	doc768 := seedDocument(t, conn, ws, "big.pdf")

	require.NoError(t, chunks.InsertChunks(ctx, []*model.Chunk{
		{DocumentID: doc384.ID, WorkspaceID: ws, Ordinal: 0, Content: "small model chunk", Embedding: unitVec(0)},
	}, 384))
	big := make([]float32, 768)
	big[0] = 1
	require.NoError(t, chunks.InsertChunks(ctx, []*model.Chunk{
		{DocumentID: doc768.ID, WorkspaceID: ws, Ordinal: 0, Content: "big model chunk", Embedding: big},
	}, 768))

	hits, err := chunks.Search(ctx, ws, unitVec(0), 384, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, "small model chunk", hits[0].Content)
}

func TestReplaceChunksIsIdempotent(t *testing.T) {
	conn, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	testutil.Reset(t, conn)
	ctx := context.Background()
	chunks := repo.NewChunkRepo(conn)

	ws := seedWorkspace(t, conn, "replace")
	doc := seedDocument(t, conn, ws, "r.pdf")

	set := []*model.Chunk{
		{DocumentID: doc.ID, WorkspaceID: ws, Ordinal: 0, Content: "one", Embedding: unitVec(0)},
		{DocumentID: doc.ID, WorkspaceID: ws, Ordinal: 1, Content: "two", Embedding: unitVec(1)},
	}
	require.NoError(t, chunks.ReplaceChunks(ctx, doc.ID, set, 384))
	require.NoError(t, chunks.ReplaceChunks(ctx, doc.ID, set, 384))

	count, err := chunks.CountByDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestFingerprintsGroupsCompletedDocuments(t *testing.T) {
	conn, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	testutil.Reset(t, conn)
	ctx := context.Background()
	chunks := repo.NewChunkRepo(conn)

	ws := seedWorkspace(t, conn, "fp")
	docOpenAI := seedDocument(t, conn, ws, "openai.pdf")
	docHF := seedDocument(t, conn, ws, "hf.pdf")
	seedDocument(t, conn, ws, "pending.pdf") // never completed, ignored

	completeDocument(t, conn, docOpenAI, "openai", "text-embedding-3-small")
	completeDocument(t, conn, docHF, "huggingface", "all-MiniLM-L6-v2")

	fingerprints, err := chunks.Fingerprints(ctx, ws)
	require.NoError(t, err)
	require.Len(t, fingerprints, 2)
	require.Equal(t, []string{"hf.pdf"},
		fingerprints[repo.Fingerprint{Provider: "huggingface", Model: "all-MiniLM-L6-v2"}])
}

func TestDocumentDeleteCascadesChunks(t *testing.T) {
	conn, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	testutil.Reset(t, conn)
	ctx := context.Background()
	docs := repo.NewDocumentRepo(conn)
	chunks := repo.NewChunkRepo(conn)

	ws := seedWorkspace(t, conn, "cascade")
	doc := seedDocument(t, conn, ws, "c.pdf")
	require.NoError(t, chunks.InsertChunks(ctx, []*model.Chunk{
		{DocumentID: doc.ID, WorkspaceID: ws, Ordinal: 0, Content: "x", Embedding: unitVec(0)},
	}, 384))

	require.NoError(t, docs.Delete(ctx, doc.ID))
	count, err := chunks.CountByDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.Zero(t, count)
}
