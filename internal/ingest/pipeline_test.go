package ingest_test

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lectern-ai/lectern/internal/ai"
	"github.com/lectern-ai/lectern/internal/ingest"
	"github.com/lectern-ai/lectern/internal/model"
	"github.com/lectern-ai/lectern/internal/repo"
	"github.com/lectern-ai/lectern/internal/testutil"
)

type fakeEmbedder struct {
	calls     int
	batchSize []int
}

func (f *fakeEmbedder) Name() string      { return "fake" }
func (f *fakeEmbedder) ModelName() string { return "fake-embed-384" }

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	f.batchSize = append(f.batchSize, len(texts))
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vec := make([]float32, 384)
		vec[i%384] = 1
		vectors[i] = vec
	}
	return vectors, nil
}

func (f *fakeEmbedder) Dim(ctx context.Context) (int, error) { return 384, nil }

type fakeResolver struct {
	embedder ai.Embedder
}

func (r *fakeResolver) EmbedderFor(ctx context.Context, workspaceID int64) (ai.Embedder, error) {
	return r.embedder, nil
}

func (r *fakeResolver) VisionFor(ctx context.Context, workspaceID int64) (ai.Vision, bool, error) {
	return nil, false, nil
}

type memFiles map[string][]byte

func (m memFiles) ReadFile(ctx context.Context, key string) ([]byte, error) {
	return m[key], nil
}

func docxBytes(t *testing.T, paragraphs ...string) []byte {
	t.Helper()
	var body bytes.Buffer
	body.WriteString(`<?xml version="1.0"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, p := range paragraphs {
		body.WriteString(`<w:p><w:r><w:t>` + p + `</w:t></w:r></w:p>`)
	}
	body.WriteString(`</w:body></w:document>`)

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create("word/document.xml")
	require.NoError(t, err)
	_, err = f.Write(body.Bytes())
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestPipelineIngestsDocument(t *testing.T) {
	conn, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	testutil.Reset(t, conn)
	ctx := context.Background()

	workspaces := repo.NewWorkspaceRepo(conn)
	docs := repo.NewDocumentRepo(conn)
	chunks := repo.NewChunkRepo(conn)

	ws, err := workspaces.Create(ctx, "pipeline")
	require.NoError(t, err)
	doc := &model.Document{
		WorkspaceID: ws.ID, Title: "bio.docx", FileType: model.FileTypeDocx, FilePath: "k/bio.docx",
	}
	require.NoError(t, docs.Create(ctx, doc))

	embedder := &fakeEmbedder{}
	pipeline := ingest.NewPipeline(docs, chunks, &fakeResolver{embedder: embedder},
		memFiles{"k/bio.docx": docxBytes(t, "Photosynthesis converts light into chemical energy.", "Respiration releases it.")},
		ingest.NewChunker(1000, 200), 64)

	var progress []int
	require.NoError(t, pipeline.Run(ctx, doc.ID, func(p int, msg string) {
		progress = append(progress, p)
	}))

	stored, err := docs.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, model.DocumentCompleted, stored.Status)
	require.Equal(t, "fake", stored.EmbeddingProvider)
	require.Equal(t, "fake-embed-384", stored.EmbeddingModel)

	count, err := chunks.CountByDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.Greater(t, count, 0)

	for i := 1; i < len(progress); i++ {
		require.GreaterOrEqual(t, progress[i], progress[i-1])
	}
	require.Equal(t, 100, progress[len(progress)-1])
}

func TestPipelineReprocessIsIdempotent(t *testing.T) {
	conn, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	testutil.Reset(t, conn)
	ctx := context.Background()

	workspaces := repo.NewWorkspaceRepo(conn)
	docs := repo.NewDocumentRepo(conn)
	chunks := repo.NewChunkRepo(conn)

	ws, err := workspaces.Create(ctx, "reprocess")
	require.NoError(t, err)
	doc := &model.Document{
		WorkspaceID: ws.ID, Title: "r.docx", FileType: model.FileTypeDocx, FilePath: "k/r.docx",
	}
	require.NoError(t, docs.Create(ctx, doc))

	pipeline := ingest.NewPipeline(docs, chunks, &fakeResolver{embedder: &fakeEmbedder{}},
		memFiles{"k/r.docx": docxBytes(t, "Same content both times.")},
		ingest.NewChunker(1000, 200), 64)

	require.NoError(t, pipeline.Run(ctx, doc.ID, func(int, string) {}))
	first, err := chunks.CountByDocument(ctx, doc.ID)
	require.NoError(t, err)

	require.NoError(t, pipeline.Run(ctx, doc.ID, func(int, string) {}))
	second, err := chunks.CountByDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, first, second)

	stored, err := docs.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, "fake-embed-384", stored.EmbeddingModel)
}

func TestPipelineCancellationCleansUp(t *testing.T) {
	conn, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	testutil.Reset(t, conn)

	workspaces := repo.NewWorkspaceRepo(conn)
	docs := repo.NewDocumentRepo(conn)
	chunks := repo.NewChunkRepo(conn)

	ws, err := workspaces.Create(context.Background(), "cancel")
	require.NoError(t, err)
	doc := &model.Document{
		WorkspaceID: ws.ID, Title: "c.docx", FileType: model.FileTypeDocx, FilePath: "k/c.docx",
	}
	require.NoError(t, docs.Create(context.Background(), doc))

	pipeline := ingest.NewPipeline(docs, chunks, &fakeResolver{embedder: &fakeEmbedder{}},
		memFiles{"k/c.docx": docxBytes(t, "never processed")},
		ingest.NewChunker(1000, 200), 64)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	err = pipeline.Run(cancelled, doc.ID, func(int, string) {})
	require.ErrorIs(t, err, ingest.ErrCancelled)

	stored, err := docs.GetByID(context.Background(), doc.ID)
	require.NoError(t, err)
	require.Equal(t, model.DocumentFailed, stored.Status)
	require.Equal(t, "cancelled", stored.ErrorMessage)

	count, err := chunks.CountByDocument(context.Background(), doc.ID)
	require.NoError(t, err)
	require.Zero(t, count)
}
