package service

import (
	"context"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/lectern-ai/lectern/internal/model"
	"github.com/lectern-ai/lectern/internal/pkg/errs"
	"github.com/lectern-ai/lectern/internal/repo"
)

const (
	chatRetrievalK       = 6
	generationRetrievalK = 12
)

// Retriever performs workspace-scoped semantic search. Cosine distance is
// meaningless across embedding models, so a workspace mixing fingerprints is
// refused instead of silently returning junk.
type Retriever struct {
	settings *SettingsService
	docs     *repo.DocumentRepo
	chunks   *repo.ChunkRepo
}

func NewRetriever(settings *SettingsService, docs *repo.DocumentRepo, chunks *repo.ChunkRepo) *Retriever {
	return &Retriever{settings: settings, docs: docs, chunks: chunks}
}

func (r *Retriever) Retrieve(ctx context.Context, workspaceID int64, query string, k int) ([]model.ScoredChunk, error) {
	if k <= 0 {
		k = chatRetrievalK
	}
	completed, err := r.docs.CountByStatus(ctx, workspaceID, model.DocumentCompleted)
	if err != nil {
		return nil, err
	}
	if completed == 0 {
		return nil, errs.NotFoundf("no completed documents in workspace %d", workspaceID)
	}

	embedder, err := r.settings.EmbedderFor(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	active := repo.Fingerprint{Provider: embedder.Name(), Model: embedder.ModelName()}

	fingerprints, err := r.chunks.Fingerprints(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	var mismatched []string
	for fp, titles := range fingerprints {
		if fp != active {
			mismatched = append(mismatched, titles...)
		}
	}
	if len(mismatched) > 0 {
		return nil, &errs.IncompatibleEmbeddingsError{
			Want:      fmt.Sprintf("%s/%s", active.Provider, active.Model),
			Documents: mismatched,
		}
	}

	vectors, err := embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	queryVec := vectors[0]

	hits, err := r.chunks.Search(ctx, workspaceID, queryVec, len(queryVec), k)
	if err != nil {
		return nil, err
	}
	logutil.GetLogger(ctx).Debug("retrieval done",
		zap.Int64("workspace_id", workspaceID),
		zap.Int("k", k),
		zap.Int("hits", len(hits)),
		zap.Int("dim", len(queryVec)),
	)
	return hits, nil
}
