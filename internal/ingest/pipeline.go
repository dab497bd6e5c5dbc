package ingest

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/lectern-ai/lectern/internal/ai"
	"github.com/lectern-ai/lectern/internal/model"
	"github.com/lectern-ai/lectern/internal/repo"
)

// ErrCancelled marks a cooperative stop observed between phases.
var ErrCancelled = errors.New("cancelled")

const unreadableImagePlaceholder = "[image: unreadable]"

// Resolver hands the pipeline the adapters bound to the workspace's
// effective configuration, fixed at task start.
type Resolver interface {
	EmbedderFor(ctx context.Context, workspaceID int64) (ai.Embedder, error)
	VisionFor(ctx context.Context, workspaceID int64) (ai.Vision, bool, error)
}

// FileSource loads the stored bytes of an uploaded document by its key.
type FileSource interface {
	ReadFile(ctx context.Context, key string) ([]byte, error)
}

type Pipeline struct {
	docs      *repo.DocumentRepo
	chunks    *repo.ChunkRepo
	resolver  Resolver
	files     FileSource
	chunker   *Chunker
	batchSize int
}

func NewPipeline(docs *repo.DocumentRepo, chunks *repo.ChunkRepo, resolver Resolver, files FileSource, chunker *Chunker, batchSize int) *Pipeline {
	if batchSize <= 0 {
		batchSize = 64
	}
	return &Pipeline{
		docs:      docs,
		chunks:    chunks,
		resolver:  resolver,
		files:     files,
		chunker:   chunker,
		batchSize: batchSize,
	}
}

// Run drives one document through extract → caption → chunk → embed →
// persist. The phases are idempotent as a whole: persistence deletes the
// previous chunk set in the same transaction that writes the new one, so a
// retry restarts cleanly from extraction.
func (p *Pipeline) Run(ctx context.Context, documentID int64, report func(progress int, message string)) error {
	logger := logutil.GetLogger(ctx).With(zap.Int64("document_id", documentID))

	if ctx.Err() != nil {
		logger.Info("ingestion cancelled before start")
		_ = p.chunks.DeleteByDocument(context.Background(), documentID)
		_ = p.docs.UpdateStatus(context.Background(), documentID, model.DocumentFailed, "cancelled")
		return ErrCancelled
	}

	doc, err := p.docs.GetByID(ctx, documentID)
	if err != nil {
		return err
	}
	if err := p.docs.UpdateStatus(ctx, documentID, model.DocumentProcessing, ""); err != nil {
		return err
	}
	report(5, "Processing started")

	err = p.run(ctx, doc, report)
	if err == nil {
		report(100, "Completed")
		return nil
	}
	if errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled) {
		logger.Info("ingestion cancelled")
		_ = p.chunks.DeleteByDocument(context.Background(), documentID)
		_ = p.docs.UpdateStatus(context.Background(), documentID, model.DocumentFailed, "cancelled")
		return ErrCancelled
	}
	logger.Error("ingestion failed", zap.Error(err))
	_ = p.docs.UpdateStatus(context.Background(), documentID, model.DocumentFailed, shortReason(err))
	return err
}

func (p *Pipeline) run(ctx context.Context, doc *model.Document, report func(int, string)) error {
	// The embedding fingerprint is resolved once; settings changes made
	// while this task runs do not affect it.
	embedder, err := p.resolver.EmbedderFor(ctx, doc.WorkspaceID)
	if err != nil {
		return err
	}
	vision, visionEnabled, err := p.resolver.VisionFor(ctx, doc.WorkspaceID)
	if err != nil {
		return err
	}

	if err := checkpoint(ctx); err != nil {
		return err
	}
	data, err := p.files.ReadFile(ctx, doc.FilePath)
	if err != nil {
		return err
	}
	units, err := Extract(data, doc.FilePath, doc.FileType, visionEnabled)
	if err != nil {
		return err
	}
	report(25, fmt.Sprintf("Extracted %d pages", len(units)))

	if err := checkpoint(ctx); err != nil {
		return err
	}
	if visionEnabled {
		p.captionImages(ctx, vision, units)
		report(45, "Captioned images")
	}

	if err := checkpoint(ctx); err != nil {
		return err
	}
	var chunks []*model.Chunk
	ordinal := 0
	for _, unit := range units {
		for _, piece := range p.chunker.ChunkUnit(doc.Title, unit) {
			meta := map[string]string{
				"page":   strconv.Itoa(piece.Page),
				"source": doc.Title,
			}
			if piece.Heading != "" {
				meta["heading"] = piece.Heading
			}
			chunks = append(chunks, &model.Chunk{
				DocumentID:  doc.ID,
				WorkspaceID: doc.WorkspaceID,
				Ordinal:     ordinal,
				Content:     piece.Content,
				Metadata:    meta,
			})
			ordinal++
		}
	}
	if len(chunks) == 0 {
		return fmt.Errorf("no text could be extracted from %s", doc.Title)
	}
	report(55, fmt.Sprintf("Split into %d chunks", len(chunks)))

	dim, err := p.embedAll(ctx, embedder, chunks, report)
	if err != nil {
		return err
	}

	if err := checkpoint(ctx); err != nil {
		return err
	}
	if err := p.chunks.ReplaceChunks(ctx, doc.ID, chunks, dim); err != nil {
		return err
	}
	if err := p.docs.SetFingerprint(ctx, doc.ID, embedder.Name(), embedder.ModelName()); err != nil {
		return err
	}
	return p.docs.UpdateStatus(ctx, doc.ID, model.DocumentCompleted, "")
}

func (p *Pipeline) captionImages(ctx context.Context, vision ai.Vision, units []SourceUnit) {
	logger := logutil.GetLogger(ctx)
	for i := range units {
		for _, img := range units[i].Images {
			caption, err := vision.Caption(ctx, img.Data, img.Mime)
			if err != nil || caption == "" {
				logger.Warn("image caption failed", zap.Int("page", units[i].Index), zap.Error(err))
				caption = unreadableImagePlaceholder
			}
			if units[i].Text != "" {
				units[i].Text += "\n\n"
			}
			units[i].Text += caption
		}
		units[i].Images = nil
	}
}

func (p *Pipeline) embedAll(ctx context.Context, embedder ai.Embedder, chunks []*model.Chunk, report func(int, string)) (int, error) {
	dim := 0
	for start := 0; start < len(chunks); start += p.batchSize {
		if err := checkpoint(ctx); err != nil {
			return 0, err
		}
		end := start + p.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		texts := make([]string, 0, end-start)
		for _, chunk := range chunks[start:end] {
			texts = append(texts, chunk.Content)
		}
		vectors, err := embedder.Embed(ctx, texts)
		if err != nil {
			return 0, err
		}
		for i, vec := range vectors {
			if dim == 0 {
				dim = len(vec)
				if !model.IsSupportedDim(dim) {
					return 0, fmt.Errorf("embedding model %s produces %d dimensions, supported: 384/768/1024/1536",
						embedder.ModelName(), dim)
				}
			}
			chunks[start+i].Embedding = vec
		}
		progress := 60 + int(float64(end)/float64(len(chunks))*30)
		report(progress, fmt.Sprintf("Embedded %d/%d chunks", end, len(chunks)))
	}
	return dim, nil
}

func checkpoint(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ErrCancelled
	default:
		return nil
	}
}

func shortReason(err error) string {
	msg := err.Error()
	if len(msg) > 300 {
		msg = msg[:300]
	}
	return msg
}
