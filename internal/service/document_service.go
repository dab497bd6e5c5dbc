package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/lectern-ai/lectern/internal/filestore"
	"github.com/lectern-ai/lectern/internal/ingest"
	"github.com/lectern-ai/lectern/internal/model"
	"github.com/lectern-ai/lectern/internal/pkg/errs"
	"github.com/lectern-ai/lectern/internal/repo"
	"github.com/lectern-ai/lectern/internal/task"
)

// DocumentService owns the document lifecycle: upload, asynchronous
// ingestion, reprocessing, deletion.
type DocumentService struct {
	workspaces *repo.WorkspaceRepo
	docs       *repo.DocumentRepo
	chunks     *repo.ChunkRepo
	store      filestore.Store
	runner     *task.Runner
	pipeline   *ingest.Pipeline
}

func NewDocumentService(workspaces *repo.WorkspaceRepo, docs *repo.DocumentRepo, chunks *repo.ChunkRepo,
	store filestore.Store, runner *task.Runner, pipeline *ingest.Pipeline) *DocumentService {
	return &DocumentService{
		workspaces: workspaces,
		docs:       docs,
		chunks:     chunks,
		store:      store,
		runner:     runner,
		pipeline:   pipeline,
	}
}

// Upload accepts the file, stores it, records a pending document and queues
// ingestion. Acceptance never depends on the file parsing: parse failures
// surface later as status=failed.
func (s *DocumentService) Upload(ctx context.Context, workspaceID int64, filename string, r io.Reader, size int64) (*model.Document, error) {
	if size == 0 {
		return nil, errs.Validationf("uploaded file is empty")
	}
	if _, err := s.workspaces.GetByID(ctx, workspaceID); err != nil {
		return nil, err
	}
	fileType, err := ingest.DetectFileType(filename)
	if err != nil {
		return nil, errs.Validationf("%v", err)
	}

	key := fmt.Sprintf("%d/%s%s", workspaceID, uuid.New().String(), strings.ToLower(filepath.Ext(filename)))
	if err := s.store.Save(ctx, key, r); err != nil {
		return nil, err
	}

	doc := &model.Document{
		WorkspaceID: workspaceID,
		Title:       filename,
		FileType:    fileType,
		FilePath:    key,
		Status:      model.DocumentPending,
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, err
	}
	if err := s.queueIngestion(doc.ID); err != nil {
		return nil, err
	}
	return doc, nil
}

// Reprocess restarts ingestion from extraction. A no-op when a task for the
// document is already pending or processing.
func (s *DocumentService) Reprocess(ctx context.Context, documentID int64) error {
	if _, err := s.docs.GetByID(ctx, documentID); err != nil {
		return err
	}
	return s.queueIngestion(documentID)
}

func (s *DocumentService) queueIngestion(documentID int64) error {
	key := task.IngestKey(documentID)
	bus := s.runner.Bus()
	_, err := s.runner.Submit(task.KindIngest, key, func(ctx context.Context) error {
		err := s.pipeline.Run(ctx, documentID, func(progress int, message string) {
			status := "processing"
			if progress >= 100 {
				status = "completed"
			}
			bus.Publish(key, task.Event{Status: status, Progress: float64(progress), Message: message})
		})
		if err != nil {
			bus.Publish(key, task.Event{Status: "failed", Message: err.Error()})
		}
		return err
	})
	return err
}

func (s *DocumentService) Get(ctx context.Context, documentID int64) (*model.Document, error) {
	return s.docs.GetByID(ctx, documentID)
}

// Delete cancels any in-flight ingestion, waits for the worker to release
// the document, then removes the row (chunks cascade) and the stored file.
func (s *DocumentService) Delete(ctx context.Context, documentID int64) error {
	doc, err := s.docs.GetByID(ctx, documentID)
	if err != nil {
		return err
	}
	s.runner.CancelAndWait(task.IngestKey(documentID))
	if err := s.docs.Delete(ctx, documentID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, doc.FilePath); err != nil {
		logutil.GetLogger(ctx).Warn("failed to remove uploaded file",
			zap.String("key", doc.FilePath), zap.Error(err))
	}
	return nil
}

// ReconcileInterrupted fails documents stranded in processing by a crash so
// the user can reprocess them. Called once at startup.
func (s *DocumentService) ReconcileInterrupted(ctx context.Context) error {
	n, err := s.docs.FailProcessing(ctx, "interrupted by restart")
	if err != nil {
		return err
	}
	if n > 0 {
		logutil.GetLogger(ctx).Warn("failed interrupted documents", zap.Int64("count", n))
	}
	return nil
}

// StoreFileSource adapts the filestore to the ingestion pipeline.
type StoreFileSource struct {
	Store filestore.Store
}

func (s StoreFileSource) ReadFile(ctx context.Context, key string) ([]byte, error) {
	f, err := s.Store.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
