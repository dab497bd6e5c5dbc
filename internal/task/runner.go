package task

import (
	"context"
	"fmt"
	"sync"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type Kind string

const (
	KindIngest  Kind = "ingest"
	KindPodcast Kind = "podcast"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Func is the work a task performs. It must poll ctx between phases; a
// cancelled ctx means a cooperative stop was requested.
type Func func(ctx context.Context) error

type job struct {
	kind   Kind
	key    string
	run    Func
	cancel context.CancelFunc
	ctx    context.Context
	done   chan struct{}
}

// Runner executes tasks one at a time per process from a FIFO queue. At most
// one task per key may be pending or processing; a duplicate submit is a
// no-op. Progress events flow through the Bus under the task's key.
type Runner struct {
	bus   *Bus
	queue chan *job

	mu       sync.Mutex
	inflight map[string]*job
	status   map[string]Status

	wg      sync.WaitGroup
	started bool
}

func NewRunner(bus *Bus, queueSize int) *Runner {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Runner{
		bus:      bus,
		queue:    make(chan *job, queueSize),
		inflight: make(map[string]*job),
		status:   make(map[string]Status),
	}
}

func (r *Runner) Bus() *Bus {
	return r.bus
}

// Submit enqueues work under key. Returns false when a task for the key is
// already pending or processing.
func (r *Runner) Submit(kind Kind, key string, run Func) (bool, error) {
	r.mu.Lock()
	if s, ok := r.status[key]; ok && (s == StatusPending || s == StatusProcessing) {
		r.mu.Unlock()
		return false, nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	j := &job{kind: kind, key: key, run: run, cancel: cancel, ctx: ctx, done: make(chan struct{})}
	r.inflight[key] = j
	r.status[key] = StatusPending
	r.mu.Unlock()

	select {
	case r.queue <- j:
		return true, nil
	default:
		r.mu.Lock()
		delete(r.inflight, key)
		delete(r.status, key)
		r.mu.Unlock()
		cancel()
		return false, fmt.Errorf("task queue full")
	}
}

// Cancel requests a cooperative stop of the task under key, if any.
func (r *Runner) Cancel(key string) bool {
	r.mu.Lock()
	j, ok := r.inflight[key]
	r.mu.Unlock()
	if !ok {
		return false
	}
	j.cancel()
	return true
}

// CancelAndWait cancels the task and blocks until the worker has released
// it. Used by document deletion so the cascade runs after the task stops.
func (r *Runner) CancelAndWait(key string) {
	r.mu.Lock()
	j, ok := r.inflight[key]
	r.mu.Unlock()
	if !ok {
		return
	}
	j.cancel()
	<-j.done
}

func (r *Runner) StatusOf(key string) (Status, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.status[key]
	return s, ok
}

// Start launches the single worker goroutine. Tasks run strictly one at a
// time within this process; parallelism comes from running more processes.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return
	}
	r.started = true
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case j := <-r.queue:
				r.execute(j)
			}
		}
	}()
}

func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) execute(j *job) {
	logger := logutil.GetLogger(j.ctx).With(
		zap.String("task_kind", string(j.kind)),
		zap.String("task_key", j.key),
	)
	r.mu.Lock()
	r.status[j.key] = StatusProcessing
	r.mu.Unlock()

	logger.Info("task started")
	err := j.run(j.ctx)
	j.cancel()

	r.mu.Lock()
	if err != nil {
		r.status[j.key] = StatusFailed
	} else {
		r.status[j.key] = StatusCompleted
	}
	delete(r.inflight, j.key)
	r.mu.Unlock()
	close(j.done)

	if err != nil {
		logger.Error("task failed", zap.Error(err))
		return
	}
	logger.Info("task finished")
}

// IngestKey and PodcastKey name the event streams for the two task kinds.
func IngestKey(documentID int64) string {
	return fmt.Sprintf("ingest:%d", documentID)
}

func PodcastKey(versionID int64) string {
	return fmt.Sprintf("podcast:%d", versionID)
}

func DownloadKey() string {
	return "model-download"
}
