// Package jobs holds the in-process background work the service owns. The
// only job today is materials preparation, which replaces the old pattern of
// trusting the creating client to fire a follow-up request.
package jobs

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/belajaryuk/roadmap-api/internal/services"
	"gorm.io/gorm"
)

type prepareJob struct {
	roadmapID string
	userID    string
	attempt   int
}

// MaterialsWorker drains a queue of roadmap ids and prepares their reading
// materials. Jobs are idempotent on roadmap id (preparation is a no-op once
// materials exist), deduplicated while in flight, and retried with backoff a
// bounded number of times.
type MaterialsWorker struct {
	db         *gorm.DB
	gen        *services.Generator
	queue      chan prepareJob
	maxRetries int

	mu       sync.Mutex
	inflight map[string]struct{}

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewMaterialsWorker builds a worker with a bounded queue.
func NewMaterialsWorker(db *gorm.DB, gen *services.Generator, queueSize, maxRetries int) *MaterialsWorker {
	if queueSize < 1 {
		queueSize = 1
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &MaterialsWorker{
		db:         db,
		gen:        gen,
		queue:      make(chan prepareJob, queueSize),
		maxRetries: maxRetries,
		inflight:   make(map[string]struct{}),
	}
}

// Start launches the single worker goroutine.
func (w *MaterialsWorker) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop drains nothing: queued jobs not yet started are dropped, matching the
// at-least-once-from-enqueue, not-across-restarts durability of an in-process
// queue. Callers can always re-trigger preparation via the endpoint.
func (w *MaterialsWorker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

// Enqueue schedules preparation for a roadmap. Returns false when the queue
// is full or the roadmap is already queued; the creation flow treats that as
// non-fatal since the endpoint remains available.
func (w *MaterialsWorker) Enqueue(roadmapID, userID string) bool {
	w.mu.Lock()
	if _, dup := w.inflight[roadmapID]; dup {
		w.mu.Unlock()
		return false
	}
	w.inflight[roadmapID] = struct{}{}
	w.mu.Unlock()

	select {
	case w.queue <- prepareJob{roadmapID: roadmapID, userID: userID}:
		return true
	default:
		w.release(roadmapID)
		log.Printf("Materials queue full, dropping roadmap %s", roadmapID)
		return false
	}
}

func (w *MaterialsWorker) run(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-w.queue:
			w.process(ctx, job)
		}
	}
}

func (w *MaterialsWorker) process(ctx context.Context, job prepareJob) {
	result, err := services.PrepareMaterials(ctx, w.db, w.gen, job.roadmapID, job.userID)
	if err == nil {
		w.release(job.roadmapID)
		if !result.AlreadyPrepared {
			log.Printf("Prepared %d materials for roadmap %s", result.Count, job.roadmapID)
		}
		return
	}

	if job.attempt >= w.maxRetries {
		w.release(job.roadmapID)
		log.Printf("Materials preparation gave up on roadmap %s after %d attempts: %v",
			job.roadmapID, job.attempt+1, err)
		return
	}

	backoff := time.Duration(1<<uint(job.attempt)) * time.Second
	log.Printf("Materials preparation failed for roadmap %s (attempt %d), retrying in %s: %v",
		job.roadmapID, job.attempt+1, backoff, err)

	job.attempt++
	go func(j prepareJob) {
		select {
		case <-ctx.Done():
			w.release(j.roadmapID)
		case <-time.After(backoff):
			select {
			case w.queue <- j:
			default:
				w.release(j.roadmapID)
				log.Printf("Materials queue full on retry, dropping roadmap %s", j.roadmapID)
			}
		}
	}(job)
}

func (w *MaterialsWorker) release(roadmapID string) {
	w.mu.Lock()
	delete(w.inflight, roadmapID)
	w.mu.Unlock()
}
