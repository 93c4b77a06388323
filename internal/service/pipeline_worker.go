package service

import (
	"context"
	"log"
	"sync"
	"time"

	"labsight/internal/port"
)

// PipelineWorkerConfig holds settings for the requeue worker.
type PipelineWorkerConfig struct {
	PollInterval time.Duration
	StaleAfter   time.Duration
	Concurrency  int
	RunTimeout   time.Duration
}

// PipelineWorker re-dispatches documents whose background run never started:
// uploads accepted right before a crash or deploy stay queued forever unless
// someone picks them up again.
type PipelineWorker struct {
	store    port.DocumentStore
	pipeline Pipeline
	cfg      PipelineWorkerConfig
	wg       sync.WaitGroup
}

// NewPipelineWorker creates a new PipelineWorker.
func NewPipelineWorker(store port.DocumentStore, pipeline Pipeline, cfg PipelineWorkerConfig) *PipelineWorker {
	return &PipelineWorker{
		store:    store,
		pipeline: pipeline,
		cfg:      cfg,
	}
}

// Start runs the polling loop until ctx is canceled. It blocks until all
// in-flight runs have finished.
func (w *PipelineWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	sem := make(chan struct{}, w.cfg.Concurrency)

	log.Printf("pipelineWorker: started (poll=%s, staleAfter=%s, concurrency=%d)",
		w.cfg.PollInterval, w.cfg.StaleAfter, w.cfg.Concurrency)

	for {
		select {
		case <-ctx.Done():
			log.Printf("pipelineWorker: shutting down, waiting for in-flight runs...")
			w.wg.Wait()
			log.Printf("pipelineWorker: shutdown complete")
			return
		case <-ticker.C:
			available := w.cfg.Concurrency - len(sem)
			if available <= 0 {
				continue
			}

			cutoff := time.Now().Add(-w.cfg.StaleAfter)
			docs, err := w.store.ListStaleQueued(ctx, cutoff, available)
			if err != nil {
				if ctx.Err() != nil {
					// Canceled mid-poll; the Done branch handles shutdown.
					continue
				}
				log.Printf("pipelineWorker: ListStaleQueued error: %v", err)
				continue
			}

			for i := range docs {
				doc := docs[i] // copy for goroutine

				sem <- struct{}{} // acquire
				w.wg.Add(1)
				go func() {
					defer w.wg.Done()
					defer func() { <-sem }() // release

					// Use a fresh context independent of the poll context
					// so in-flight runs complete even during shutdown.
					timeout := w.cfg.RunTimeout
					if timeout <= 0 {
						timeout = 5 * time.Minute
					}
					runCtx, cancel := context.WithTimeout(context.Background(), timeout)
					defer cancel()

					log.Printf("pipelineWorker: re-dispatching stale document %s", doc.ID)
					if err := w.pipeline.Run(runCtx, &doc); err != nil {
						log.Printf("pipelineWorker: run for document %s: %v", doc.ID, err)
					}
				}()
			}
		}
	}
}
