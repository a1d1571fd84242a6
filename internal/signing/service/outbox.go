package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/quill/pkg/slogx"
)

// OutboxWorker polls the outbox and hands due jobs to the completion
// service. It picks up whatever inline processing left behind: failed seals,
// every notification, and jobs orphaned by a crash once their lease lapses.
type OutboxWorker struct {
	Completion   *CompletionService
	Logger       *slog.Logger
	Workers      int
	PollInterval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewOutboxWorker creates a worker pool. Non-positive values default to one
// worker polling every second.
func NewOutboxWorker(completion *CompletionService, logger *slog.Logger, workers int, poll time.Duration) *OutboxWorker {
	if workers <= 0 {
		workers = 1
	}
	if poll <= 0 {
		poll = time.Second
	}
	return &OutboxWorker{
		Completion:   completion,
		Logger:       logger,
		Workers:      workers,
		PollInterval: poll,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
}

// Start launches the workers. Call Stop to shut them down.
func (w *OutboxWorker) Start() {
	var wg sync.WaitGroup
	for i := range w.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.loop(i)
		}()
	}
	go func() {
		wg.Wait()
		close(w.doneCh)
	}()
	w.Logger.Info("outbox worker started", "workers", w.Workers, "poll_interval", w.PollInterval)
}

// Stop signals the workers and waits for in-flight jobs to finish.
func (w *OutboxWorker) Stop() {
	close(w.stopCh)
	<-w.doneCh
	w.Logger.Info("outbox worker stopped")
}

func (w *OutboxWorker) loop(n int) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-w.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	logger := w.Logger.With("worker", n)
	ctx = slogx.WithContext(ctx, logger)

	ticker := time.NewTicker(w.PollInterval)
	defer ticker.Stop()

	for {
		w.drain(ctx, logger)
		select {
		case <-ticker.C:
		case <-w.stopCh:
			return
		}
	}
}

// drain runs jobs until none are due.
func (w *OutboxWorker) drain(ctx context.Context, logger *slog.Logger) {
	for ctx.Err() == nil {
		found, err := w.Completion.RunOnce(ctx)
		if err != nil && ctx.Err() == nil {
			logger.Debug("outbox job attempt failed", "error", err)
		}
		if !found {
			return
		}
	}
}
