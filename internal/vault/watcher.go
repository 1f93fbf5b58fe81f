package vault

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/TheMichaelB/calcvault/internal/events"
)

// DefaultDebounce is the quiet period before staged files are ingested.
const DefaultDebounce = 500 * time.Millisecond

// Watcher ingests the staging directory whenever files land in it. Bursts
// of filesystem events collapse into one ingest after the debounce period.
type Watcher struct {
	vault    *Vault
	runner   *Runner
	debounce time.Duration
	logger   *events.Logger

	// OnIngest, if set, receives every finished ingest report.
	OnIngest func(IngestReport, error)

	mu      sync.Mutex
	current *Task
}

// NewWatcher creates a staging watcher that submits ingest tasks to runner.
func NewWatcher(v *Vault, runner *Runner, debounce time.Duration, logger *events.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		vault:    v,
		runner:   runner,
		debounce: debounce,
		logger:   logger.WithField("component", "staging_watcher"),
	}
}

// Run watches until ctx is cancelled. Files already staged are ingested
// once at start.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	dir := w.vault.StagingDir()
	if err := fsw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	w.logger.WithField("dir", dir).Info("Watching staging directory")

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.wait()
			w.logger.Info("Staging watcher stopped")
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.logger.WithFields(map[string]interface{}{
				"file": event.Name,
				"op":   event.Op.String(),
			}).Debug("Staging changed")
			resetTimer(timer, w.debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.WithError(err).Warn("Watcher error")

		case <-timer.C:
			if !w.trigger(ctx) {
				// Previous ingest still running; look again later
				timer.Reset(w.debounce)
			}
		}
	}
}

// trigger submits an ingest task unless one is in flight.
func (w *Watcher) trigger(ctx context.Context) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.current != nil {
		select {
		case <-w.current.Done():
		default:
			return false
		}
	}

	w.current = w.runner.Go(ctx, TaskIngest, func(ctx context.Context, task *Task) (string, error) {
		report, err := w.vault.Ingest(ctx, func(res IngestResult) {
			task.Report(res.Status())
		})
		if w.OnIngest != nil {
			w.OnIngest(report, err)
		}
		return report.Summary(), err
	})
	return true
}

func (w *Watcher) wait() {
	w.mu.Lock()
	current := w.current
	w.mu.Unlock()

	if current != nil {
		<-current.Done()
	}
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
