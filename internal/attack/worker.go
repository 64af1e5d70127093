package attack

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/jhye/pistorm/internal/capture"
	"github.com/jhye/pistorm/internal/config"
	"github.com/jhye/pistorm/internal/model"
	"github.com/jhye/pistorm/internal/wireless"
)

// Recorder persists finished attack reports. Implemented by the
// database package; nil disables history.
type Recorder interface {
	SaveReport(ctx context.Context, report model.AttackReport) error
}

// Worker runs attacks one at a time on the shared radio.
type Worker struct {
	mgr       *wireless.Manager
	store     *capture.Store
	tracker   *Tracker
	cfg       *config.Config
	offloader Offloader
	recorder  Recorder
	logger    *slog.Logger

	scanIface string
	monIface  string

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithOffloader sets the GPU offloader.
func WithOffloader(o Offloader) WorkerOption {
	return func(w *Worker) {
		w.offloader = o
	}
}

// WithRecorder sets the attack history recorder.
func WithRecorder(r Recorder) WorkerOption {
	return func(w *Worker) {
		w.recorder = r
	}
}

// WithWorkerLogger sets the logger.
func WithWorkerLogger(l *slog.Logger) WorkerOption {
	return func(w *Worker) {
		w.logger = l
	}
}

// NewWorker creates a Worker bound to the given interfaces.
func NewWorker(mgr *wireless.Manager, store *capture.Store, tracker *Tracker, cfg *config.Config, scanIface, monIface string, opts ...WorkerOption) *Worker {
	w := &Worker{
		mgr:       mgr,
		store:     store,
		tracker:   tracker,
		cfg:       cfg,
		scanIface: scanIface,
		monIface:  monIface,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Tracker returns the worker's tracker.
func (w *Worker) Tracker() *Tracker {
	return w.tracker
}

// Start validates the target and launches the attack goroutine.
// It returns immediately; progress is observed through the tracker.
func (w *Worker) Start(target string) error {
	if err := model.ValidateSSID(target); err != nil {
		return err
	}
	if err := w.tracker.Begin(target, w.cfg.AttackTimeout.Std()); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.cfg.AttackTimeout.Std())
	done := make(chan struct{})

	w.mu.Lock()
	w.cancel = cancel
	w.done = done
	w.mu.Unlock()

	go func() {
		defer cancel()
		defer close(done)
		w.run(ctx, target)
	}()
	return nil
}

// Stop cancels a running attack. A no-op when nothing runs.
func (w *Worker) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Wait blocks until the current attack goroutine exits. Used by tests
// and graceful shutdown.
func (w *Worker) Wait() {
	w.mu.Lock()
	done := w.done
	w.mu.Unlock()

	if done != nil {
		<-done
	}
}

// run executes the attack pipeline and guarantees cleanup: leftover
// tool processes are killed and the monitor interface is returned to
// managed mode no matter how the attack ends.
func (w *Worker) run(ctx context.Context, target string) {
	defer func() {
		w.mgr.Registry().KillAll()

		// Interface restoration must not inherit the attack's
		// (possibly expired) context.
		restoreCtx, cancel := context.WithTimeout(context.Background(), config.DefaultCaptureSettle)
		defer cancel()
		if err := w.mgr.SetManagedMode(restoreCtx, w.monIface); err != nil {
			w.logger.Warn("failed to restore managed mode", "interface", w.monIface, "error", err)
		}

		w.record()
	}()

	pipeline := NewPipeline(WithPipelineLogger(w.logger))
	pipeline.AddSteps(
		NewLocateTargetStep(w.mgr, w.scanIface, w.logger),
		NewCaptureStep(w.mgr, w.store, w.cfg, w.monIface, w.logger),
		NewValidateStep(w.mgr, w.logger),
		NewOffloadStep(w.offloader, w.cfg, w.logger),
		NewLocalCrackStep(w.mgr, w.cfg, w.logger),
	)

	err := pipeline.Execute(ctx, w.tracker)
	switch {
	case err == nil:
		report := w.tracker.Report()
		if report.Succeeded() {
			w.tracker.Finish(report.Result, "Attack completed")
		} else {
			w.tracker.Finish(model.ResultNotFound, "Attack completed - passphrase not found")
		}
	case errors.Is(err, context.Canceled):
		w.logger.Info("attack cancelled", "target", target)
		w.tracker.Cancel()
	case errors.Is(err, context.DeadlineExceeded):
		w.logger.Warn("attack timed out", "target", target)
		w.tracker.Fail(errors.New("attack timeout exceeded"))
	default:
		w.logger.Error("attack failed", "target", target, "error", err)
		w.tracker.Fail(err)
	}
}

// record persists the finished report when a recorder is configured.
func (w *Worker) record() {
	if w.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), config.DefaultCaptureSettle)
	defer cancel()
	if err := w.recorder.SaveReport(ctx, w.tracker.Report()); err != nil {
		w.logger.Warn("failed to record attack report", "error", err)
	}
}
