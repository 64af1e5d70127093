package attack

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jhye/pistorm/internal/model"
)

// ErrAttackRunning is returned when an attack is requested while one is
// already in progress. The Pi has one radio; concurrent attacks would
// fight over it.
var ErrAttackRunning = errors.New("attack already running")

// Tracker owns the shared attack record. All mutation goes through its
// methods so the HTTP handlers always read a consistent snapshot.
type Tracker struct {
	mu     sync.Mutex
	report model.AttackReport

	// gpuResult is the mailbox crack results from the GPU host land in.
	// Buffered so delivery never blocks the HTTP handler.
	gpuResult chan model.CrackResult
}

// NewTracker creates a Tracker in the idle state.
func NewTracker() *Tracker {
	return &Tracker{
		gpuResult: make(chan model.CrackResult, 1),
	}
}

// Begin claims the tracker for a new attack. It fails with
// ErrAttackRunning when an attack is already active.
func (t *Tracker) Begin(target string, timeout time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.report.Running {
		return ErrAttackRunning
	}

	now := time.Now()
	t.report = model.AttackReport{
		Running:            true,
		Target:             target,
		Phase:              model.PhasePreparing,
		Step:               "Preparing",
		StartedAt:          now,
		UpdatedAt:          now,
		EstimatedRemaining: int(timeout.Seconds()),
	}

	// Drain a stale result from a previous attack.
	select {
	case <-t.gpuResult:
	default:
	}
	return nil
}

// Running reports whether an attack is active.
func (t *Tracker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.report.Running
}

// StepUpdate records progress: the step description, overall progress,
// phase, and progress within the step.
func (t *Tracker) StepUpdate(step string, progress int, phase model.Phase, subProgress int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.report.Step = step
	t.report.Progress = progress
	t.report.Phase = phase
	t.report.SubProgress = subProgress
	t.report.UpdatedAt = time.Now()
}

// Mutate applies fn to the report under the lock, for updates beyond
// what StepUpdate covers (BSSID, capture file, wordlist, ...).
func (t *Tracker) Mutate(fn func(*model.AttackReport)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	fn(&t.report)
	t.report.UpdatedAt = time.Now()
}

// Finish marks the attack complete with the given result string (a
// passphrase or ResultNotFound).
func (t *Tracker) Finish(result, step string) {
	t.finish(result, step, model.PhaseComplete, 100)
}

// Fail marks the attack failed.
func (t *Tracker) Fail(err error) {
	t.finish(model.ResultFailed, "error: "+err.Error(), model.PhaseError, 0)
}

// Cancel marks the attack cancelled by the operator.
func (t *Tracker) Cancel() {
	t.finish(model.ResultCancelled, "Attack cancelled", model.PhaseCancelled, 0)
}

func (t *Tracker) finish(result, step string, phase model.Phase, progress int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	t.report.Running = false
	t.report.Result = result
	t.report.Step = step
	t.report.Phase = phase
	t.report.Progress = progress
	t.report.FinishedAt = now
	t.report.UpdatedAt = now
	t.report.EstimatedRemaining = 0
	t.report.GPUProcessing = false
	t.report.CurrentWordlist = ""
}

// Report returns a copy of the current attack record.
func (t *Tracker) Report() model.AttackReport {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.report
}

// Snapshot returns the derived status view of the record.
func (t *Tracker) Snapshot(gpuEnabled bool) model.StatusSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.report.Snapshot(time.Now(), gpuEnabled)
}

// DeliverGPUResult hands a crack result from the GPU host to the
// waiting attack. A newer result replaces an unconsumed older one.
func (t *Tracker) DeliverGPUResult(res model.CrackResult) {
	for {
		select {
		case t.gpuResult <- res:
			return
		default:
			select {
			case <-t.gpuResult:
			default:
			}
		}
	}
}

// AwaitGPUResult blocks until the GPU host reports a result, the wait
// elapses, or the context is cancelled. The boolean is false when no
// result arrived.
func (t *Tracker) AwaitGPUResult(ctx context.Context, wait time.Duration) (model.CrackResult, bool) {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case res := <-t.gpuResult:
		return res, true
	case <-timer.C:
		return model.CrackResult{}, false
	case <-ctx.Done():
		return model.CrackResult{}, false
	}
}
