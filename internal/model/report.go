package model

import (
	"time"
)

// Result strings reported by the attack worker. Any other value in
// AttackReport.Result is a recovered passphrase.
const (
	// ResultNotFound means the attack finished without recovering a key.
	ResultNotFound = "NOT FOUND"

	// ResultFailed means the attack aborted with an error.
	ResultFailed = "FAILED"

	// ResultCancelled means the attack was cancelled by the operator.
	ResultCancelled = "CANCELLED"
)

// StaleAfter is how long the status record may go without an update
// before pollers should treat the worker as wedged.
const StaleAfter = 10 * time.Second

// AttackReport is the single shared attack record. One attack runs at a
// time; the tracker in the attack package guards a value of this type
// with a mutex and hands copies to HTTP handlers.
//
// Design decision: We use one flat struct rather than per-phase records
// because every consumer (status endpoint, results endpoint, database,
// report writers) wants the whole picture, and the record is small.
type AttackReport struct {
	// Running is true while the worker goroutine is active.
	Running bool `json:"running"`

	// Target is the SSID under attack.
	Target string `json:"target"`

	// TargetBSSID is the access point MAC, once located.
	TargetBSSID string `json:"target_bssid,omitempty"`

	// Channel is the target's 802.11 channel, once located.
	Channel int `json:"channel,omitempty"`

	// Phase is the current stage of the state machine.
	Phase Phase `json:"phase"`

	// Step is the human-readable description of the current step.
	Step string `json:"step"`

	// Progress is the overall completion percentage (0-100).
	Progress int `json:"progress"`

	// SubProgress tracks completion within the current step (0-100).
	SubProgress int `json:"sub_progress"`

	// Result is the outcome: a passphrase, or one of the Result*
	// constants. Empty while the attack is running.
	Result string `json:"result,omitempty"`

	// StartedAt is when the worker began.
	StartedAt time.Time `json:"started_at,omitempty"`

	// FinishedAt is when the worker reached a terminal phase.
	FinishedAt time.Time `json:"finished_at,omitempty"`

	// UpdatedAt is when the record last changed. Pollers use this for
	// staleness detection.
	UpdatedAt time.Time `json:"updated_at,omitempty"`

	// HandshakeCaptured is true once validation saw a usable handshake.
	HandshakeCaptured bool `json:"handshake_captured"`

	// CaptureFile is the path of the pcap produced by airodump-ng.
	CaptureFile string `json:"capture_file,omitempty"`

	// CurrentWordlist is the wordlist the local cracker is working
	// through, empty outside the cracking phase.
	CurrentWordlist string `json:"current_wordlist,omitempty"`

	// NetworksFound is the number of networks seen by the locate scan.
	NetworksFound int `json:"networks_found"`

	// GPUProcessing is true while the GPU host owns the job.
	GPUProcessing bool `json:"gpu_processing"`

	// EstimatedRemaining is a rough seconds-remaining estimate derived
	// from the attack timeout. Zero when unknown.
	EstimatedRemaining int `json:"estimated_time_remaining"`
}

// Succeeded reports whether the attack recovered a passphrase.
func (r *AttackReport) Succeeded() bool {
	switch r.Result {
	case "", ResultNotFound, ResultFailed, ResultCancelled:
		return false
	}
	return true
}

// Runtime returns how long the attack has been (or was) running.
func (r *AttackReport) Runtime(now time.Time) time.Duration {
	if r.StartedAt.IsZero() {
		return 0
	}
	end := now
	if !r.FinishedAt.IsZero() {
		end = r.FinishedAt
	}
	return end.Sub(r.StartedAt)
}

// StatusSnapshot is the JSON body of the /status endpoint: the report
// plus derived fields that save pollers from doing time math.
type StatusSnapshot struct {
	AttackReport

	// RuntimeSeconds is seconds since the attack started.
	RuntimeSeconds int `json:"runtime"`

	// SecondsSinceUpdate drives the staleness flag.
	SecondsSinceUpdate int `json:"time_since_update"`

	// Stale is true when the worker has not updated the record within
	// StaleAfter.
	Stale bool `json:"is_stale"`

	// Completed is true for a finished attack that reached 100%.
	Completed bool `json:"completed"`

	// Failed is true for a finished attack that aborted.
	Failed bool `json:"failed"`

	// FinalResult echoes Result only once the attack completed, so
	// pollers never display a partial value.
	FinalResult string `json:"final_result,omitempty"`

	// GPUEnabled reports whether offload is configured at all.
	GPUEnabled bool `json:"gpu_enabled"`

	// Timestamp is the server time the snapshot was taken (unix secs).
	Timestamp int64 `json:"timestamp"`
}

// Snapshot derives a StatusSnapshot from the report at time now.
func (r *AttackReport) Snapshot(now time.Time, gpuEnabled bool) StatusSnapshot {
	snap := StatusSnapshot{
		AttackReport:   *r,
		RuntimeSeconds: int(r.Runtime(now).Seconds()),
		GPUEnabled:     gpuEnabled,
		Timestamp:      now.Unix(),
	}
	if !r.UpdatedAt.IsZero() {
		snap.SecondsSinceUpdate = int(now.Sub(r.UpdatedAt).Seconds())
		snap.Stale = r.Running && now.Sub(r.UpdatedAt) > StaleAfter
	}
	switch {
	case !r.Running && r.Phase == PhaseComplete:
		snap.Completed = true
		snap.FinalResult = r.Result
	case !r.Running && (r.Phase == PhaseError || r.Phase == PhaseCancelled):
		snap.Failed = true
	}
	return snap
}
