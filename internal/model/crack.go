package model

import "time"

// CrackStatus is the lifecycle state a GPU job reports back to the Pi.
type CrackStatus string

const (
	// CrackStatusReceived means the listener picked up the capture file.
	CrackStatusReceived CrackStatus = "received"

	// CrackStatusCracking means hashcat is running.
	CrackStatusCracking CrackStatus = "cracking"

	// CrackStatusCompleted means hashcat finished, with or without a key.
	CrackStatusCompleted CrackStatus = "completed"

	// CrackStatusError means conversion or hashcat failed.
	CrackStatusError CrackStatus = "error"
)

// CrackResult is the job handoff payload exchanged between the GPU
// listener and the Pi orchestrator over /crack_result.
type CrackResult struct {
	// Target identifies the job, normally the capture file base name.
	Target string `json:"target"`

	// Password is the recovered passphrase, empty when none was found.
	Password string `json:"password,omitempty"`

	// CrackedBy names the host or device that produced the result.
	CrackedBy string `json:"cracked_by,omitempty"`

	// Status is the job lifecycle state.
	Status CrackStatus `json:"status"`

	// Message carries step text or an error description.
	Message string `json:"message,omitempty"`

	// Elapsed is how long the GPU host spent on the job.
	Elapsed time.Duration `json:"elapsed,omitempty"`
}

// Found reports whether the job recovered a passphrase.
func (c *CrackResult) Found() bool {
	return c.Status == CrackStatusCompleted && c.Password != ""
}
