// Package attack runs the handshake capture and cracking workflow.
//
// The workflow is a pipeline of steps (locate target, capture,
// validate, GPU offload, local crack, finalize) executed by a single
// worker goroutine. Exactly one attack runs at a time; the Tracker
// guards the shared AttackReport that the HTTP status endpoints read,
// and carries the mailbox the GPU host's crack results arrive through.
package attack
