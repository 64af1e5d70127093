// Package model defines the core data structures used throughout PiStorm.
//
// This package contains the following main types:
//   - Network: A WiFi access point discovered during a scan
//   - AttackReport: The state of a running or finished attack
//   - StatusSnapshot: A point-in-time view of an attack for HTTP polling
//   - CrackResult: The cross-host job handoff payload for GPU cracking
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. Multiple packages (wireless, attack, server, report) need to
// use these types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for API responses and
// database storage.
package model
