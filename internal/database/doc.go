// Package database provides SQLite-based storage for PiStorm.
//
// This package implements the AttackDB, which stores:
//   - Finished attack reports for the history endpoints
//   - Scan snapshots so past survey results survive a reboot
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
// 1. No external dependencies - the database is a single file on the SD card
// 2. CGO-free implementation allows easy cross-compilation for the Pi
// 3. Sufficient performance for a single-writer orchestrator
// 4. WAL mode keeps history reads cheap while an attack is being recorded
package database
