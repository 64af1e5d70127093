package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/jhye/pistorm/internal/model"
)

// AttackDB provides SQLite-based storage for attack history and scan
// snapshots. It manages connection pooling and provides methods for
// CRUD operations.
//
// Design decision: We use a single database file for all attack runs
// rather than a file per session. The history endpoints query across
// sessions, and a single file keeps backup trivial.
type AttackDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures AttackDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates an AttackDB at the specified path.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*AttackDB, error) {
	dbPath := filepath.Join(dbDir, "pistorm.db")

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite connection string: mode=rw prevents creating
	// new files, mode=rwc allows creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer; the orchestrator is the only
	// process touching the file anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	adb := &AttackDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := adb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return adb, nil
}

// Close closes the database connection.
func (adb *AttackDB) Close() error {
	return adb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (adb *AttackDB) createTables() error {
	schema := `
	-- Attack reports store one row per finished attack run
	CREATE TABLE IF NOT EXISTS attack_reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		target TEXT NOT NULL,
		bssid TEXT,
		succeeded INTEGER NOT NULL DEFAULT 0,
		handshake INTEGER NOT NULL DEFAULT 0,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_reports_target ON attack_reports(target);
	CREATE INDEX IF NOT EXISTS idx_reports_timestamp ON attack_reports(timestamp);

	-- Scan snapshots store one row per survey, networks as JSON
	CREATE TABLE IF NOT EXISTS scan_snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		network_count INTEGER NOT NULL,
		networks_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_scans_timestamp ON scan_snapshots(timestamp);
	`

	_, err := adb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveReport inserts a finished attack report. The full record is kept
// as JSON; the indexed columns exist for history queries.
func (adb *AttackDB) SaveReport(ctx context.Context, report model.AttackReport) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}

	query := `
	INSERT INTO attack_reports (target, bssid, succeeded, handshake, report_json)
	VALUES (?, ?, ?, ?, ?)
	`

	_, err = adb.db.ExecContext(ctx, query,
		report.Target,
		report.TargetBSSID,
		boolInt(report.Succeeded()),
		boolInt(report.HandshakeCaptured),
		string(reportJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save attack report: %w", err)
	}

	return nil
}

// ReportMetadata contains summary information about a stored attack.
// This is used for displaying history without loading full reports.
type ReportMetadata struct {
	// ID is the unique identifier of the report in the database.
	ID int64 `json:"id"`

	// Target is the attacked SSID.
	Target string `json:"target"`

	// BSSID is the access point MAC, when it was located.
	BSSID string `json:"bssid,omitempty"`

	// Succeeded reports whether a passphrase was recovered.
	Succeeded bool `json:"succeeded"`

	// HandshakeCaptured reports whether a usable handshake was seen.
	HandshakeCaptured bool `json:"handshake_captured"`

	// Timestamp is when the report was stored.
	Timestamp time.Time `json:"timestamp"`
}

// History retrieves metadata for the most recent attacks, newest
// first. A target filters the list; empty means all targets.
func (adb *AttackDB) History(ctx context.Context, target string, limit int) ([]ReportMetadata, error) {
	query := `
	SELECT id, target, bssid, succeeded, handshake, timestamp
	FROM attack_reports
	WHERE 1=1
	`
	args := make([]interface{}, 0)

	if target != "" {
		query += " AND target = ?"
		args = append(args, target)
	}

	query += " ORDER BY timestamp DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := adb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query attack history: %w", err)
	}
	defer rows.Close()

	var results []ReportMetadata
	for rows.Next() {
		var meta ReportMetadata
		var bssid sql.NullString
		var succeeded, handshake int
		var timestamp string

		if err := rows.Scan(&meta.ID, &meta.Target, &bssid, &succeeded, &handshake, &timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}

		meta.BSSID = bssid.String
		meta.Succeeded = succeeded != 0
		meta.HandshakeCaptured = handshake != 0
		meta.Timestamp = parseTimestamp(timestamp)
		results = append(results, meta)
	}

	return results, rows.Err()
}

// GetReportByID retrieves a full attack report by its database ID.
func (adb *AttackDB) GetReportByID(ctx context.Context, id int64) (*model.AttackReport, error) {
	query := `
	SELECT report_json FROM attack_reports
	WHERE id = ?
	`

	var reportJSON string
	err := adb.db.QueryRowContext(ctx, query, id).Scan(&reportJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get attack report: %w", err)
	}

	var report model.AttackReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	return &report, nil
}

// LatestReportFor retrieves the most recent full report for a target.
func (adb *AttackDB) LatestReportFor(ctx context.Context, target string) (*model.AttackReport, error) {
	query := `
	SELECT report_json FROM attack_reports
	WHERE target = ?
	ORDER BY timestamp DESC
	LIMIT 1
	`

	var reportJSON string
	err := adb.db.QueryRowContext(ctx, query, target).Scan(&reportJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get attack report: %w", err)
	}

	var report model.AttackReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	return &report, nil
}

// SaveScan stores a survey snapshot.
func (adb *AttackDB) SaveScan(ctx context.Context, networks []model.Network) error {
	networksJSON, err := json.Marshal(networks)
	if err != nil {
		return fmt.Errorf("failed to serialize networks: %w", err)
	}

	query := `
	INSERT INTO scan_snapshots (network_count, networks_json)
	VALUES (?, ?)
	`

	if _, err := adb.db.ExecContext(ctx, query, len(networks), string(networksJSON)); err != nil {
		return fmt.Errorf("failed to save scan snapshot: %w", err)
	}

	return nil
}

// LatestScan retrieves the most recent survey snapshot. A nil slice
// with a zero time means no survey has been stored yet.
func (adb *AttackDB) LatestScan(ctx context.Context) ([]model.Network, time.Time, error) {
	query := `
	SELECT networks_json, timestamp FROM scan_snapshots
	ORDER BY timestamp DESC
	LIMIT 1
	`

	var networksJSON string
	var timestamp string
	err := adb.db.QueryRowContext(ctx, query).Scan(&networksJSON, &timestamp)
	if err == sql.ErrNoRows {
		return nil, time.Time{}, nil
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to get scan snapshot: %w", err)
	}

	var networks []model.Network
	if err := json.Unmarshal([]byte(networksJSON), &networks); err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to parse scan snapshot: %w", err)
	}

	return networks, parseTimestamp(timestamp), nil
}

// boolInt converts a bool to the 0/1 SQLite stores.
func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// SQLite may return timestamps in different formats depending on configuration.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
