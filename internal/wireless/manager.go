package wireless

import (
	"io"
	"log/slog"
)

// Manager bundles the Runner, logger, and PID registry shared by all
// wireless operations.
type Manager struct {
	runner   Runner
	logger   *slog.Logger
	registry *Registry
}

// Option configures a Manager.
type Option func(*Manager)

// WithRunner sets the command runner. Tests use this to substitute a
// fake that replays canned tool output.
func WithRunner(r Runner) Option {
	return func(m *Manager) {
		m.runner = r
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithRegistry sets the PID registry shared with the attack tracker.
func WithRegistry(r *Registry) Option {
	return func(m *Manager) {
		m.registry = r
	}
}

// NewManager creates a Manager. By default it executes real commands
// and discards log output.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		runner:   NewExecRunner(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		registry: NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Registry returns the PID registry.
func (m *Manager) Registry() *Registry {
	return m.registry
}
