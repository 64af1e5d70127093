package gpu

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jhye/pistorm/internal/config"
	"github.com/jhye/pistorm/internal/model"
)

// converter extracts hashcat material from a capture file.
type converter interface {
	Convert(ctx context.Context, capFile, outDir string) (string, error)
}

// cracker runs the dictionary attack on a hash file.
type cracker interface {
	Crack(ctx context.Context, hashFile, wordlistDir, workDir string) (string, error)
}

// reporter delivers results to the orchestrator. nil disables delivery;
// results are still written to the results directory.
type reporter interface {
	ReportResult(ctx context.Context, res model.CrackResult) error
}

// Listener watches the incoming directory on the GPU host for capture
// files dropped by the Pi, cracks them, and reports the outcome.
type Listener struct {
	cfg       config.ListenerConfig
	converter converter
	cracker   cracker
	reporter  reporter
	logger    *slog.Logger
	hostname  string

	// sizes tracks file sizes between polls. A file is picked up only
	// once its size stops changing, so a capture still being written
	// over SSH is never cracked half-transferred.
	sizes map[string]int64

	// done marks files already handed to the worker.
	done map[string]bool
}

// ListenerOption configures a Listener.
type ListenerOption func(*Listener)

// WithReporter sets the orchestrator result reporter.
func WithReporter(r reporter) ListenerOption {
	return func(l *Listener) {
		l.reporter = r
	}
}

// NewListener creates a Listener for the given configuration.
func NewListener(cfg config.ListenerConfig, conv converter, crk cracker, logger *slog.Logger, opts ...ListenerOption) *Listener {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "gpu-host"
	}
	l := &Listener{
		cfg:       cfg,
		converter: conv,
		cracker:   crk,
		logger:    logger,
		hostname:  hostname,
		sizes:     make(map[string]int64),
		done:      make(map[string]bool),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run polls the incoming directory until the context is cancelled.
// Watching and cracking run in separate goroutines so a long hashcat
// job never stalls the poll bookkeeping.
func (l *Listener) Run(ctx context.Context) error {
	if err := os.MkdirAll(l.cfg.IncomingDir, 0750); err != nil {
		return fmt.Errorf("create incoming directory: %w", err)
	}
	if err := os.MkdirAll(l.cfg.ResultsDir, 0750); err != nil {
		return fmt.Errorf("create results directory: %w", err)
	}

	l.logger.Info("crack listener started",
		"incoming", l.cfg.IncomingDir,
		"results", l.cfg.ResultsDir,
		"poll", l.cfg.PollInterval.Std().String(),
	)

	jobs := make(chan string)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(jobs)
		return l.watch(ctx, jobs)
	})
	g.Go(func() error {
		return l.work(ctx, jobs)
	})
	return g.Wait()
}

// watch scans the incoming directory every poll interval and queues
// files whose size has settled.
func (l *Listener) watch(ctx context.Context, jobs chan<- string) error {
	ticker := time.NewTicker(l.cfg.PollInterval.Std())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		for _, path := range l.settled() {
			select {
			case jobs <- path:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// settled returns new capture files whose size matched across two
// consecutive polls.
func (l *Listener) settled() []string {
	entries, err := os.ReadDir(l.cfg.IncomingDir)
	if err != nil {
		l.logger.Warn("failed to read incoming directory", "error", err)
		return nil
	}

	var ready []string
	for _, entry := range entries {
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if entry.IsDir() || (ext != ".cap" && ext != ".pcap") || l.done[name] {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}

		if prev, seen := l.sizes[name]; seen && prev == info.Size() {
			l.done[name] = true
			delete(l.sizes, name)
			ready = append(ready, filepath.Join(l.cfg.IncomingDir, name))
			continue
		}
		l.sizes[name] = info.Size()
	}
	return ready
}

// work cracks queued capture files one at a time. One job at a time
// because there is one GPU.
func (l *Listener) work(ctx context.Context, jobs <-chan string) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case path, ok := <-jobs:
			if !ok {
				return nil
			}
			l.process(ctx, path)
		}
	}
}

// process runs the full job: convert, crack, record, report.
func (l *Listener) process(ctx context.Context, capFile string) {
	target := strings.TrimSuffix(filepath.Base(capFile), filepath.Ext(capFile))
	started := time.Now()

	l.logger.Info("new capture received", "file", capFile, "target", target)
	l.report(ctx, model.CrackResult{
		Target:    target,
		CrackedBy: l.hostname,
		Status:    model.CrackStatusReceived,
		Message:   "capture received",
	})

	hashFile, err := l.converter.Convert(ctx, capFile, l.cfg.ResultsDir)
	if err != nil {
		l.finish(ctx, model.CrackResult{
			Target:    target,
			CrackedBy: l.hostname,
			Status:    model.CrackStatusError,
			Message:   err.Error(),
			Elapsed:   time.Since(started),
		})
		return
	}

	l.report(ctx, model.CrackResult{
		Target:    target,
		CrackedBy: l.hostname,
		Status:    model.CrackStatusCracking,
		Message:   "hashcat running",
	})

	password, err := l.cracker.Crack(ctx, hashFile, l.cfg.WordlistDir, l.cfg.ResultsDir)
	if err != nil {
		l.finish(ctx, model.CrackResult{
			Target:    target,
			CrackedBy: l.hostname,
			Status:    model.CrackStatusError,
			Message:   err.Error(),
			Elapsed:   time.Since(started),
		})
		return
	}

	result := model.CrackResult{
		Target:    target,
		Password:  password,
		CrackedBy: l.hostname,
		Status:    model.CrackStatusCompleted,
		Elapsed:   time.Since(started),
	}
	if password == "" {
		result.Message = "all wordlists exhausted"
	} else {
		result.Message = "passphrase recovered"
	}
	l.finish(ctx, result)
}

// finish records the terminal result on disk and reports it.
func (l *Listener) finish(ctx context.Context, res model.CrackResult) {
	if res.Status == model.CrackStatusError {
		l.logger.Error("crack job failed", "target", res.Target, "message", res.Message)
	} else {
		l.logger.Info("crack job finished",
			"target", res.Target,
			"found", res.Found(),
			"elapsed", res.Elapsed.String(),
		)
	}

	if err := l.writeResult(res); err != nil {
		l.logger.Warn("failed to write result file", "target", res.Target, "error", err)
	}
	l.report(ctx, res)
}

// writeResult persists the result JSON next to the hashes so the
// outcome survives orchestrator downtime.
func (l *Listener) writeResult(res model.CrackResult) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(l.cfg.ResultsDir, res.Target+".result.json")
	return os.WriteFile(path, data, 0640)
}

// report delivers a status update when a reporter is configured.
func (l *Listener) report(ctx context.Context, res model.CrackResult) {
	if l.reporter == nil {
		return
	}
	if err := l.reporter.ReportResult(ctx, res); err != nil {
		l.logger.Warn("failed to report to orchestrator", "target", res.Target, "error", err)
	}
}
