package gpu

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jhye/pistorm/internal/config"
	"github.com/jhye/pistorm/internal/model"
)

// stubConverter returns a fixed hash file path or error.
type stubConverter struct {
	hashFile string
	err      error
}

func (s *stubConverter) Convert(_ context.Context, _, _ string) (string, error) {
	return s.hashFile, s.err
}

// stubCracker returns a fixed password or error.
type stubCracker struct {
	password string
	err      error
}

func (s *stubCracker) Crack(_ context.Context, _, _, _ string) (string, error) {
	return s.password, s.err
}

// recordingReporter collects every reported result.
type recordingReporter struct {
	results []model.CrackResult
	err     error
}

func (r *recordingReporter) ReportResult(_ context.Context, res model.CrackResult) error {
	r.results = append(r.results, res)
	return r.err
}

func newTestListener(t *testing.T, conv converter, crk cracker, rep reporter) (*Listener, config.ListenerConfig) {
	t.Helper()
	cfg := config.ListenerConfig{
		IncomingDir:  t.TempDir(),
		ResultsDir:   t.TempDir(),
		WordlistDir:  t.TempDir(),
		PollInterval: config.Duration(config.DefaultPollInterval),
	}
	return NewListener(cfg, conv, crk, discardLogger(), WithReporter(rep)), cfg
}

// TestListenerSettled tests the size-stability pickup rule.
func TestListenerSettled(t *testing.T) {
	t.Parallel()

	l, cfg := newTestListener(t, &stubConverter{}, &stubCracker{}, nil)

	capPath := filepath.Join(cfg.IncomingDir, "HomeNet-1700000000.cap")
	if err := os.WriteFile(capPath, []byte("partial"), 0640); err != nil {
		t.Fatal(err)
	}

	// First sighting only records the size.
	if got := l.settled(); len(got) != 0 {
		t.Errorf("first poll returned %v, want nothing", got)
	}

	// Size changed between polls: still being written.
	if err := os.WriteFile(capPath, []byte("partial plus more data"), 0640); err != nil {
		t.Fatal(err)
	}
	if got := l.settled(); len(got) != 0 {
		t.Errorf("growing file returned %v, want nothing", got)
	}

	// Size stable across two polls: ready.
	got := l.settled()
	if len(got) != 1 || got[0] != capPath {
		t.Fatalf("stable file poll = %v, want [%s]", got, capPath)
	}

	// Never picked up twice.
	if got := l.settled(); len(got) != 0 {
		t.Errorf("repeat poll returned %v, want nothing", got)
	}

	// Non-capture files are ignored entirely.
	if err := os.WriteFile(filepath.Join(cfg.IncomingDir, "readme.txt"), []byte("x"), 0640); err != nil {
		t.Fatal(err)
	}
	l.settled()
	if got := l.settled(); len(got) != 0 {
		t.Errorf("non-capture file returned %v, want nothing", got)
	}
}

// TestListenerProcess tests the convert-crack-report job flow.
func TestListenerProcess(t *testing.T) {
	t.Parallel()

	t.Run("successful crack", func(t *testing.T) {
		t.Parallel()

		rep := &recordingReporter{}
		l, cfg := newTestListener(t, &stubConverter{hashFile: "h.22000"}, &stubCracker{password: "hunter22"}, rep)

		l.process(context.Background(), filepath.Join(cfg.IncomingDir, "HomeNet-1700000000.cap"))

		if len(rep.results) != 3 {
			t.Fatalf("got %d reports, want received/cracking/completed", len(rep.results))
		}
		statuses := []model.CrackStatus{rep.results[0].Status, rep.results[1].Status, rep.results[2].Status}
		want := []model.CrackStatus{model.CrackStatusReceived, model.CrackStatusCracking, model.CrackStatusCompleted}
		for i := range want {
			if statuses[i] != want[i] {
				t.Errorf("report %d status = %q, want %q", i, statuses[i], want[i])
			}
		}

		final := rep.results[2]
		if final.Password != "hunter22" || !final.Found() {
			t.Errorf("unexpected final result: %+v", final)
		}
		if final.Target != "HomeNet-1700000000" {
			t.Errorf("target = %q, want HomeNet-1700000000", final.Target)
		}

		// The result also lands on disk.
		data, err := os.ReadFile(filepath.Join(cfg.ResultsDir, "HomeNet-1700000000.result.json"))
		if err != nil {
			t.Fatalf("result file not written: %v", err)
		}
		var onDisk model.CrackResult
		if err := json.Unmarshal(data, &onDisk); err != nil {
			t.Fatalf("result file not valid JSON: %v", err)
		}
		if onDisk.Password != "hunter22" {
			t.Errorf("on-disk password = %q, want hunter22", onDisk.Password)
		}
	})

	t.Run("exhausted wordlists", func(t *testing.T) {
		t.Parallel()

		rep := &recordingReporter{}
		l, cfg := newTestListener(t, &stubConverter{hashFile: "h.22000"}, &stubCracker{}, rep)

		l.process(context.Background(), filepath.Join(cfg.IncomingDir, "HomeNet.cap"))

		final := rep.results[len(rep.results)-1]
		if final.Status != model.CrackStatusCompleted || final.Found() {
			t.Errorf("unexpected final result: %+v", final)
		}
	})

	t.Run("conversion failure", func(t *testing.T) {
		t.Parallel()

		rep := &recordingReporter{}
		l, cfg := newTestListener(t, &stubConverter{err: ErrNoHashes}, &stubCracker{}, rep)

		l.process(context.Background(), filepath.Join(cfg.IncomingDir, "empty.cap"))

		final := rep.results[len(rep.results)-1]
		if final.Status != model.CrackStatusError {
			t.Errorf("status = %q, want error", final.Status)
		}
	})

	t.Run("hashcat failure", func(t *testing.T) {
		t.Parallel()

		rep := &recordingReporter{}
		l, cfg := newTestListener(t, &stubConverter{hashFile: "h.22000"}, &stubCracker{err: errors.New("no devices")}, rep)

		l.process(context.Background(), filepath.Join(cfg.IncomingDir, "HomeNet.cap"))

		final := rep.results[len(rep.results)-1]
		if final.Status != model.CrackStatusError {
			t.Errorf("status = %q, want error", final.Status)
		}
	})

	t.Run("nil reporter writes result to disk only", func(t *testing.T) {
		t.Parallel()

		l, cfg := newTestListener(t, &stubConverter{hashFile: "h.22000"}, &stubCracker{password: "x"}, nil)

		l.process(context.Background(), filepath.Join(cfg.IncomingDir, "HomeNet.cap"))

		if _, err := os.Stat(filepath.Join(cfg.ResultsDir, "HomeNet.result.json")); err != nil {
			t.Errorf("result file not written: %v", err)
		}
	})
}
