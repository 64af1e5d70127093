package wireless

import (
	"context"
	"io"
	"strings"
	"sync"
)

// fakeRunner replays canned results keyed by the full command line.
// Multiple results for the same key are returned in order, which lets
// tests script retry sequences. Commands with no scripted result
// succeed with empty output.
type fakeRunner struct {
	mu      sync.Mutex
	results map[string][]Result
	errs    map[string]error
	calls   []string
	nextPID int
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		results: make(map[string][]Result),
		errs:    make(map[string]error),
		nextPID: 1000,
	}
}

// on scripts a result for a command line.
func (f *fakeRunner) on(cmdline string, r Result) {
	f.results[cmdline] = append(f.results[cmdline], r)
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) (Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := strings.Join(append([]string{name}, args...), " ")
	f.calls = append(f.calls, key)

	if err, ok := f.errs[key]; ok {
		return Result{ExitCode: -1}, err
	}
	if queue, ok := f.results[key]; ok && len(queue) > 0 {
		r := queue[0]
		f.results[key] = queue[1:]
		return r, nil
	}
	// Prefix match so tests don't have to spell out generated paths.
	for prefix, queue := range f.results {
		if strings.HasPrefix(key, prefix) && len(queue) > 0 {
			r := queue[0]
			f.results[prefix] = queue[1:]
			return r, nil
		}
	}
	return Result{}, nil
}

func (f *fakeRunner) RunInput(ctx context.Context, _ io.Reader, name string, args ...string) (Result, error) {
	return f.Run(ctx, name, args...)
}

func (f *fakeRunner) Start(_ context.Context, name string, args ...string) (Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := strings.Join(append([]string{name}, args...), " ")
	f.calls = append(f.calls, key)
	f.nextPID++
	return &fakeSession{pid: f.nextPID}, nil
}

// called reports whether a command line with the given prefix was run.
func (f *fakeRunner) called(prefix string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, call := range f.calls {
		if strings.HasPrefix(call, prefix) {
			return true
		}
	}
	return false
}

type fakeSession struct {
	pid     int
	stopped bool
}

func (s *fakeSession) PID() int    { return s.pid }
func (s *fakeSession) Stop() error { s.stopped = true; return nil }
func (s *fakeSession) Wait() error { return nil }
