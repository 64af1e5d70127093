package wireless

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"sync"
	"time"
)

// Result holds the outcome of a finished command.
// A non-zero exit code is data, not an error: aircrack-ng exits non-zero
// when no key is found, and iw exits non-zero when the device is busy.
// Callers inspect ExitCode and the captured output.
type Result struct {
	// ExitCode is the command's exit status. -1 when the command was
	// killed by a signal or timed out.
	ExitCode int

	// Stdout is the captured standard output.
	Stdout string

	// Stderr is the captured standard error.
	Stderr string
}

// Session is a long-running command that the caller stops explicitly,
// such as an airodump-ng capture.
type Session interface {
	// PID returns the process ID of the running command.
	PID() int

	// Stop interrupts the process group and waits for it to exit.
	// It escalates to SIGKILL if the process ignores the interrupt.
	Stop() error

	// Wait blocks until the process exits on its own.
	Wait() error
}

// Runner executes external commands.
//
// Design decision: We use an interface rather than calling os/exec
// directly so the attack pipeline and the HTTP handlers can be tested
// with a fake runner that replays canned tool output. Only ExecRunner
// ever spawns a real process.
type Runner interface {
	// Run executes a command and waits for it to finish.
	// The context bounds the execution time.
	Run(ctx context.Context, name string, args ...string) (Result, error)

	// RunInput is Run with the given reader connected to stdin. Used to
	// stream decompressed wordlists into aircrack-ng.
	RunInput(ctx context.Context, stdin io.Reader, name string, args ...string) (Result, error)

	// Start launches a command in its own process group and returns
	// without waiting.
	Start(ctx context.Context, name string, args ...string) (Session, error)
}

// stopGrace is how long Stop waits after the interrupt before
// escalating to SIGKILL.
const stopGrace = 5 * time.Second

// ExecRunner is the production Runner backed by os/exec.
type ExecRunner struct{}

// NewExecRunner creates a new ExecRunner.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes a command and waits for completion.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	return r.RunInput(ctx, nil, name, args...)
}

// RunInput executes a command with the given stdin and waits for completion.
func (r *ExecRunner) RunInput(ctx context.Context, stdin io.Reader, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := Result{
		ExitCode: exitCode(err),
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}

	// Context expiry is reported as an error so callers can tell a
	// timeout apart from a tool that merely exited non-zero.
	if ctx.Err() != nil {
		return result, ctx.Err()
	}

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return result, err
	}
	return result, nil
}

// Start launches a command in its own process group.
func (r *ExecRunner) Start(ctx context.Context, name string, args ...string) (Session, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	setProcessGroup(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &execSession{cmd: cmd}, nil
}

// execSession wraps a started command.
type execSession struct {
	cmd  *exec.Cmd
	once sync.Once
	err  error
}

// PID returns the process ID.
func (s *execSession) PID() int {
	return s.cmd.Process.Pid
}

// Stop interrupts the process group, giving airodump-ng a chance to
// flush its capture file, then kills it if it lingers.
func (s *execSession) Stop() error {
	_ = interruptGroup(s.cmd.Process.Pid)

	done := make(chan struct{})
	go func() {
		s.wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(stopGrace):
		_ = killGroup(s.cmd.Process.Pid)
		<-done
	}
	return nil
}

// Wait blocks until the process exits.
func (s *execSession) Wait() error {
	return s.wait()
}

func (s *execSession) wait() error {
	s.once.Do(func() {
		s.err = s.cmd.Wait()
	})
	return s.err
}

// exitCode extracts an exit status from cmd.Run's error.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// LookupTool reports whether an external tool is available on PATH.
func LookupTool(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
