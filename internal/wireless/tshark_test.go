package wireless

import (
	"context"
	"testing"
)

// TestCountEAPOLFrames tests EAPOL counting from tshark output.
func TestCountEAPOLFrames(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		stdout string
		code   int
		want   int
	}{
		{
			name:   "four frames",
			stdout: "  1 0.000 aa -> bb EAPOL Key (Message 1 of 4)\n  2 0.002 bb -> aa EAPOL Key (Message 2 of 4)\n  3 0.004 aa -> bb EAPOL Key (Message 3 of 4)\n  4 0.006 bb -> aa EAPOL Key (Message 4 of 4)\n",
			code:   0,
			want:   4,
		},
		{
			name:   "no frames",
			stdout: "",
			code:   0,
			want:   0,
		},
		{
			name:   "tshark failure",
			stdout: "",
			code:   2,
			want:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			runner := newFakeRunner()
			runner.on("tshark -r test.cap -Y eapol", Result{ExitCode: tt.code, Stdout: tt.stdout})

			m := NewManager(WithRunner(runner))
			if got := m.CountEAPOLFrames(context.Background(), "test.cap"); got != tt.want {
				t.Errorf("CountEAPOLFrames() = %d, want %d", got, tt.want)
			}
		})
	}
}
