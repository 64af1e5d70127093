package capture

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestNewStore tests store and staging directory creation.
func TestNewStore(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "captures")
	s, err := NewStore(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if s.Dir() != dir {
		t.Errorf("dir = %q, want %q", s.Dir(), dir)
	}
	if _, err := os.Stat(s.StagingDir()); err != nil {
		t.Errorf("staging dir not created: %v", err)
	}
}

// TestBasePathFor tests capture path construction.
func TestBasePathFor(t *testing.T) {
	t.Parallel()

	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	now := time.Unix(1700000000, 0)
	got := s.BasePathFor("Home Net/5G", now)
	want := filepath.Join(s.Dir(), "Home_Net_5G-1700000000")
	if got != want {
		t.Errorf("BasePathFor() = %q, want %q", got, want)
	}
}

// TestListAndLatest tests listing order and latest lookup.
func TestListAndLatest(t *testing.T) {
	t.Parallel()

	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	t.Run("empty store", func(t *testing.T) {
		files, err := s.List()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(files) != 0 {
			t.Errorf("got %d files, want 0", len(files))
		}
		if _, err := s.Latest(); !errors.Is(err, ErrNoCaptures) {
			t.Errorf("got %v, want ErrNoCaptures", err)
		}
	})

	older := filepath.Join(s.Dir(), "older.cap")
	newer := filepath.Join(s.Dir(), "newer.pcap")
	ignored := filepath.Join(s.Dir(), "notes.txt")
	for _, path := range []string{older, newer, ignored} {
		if err := os.WriteFile(path, []byte("data"), 0600); err != nil {
			t.Fatal(err)
		}
	}
	// Make the ordering unambiguous.
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(older, past, past); err != nil {
		t.Fatal(err)
	}

	t.Run("list is newest first and skips non-captures", func(t *testing.T) {
		files, err := s.List()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(files) != 2 {
			t.Fatalf("got %d files, want 2", len(files))
		}
		if files[0].Name != "newer.pcap" || files[1].Name != "older.cap" {
			t.Errorf("wrong order: %v", files)
		}
	})

	t.Run("latest", func(t *testing.T) {
		latest, err := s.Latest()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if latest != newer {
			t.Errorf("latest = %q, want %q", latest, newer)
		}
	})
}

// TestPath tests traversal rejection in name lookup.
func TestPath(t *testing.T) {
	t.Parallel()

	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		file    string
		wantErr bool
	}{
		{name: "plain name", file: "HomeNet-123.cap", wantErr: false},
		{name: "traversal", file: "../secret.cap", wantErr: true},
		{name: "nested path", file: "sub/evil.cap", wantErr: true},
		{name: "wrong extension", file: "HomeNet.txt", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := s.Path(tt.file)
			if (err != nil) != tt.wantErr {
				t.Errorf("Path(%q) error = %v, wantErr %v", tt.file, err, tt.wantErr)
			}
		})
	}
}

// TestSaveUpload tests upload validation and storage.
func TestSaveUpload(t *testing.T) {
	t.Parallel()

	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	t.Run("valid upload", func(t *testing.T) {
		t.Parallel()

		info, err := s.SaveUpload("handshake.cap", strings.NewReader("pcap-data"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if info.Name != "handshake.cap" || info.Size != 9 {
			t.Errorf("unexpected file info: %+v", info)
		}
	})

	t.Run("name is sanitized", func(t *testing.T) {
		t.Parallel()

		info, err := s.SaveUpload("my capture!.pcap", strings.NewReader("x"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if info.Name != "my_capture_.pcap" {
			t.Errorf("name = %q, want my_capture_.pcap", info.Name)
		}
	})

	t.Run("wrong extension rejected", func(t *testing.T) {
		t.Parallel()

		if _, err := s.SaveUpload("evil.sh", strings.NewReader("x")); !errors.Is(err, ErrInvalidUpload) {
			t.Errorf("got %v, want ErrInvalidUpload", err)
		}
	})
}

// TestStageForGPU tests staging copies into for_gpu.
func TestStageForGPU(t *testing.T) {
	t.Parallel()

	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	src := filepath.Join(s.Dir(), "HomeNet-123.cap")
	if err := os.WriteFile(src, []byte("capture-bytes"), 0600); err != nil {
		t.Fatal(err)
	}

	staged, err := s.StageForGPU(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Dir(staged) != s.StagingDir() {
		t.Errorf("staged outside staging dir: %q", staged)
	}

	data, err := os.ReadFile(staged)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "capture-bytes" {
		t.Errorf("staged content = %q", data)
	}

	// Original must survive for the local-crack fallback.
	if _, err := os.Stat(src); err != nil {
		t.Errorf("original removed by staging: %v", err)
	}
}
