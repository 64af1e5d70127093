package capture

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jhye/pistorm/internal/model"
)

// Store errors.
var (
	// ErrNoCaptures is returned when the store holds no capture files.
	ErrNoCaptures = errors.New("no capture files available")

	// ErrInvalidUpload is returned when an uploaded file fails validation.
	ErrInvalidUpload = errors.New("invalid upload")
)

// MaxUploadSize bounds uploaded capture files. A handshake capture is
// tens of kilobytes; anything near this limit is not a capture.
const MaxUploadSize = 50 << 20

// gpuStagingDir is the subdirectory capture files are staged into
// before transfer to the GPU host.
const gpuStagingDir = "for_gpu"

// FileInfo describes a stored capture file.
type FileInfo struct {
	// Name is the base file name.
	Name string `json:"name"`

	// Size is the file size in bytes.
	Size int64 `json:"size"`

	// Modified is the file's modification time.
	Modified time.Time `json:"modified"`
}

// Store is the capture file directory.
type Store struct {
	dir string
}

// NewStore creates a Store rooted at dir, creating the directory and
// the GPU staging subdirectory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(dir, gpuStagingDir), 0750); err != nil {
		return nil, fmt.Errorf("create capture directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the store's root directory.
func (s *Store) Dir() string {
	return s.dir
}

// StagingDir returns the GPU staging directory.
func (s *Store) StagingDir() string {
	return filepath.Join(s.dir, gpuStagingDir)
}

// BasePathFor builds the output path prefix for a new capture of the
// given SSID. The SSID is sanitized and a timestamp appended so
// repeated attacks on the same network never collide.
func (s *Store) BasePathFor(ssid string, now time.Time) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s-%d", model.SanitizeFilename(ssid), now.Unix()))
}

// isCaptureName reports whether a file name has a capture extension.
func isCaptureName(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".cap" || ext == ".pcap"
}

// List returns the stored capture files, newest first.
func (s *Store) List() ([]FileInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read capture directory: %w", err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() || !isCaptureName(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Name:     entry.Name(),
			Size:     info.Size(),
			Modified: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Modified.After(files[j].Modified)
	})
	return files, nil
}

// Latest returns the path of the most recent capture file.
func (s *Store) Latest() (string, error) {
	files, err := s.List()
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", ErrNoCaptures
	}
	return filepath.Join(s.dir, files[0].Name), nil
}

// Path returns the absolute path for a stored file name, rejecting
// names that would escape the store directory.
func (s *Store) Path(name string) (string, error) {
	clean := filepath.Base(name)
	if clean != name || !isCaptureName(name) {
		return "", fmt.Errorf("%w: bad file name %q", ErrInvalidUpload, name)
	}
	return filepath.Join(s.dir, clean), nil
}

// SaveUpload stores an uploaded capture file. The name is sanitized
// and must carry a capture extension; the content is size-capped.
func (s *Store) SaveUpload(name string, r io.Reader) (FileInfo, error) {
	if !isCaptureName(name) {
		return FileInfo{}, fmt.Errorf("%w: only .cap and .pcap files accepted", ErrInvalidUpload)
	}

	ext := filepath.Ext(name)
	base := model.SanitizeFilename(strings.TrimSuffix(filepath.Base(name), ext))
	if base == "" {
		return FileInfo{}, fmt.Errorf("%w: empty file name", ErrInvalidUpload)
	}
	dest := filepath.Join(s.dir, base+ext)

	f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0640)
	if err != nil {
		return FileInfo{}, fmt.Errorf("create upload file: %w", err)
	}
	defer f.Close()

	written, err := io.Copy(f, io.LimitReader(r, MaxUploadSize+1))
	if err != nil {
		os.Remove(dest)
		return FileInfo{}, fmt.Errorf("write upload: %w", err)
	}
	if written > MaxUploadSize {
		os.Remove(dest)
		return FileInfo{}, fmt.Errorf("%w: file exceeds %d bytes", ErrInvalidUpload, MaxUploadSize)
	}

	info, err := os.Stat(dest)
	if err != nil {
		return FileInfo{}, err
	}
	return FileInfo{Name: filepath.Base(dest), Size: info.Size(), Modified: info.ModTime()}, nil
}

// StageForGPU copies a capture file into the staging directory and
// returns the staged path. The copy keeps the original in place for
// the local-crack fallback.
func (s *Store) StageForGPU(path string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open capture for staging: %w", err)
	}
	defer src.Close()

	staged := filepath.Join(s.StagingDir(), filepath.Base(path))
	dst, err := os.OpenFile(staged, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0640)
	if err != nil {
		return "", fmt.Errorf("create staged file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(staged)
		return "", fmt.Errorf("stage capture: %w", err)
	}
	return staged, nil
}
