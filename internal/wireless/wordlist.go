package wireless

import (
	"os"
	"path/filepath"
	"sort"
)

// Wordlist is a dictionary file available for cracking.
type Wordlist struct {
	// Path is where the wordlist lives. May end in .gz.
	Path string `json:"path"`

	// Size is the file size in bytes, used to order lists so the small
	// fast ones run first.
	Size int64 `json:"size"`
}

// Name returns the base file name.
func (w Wordlist) Name() string {
	return filepath.Base(w.Path)
}

// wellKnownWordlists are the paths checked on every lookup, covering
// Kali defaults and common Pi install locations.
var wellKnownWordlists = []string{
	"/usr/share/wordlists/rockyou.txt",
	"/usr/share/wordlists/rockyou.txt.gz",
	"/usr/share/wordlists/fasttrack.txt",
	"/usr/share/wordlists/dirb/common.txt",
	"/opt/wordlists/rockyou.txt",
	"/home/pi/wordlists/rockyou.txt",
}

// AvailableWordlists finds dictionaries on the system: the well-known
// locations plus rockyou/fasttrack under the configured directory.
// Symlinked duplicates (rockyou.txt is often a link into a shared dir)
// are collapsed by resolved path.
func AvailableWordlists(extraDir string) []Wordlist {
	paths := make([]string, 0, len(wellKnownWordlists)+2)
	paths = append(paths, wellKnownWordlists...)
	if extraDir != "" {
		paths = append(paths,
			filepath.Join(extraDir, "rockyou.txt"),
			filepath.Join(extraDir, "fasttrack.txt"),
		)
	}

	seen := make(map[string]bool, len(paths))
	var available []Wordlist
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}

		real, err := filepath.EvalSymlinks(path)
		if err != nil {
			real = path
		}
		if seen[real] {
			continue
		}
		seen[real] = true

		available = append(available, Wordlist{Path: path, Size: info.Size()})
	}

	// Small lists first: on a Pi with a per-list time budget, the fast
	// passes should run before rockyou eats the rest.
	sort.SliceStable(available, func(i, j int) bool {
		return available[i].Size < available[j].Size
	})
	return available
}
