package wireless

import (
	"errors"
	"fmt"
	"strings"
)

// RequiredTools are the external commands the orchestrator cannot run
// without.
var RequiredTools = []string{"iw", "ip", "airodump-ng", "aireplay-ng", "aircrack-ng"}

// ErrMissingTools is returned when part of the aircrack-ng suite is not
// installed.
var ErrMissingTools = errors.New("required tools missing")

// CheckTools verifies every required tool is on PATH. It returns the
// missing tool names alongside the error so startup can print an
// install hint.
func CheckTools() ([]string, error) {
	var missing []string
	for _, tool := range RequiredTools {
		if !LookupTool(tool) {
			missing = append(missing, tool)
		}
	}
	if len(missing) > 0 {
		return missing, fmt.Errorf("%w: %s (install with: apt install aircrack-ng)", ErrMissingTools, strings.Join(missing, ", "))
	}
	return nil, nil
}
