package model

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Encryption classifies the security of a scanned access point.
// The values mirror what can be inferred from `iw dev <iface> scan`
// output: the presence of RSN/WPA information elements or WEP privacy.
type Encryption string

const (
	// EncryptionOpen indicates no link-layer encryption.
	EncryptionOpen Encryption = "Open"

	// EncryptionWEP indicates the legacy WEP cipher.
	EncryptionWEP Encryption = "WEP"

	// EncryptionWPA covers WPA, WPA2, and WPA3 networks. The scan output
	// does not reliably distinguish the generations, and the capture
	// workflow is the same for all of them.
	EncryptionWPA Encryption = "WPA/WPA2"
)

// bssidPattern matches a colon-separated MAC address.
// Scan output sometimes suffixes the BSS line with "(on wlan0)" or
// similar, so BSSIDs must be extracted rather than split.
var bssidPattern = regexp.MustCompile(`([0-9a-fA-F]{2}:[0-9a-fA-F]{2}:[0-9a-fA-F]{2}:[0-9a-fA-F]{2}:[0-9a-fA-F]{2}:[0-9a-fA-F]{2})`)

// ExtractBSSID returns the first MAC address found in s, or an empty
// string if none is present.
func ExtractBSSID(s string) string {
	return bssidPattern.FindString(s)
}

// Network is a single access point observed in a wireless scan.
type Network struct {
	// SSID is the advertised network name. Hidden networks (empty SSID)
	// are filtered out before they reach this type.
	SSID string `json:"ssid"`

	// BSSID is the access point MAC address.
	BSSID string `json:"bssid"`

	// Signal is the received signal strength in dBm. More negative means
	// weaker; -100 is used when the scan did not report a value.
	Signal int `json:"signal"`

	// Channel is the 802.11 channel, or 0 when unknown.
	Channel int `json:"channel,omitempty"`

	// Encryption is the inferred security classification.
	Encryption Encryption `json:"encryption"`
}

// String formats the network for log output.
func (n Network) String() string {
	return fmt.Sprintf("%s (%s, %ddBm, %s)", n.SSID, n.BSSID, n.Signal, n.Encryption)
}

// DedupNetworks collapses multiple BSS entries that advertise the same
// SSID (one SSID per physical network, keeping the strongest signal).
// The result is sorted by descending signal so the most attackable
// targets list first.
//
// Design decision: We dedup by SSID rather than BSSID because the
// attack workflow targets a network name; multi-AP deployments appear
// as several BSS entries that are the same target from the operator's
// point of view.
func DedupNetworks(nets []Network) []Network {
	best := make(map[string]Network, len(nets))
	for _, n := range nets {
		if n.SSID == "" {
			continue
		}
		if cur, ok := best[n.SSID]; !ok || n.Signal > cur.Signal {
			best[n.SSID] = n
		}
	}

	out := make([]Network, 0, len(best))
	for _, n := range best {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Signal != out[j].Signal {
			return out[i].Signal > out[j].Signal
		}
		return out[i].SSID < out[j].SSID
	})
	return out
}

// ValidateSSID checks that an SSID received over the API is safe to use
// as a subprocess argument and a filename component.
// It returns an error describing the first problem found.
func ValidateSSID(ssid string) error {
	if ssid == "" || len(ssid) > 32 {
		return fmt.Errorf("ssid must be 1-32 characters, got %d", len(ssid))
	}
	// These characters have no place in a real SSID that this tool
	// targets, and rejecting them up front removes any question of
	// shell or path injection downstream.
	if strings.ContainsAny(ssid, ";&|`$()\n\r") {
		return fmt.Errorf("ssid contains invalid characters")
	}
	return nil
}

// sanitizePattern matches every character that is not safe in a capture
// file name.
var sanitizePattern = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SanitizeFilename converts an arbitrary name (typically an SSID or an
// uploaded file name) into a safe filename component: unsafe characters
// become underscores, ".." is neutralized, and the result is capped at
// 50 characters.
func SanitizeFilename(name string) string {
	s := sanitizePattern.ReplaceAllString(name, "_")
	s = strings.ReplaceAll(s, "..", "_")
	if len(s) > 50 {
		s = s[:50]
	}
	return s
}
