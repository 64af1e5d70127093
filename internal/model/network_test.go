package model

import (
	"testing"
)

// TestExtractBSSID tests MAC address extraction from scan output tokens.
func TestExtractBSSID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain mac",
			input: "aa:bb:cc:dd:ee:ff",
			want:  "aa:bb:cc:dd:ee:ff",
		},
		{
			name:  "mac with iface suffix",
			input: "aa:bb:cc:dd:ee:ff(on wlan0)",
			want:  "aa:bb:cc:dd:ee:ff",
		},
		{
			name:  "uppercase mac",
			input: "AA:BB:CC:DD:EE:FF",
			want:  "AA:BB:CC:DD:EE:FF",
		},
		{
			name:  "no mac present",
			input: "not-a-mac",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := ExtractBSSID(tt.input); got != tt.want {
				t.Errorf("ExtractBSSID(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestDedupNetworks tests SSID deduplication with best-signal selection.
func TestDedupNetworks(t *testing.T) {
	t.Parallel()

	t.Run("keeps strongest signal per ssid", func(t *testing.T) {
		t.Parallel()

		nets := []Network{
			{SSID: "HomeNet", BSSID: "aa:aa:aa:aa:aa:01", Signal: -70},
			{SSID: "HomeNet", BSSID: "aa:aa:aa:aa:aa:02", Signal: -45},
			{SSID: "CoffeeShop", BSSID: "bb:bb:bb:bb:bb:01", Signal: -60},
		}

		got := DedupNetworks(nets)

		if len(got) != 2 {
			t.Fatalf("expected 2 networks, got %d", len(got))
		}
		if got[0].SSID != "HomeNet" || got[0].BSSID != "aa:aa:aa:aa:aa:02" {
			t.Errorf("expected strongest HomeNet BSS first, got %+v", got[0])
		}
	})

	t.Run("drops hidden networks", func(t *testing.T) {
		t.Parallel()

		nets := []Network{
			{SSID: "", BSSID: "aa:aa:aa:aa:aa:01", Signal: -30},
			{SSID: "Visible", BSSID: "bb:bb:bb:bb:bb:01", Signal: -60},
		}

		got := DedupNetworks(nets)

		if len(got) != 1 || got[0].SSID != "Visible" {
			t.Errorf("expected only visible network, got %+v", got)
		}
	})

	t.Run("sorts by descending signal", func(t *testing.T) {
		t.Parallel()

		nets := []Network{
			{SSID: "Weak", Signal: -90},
			{SSID: "Strong", Signal: -40},
			{SSID: "Medium", Signal: -65},
		}

		got := DedupNetworks(nets)

		want := []string{"Strong", "Medium", "Weak"}
		for i, ssid := range want {
			if got[i].SSID != ssid {
				t.Errorf("position %d: got %q, want %q", i, got[i].SSID, ssid)
			}
		}
	})

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()

		if got := DedupNetworks(nil); len(got) != 0 {
			t.Errorf("expected empty result, got %+v", got)
		}
	})
}

// TestValidateSSID tests SSID input validation.
func TestValidateSSID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		ssid    string
		wantErr bool
	}{
		{name: "normal ssid", ssid: "HomeNetwork-5G", wantErr: false},
		{name: "ssid with spaces", ssid: "My Home WiFi", wantErr: false},
		{name: "empty", ssid: "", wantErr: true},
		{name: "too long", ssid: "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", wantErr: true},
		{name: "max length ok", ssid: "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", wantErr: false},
		{name: "semicolon injection", ssid: "net;rm -rf /", wantErr: true},
		{name: "backtick injection", ssid: "net`id`", wantErr: true},
		{name: "pipe injection", ssid: "net|cat", wantErr: true},
		{name: "dollar injection", ssid: "net$(id)", wantErr: true},
		{name: "newline", ssid: "net\nname", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := ValidateSSID(tt.ssid)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSSID(%q) error = %v, wantErr %v", tt.ssid, err, tt.wantErr)
			}
		})
	}
}

// TestSanitizeFilename tests filename sanitization.
func TestSanitizeFilename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "clean name", input: "HomeNet-01.cap", want: "HomeNet-01.cap"},
		{name: "spaces replaced", input: "My Home WiFi", want: "My_Home_WiFi"},
		{name: "path traversal", input: "../../etc/passwd", want: "____etc_passwd"},
		{name: "slashes replaced", input: "a/b/c", want: "a_b_c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := SanitizeFilename(tt.input); got != tt.want {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}

	t.Run("caps length at 50", func(t *testing.T) {
		t.Parallel()

		long := make([]byte, 80)
		for i := range long {
			long[i] = 'a'
		}

		if got := SanitizeFilename(string(long)); len(got) != 50 {
			t.Errorf("expected 50 characters, got %d", len(got))
		}
	})
}
