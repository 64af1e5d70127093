package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// Default configuration values.
// These values are chosen based on the behavior of the aircrack-ng suite
// on a Raspberry Pi and typical home-network conditions.
const (
	// DefaultScanInterface is the managed-mode interface used for
	// network scanning. On a stock Raspberry Pi this is the onboard
	// radio; a USB adapter usually enumerates as wlan1.
	DefaultScanInterface = "wlan0"

	// DefaultMonitorInterface is the interface switched into monitor
	// mode for capture and injection. Ideally a second adapter so the
	// scan interface keeps its association.
	DefaultMonitorInterface = "wlan1"

	// DefaultListenAddr is the orchestrator API bind address. The API
	// serves the embedded display and the GPU host on the LAN, so it
	// binds all interfaces rather than loopback.
	DefaultListenAddr = ":5000"

	// DefaultAttackTimeout caps a full attack run. Fifteen minutes
	// covers capture plus three wordlist passes on a Pi; anything
	// longer is better spent on the GPU host.
	DefaultAttackTimeout = 15 * time.Minute

	// DefaultRateLimit is requests per minute per client IP. The
	// embedded display polls /status every second, so the limit is
	// generous.
	DefaultRateLimit = 200

	// DefaultWordlistDir is where Kali-style systems install wordlists.
	DefaultWordlistDir = "/usr/share/wordlists"

	// DefaultDeauthRounds is how many deauth bursts to send during
	// capture. One burst often misses clients that are between frames;
	// three rounds with gaps reliably provokes a re-association.
	DefaultDeauthRounds = 3

	// DefaultDeauthCount is the aireplay-ng packet count per burst.
	DefaultDeauthCount = 10

	// DefaultCaptureWarmup is how long airodump-ng runs before the
	// first deauth burst. The process needs time to tune and begin
	// writing before a handshake can land in the file.
	DefaultCaptureWarmup = 15 * time.Second

	// DefaultPassiveCapture is how long to wait for a handshake when no
	// BSSID was located and deauth is not possible.
	DefaultPassiveCapture = 45 * time.Second

	// DefaultCaptureSettle is extra capture time after the last deauth
	// burst so late handshake frames are not cut off.
	DefaultCaptureSettle = 10 * time.Second

	// DefaultMaxWordlists bounds the local dictionary attack. The Pi
	// CPU makes more than three lists pointless within the timeout.
	DefaultMaxWordlists = 3

	// DefaultWordlistTimeout caps each local aircrack-ng pass.
	DefaultWordlistTimeout = 3 * time.Minute

	// DefaultGPUWait is the longest the worker waits for the GPU host
	// to report a result before falling back to local cracking.
	DefaultGPUWait = 20 * time.Minute

	// DefaultScanCacheTTL is how long cached scan results stay fresh
	// for the pagination endpoints used by the embedded display.
	DefaultScanCacheTTL = 2 * time.Minute

	// DefaultHashMode is hashcat's WPA-PBKDF2-PMKID+EAPOL mode,
	// the single mode covering both handshake and PMKID material
	// since hashcat 6.
	DefaultHashMode = 22000

	// DefaultHashcatBinary is resolved via PATH unless overridden.
	DefaultHashcatBinary = "hashcat"

	// DefaultPollInterval is how often the listener checks the incoming
	// directory for new capture files.
	DefaultPollInterval = 5 * time.Second

	// AppName is the application name used for XDG directory paths.
	AppName = "pistorm"
)

// Duration wraps time.Duration so the YAML file can use human-readable
// forms like "15m" or "45s". yaml.v3 only decodes raw nanosecond integers
// into time.Duration, which nobody wants to write by hand.
type Duration time.Duration

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Config holds all configuration options for PiStorm.
// This struct is designed to be populated from CLI flags and the
// .pistorm file and passed through the application via dependency
// injection rather than global state.
type Config struct {
	// ScanInterface is the managed-mode interface used for scanning.
	// Auto-detection replaces it when the named interface is absent.
	ScanInterface string `yaml:"scanInterface"`

	// MonitorInterface is the interface used for capture and injection.
	MonitorInterface string `yaml:"monitorInterface"`

	// ListenAddr is the orchestrator API bind address in ":port" or
	// "host:port" form.
	ListenAddr string `yaml:"listenAddr"`

	// APIKey authenticates API clients via the X-API-Key header.
	// The server refuses to start without one.
	APIKey string `yaml:"apiKey"`

	// CaptureDir is where airodump-ng writes capture files and where
	// uploads land. Created on startup if missing.
	CaptureDir string `yaml:"captureDir"`

	// WordlistDir is searched (along with well-known paths) for
	// dictionaries.
	WordlistDir string `yaml:"wordlistDir"`

	// AttackTimeout caps a full attack run.
	AttackTimeout Duration `yaml:"attackTimeout"`

	// RateLimit is the per-IP request budget per minute.
	RateLimit int `yaml:"rateLimit"`

	// DeauthRounds is the number of deauth bursts during capture.
	DeauthRounds int `yaml:"deauthRounds"`

	// DeauthCount is the aireplay-ng packet count per burst.
	DeauthCount int `yaml:"deauthCount"`

	// Verbose enables slog.LevelDebug output.
	Verbose bool `yaml:"-"`

	// GPU holds the offload settings for the Pi side.
	GPU GPUConfig `yaml:"gpu"`

	// Listener holds the crack-listener settings for the GPU side.
	Listener ListenerConfig `yaml:"listener"`

	// DBDir is the directory for the results database. Defaults to the
	// XDG data directory.
	DBDir string `yaml:"dbDir"`
}

// GPUConfig configures capture offload from the Pi to the GPU host.
type GPUConfig struct {
	// Enabled turns offload on. When false the worker cracks locally.
	Enabled bool `yaml:"enabled"`

	// Host is the GPU machine's address for SSH transfer.
	Host string `yaml:"host"`

	// User is the SSH login on the GPU machine.
	User string `yaml:"user"`

	// IncomingDir is the directory on the GPU machine watched by the
	// listener.
	IncomingDir string `yaml:"incomingDir"`

	// SSHKeyPath is the private key used for the transfer.
	SSHKeyPath string `yaml:"sshKeyPath"`

	// Wait overrides how long to wait for a GPU result.
	Wait Duration `yaml:"wait"`
}

// Configured reports whether offload can actually run.
func (g GPUConfig) Configured() bool {
	return g.Enabled && g.Host != ""
}

// ListenerConfig configures the crack listener run on the GPU host.
type ListenerConfig struct {
	// IncomingDir is polled for new capture files.
	IncomingDir string `yaml:"incomingDir"`

	// ResultsDir receives converted hashes, potfiles, and result JSON.
	ResultsDir string `yaml:"resultsDir"`

	// WordlistDir holds the dictionaries hashcat runs.
	WordlistDir string `yaml:"wordlistDir"`

	// HashcatBinary is the hashcat executable path or name.
	HashcatBinary string `yaml:"hashcatBinary"`

	// HashMode is the hashcat -m value.
	HashMode int `yaml:"hashMode"`

	// OrchestratorURL is the Pi API base URL results are posted to.
	// Empty disables reporting (results are still written to disk).
	OrchestratorURL string `yaml:"orchestratorURL"`

	// PollInterval is the incoming-directory poll cadence.
	PollInterval Duration `yaml:"pollInterval"`
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults that work for most
// setups. Users can override specific values after creation.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (interfaces, timeouts,
// directories). This also serves as documentation of what the defaults
// are.
func NewConfig() *Config {
	return &Config{
		ScanInterface:    DefaultScanInterface,
		MonitorInterface: DefaultMonitorInterface,
		ListenAddr:       DefaultListenAddr,
		CaptureDir:       filepath.Join(xdg.DataHome, AppName, "captures"),
		WordlistDir:      DefaultWordlistDir,
		AttackTimeout:    Duration(DefaultAttackTimeout),
		RateLimit:        DefaultRateLimit,
		DeauthRounds:     DefaultDeauthRounds,
		DeauthCount:      DefaultDeauthCount,
		DBDir:            XDGDataDir(),
		GPU: GPUConfig{
			Wait: Duration(DefaultGPUWait),
		},
		Listener: ListenerConfig{
			HashcatBinary: DefaultHashcatBinary,
			HashMode:      DefaultHashMode,
			PollInterval:  Duration(DefaultPollInterval),
		},
	}
}

// XDGDataDir returns the XDG data directory for PiStorm.
// On Linux: ~/.local/share/pistorm
// On Windows: %LOCALAPPDATA%\pistorm
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for PiStorm.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after CLI parsing, before the server starts.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrNoAPIKey
	}
	if c.ListenAddr == "" {
		return ErrNoListenAddr
	}
	if c.AttackTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.RateLimit <= 0 {
		return ErrInvalidRateLimit
	}
	if c.DeauthRounds < 0 || c.DeauthCount <= 0 {
		return ErrInvalidDeauth
	}
	if c.GPU.Enabled && c.GPU.Host == "" {
		return ErrGPUNotConfigured
	}
	return nil
}

// ValidateListener checks the listener-mode configuration.
func (c *Config) ValidateListener() error {
	if c.Listener.IncomingDir == "" {
		return ErrNoIncomingDir
	}
	if c.Listener.HashMode <= 0 {
		return ErrInvalidHashMode
	}
	if c.Listener.PollInterval <= 0 {
		return ErrInvalidPollInterval
	}
	return nil
}
