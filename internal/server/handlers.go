package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jhye/pistorm/internal/attack"
	"github.com/jhye/pistorm/internal/capture"
	"github.com/jhye/pistorm/internal/model"
	"github.com/jhye/pistorm/internal/wireless"
)

// handleScan runs a fresh survey and returns the networks found.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	networks, err := s.freshScan(r.Context())
	switch {
	case errors.Is(err, wireless.ErrInterfaceNotFound):
		writeJSONError(w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		s.logger.Error("scan failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "scan failed after retries")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"networks": networks,
		"count":    len(networks),
	})
}

// handleStart launches an attack on the requested SSID.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SSID string `json:"ssid"`
	}
	// An empty body is treated like an empty ssid field.
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	ssid := strings.TrimSpace(body.SSID)
	if ssid == "" {
		writeJSONError(w, http.StatusBadRequest, "ssid required")
		return
	}

	switch err := s.ctrl.Start(ssid); {
	case errors.Is(err, attack.ErrAttackRunning):
		writeJSONError(w, http.StatusConflict, "attack already running")
	case err != nil:
		s.logger.Warn("invalid attack target rejected", "error", err)
		writeJSONError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Info("attack started", "target", ssid)
		writeJSON(w, http.StatusOK, map[string]string{
			"message": "attack started",
			"target":  ssid,
		})
	}
}

// handleStatus returns the full status snapshot.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Tracker().Snapshot(s.cfg.GPU.Configured()))
}

// handleSimple returns the abbreviated status for embedded clients:
// single-letter keys and truncated strings to keep the payload tiny.
func (s *Server) handleSimple(w http.ResponseWriter, _ *http.Request) {
	report := s.ctrl.Tracker().Report()

	resp := map[string]any{
		"r": boolDigit(report.Running),
		"p": report.Progress,
		"s": truncate(report.Phase.String(), 8),
		"t": truncate(report.Target, 16),
	}
	if !report.Running {
		if report.Succeeded() {
			resp["pw"] = truncate(report.Result, 32)
		} else {
			resp["pw"] = ""
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleResults returns the final outcome, refusing while an attack is
// still in flight.
func (s *Server) handleResults(w http.ResponseWriter, _ *http.Request) {
	report := s.ctrl.Tracker().Report()
	if report.Running {
		writeJSONError(w, http.StatusConflict, "Attack still running")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"result":        report.Result,
		"target":        report.Target,
		"final_step":    report.Step,
		"total_runtime": int(report.Runtime(time.Now()).Seconds()),
	})
}

// handleCancel stops a running attack.
func (s *Server) handleCancel(w http.ResponseWriter, _ *http.Request) {
	if !s.ctrl.Tracker().Running() {
		writeJSON(w, http.StatusOK, map[string]string{"message": "No attack running"})
		return
	}

	s.logger.Info("cancelling attack")
	s.ctrl.Stop()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Attack cancelled"})
}

// handleFiles lists the stored capture files.
func (s *Server) handleFiles(w http.ResponseWriter, _ *http.Request) {
	files, err := s.store.List()
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	type fileEntry struct {
		Name    string `json:"name"`
		Size    int64  `json:"size"`
		MTime   int64  `json:"mtime"`
		Created string `json:"created"`
	}
	entries := make([]fileEntry, 0, len(files))
	for _, f := range files {
		entries = append(entries, fileEntry{
			Name:    f.Name,
			Size:    f.Size,
			MTime:   f.Modified.Unix(),
			Created: f.Modified.Format(time.RFC3339),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"files": entries,
		"total": len(entries),
	})
}

// handleWordlists lists the dictionaries available for local cracking.
func (s *Server) handleWordlists(w http.ResponseWriter, _ *http.Request) {
	wordlists := wireless.AvailableWordlists(s.cfg.WordlistDir)

	type wordlistEntry struct {
		Path      string  `json:"path"`
		Name      string  `json:"name"`
		SizeBytes int64   `json:"size_bytes"`
		SizeMB    float64 `json:"size_mb"`
	}
	entries := make([]wordlistEntry, 0, len(wordlists))
	for _, wl := range wordlists {
		entries = append(entries, wordlistEntry{
			Path:      wl.Path,
			Name:      wl.Name(),
			SizeBytes: wl.Size,
			SizeMB:    float64(wl.Size) / 1024 / 1024,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"wordlists": entries,
		"count":     len(entries),
	})
}

// handleHealth reports liveness and the subsystem states. Unauthenticated.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	ifaces := map[string]any{
		"scan":              s.scanIface,
		"monitor":           s.monIface,
		"available":         s.available,
		"monitor_tested":    s.monitorTested,
		"last_monitor_test": s.lastMonitorTest.Unix(),
	}
	s.mu.Unlock()

	_, toolsErr := wireless.CheckTools()

	writeJSON(w, http.StatusOK, map[string]any{
		"status":              "healthy",
		"timestamp":           time.Now().Format(time.RFC3339),
		"interfaces":          ifaces,
		"tools_available":     toolsErr == nil,
		"wordlists_available": len(wireless.AvailableWordlists(s.cfg.WordlistDir)),
		"capture_dir":         s.store.Dir(),
		"attack_running":      s.ctrl.Tracker().Running(),
		"gpu_offload": map[string]any{
			"enabled":    s.cfg.GPU.Enabled,
			"host":       s.cfg.GPU.Host,
			"configured": s.cfg.GPU.Configured(),
		},
	})
}

// handleConfig returns the non-secret runtime configuration.
func (s *Server) handleConfig(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	ifaces := map[string]any{
		"scan":      s.scanIface,
		"monitor":   s.monIface,
		"available": s.available,
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"attack_timeout":      int(s.cfg.AttackTimeout.Std().Seconds()),
		"capture_dir":         s.store.Dir(),
		"rate_limit":          s.cfg.RateLimit,
		"wordlist_dir":        s.cfg.WordlistDir,
		"gpu_offload_enabled": s.cfg.GPU.Enabled,
		"gpu_host":            s.cfg.GPU.Host,
		"interfaces":          ifaces,
	})
}

// handleCrackResult receives a crack outcome from the GPU host and
// hands it to the waiting attack.
func (s *Server) handleCrackResult(w http.ResponseWriter, r *http.Request) {
	var res model.CrackResult
	if err := json.NewDecoder(r.Body).Decode(&res); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s.logger.Info("crack result received",
		"target", res.Target,
		"status", res.Status,
		"cracked_by", res.CrackedBy,
		"password", res.Password,
	)

	// Intermediate status updates are informational; only terminal
	// results wake the attack worker.
	if res.Status == model.CrackStatusCompleted || res.Status == model.CrackStatusError {
		s.ctrl.Tracker().DeliverGPUResult(res)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "received",
		"target": res.Target,
	})
}

// handleUploadCap accepts a capture file upload, forwarding it to the
// GPU host when offload is configured.
func (s *Server) handleUploadCap(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(capture.MaxUploadSize); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	info, err := s.store.SaveUpload(header.Filename, file)
	if errors.Is(err, capture.ErrInvalidUpload) {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	s.logger.Info("capture file uploaded", "file", info.Name, "bytes", info.Size)

	resp := map[string]any{
		"status":         "uploaded",
		"filename":       info.Name,
		"gpu_processing": false,
		"message":        "File uploaded successfully",
	}

	if s.offloader != nil && s.cfg.GPU.Configured() {
		path, pathErr := s.store.Path(info.Name)
		if pathErr == nil {
			target := strings.TrimSuffix(info.Name, filepath.Ext(info.Name))
			if offErr := s.offloader.Offload(r.Context(), path, target); offErr == nil {
				resp["gpu_processing"] = true
				resp["message"] = "File uploaded and sent to GPU host for processing"
			} else {
				s.logger.Warn("gpu transfer of upload failed", "error", offErr)
				resp["message"] = "File uploaded but GPU transfer failed"
			}
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleTransferToGPU pushes a stored capture (the latest, or a named
// one) to the GPU host.
func (s *Server) handleTransferToGPU(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Filename string `json:"filename"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	var path string
	if body.Filename == "" {
		latest, err := s.store.Latest()
		if errors.Is(err, capture.ErrNoCaptures) {
			writeJSONError(w, http.StatusNotFound, "No capture files found")
			return
		}
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		path = latest
	} else {
		named, err := s.store.Path(body.Filename)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		if _, err := os.Stat(named); err != nil {
			writeJSONError(w, http.StatusNotFound, "File "+body.Filename+" not found")
			return
		}
		path = named
	}

	if s.offloader == nil || !s.cfg.GPU.Configured() {
		writeJSONError(w, http.StatusBadRequest, "GPU offload not configured")
		return
	}

	name := filepath.Base(path)
	target := strings.TrimSuffix(name, filepath.Ext(name))
	if err := s.offloader.Offload(r.Context(), path, target); err != nil {
		s.logger.Error("manual gpu transfer failed", "file", name, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "GPU transfer failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "transferred",
		"filename": name,
		"target":   s.cfg.GPU.Host + ":" + s.cfg.GPU.IncomingDir,
		"message":  "File sent to GPU host",
	})
}

// handleTestMonitor runs the monitor-mode capability self-test.
func (s *Server) handleTestMonitor(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	iface := s.monIface
	s.mu.Unlock()

	s.logger.Info("monitor capability test requested", "interface", iface)
	working, err := s.mgr.TestMonitorCapability(r.Context(), iface)
	if err != nil {
		s.logger.Warn("monitor capability test error", "error", err)
	}

	// The test leaves the interface in monitor mode; put it back.
	if err := s.mgr.SetManagedMode(r.Context(), iface); err != nil {
		s.logger.Warn("failed to restore managed mode after test", "error", err)
	}

	now := time.Now()
	s.mu.Lock()
	s.monitorTested = working
	s.lastMonitorTest = now
	s.mu.Unlock()

	msg := "Monitor mode working"
	if !working {
		msg = "Monitor mode failed - check logs"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "completed",
		"monitor_working": working,
		"interface":       iface,
		"message":         msg,
		"timestamp":       now.Unix(),
	})
}

// handleAnalyzeLatest analyzes the most recent capture file.
func (s *Server) handleAnalyzeLatest(w http.ResponseWriter, r *http.Request) {
	latest, err := s.store.Latest()
	if errors.Is(err, capture.ErrNoCaptures) {
		writeJSONError(w, http.StatusNotFound, "No capture files found")
		return
	}
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	info, err := os.Stat(latest)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	resp := map[string]any{
		"filename":   filepath.Base(latest),
		"size_bytes": info.Size(),
		"timestamp":  info.ModTime().Unix(),
	}

	// An optional ?bssid= scopes the handshake view to one access
	// point; without it the whole file is summarized.
	if analysis, analyzeErr := capture.Analyze(latest, r.URL.Query().Get("bssid")); analyzeErr == nil {
		resp["packets"] = analysis.TotalPackets
		resp["eapol_frames"] = analysis.EAPOLFrames
		resp["pmkids"] = analysis.PMKIDs
		resp["handshake_complete"] = analysis.Complete
	} else {
		resp["packets"] = "Count failed"
	}

	resp["encryption"] = s.mgr.AnalyzeEncryption(r.Context(), latest)

	if found, hsErr := s.mgr.HasHandshake(r.Context(), latest, ""); hsErr == nil {
		if found {
			resp["handshake"] = "Found"
		} else {
			resp["handshake"] = "Not found"
		}
	} else {
		resp["handshake"] = "Check failed"
	}

	writeJSON(w, http.StatusOK, resp)
}

// boolDigit renders a bool as the 1/0 the display protocol uses.
func boolDigit(b bool) int {
	if b {
		return 1
	}
	return 0
}

// truncate clips s to max bytes for the compact payloads.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
