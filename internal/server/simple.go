package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jhye/pistorm/internal/attack"
	"github.com/jhye/pistorm/internal/model"
)

// networksPerPage is how many survey entries fit on one display page.
const networksPerPage = 3

// handlePing answers the display's connectivity probe.
func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	writeText(w, http.StatusOK, "pong")
}

// handleText is the display's one-line status poll. The display polls
// every second, so this endpoint checks the API key itself and skips
// the rate limiter.
//
// The line is "running|progress|phase|target|result". The result field
// stays empty until the attack reaches 100% so the display never shows
// a partial passphrase.
func (s *Server) handleText(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("X-API-Key") != s.cfg.APIKey {
		writeText(w, http.StatusUnauthorized, "0|0|error||")
		return
	}

	report := s.ctrl.Tracker().Report()
	if !report.Running && report.Phase == model.PhaseIdle {
		writeText(w, http.StatusOK, "0|0|idle||")
		return
	}

	result := ""
	if !report.Running && report.Progress == 100 {
		result = truncate(report.Result, 20)
	}
	line := fmt.Sprintf("%d|%d|%s|%s|%s",
		boolDigit(report.Running),
		report.Progress,
		truncate(report.Phase.String(), 10),
		truncate(report.Target, 16),
		result,
	)
	writeText(w, http.StatusOK, line)
}

// handleStatusSimple returns "running|progress|phase|target".
func (s *Server) handleStatusSimple(w http.ResponseWriter, r *http.Request) {
	report := s.ctrl.Tracker().Report()
	line := fmt.Sprintf("%d|%d|%s|%s",
		boolDigit(report.Running),
		report.Progress,
		report.Phase,
		report.Target,
	)
	writeText(w, http.StatusOK, line)
}

// handleNetworks runs a fresh survey and returns one "SSID|SIGNAL|ENC"
// line per network, SSIDs clipped to the display's 12-character field.
func (s *Server) handleNetworks(w http.ResponseWriter, r *http.Request) {
	networks, err := s.freshScan(r.Context())
	if err != nil {
		s.logger.Error("display scan failed", "error", err)
		writeText(w, http.StatusInternalServerError, "ERROR: Scan failed")
		return
	}
	if len(networks) == 0 {
		writeText(w, http.StatusOK, "No networks found")
		return
	}

	var b strings.Builder
	for i, n := range networks {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s|%d|%s", truncate(n.SSID, 12), n.Signal, n.Encryption)
	}
	writeText(w, http.StatusOK, b.String())
}

// handleNetworkCount returns how many networks the display can page
// through, scanning first when the cache is stale.
func (s *Server) handleNetworkCount(w http.ResponseWriter, r *http.Request) {
	networks, err := s.cachedScan(r.Context())
	if err != nil {
		s.logger.Error("display scan failed", "error", err)
		writeText(w, http.StatusInternalServerError, "ERROR: Scan failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": len(networks)})
}

// handleNetworkPage returns one display page of the cached survey as
// "number|ssid|signal|enc" lines. Numbers are global across pages so
// they can be fed straight to /attack_target.
func (s *Server) handleNetworkPage(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(r.PathValue("page"))
	if err != nil || page < 1 {
		writeText(w, http.StatusBadRequest, "ERROR: Invalid page number")
		return
	}

	networks, err := s.cachedScan(r.Context())
	if err != nil {
		s.logger.Error("display scan failed", "error", err)
		writeText(w, http.StatusInternalServerError, "ERROR: Scan failed")
		return
	}

	pages := (len(networks) + networksPerPage - 1) / networksPerPage
	if pages == 0 {
		pages = 1
	}
	if page > pages {
		writeText(w, http.StatusBadRequest, fmt.Sprintf("ERROR: Page %d not found (1-%d)", page, pages))
		return
	}

	start := (page - 1) * networksPerPage
	end := start + networksPerPage
	if end > len(networks) {
		end = len(networks)
	}

	var b strings.Builder
	for i := start; i < end; i++ {
		if i > start {
			b.WriteByte('\n')
		}
		n := networks[i]
		fmt.Fprintf(&b, "%d|%s|%d|%s", i+1, truncate(n.SSID, 12), n.Signal, n.Encryption)
	}
	writeText(w, http.StatusOK, b.String())
}

// handleAttackTarget starts an attack against the Nth cached network,
// so the display only has to send a single digit.
func (s *Server) handleAttackTarget(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.Atoi(r.PathValue("number"))
	if err != nil || number < 1 {
		writeText(w, http.StatusBadRequest, "ERROR: Invalid network number")
		return
	}

	networks := s.scans.current()
	if len(networks) == 0 {
		writeText(w, http.StatusBadRequest, "ERROR: No networks cached. Scan first.")
		return
	}
	if number > len(networks) {
		writeText(w, http.StatusBadRequest, fmt.Sprintf("ERROR: Network %d not found (1-%d)", number, len(networks)))
		return
	}

	target := networks[number-1].SSID
	if err := s.ctrl.Start(target); err != nil {
		if errors.Is(err, attack.ErrAttackRunning) {
			writeText(w, http.StatusConflict, "ERROR: Attack already running")
			return
		}
		writeText(w, http.StatusBadRequest, "ERROR: "+err.Error())
		return
	}
	writeText(w, http.StatusOK, "STARTED|"+target)
}

// handleAttackStart starts an attack by SSID for displays that keep
// their own target list.
func (s *Server) handleAttackStart(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SSID string `json:"ssid"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeText(w, http.StatusBadRequest, "ERROR: Invalid request body")
		return
	}
	if body.SSID == "" {
		writeText(w, http.StatusBadRequest, "ERROR: No SSID provided")
		return
	}

	if err := s.ctrl.Start(body.SSID); err != nil {
		if errors.Is(err, attack.ErrAttackRunning) {
			writeText(w, http.StatusConflict, "ERROR: Attack already running")
			return
		}
		writeText(w, http.StatusBadRequest, "ERROR: "+err.Error())
		return
	}
	writeText(w, http.StatusOK, "STARTED|"+body.SSID)
}

// handleAttackStop cancels the running attack.
func (s *Server) handleAttackStop(w http.ResponseWriter, r *http.Request) {
	if !s.ctrl.Tracker().Running() {
		writeText(w, http.StatusOK, "NOT_RUNNING")
		return
	}
	s.ctrl.Stop()
	writeText(w, http.StatusOK, "STOPPED")
}

// handleResultsSimple returns the outcome as a single line the display
// can split on the first pipe.
func (s *Server) handleResultsSimple(w http.ResponseWriter, r *http.Request) {
	report := s.ctrl.Tracker().Report()
	switch {
	case report.Running:
		writeText(w, http.StatusOK, "RUNNING|Attack in progress")
	case report.Succeeded():
		writeText(w, http.StatusOK, "SUCCESS|"+report.Result)
	default:
		writeText(w, http.StatusOK, "FAILED|"+report.Result)
	}
}

// handleCommand renders full screens for displays that show multi-line
// text instead of parsing fields.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	switch cmd := r.PathValue("command"); cmd {
	case "menu":
		s.commandMenu(w, r)
	case "networks":
		s.commandNetworks(w, r)
	case "attack":
		s.commandAttack(w, r)
	case "status":
		s.commandStatus(w, r)
	case "cancel":
		s.commandCancel(w, r)
	default:
		writeText(w, http.StatusBadRequest, "ERROR: Unknown command: "+cmd)
	}
}

func (s *Server) commandMenu(w http.ResponseWriter, r *http.Request) {
	screen := strings.Join([]string{
		"=== WiFi PENTEST ===",
		"",
		"1. networks - scan for targets",
		"2. attack   - attack a target",
		"3. status   - attack progress",
		"4. cancel   - stop the attack",
		"",
		"Send /cmd/<name>",
	}, "\n")
	writeText(w, http.StatusOK, screen)
}

func (s *Server) commandNetworks(w http.ResponseWriter, r *http.Request) {
	networks, err := s.cachedScan(r.Context())
	if err != nil {
		s.logger.Error("display scan failed", "error", err)
		writeText(w, http.StatusInternalServerError, "ERROR: Scan failed")
		return
	}
	if len(networks) == 0 {
		writeText(w, http.StatusOK, "=== NETWORKS (0) ===\nNo networks found")
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "=== NETWORKS (%d) ===\n", len(networks))
	shown := len(networks)
	if shown > 10 {
		shown = 10
	}
	for i := 0; i < shown; i++ {
		n := networks[i]
		fmt.Fprintf(&b, "%d. %s (%d)\n", i+1, truncate(n.SSID, 16), n.Signal)
	}
	if shown < len(networks) {
		fmt.Fprintf(&b, "... %d more\n", len(networks)-shown)
	}
	b.WriteString("\nAttack: /attack_target/<n>")
	writeText(w, http.StatusOK, b.String())
}

func (s *Server) commandAttack(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Target string `json:"target"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeText(w, http.StatusBadRequest, "ERROR: Invalid request body")
		return
	}
	if body.Target == "" {
		writeText(w, http.StatusBadRequest, "ERROR: No target specified")
		return
	}

	if err := s.ctrl.Start(body.Target); err != nil {
		if errors.Is(err, attack.ErrAttackRunning) {
			writeText(w, http.StatusConflict, "ERROR: Attack already running")
			return
		}
		writeText(w, http.StatusBadRequest, "ERROR: "+err.Error())
		return
	}

	screen := strings.Join([]string{
		"=== ATTACK STARTED ===",
		"Target: " + truncate(body.Target, 20),
		"",
		"Check /cmd/status",
	}, "\n")
	writeText(w, http.StatusOK, screen)
}

func (s *Server) commandStatus(w http.ResponseWriter, r *http.Request) {
	report := s.ctrl.Tracker().Report()
	if !report.Running && report.Phase == model.PhaseIdle {
		writeText(w, http.StatusOK, "=== ATTACK STATUS ===\nNo attack running")
		return
	}

	var b strings.Builder
	b.WriteString("=== ATTACK STATUS ===\n")
	fmt.Fprintf(&b, "Target: %s\n", truncate(report.Target, 20))
	fmt.Fprintf(&b, "Phase: %s\n", report.Phase)
	fmt.Fprintf(&b, "%s %d%%\n", progressBar(report.Progress), report.Progress)
	if report.Running {
		fmt.Fprintf(&b, "Step: %s\n", truncate(report.Step, 30))
		fmt.Fprintf(&b, "Runtime: %ds", int(report.Runtime(time.Now()).Seconds()))
	} else if report.Succeeded() {
		fmt.Fprintf(&b, "SUCCESS: %s", report.Result)
	} else {
		fmt.Fprintf(&b, "FAILED: %s", report.Result)
	}
	writeText(w, http.StatusOK, b.String())
}

func (s *Server) commandCancel(w http.ResponseWriter, r *http.Request) {
	if !s.ctrl.Tracker().Running() {
		writeText(w, http.StatusOK, "No attack to cancel")
		return
	}
	s.ctrl.Stop()
	writeText(w, http.StatusOK, "ATTACK CANCELLED\nReturning to menu...")
}

// progressBar renders a 20-column text progress bar like "[====----]".
func progressBar(progress int) string {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	filled := progress * 20 / 100
	return "[" + strings.Repeat("=", filled) + strings.Repeat("-", 20-filled) + "]"
}
