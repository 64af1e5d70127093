package model

// Phase is the high-level stage of the attack state machine.
// Phases advance monotonically during a normal run:
//
//	idle -> preparing -> scanning -> capture -> (gpu_ready -> gpu_cracking) -> cracking -> complete
//
// The GPU phases only occur when offload is enabled; a GPU timeout falls
// back into the local cracking phase. Error and cancelled are terminal
// phases reachable from anywhere.
//
// Design decision: We use iota-based constants rather than string
// constants for efficiency in comparisons, with String() providing the
// wire names that pollers and the embedded display expect.
type Phase int

const (
	// PhaseIdle means no attack has run since startup.
	PhaseIdle Phase = iota

	// PhasePreparing covers tool checks and interface setup.
	PhasePreparing

	// PhaseScanning covers the fresh scan that locates the target BSSID
	// and channel.
	PhaseScanning

	// PhaseCapture covers airodump-ng capture and deauth bursts.
	PhaseCapture

	// PhaseGPUReady means the capture file is staged for the GPU host.
	PhaseGPUReady

	// PhaseGPUCracking means the GPU host reported that hashcat is running.
	PhaseGPUCracking

	// PhaseCracking covers the local aircrack-ng dictionary attack.
	PhaseCracking

	// PhaseComplete is the terminal phase of a finished attack,
	// whether or not a password was recovered.
	PhaseComplete

	// PhaseCancelled is the terminal phase after a cancel request.
	PhaseCancelled

	// PhaseError is the terminal phase of an attack that aborted.
	PhaseError
)

// phaseNames holds the wire representation of each phase. These names
// are part of the API surface: the plain-text status endpoints emit
// them and the embedded display matches on them.
var phaseNames = map[Phase]string{
	PhaseIdle:        "idle",
	PhasePreparing:   "preparing",
	PhaseScanning:    "scanning",
	PhaseCapture:     "capture",
	PhaseGPUReady:    "gpu_ready",
	PhaseGPUCracking: "gpu_cracking",
	PhaseCracking:    "cracking",
	PhaseComplete:    "complete",
	PhaseCancelled:   "cancelled",
	PhaseError:       "error",
}

// String returns the wire name of the phase.
func (p Phase) String() string {
	if s, ok := phaseNames[p]; ok {
		return s
	}
	return "unknown"
}

// Terminal reports whether the phase ends the attack lifecycle.
func (p Phase) Terminal() bool {
	return p == PhaseComplete || p == PhaseCancelled || p == PhaseError
}

// MarshalText implements encoding.TextMarshaler so phases serialize as
// their wire names in JSON.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
// Unknown names decode to PhaseIdle rather than erroring because old
// status rows in the database must stay readable if names change.
func (p *Phase) UnmarshalText(text []byte) error {
	s := string(text)
	for phase, name := range phaseNames {
		if name == s {
			*p = phase
			return nil
		}
	}
	*p = PhaseIdle
	return nil
}
