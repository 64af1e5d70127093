// Package gpu handles the capture offload path: shipping capture files
// from the Pi to the GPU host over SSH, and the listener process on the
// GPU host that converts captures, runs hashcat, and reports recovered
// passphrases back to the orchestrator API.
package gpu
