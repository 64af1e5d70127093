// Package main provides the entry point for the PiStorm CLI.
//
// PiStorm is a distributed WiFi penetration-testing harness for
// authorized security assessments. The Pi side orchestrates scanning,
// handshake capture, and local cracking over an HTTP API; the GPU side
// runs the same binary in listener mode and cracks offloaded captures
// with hashcat.
//
// Usage:
//
//	pistorm serve
//	pistorm listen
//	pistorm scan
//	pistorm attack <ssid>
//
// See --help for all available options.
package main

// main is the entry point for PiStorm.
func main() {
	Execute()
}
