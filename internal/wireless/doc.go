// Package wireless drives the command-line tooling that does the actual
// radio work: iw for interface control and scanning, airodump-ng for
// handshake capture, aireplay-ng for deauthentication, aircrack-ng for
// handshake validation and dictionary attacks, and tshark for capture
// analysis.
//
// All external commands go through the Runner interface so the rest of
// the application (and the tests) never touch os/exec directly. The
// production ExecRunner starts every child in its own process group,
// which is what makes cancelling an attack reliable: airodump-ng and
// aireplay-ng both fork helpers that would survive a plain Process.Kill.
package wireless
