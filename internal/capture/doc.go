// Package capture manages handshake capture files: the on-disk store
// that airodump-ng writes into and uploads land in, the staging area
// for GPU offload, and a pure-Go pcap analyzer that classifies the
// EAPOL frames of the WPA 4-way handshake without shelling out.
package capture
