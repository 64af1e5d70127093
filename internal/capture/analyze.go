package capture

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// Analysis summarizes the handshake-relevant contents of a capture file.
type Analysis struct {
	// TotalPackets is the number of packets in the file.
	TotalPackets int `json:"total_packets"`

	// EAPOLFrames is the number of EAPOL frames seen, across all
	// access points in the file.
	EAPOLFrames int `json:"eapol_frames"`

	// Messages counts each 4-way handshake message by number (1-4),
	// scoped to the requested BSSID when one was given.
	Messages map[int]int `json:"messages"`

	// PMKIDs is the number of message-1 frames carrying a PMKID, which
	// hashcat can attack without a full handshake.
	PMKIDs int `json:"pmkids"`

	// Complete reports whether the capture holds a crackable handshake:
	// message 2 plus either message 1 or 3 supplies both nonces and a
	// MIC, and a PMKID alone is enough for hash mode 22000.
	Complete bool `json:"complete"`

	// Beacons is the number of beacon frames, a sanity signal that the
	// radio was actually receiving on the target channel.
	Beacons int `json:"beacons"`
}

// pmkidKDE is the RSN key data element header that precedes a PMKID in
// an EAPOL-Key message 1: vendor-specific tag, length 0x14, the 802.11
// OUI, and data type 4.
var pmkidKDE = []byte{0xdd, 0x14, 0x00, 0x0f, 0xac, 0x04}

// Analyze reads a pcap capture file and classifies its EAPOL key
// frames into 4-way handshake messages. It handles both link types
// airodump-ng produces: radiotap-wrapped and raw 802.11.
//
// A non-empty bssid scopes the handshake classification to frames to
// or from that access point. Passive captures hop across channels and
// record every AP in range; without the scope a neighbor's handshake
// would pass off as the target's.
//
// This runs alongside the aircrack-ng summary check; aircrack says
// whether it can crack the file, this says what actually landed in it,
// which is the information an operator needs when a capture fails.
func Analyze(path, bssid string) (Analysis, error) {
	var target net.HardwareAddr
	if bssid != "" {
		mac, err := net.ParseMAC(bssid)
		if err != nil {
			return Analysis{}, fmt.Errorf("parse bssid: %w", err)
		}
		target = mac
	}

	f, err := os.Open(path)
	if err != nil {
		return Analysis{}, fmt.Errorf("open capture: %w", err)
	}
	defer f.Close()

	reader, err := pcapgo.NewReader(f)
	if err != nil {
		return Analysis{}, fmt.Errorf("read pcap header: %w", err)
	}

	firstLayer := layers.LayerTypeDot11
	if reader.LinkType() == layers.LinkTypeIEEE80211Radio {
		firstLayer = layers.LayerTypeRadioTap
	}

	analysis := Analysis{Messages: make(map[int]int)}
	for {
		data, _, err := reader.ReadPacketData()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// A truncated tail is common when airodump-ng is killed
			// mid-write; keep what was parsed.
			break
		}
		analysis.TotalPackets++

		packet := gopacket.NewPacket(data, firstLayer, gopacket.Lazy)

		var dot11 *layers.Dot11
		if dot11Layer := packet.Layer(layers.LayerTypeDot11); dot11Layer != nil {
			dot11, _ = dot11Layer.(*layers.Dot11)
		}
		if dot11 != nil && dot11.Type == layers.Dot11TypeMgmtBeacon {
			analysis.Beacons++
		}

		if packet.Layer(layers.LayerTypeEAPOL) != nil {
			analysis.EAPOLFrames++
		}

		keyLayer := packet.Layer(layers.LayerTypeEAPOLKey)
		if keyLayer == nil {
			continue
		}
		key, ok := keyLayer.(*layers.EAPOLKey)
		if !ok {
			continue
		}
		if target != nil && !involvesAddress(dot11, target) {
			continue
		}

		msg := classifyKeyMessage(key)
		if msg == 0 {
			continue
		}
		analysis.Messages[msg]++
		if msg == 1 && bytes.Contains(keyLayer.LayerPayload(), pmkidKDE) {
			analysis.PMKIDs++
		}
	}

	analysis.Complete = analysis.PMKIDs > 0 ||
		(analysis.Messages[2] > 0 &&
			(analysis.Messages[1] > 0 || analysis.Messages[3] > 0))
	return analysis, nil
}

// involvesAddress reports whether a frame was sent to or from the given
// station. The BSSID sits in address 1, 2, or 3 depending on the
// ToDS/FromDS direction, so all three are checked.
func involvesAddress(dot11 *layers.Dot11, mac net.HardwareAddr) bool {
	if dot11 == nil {
		return false
	}
	for _, addr := range []net.HardwareAddr{dot11.Address1, dot11.Address2, dot11.Address3} {
		if bytes.Equal(addr, mac) {
			return true
		}
	}
	return false
}

// classifyKeyMessage identifies which message of the 4-way handshake an
// EAPOL key frame is, going by the ACK/MIC/Secure flag combination:
//
//	message 1 (AP->STA): ACK, no MIC, not secure (carries ANonce)
//	message 2 (STA->AP): MIC, no ACK, not secure (carries SNonce)
//	message 3 (AP->STA): ACK and MIC, secure     (carries GTK)
//	message 4 (STA->AP): MIC, no ACK, secure
//
// Returns 0 for frames that match none of these, such as group key
// rekeys.
func classifyKeyMessage(k *layers.EAPOLKey) int {
	switch {
	case k.KeyACK && !k.KeyMIC && !k.Secure:
		return 1
	case !k.KeyACK && k.KeyMIC && !k.Secure:
		return 2
	case k.KeyACK && k.KeyMIC && k.Secure:
		return 3
	case !k.KeyACK && k.KeyMIC && k.Secure:
		return 4
	default:
		return 0
	}
}
