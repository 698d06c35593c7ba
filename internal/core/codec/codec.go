package codec

import (
	"fmt"

	"firestige.xyz/rawhttpd/internal/core"
	"firestige.xyz/rawhttpd/internal/core/checksum"
)

// Parse decodes the Ethernet, IPv4 and TCP headers of a captured frame
// without validating the TCP checksum, so that callers can filter on
// ports first. Frames that are not IPv4/TCP yield core.ErrNotIPv4 or
// core.ErrNotTCP; malformed frames yield one of the drop errors.
func Parse(raw []byte) (core.Frame, error) {
	var frame core.Frame

	eth, ipData, err := decodeEthernet(raw)
	frame.Ethernet = eth
	if err != nil {
		return frame, err
	}

	ip, segment, err := decodeIPv4(ipData, len(raw))
	frame.IP = ip
	if err != nil {
		return frame, err
	}

	tcp, payload, err := decodeTCP(segment)
	frame.TCP = tcp
	if err != nil {
		return frame, err
	}
	frame.Payload = payload
	frame.Segment = segment

	return frame, nil
}

// VerifyTCPChecksum recomputes the TCP checksum of a parsed frame over the
// pseudo-header and the captured segment with its checksum field zeroed.
func VerifyTCPChecksum(frame core.Frame) error {
	if len(frame.Segment) < core.TCPHeaderLen {
		return core.ErrTruncated
	}
	want := checksum.TCP(frame.IP.SrcIP, frame.IP.DstIP, frame.Segment)
	if want != frame.TCP.Checksum {
		return fmt.Errorf("got 0x%04x want 0x%04x: %w", frame.TCP.Checksum, want, core.ErrChecksumMismatch)
	}
	return nil
}

// Decode parses a frame and validates its TCP checksum.
func Decode(raw []byte) (core.Frame, error) {
	frame, err := Parse(raw)
	if err != nil {
		return frame, err
	}
	if err := VerifyTCPChecksum(frame); err != nil {
		return frame, err
	}
	return frame, nil
}
