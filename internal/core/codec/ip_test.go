package codec

import (
	"errors"
	"net/netip"
	"testing"

	"firestige.xyz/rawhttpd/internal/core"
)

// ipv4TCPHeader returns a 20-byte IPv4 header declaring totalLen and protocol TCP.
func ipv4TCPHeader(totalLen uint16) []byte {
	return []byte{
		0x45,                                   // Version 4, IHL 5
		0x00,                                   // DSCP, ECN
		byte(totalLen >> 8), byte(totalLen),    // Total Length
		0x12, 0x34,                             // Identification
		0x40, 0x00,                             // Flags (DF), Fragment Offset
		0x40,                                   // TTL: 64
		0x06,                                   // Protocol: TCP
		0x00, 0x00,                             // Checksum
		192, 168, 1, 1,                         // Src IP
		192, 168, 1, 2,                         // Dst IP
	}
}

func TestDecodeIPv4Basic(t *testing.T) {
	data := append(ipv4TCPHeader(24), 0x01, 0x02, 0x03, 0x04)

	ip, payload, err := decodeIPv4(data, core.EthernetHeaderLen+len(data))
	if err != nil {
		t.Fatalf("decodeIPv4 failed: %v", err)
	}

	if ip.Version != 4 || ip.IHL != 5 {
		t.Errorf("Expected version 4 ihl 5, got %d %d", ip.Version, ip.IHL)
	}
	if ip.Protocol != 6 {
		t.Errorf("Expected protocol 6, got %d", ip.Protocol)
	}
	if ip.TTL != 64 {
		t.Errorf("Expected TTL 64, got %d", ip.TTL)
	}
	if ip.ID != 0x1234 {
		t.Errorf("Expected ID 0x1234, got 0x%04x", ip.ID)
	}
	if ip.Flags != core.IPv4DontFragment {
		t.Errorf("Expected DF flag, got %d", ip.Flags)
	}
	if ip.SrcIP != netip.MustParseAddr("192.168.1.1") {
		t.Errorf("Expected SrcIP 192.168.1.1, got %v", ip.SrcIP)
	}
	if ip.DstIP != netip.MustParseAddr("192.168.1.2") {
		t.Errorf("Expected DstIP 192.168.1.2, got %v", ip.DstIP)
	}
	if len(payload) != 4 {
		t.Errorf("Expected payload length 4, got %d", len(payload))
	}
}

func TestDecodeIPv4Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func([]byte) []byte
		want   error
	}{
		{"too short", func(b []byte) []byte { return b[:10] }, core.ErrTruncated},
		{"options", func(b []byte) []byte { b[0] = 0x46; return b }, core.ErrUnsupportedOptions},
		{"ipv6 version", func(b []byte) []byte { b[0] = 0x65; return b }, core.ErrUnsupportedOptions},
		{"udp", func(b []byte) []byte { b[9] = 17; return b }, core.ErrNotTCP},
		{"declared longer", func(b []byte) []byte { b[3] = 40; return b }, core.ErrLengthMismatch},
		{"declared shorter", func(b []byte) []byte { b[3] = 20; return b }, core.ErrLengthMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.mutate(append(ipv4TCPHeader(24), 0x01, 0x02, 0x03, 0x04))

			_, _, err := decodeIPv4(data, core.EthernetHeaderLen+len(data))
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestDecodeIPv4EthernetPadding(t *testing.T) {
	// A bare 40-byte IPv4/TCP datagram padded to the 60-byte Ethernet minimum.
	data := append(ipv4TCPHeader(40), make([]byte, 26)...)

	_, segment, err := decodeIPv4(data, minFrameLen)
	if err != nil {
		t.Fatalf("decodeIPv4 failed: %v", err)
	}
	if len(segment) != 20 {
		t.Errorf("Expected padding to be trimmed to a 20-byte segment, got %d", len(segment))
	}

	// The same surplus on a larger frame is a real mismatch.
	data = append(ipv4TCPHeader(40), make([]byte, 40)...)
	_, _, err = decodeIPv4(data, core.EthernetHeaderLen+len(data))
	if !errors.Is(err, core.ErrLengthMismatch) {
		t.Errorf("Expected ErrLengthMismatch, got %v", err)
	}
}

func BenchmarkDecodeIPv4(b *testing.B) {
	data := append(ipv4TCPHeader(24), 0x01, 0x02, 0x03, 0x04)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, err := decodeIPv4(data, 38)
		if err != nil {
			b.Fatal(err)
		}
	}
}
