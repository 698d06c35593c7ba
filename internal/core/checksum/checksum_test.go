package checksum

import (
	"encoding/binary"
	"net"
	"net/netip"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

func TestChecksumRFC1071Example(t *testing.T) {
	// RFC 1071 section 3 worked example.
	data := []byte{0x00, 0x01, 0xf2, 0x03, 0xf4, 0xf5, 0xf6, 0xf7}

	if got := Sum(0, data); got != 0x2ddf0 {
		t.Errorf("Expected partial sum 0x2ddf0, got 0x%x", got)
	}
	if got := Checksum(data); got != 0x220d {
		t.Errorf("Expected checksum 0x220d, got 0x%04x", got)
	}
}

func TestChecksumOddLength(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want uint16
	}{
		{"empty", []byte{}, 0xffff},
		{"single byte", []byte{0x01}, 0xfeff},
		{"three bytes", []byte{0x12, 0x34, 0x56}, ^uint16(0x1234 + 0x5600)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Checksum(tt.data); got != tt.want {
				t.Errorf("Expected 0x%04x, got 0x%04x", tt.want, got)
			}
		})
	}
}

func TestIPv4HeaderKnownValue(t *testing.T) {
	hdr := []byte{
		0x45, 0x00, 0x00, 0x73,
		0x00, 0x00, 0x40, 0x00,
		0x40, 0x11, 0xb8, 0x61, // checksum already in place
		0xc0, 0xa8, 0x00, 0x01,
		0xc0, 0xa8, 0x00, 0xc7,
	}

	if got := IPv4Header(hdr); got != 0xb861 {
		t.Errorf("Expected 0xb861, got 0x%04x", got)
	}
	// Self-verification: a header holding its own checksum sums to zero.
	if got := Checksum(hdr); got != 0 {
		t.Errorf("Expected verified header to checksum to 0, got 0x%04x", got)
	}
}

func TestFoldCarries(t *testing.T) {
	// 0xffff + 0xffff = 0x1fffe -> 0xffff after two folds -> complement 0.
	if got := Fold(0x1fffe); got != 0 {
		t.Errorf("Expected 0, got 0x%04x", got)
	}
	if got := Fold(0); got != 0xffff {
		t.Errorf("Expected 0xffff, got 0x%04x", got)
	}
}

func TestPseudoHeader(t *testing.T) {
	ph := PseudoHeader(netip.MustParseAddr("192.168.1.1"), netip.MustParseAddr("10.0.0.2"), 6, 0x0123)
	want := [12]byte{192, 168, 1, 1, 10, 0, 0, 2, 0, 6, 0x01, 0x23}
	if ph != want {
		t.Errorf("Expected %v, got %v", want, ph)
	}
}

// TestTCPMatchesGopacket cross-checks the TCP checksum against gopacket's
// independent implementation, for even and odd payload lengths.
func TestTCPMatchesGopacket(t *testing.T) {
	src := netip.MustParseAddr("192.168.2.52")
	dst := netip.MustParseAddr("192.168.2.152")

	for _, payload := range [][]byte{nil, []byte("GET / HTTP/1.1\r\n\r\n"), []byte("odd")} {
		ip := &layers.IPv4{
			Version:  4,
			IHL:      5,
			TTL:      64,
			Protocol: layers.IPProtocolTCP,
			SrcIP:    net.IP(src.AsSlice()),
			DstIP:    net.IP(dst.AsSlice()),
		}
		tcp := &layers.TCP{
			SrcPort: 51000,
			DstPort: 8080,
			Seq:     1000,
			Ack:     2000,
			PSH:     true,
			ACK:     true,
			Window:  2000,
		}
		if err := tcp.SetNetworkLayerForChecksum(ip); err != nil {
			t.Fatalf("SetNetworkLayerForChecksum failed: %v", err)
		}

		buf := gopacket.NewSerializeBuffer()
		opts := gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}
		if err := gopacket.SerializeLayers(buf, opts, tcp, gopacket.Payload(payload)); err != nil {
			t.Fatalf("SerializeLayers failed: %v", err)
		}
		segment := buf.Bytes()
		want := binary.BigEndian.Uint16(segment[16:18])

		if got := TCP(src, dst, segment); got != want {
			t.Errorf("payload %q: expected 0x%04x, got 0x%04x", payload, want, got)
		}
	}
}

func BenchmarkChecksum(b *testing.B) {
	data := make([]byte, 1500)
	for i := range data {
		data[i] = byte(i)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Checksum(data)
	}
}
