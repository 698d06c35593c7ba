package codec

import (
	"encoding/binary"
	"fmt"
	"net/netip"

	"firestige.xyz/rawhttpd/internal/core"
	"firestige.xyz/rawhttpd/internal/core/checksum"
)

// decodeTCP decodes a TCP header. Options are skipped.
// Returns TCPHeader and the segment payload.
func decodeTCP(data []byte) (core.TCPHeader, []byte, error) {
	if len(data) < core.TCPHeaderLen {
		return core.TCPHeader{}, nil, core.ErrTruncated
	}

	tcp := core.TCPHeader{
		SrcPort: binary.BigEndian.Uint16(data[0:2]),
		DstPort: binary.BigEndian.Uint16(data[2:4]),
		Seq:     binary.BigEndian.Uint32(data[4:8]),
		Ack:     binary.BigEndian.Uint32(data[8:12]),
		// Data Offset (upper 4 bits of byte 12)
		DataOffset: data[12] >> 4,
		// Byte 13: | CWR | ECE | URG | ACK | PSH | RST | SYN | FIN |
		Flags:    core.TCPFlags(data[13] & 0x3F),
		Window:   binary.BigEndian.Uint16(data[14:16]),
		Checksum: binary.BigEndian.Uint16(data[16:18]),
		Urgent:   binary.BigEndian.Uint16(data[18:20]),
	}

	headerLen := int(tcp.DataOffset) * 4
	if headerLen < core.TCPHeaderLen || len(data) < headerLen {
		return tcp, nil, fmt.Errorf("data offset %d: %w", tcp.DataOffset, core.ErrTruncated)
	}

	return tcp, data[headerLen:], nil
}

// encodeTCP writes an option-less TCP header followed by payload into b and
// fills in the checksum computed over the pseudo-header for src and dst.
// len(b) must be 20+len(payload).
func encodeTCP(b []byte, tcp core.TCPHeader, payload []byte, src, dst netip.Addr) {
	binary.BigEndian.PutUint16(b[0:2], tcp.SrcPort)
	binary.BigEndian.PutUint16(b[2:4], tcp.DstPort)
	binary.BigEndian.PutUint32(b[4:8], tcp.Seq)
	binary.BigEndian.PutUint32(b[8:12], tcp.Ack)
	b[12] = 5 << 4
	b[13] = uint8(tcp.Flags) & 0x3F
	binary.BigEndian.PutUint16(b[14:16], tcp.Window)
	b[16], b[17] = 0, 0
	binary.BigEndian.PutUint16(b[18:20], tcp.Urgent)
	copy(b[core.TCPHeaderLen:], payload)

	binary.BigEndian.PutUint16(b[16:18], checksum.TCP(src, dst, b))
}
