package codec

import (
	"encoding/binary"
	"fmt"
	"net/netip"

	"firestige.xyz/rawhttpd/internal/core"
	"firestige.xyz/rawhttpd/internal/core/checksum"
)

// decodeIPv4 decodes an option-less IPv4 header.
// frameLen is the length of the whole captured frame and is only used to
// recognise Ethernet minimum-size padding.
// Returns IPv4Header and the datagram payload.
func decodeIPv4(data []byte, frameLen int) (core.IPv4Header, []byte, error) {
	if len(data) < core.IPv4HeaderLen {
		return core.IPv4Header{}, nil, core.ErrTruncated
	}

	ip := core.IPv4Header{
		Version: data[0] >> 4,
		IHL:     data[0] & 0x0F,
		TOS:     data[1],
	}
	if ip.Version != 4 || ip.IHL != 5 {
		return ip, nil, fmt.Errorf("version %d ihl %d: %w", ip.Version, ip.IHL, core.ErrUnsupportedOptions)
	}

	ip.TotalLen = binary.BigEndian.Uint16(data[2:4])
	ip.ID = binary.BigEndian.Uint16(data[4:6])
	flagsOffset := binary.BigEndian.Uint16(data[6:8])
	ip.Flags = uint8(flagsOffset >> 13)
	ip.FragOff = flagsOffset & 0x1FFF
	ip.TTL = data[8]
	ip.Protocol = data[9]
	ip.Checksum = binary.BigEndian.Uint16(data[10:12])
	ip.SrcIP = netip.AddrFrom4([4]byte(data[12:16]))
	ip.DstIP = netip.AddrFrom4([4]byte(data[16:20]))

	// Foreign protocols are ignored before any length validation.
	if ip.Protocol != core.ProtocolTCP {
		return ip, nil, core.ErrNotTCP
	}

	datagram := data
	if int(ip.TotalLen) != len(datagram) {
		// A minimum-size frame may carry trailing Ethernet padding after the datagram.
		if frameLen == minFrameLen && int(ip.TotalLen) >= core.IPv4HeaderLen && int(ip.TotalLen) < len(datagram) {
			datagram = datagram[:ip.TotalLen]
		} else {
			return ip, nil, fmt.Errorf("declared %d captured %d: %w", ip.TotalLen, len(datagram), core.ErrLengthMismatch)
		}
	}

	return ip, datagram[core.IPv4HeaderLen:], nil
}

// encodeIPv4 writes an option-less IPv4 header into b[0:20] and fills in its checksum.
// TotalLen and ID must already be set on ip.
func encodeIPv4(b []byte, ip core.IPv4Header) {
	b[0] = 4<<4 | 5
	b[1] = ip.TOS
	binary.BigEndian.PutUint16(b[2:4], ip.TotalLen)
	binary.BigEndian.PutUint16(b[4:6], ip.ID)
	binary.BigEndian.PutUint16(b[6:8], uint16(ip.Flags)<<13|ip.FragOff&0x1FFF)
	b[8] = ip.TTL
	b[9] = ip.Protocol
	b[10], b[11] = 0, 0
	src, dst := ip.SrcIP.As4(), ip.DstIP.As4()
	copy(b[12:16], src[:])
	copy(b[16:20], dst[:])

	binary.BigEndian.PutUint16(b[10:12], checksum.IPv4Header(b[:core.IPv4HeaderLen]))
}
