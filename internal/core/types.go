// Package core defines core types with zero external dependencies.
package core

import (
	"fmt"
	"net"
	"net/netip"
	"strings"
)

// Wire constants.
const (
	EtherTypeIPv4 uint16 = 0x0800
	ProtocolTCP   uint8  = 6

	EthernetHeaderLen = 14
	IPv4HeaderLen     = 20 // IHL 5, no options
	TCPHeaderLen      = 20 // data offset 5, no options
)

// MAC is a raw 6-byte hardware address.
type MAC [6]byte

func (m MAC) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", m[0], m[1], m[2], m[3], m[4], m[5])
}

// ParseMAC parses a 48-bit hardware address in any form net.ParseMAC accepts.
func ParseMAC(s string) (MAC, error) {
	var m MAC
	hw, err := net.ParseMAC(s)
	if err != nil {
		return m, err
	}
	if len(hw) != len(m) {
		return m, fmt.Errorf("hardware address %q is not 48 bits", s)
	}
	copy(m[:], hw)
	return m, nil
}

// IsZero reports whether m is 00:00:00:00:00:00.
func (m MAC) IsZero() bool {
	return m == MAC{}
}

// EthernetHeader represents an L2 Ethernet II header.
type EthernetHeader struct {
	DstMAC    MAC
	SrcMAC    MAC
	EtherType uint16 // 0x0800=IPv4
}

// IPv4Header represents an L3 IPv4 header without options.
type IPv4Header struct {
	Version  uint8
	IHL      uint8 // header length in 32-bit words, always 5 here
	TOS      uint8
	TotalLen uint16
	ID       uint16
	Flags    uint8  // 3 bits: reserved, DF, MF
	FragOff  uint16 // 13 bits
	TTL      uint8
	Protocol uint8
	Checksum uint16
	SrcIP    netip.Addr
	DstIP    netip.Addr
}

// IPv4 flag bits as stored in IPv4Header.Flags.
const (
	IPv4DontFragment uint8 = 0x2
	IPv4MoreFrags    uint8 = 0x1
)

// TCPFlags is the TCP control bit set.
type TCPFlags uint8

// TCP control bits.
const (
	FlagFIN TCPFlags = 1 << iota
	FlagSYN
	FlagRST
	FlagPSH
	FlagACK
	FlagURG
)

// Has reports whether every bit in mask is set.
func (f TCPFlags) Has(mask TCPFlags) bool {
	return f&mask == mask
}

func (f TCPFlags) String() string {
	if f == 0 {
		return "none"
	}
	names := []struct {
		bit  TCPFlags
		name string
	}{
		{FlagSYN, "SYN"},
		{FlagPSH, "PSH"},
		{FlagACK, "ACK"},
		{FlagFIN, "FIN"},
		{FlagRST, "RST"},
		{FlagURG, "URG"},
	}
	var parts []string
	for _, n := range names {
		if f&n.bit != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// TCPHeader represents an L4 TCP header. Inbound options are skipped, never kept.
type TCPHeader struct {
	SrcPort    uint16
	DstPort    uint16
	Seq        uint32
	Ack        uint32
	DataOffset uint8 // header length in 32-bit words
	Flags      TCPFlags
	Window     uint16
	Checksum   uint16
	Urgent     uint16
}
