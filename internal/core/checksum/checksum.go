// Package checksum implements the RFC 1071 internet checksum used by IPv4 and TCP.
package checksum

import (
	"encoding/binary"
	"net/netip"
)

const (
	ipv4ChecksumOffset = 10
	tcpChecksumOffset  = 16
	pseudoHeaderLen    = 12
)

// Sum adds b to sum as big-endian 16-bit words. An odd trailing byte is
// padded with zero. The result is unfolded and can be fed to further Sum calls
// as long as every buffer but the last has even length.
func Sum(sum uint32, b []byte) uint32 {
	n := len(b) &^ 1
	for i := 0; i < n; i += 2 {
		sum += uint32(b[i])<<8 | uint32(b[i+1])
	}
	if len(b)&1 != 0 {
		sum += uint32(b[len(b)-1]) << 8
	}
	return sum
}

// Fold folds the carries of sum twice and returns its one's complement.
func Fold(sum uint32) uint16 {
	sum = (sum >> 16) + (sum & 0xffff)
	sum += sum >> 16
	return ^uint16(sum)
}

// Checksum returns the internet checksum of b.
func Checksum(b []byte) uint16 {
	return Fold(Sum(0, b))
}

// IPv4Header returns the checksum of an IPv4 header. The checksum field at
// offset 10 is treated as zero whatever it currently holds.
func IPv4Header(hdr []byte) uint16 {
	sum := Sum(0, hdr[:ipv4ChecksumOffset])
	return Fold(Sum(sum, hdr[ipv4ChecksumOffset+2:]))
}

// PseudoHeader builds the 12-byte IPv4 pseudo-header:
// src(4) ++ dst(4) ++ zero(1) ++ proto(1) ++ length(2).
func PseudoHeader(src, dst netip.Addr, proto uint8, length uint16) [pseudoHeaderLen]byte {
	var ph [pseudoHeaderLen]byte
	s, d := src.As4(), dst.As4()
	copy(ph[0:4], s[:])
	copy(ph[4:8], d[:])
	ph[9] = proto
	binary.BigEndian.PutUint16(ph[10:12], length)
	return ph
}

// TCP returns the checksum of a TCP segment (header plus payload) carried
// between src and dst. The checksum field at offset 16 is treated as zero.
func TCP(src, dst netip.Addr, segment []byte) uint16 {
	ph := PseudoHeader(src, dst, 6, uint16(len(segment)))
	sum := Sum(0, ph[:])
	sum = Sum(sum, segment[:tcpChecksumOffset])
	return Fold(Sum(sum, segment[tcpChecksumOffset+2:]))
}
