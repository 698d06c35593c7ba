// Package codec implements Ethernet/IPv4/TCP frame decoding and encoding.
package codec

import (
	"encoding/binary"

	"firestige.xyz/rawhttpd/internal/core"
)

// minFrameLen is the shortest Ethernet II frame on the wire (without FCS).
// Shorter frames are padded by the sender's NIC.
const minFrameLen = 60

// decodeEthernet decodes the Ethernet II header.
// Returns EthernetHeader and remaining payload.
func decodeEthernet(data []byte) (core.EthernetHeader, []byte, error) {
	if len(data) < core.EthernetHeaderLen {
		return core.EthernetHeader{}, nil, core.ErrTruncated
	}

	eth := core.EthernetHeader{}
	copy(eth.DstMAC[:], data[0:6])
	copy(eth.SrcMAC[:], data[6:12])
	eth.EtherType = binary.BigEndian.Uint16(data[12:14])

	if eth.EtherType != core.EtherTypeIPv4 {
		// ARP, IPv6, VLAN tagged, LLDP ...
		return eth, nil, core.ErrNotIPv4
	}

	return eth, data[core.EthernetHeaderLen:], nil
}

// encodeEthernet writes the Ethernet II header into b[0:14].
func encodeEthernet(b []byte, eth core.EthernetHeader) {
	copy(b[0:6], eth.DstMAC[:])
	copy(b[6:12], eth.SrcMAC[:])
	binary.BigEndian.PutUint16(b[12:14], eth.EtherType)
}
