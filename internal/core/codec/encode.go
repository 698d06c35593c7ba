package codec

import (
	"sync/atomic"

	"firestige.xyz/rawhttpd/internal/core"
)

// IDCounter hands out IPv4 identification values. One counter is shared by
// every datagram a process sends; values wrap at 16 bits.
type IDCounter struct {
	next atomic.Uint32
}

// NewIDCounter returns a counter whose first value is start.
func NewIDCounter(start uint16) *IDCounter {
	c := &IDCounter{}
	c.next.Store(uint32(start))
	return c
}

// Next returns the next identification value.
func (c *IDCounter) Next() uint16 {
	return uint16(c.next.Add(1) - 1)
}

// DefaultIDs is the process-wide identification counter.
var DefaultIDs = NewIDCounter(1)

// Encoder serializes outgoing frames.
type Encoder struct {
	ids *IDCounter
}

// NewEncoder creates an encoder drawing identification values from ids.
// A nil ids uses DefaultIDs.
func NewEncoder(ids *IDCounter) *Encoder {
	if ids == nil {
		ids = DefaultIDs
	}
	return &Encoder{ids: ids}
}

// Encode serializes eth, ip, tcp and payload in network byte order.
// IHL, TotalLen, ID, Protocol, both checksums and the TCP data offset are
// computed here; whatever the caller put in those fields is ignored.
func (e *Encoder) Encode(eth core.EthernetHeader, ip core.IPv4Header, tcp core.TCPHeader, payload []byte) []byte {
	segmentLen := core.TCPHeaderLen + len(payload)
	totalLen := core.IPv4HeaderLen + segmentLen

	eth.EtherType = core.EtherTypeIPv4
	ip.TotalLen = uint16(totalLen)
	ip.ID = e.ids.Next()
	ip.Protocol = core.ProtocolTCP

	b := make([]byte, core.EthernetHeaderLen+totalLen)
	encodeEthernet(b, eth)
	encodeIPv4(b[core.EthernetHeaderLen:], ip)
	encodeTCP(b[core.EthernetHeaderLen+core.IPv4HeaderLen:], tcp, payload, ip.SrcIP, ip.DstIP)

	return b
}
