// Package responder turns state machine emissions into outbound frames.
package responder

import (
	"firestige.xyz/rawhttpd/internal/conntrack"
	"firestige.xyz/rawhttpd/internal/core"
	"firestige.xyz/rawhttpd/internal/core/codec"
)

// Options holds the link-level fields stamped on every reply.
type Options struct {
	// MAC is the source hardware address. Zero means reuse the inbound
	// frame's destination address.
	MAC    core.MAC
	Window uint16
	TTL    uint8
	// Encoder serializes replies. Nil uses the process-wide ID counter.
	Encoder *codec.Encoder
}

// Synthesizer builds reply frames addressed back to the sender of an inbound frame.
type Synthesizer struct {
	mac    core.MAC
	window uint16
	ttl    uint8
	enc    *codec.Encoder
}

// NewSynthesizer creates a Synthesizer.
func NewSynthesizer(opts Options) *Synthesizer {
	enc := opts.Encoder
	if enc == nil {
		enc = codec.NewEncoder(nil)
	}
	return &Synthesizer{
		mac:    opts.MAC,
		window: opts.Window,
		ttl:    opts.TTL,
		enc:    enc,
	}
}

// Build serializes the reply described by em to the peer of inbound.
// Addresses and ports are swapped; TOS and IP flags are echoed from the request.
func (s *Synthesizer) Build(inbound core.Frame, em conntrack.Emission) []byte {
	src := s.mac
	if src.IsZero() {
		src = inbound.Ethernet.DstMAC
	}
	eth := core.EthernetHeader{
		DstMAC: inbound.Ethernet.SrcMAC,
		SrcMAC: src,
	}

	ip := core.IPv4Header{
		Version: 4,
		IHL:     5,
		TOS:     inbound.IP.TOS,
		Flags:   inbound.IP.Flags &^ core.IPv4MoreFrags,
		TTL:     s.ttl,
		SrcIP:   inbound.IP.DstIP,
		DstIP:   inbound.IP.SrcIP,
	}

	tcp := core.TCPHeader{
		SrcPort:    inbound.TCP.DstPort,
		DstPort:    inbound.TCP.SrcPort,
		Seq:        em.Seq,
		Ack:        em.Ack,
		DataOffset: 5,
		Flags:      em.Intent.Flags(),
		Window:     s.window,
	}

	return s.enc.Encode(eth, ip, tcp, em.Payload)
}
