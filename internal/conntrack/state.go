// Package conntrack tracks TCP flows and drives the per-flow responder state machine.
package conntrack

import (
	"fmt"
	"net/netip"

	"firestige.xyz/rawhttpd/internal/core"
)

// State is the lifecycle state of a tracked flow.
type State uint8

const (
	// StateListen is never stored: a key without an entry is listening.
	StateListen State = iota
	StateSynReceived
	StateEstablishedResponding
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateListen:
		return "LISTEN"
	case StateSynReceived:
		return "SYN_RECEIVED"
	case StateEstablishedResponding:
		return "ESTABLISHED_RESPONDING"
	case StateClosed:
		return "CLOSED"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Key identifies a flow from the responder's point of view.
type Key struct {
	PeerMAC   core.MAC
	PeerIP    netip.Addr
	PeerPort  uint16
	LocalPort uint16
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%d->:%d", k.PeerIP, k.PeerPort, k.LocalPort)
}

// KeyOf returns the flow key of an inbound frame.
func KeyOf(frame core.Frame) Key {
	return Key{
		PeerMAC:   frame.Ethernet.SrcMAC,
		PeerIP:    frame.IP.SrcIP,
		PeerPort:  frame.TCP.SrcPort,
		LocalPort: frame.TCP.DstPort,
	}
}

// Conn is the state of one tracked flow.
// LocalSeq is the next sequence number this side sends, LocalAck the next
// byte expected from the peer. Only Machine mutates a Conn.
type Conn struct {
	Key       Key
	State     State
	LocalSeq  uint32
	LocalAck  uint32
	Responded bool
}

// Event is an inbound segment reduced to what the state machine reacts to.
type Event uint8

const (
	EventSyn  Event = iota // SYN without ACK, FIN or RST
	EventRst               // RST
	EventFin               // FIN
	EventData              // payload carrying segment
	EventAck               // anything else, typically a bare ACK
)

func (e Event) String() string {
	switch e {
	case EventSyn:
		return "syn"
	case EventRst:
		return "rst"
	case EventFin:
		return "fin"
	case EventData:
		return "data"
	default:
		return "ack"
	}
}

// Classify maps TCP flags and payload length to an Event, in priority order.
func Classify(flags core.TCPFlags, payloadLen int) Event {
	switch {
	case flags&core.FlagSYN != 0 && flags&(core.FlagACK|core.FlagFIN|core.FlagRST) == 0:
		return EventSyn
	case flags&core.FlagRST != 0:
		return EventRst
	case flags&core.FlagFIN != 0:
		return EventFin
	case payloadLen > 0:
		return EventData
	default:
		return EventAck
	}
}

// Intent names the kind of segment the responder must send.
type Intent uint8

const (
	IntentSynAck    Intent = iota // SYN|ACK
	IntentAck                     // ACK
	IntentDataClose               // PSH|ACK|FIN carrying the response
)

func (i Intent) String() string {
	switch i {
	case IntentSynAck:
		return "synack"
	case IntentAck:
		return "ack"
	case IntentDataClose:
		return "data_close"
	default:
		return fmt.Sprintf("Intent(%d)", uint8(i))
	}
}

// Flags returns the TCP flags carried by a segment of this intent.
func (i Intent) Flags() core.TCPFlags {
	switch i {
	case IntentSynAck:
		return core.FlagSYN | core.FlagACK
	case IntentDataClose:
		return core.FlagPSH | core.FlagACK | core.FlagFIN
	default:
		return core.FlagACK
	}
}

// Emission is one outbound segment decided by the state machine. Seq and Ack
// are the connection counters at the time of emission.
type Emission struct {
	Intent  Intent
	Seq     uint32
	Ack     uint32
	Payload []byte
}
