package conntrack

import (
	"crypto/rand"
	"encoding/binary"

	"firestige.xyz/rawhttpd/internal/core"
)

// Segment is the part of an inbound TCP segment the state machine consumes.
type Segment struct {
	Key        Key
	Seq        uint32
	Flags      core.TCPFlags
	PayloadLen int
}

// SegmentOf extracts a Segment from a decoded inbound frame.
func SegmentOf(frame core.Frame) Segment {
	return Segment{
		Key:        KeyOf(frame),
		Seq:        frame.TCP.Seq,
		Flags:      frame.TCP.Flags,
		PayloadLen: len(frame.Payload),
	}
}

// Outcome summarises what a segment did to the table.
type Outcome uint8

const (
	OutcomeIgnored   Outcome = iota // no transition for (state, event)
	OutcomeOpened                   // SYN accepted, SYN|ACK sent
	OutcomeResponded                // request acknowledged and answered
	OutcomeDuplicate                // retransmitted request, ACK repeated
	OutcomeAcked                    // bare ACK on a tracked flow, nothing sent
	OutcomeClosed                   // peer FIN acknowledged, entry removed
	OutcomeReset                    // peer RST, entry removed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOpened:
		return "opened"
	case OutcomeResponded:
		return "responded"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeAcked:
		return "acked"
	case OutcomeClosed:
		return "closed"
	case OutcomeReset:
		return "reset"
	default:
		return "ignored"
	}
}

// Result is the decision taken for one inbound segment.
type Result struct {
	Outcome   Outcome
	Event     Event
	From      State
	Conn      Conn // connection after the transition; zero when ignored
	Emissions []Emission
}

type transition struct {
	from  State
	event Event
}

type handler func(m *Machine, c *Conn, seg Segment) Result

// transitions is the complete responder state machine. Any (state, event)
// pair missing here is ignored: SYN on a tracked flow, and every non-SYN
// segment for an unknown flow.
var transitions = map[transition]handler{
	{StateListen, EventSyn}: (*Machine).open,

	{StateSynReceived, EventFin}:  (*Machine).close,
	{StateSynReceived, EventRst}:  (*Machine).reset,
	{StateSynReceived, EventData}: (*Machine).respond,
	{StateSynReceived, EventAck}:  (*Machine).ack,

	{StateEstablishedResponding, EventFin}:  (*Machine).close,
	{StateEstablishedResponding, EventRst}:  (*Machine).reset,
	{StateEstablishedResponding, EventData}: (*Machine).respond,
	{StateEstablishedResponding, EventAck}:  (*Machine).ack,
}

// Machine applies inbound segments to the connection table.
type Machine struct {
	table    *Table
	response []byte
	isn      func() uint32
}

// Option configures a Machine.
type Option func(*Machine)

// WithISN replaces the initial sequence number source.
func WithISN(isn func() uint32) Option {
	return func(m *Machine) {
		m.isn = isn
	}
}

// NewMachine creates a state machine answering every connection with response.
func NewMachine(table *Table, response []byte, opts ...Option) *Machine {
	m := &Machine{
		table:    table,
		response: response,
		isn:      randomISN,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Table returns the table the machine mutates.
func (m *Machine) Table() *Table {
	return m.table
}

// Apply runs one inbound segment through the state machine.
func (m *Machine) Apply(seg Segment) Result {
	event := Classify(seg.Flags, seg.PayloadLen)

	from := StateListen
	c, tracked := m.table.Get(seg.Key)
	if tracked {
		from = c.State
	}

	h, ok := transitions[transition{from: from, event: event}]
	if !ok {
		return Result{Outcome: OutcomeIgnored, Event: event, From: from}
	}

	res := h(m, c, seg)
	res.Event = event
	res.From = from
	return res
}

// open accepts an initiating SYN.
func (m *Machine) open(_ *Conn, seg Segment) Result {
	c := &Conn{
		Key:      seg.Key,
		State:    StateSynReceived,
		LocalSeq: m.isn(),
		LocalAck: seg.Seq + 1,
	}
	if !m.table.Insert(c) {
		return Result{Outcome: OutcomeIgnored}
	}

	synAck := Emission{Intent: IntentSynAck, Seq: c.LocalSeq, Ack: c.LocalAck}
	c.LocalSeq++ // SYN consumes one sequence number

	return Result{Outcome: OutcomeOpened, Conn: *c, Emissions: []Emission{synAck}}
}

// close acknowledges the peer's FIN and forgets the flow.
func (m *Machine) close(c *Conn, seg Segment) Result {
	c.LocalAck = seg.Seq + 1
	ack := Emission{Intent: IntentAck, Seq: c.LocalSeq, Ack: c.LocalAck}
	c.State = StateClosed
	m.table.Remove(c.Key)

	return Result{Outcome: OutcomeClosed, Conn: *c, Emissions: []Emission{ack}}
}

// reset forgets the flow without answering.
func (m *Machine) reset(c *Conn, _ Segment) Result {
	c.State = StateClosed
	m.table.Remove(c.Key)
	return Result{Outcome: OutcomeReset, Conn: *c}
}

// respond acknowledges a request and, once per connection, sends the
// response with FIN set. Retransmitted requests only get the ACK again.
func (m *Machine) respond(c *Conn, seg Segment) Result {
	c.LocalAck = seg.Seq + uint32(seg.PayloadLen)
	ack := Emission{Intent: IntentAck, Seq: c.LocalSeq, Ack: c.LocalAck}

	if c.Responded {
		return Result{Outcome: OutcomeDuplicate, Conn: *c, Emissions: []Emission{ack}}
	}

	data := Emission{Intent: IntentDataClose, Seq: c.LocalSeq, Ack: c.LocalAck, Payload: m.response}
	c.LocalSeq += uint32(len(m.response))
	c.Responded = true
	c.State = StateEstablishedResponding

	return Result{Outcome: OutcomeResponded, Conn: *c, Emissions: []Emission{ack, data}}
}

// ack handles a bare ACK on a tracked flow, such as the handshake's third segment.
func (m *Machine) ack(c *Conn, _ Segment) Result {
	return Result{Outcome: OutcomeAcked, Conn: *c}
}

// randomISN draws an initial sequence number from crypto/rand.
func randomISN() uint32 {
	var b [4]byte
	// crypto/rand.Read never returns an error since Go 1.24.
	_, _ = rand.Read(b[:])
	return binary.BigEndian.Uint32(b[:])
}
