// Package core defines core data structures with zero external dependencies.
package core

// Frame is the result of Ethernet/IPv4/TCP decoding.
type Frame struct {
	Ethernet EthernetHeader
	IP       IPv4Header
	TCP      TCPHeader
	Payload  []byte // TCP payload, zero-copy slice of the captured buffer
	Segment  []byte // Raw TCP header, options and payload as captured
}
