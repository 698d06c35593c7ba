package link

import (
	"fmt"

	"golang.org/x/net/bpf"

	"firestige.xyz/rawhttpd/internal/core"
)

// PortFilter returns the classic BPF program for
// "ip and tcp and not ip fragment and tcp dst port <port>",
// accepting up to snapLen bytes of each matching frame.
func PortFilter(port uint16, snapLen uint32) []bpf.Instruction {
	const (
		offEtherType = 12
		offProtocol  = core.EthernetHeaderLen + 9
		offFragment  = core.EthernetHeaderLen + 6
		offDstPort   = core.EthernetHeaderLen + 2 // relative to X = IP header length
	)
	return []bpf.Instruction{
		bpf.LoadAbsolute{Off: offEtherType, Size: 2},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: uint32(core.EtherTypeIPv4), SkipFalse: 8},
		bpf.LoadAbsolute{Off: offProtocol, Size: 1},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: uint32(core.ProtocolTCP), SkipFalse: 6},
		bpf.LoadAbsolute{Off: offFragment, Size: 2},
		bpf.JumpIf{Cond: bpf.JumpBitsSet, Val: 0x1fff, SkipTrue: 4},
		bpf.LoadMemShift{Off: core.EthernetHeaderLen},
		bpf.LoadIndirect{Off: offDstPort, Size: 2},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: uint32(port), SkipFalse: 1},
		bpf.RetConstant{Val: snapLen},
		bpf.RetConstant{Val: 0},
	}
}

// AssemblePortFilter assembles PortFilter for SO_ATTACH_FILTER.
func AssemblePortFilter(port uint16, snapLen uint32) ([]bpf.RawInstruction, error) {
	raw, err := bpf.Assemble(PortFilter(port, snapLen))
	if err != nil {
		return nil, fmt.Errorf("assemble port filter: %w", err)
	}
	return raw, nil
}
