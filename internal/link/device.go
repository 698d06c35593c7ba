// Package link provides raw Ethernet frame devices: a live AF_PACKET socket,
// an offline pcap replay and a tracing tee.
package link

import (
	"context"
	"strings"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// Device reads and writes whole Ethernet frames.
//
// Receive blocks until a frame arrives, ctx is done, or the device fails.
// It returns io.EOF when a finite source is exhausted and core.ErrLinkClosed
// after Close.
type Device interface {
	Receive(ctx context.Context) ([]byte, error)
	Send(frame []byte) error
	Close() error
}

// packetWriter is implemented by both pcapgo writers.
type packetWriter interface {
	WritePacket(ci gopacket.CaptureInfo, data []byte) error
}

// packetReader is implemented by both pcapgo readers.
type packetReader interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
	LinkType() layers.LinkType
}

func isPcapNG(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".pcapng")
}

// flush pushes buffered pcapng blocks to the underlying file.
func flush(w packetWriter) error {
	if ng, ok := w.(*pcapgo.NgWriter); ok {
		return ng.Flush()
	}
	return nil
}
