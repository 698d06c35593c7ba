package link

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/gopacket/afpacket"

	"firestige.xyz/rawhttpd/internal/core"
)

// AFPacketConfig configures an AF_PACKET device.
type AFPacketConfig struct {
	Interface    string
	SnapLen      int // largest frame read; longer frames are truncated
	RingBufferMB int
	PollTimeout  time.Duration
	// FilterPort, when non-zero, attaches a kernel filter passing only
	// unfragmented IPv4 TCP segments to this destination port.
	FilterPort uint16
}

// AFPacket is a live device on a TPACKET_V3 memory-mapped ring.
type AFPacket struct {
	handle *afpacket.TPacket
	iface  string
	closed atomic.Bool
}

// OpenAFPacket binds a raw socket to cfg.Interface. It needs CAP_NET_RAW.
func OpenAFPacket(cfg AFPacketConfig) (*AFPacket, error) {
	ring, err := computeRing(cfg.RingBufferMB, cfg.SnapLen, os.Getpagesize())
	if err != nil {
		return nil, fmt.Errorf("afpacket %s: %w", cfg.Interface, err)
	}

	tp, err := afpacket.NewTPacket(
		afpacket.OptInterface(cfg.Interface),
		afpacket.OptFrameSize(ring.frameSize),
		afpacket.OptBlockSize(ring.blockSize),
		afpacket.OptNumBlocks(ring.numBlocks),
		afpacket.OptPollTimeout(cfg.PollTimeout),
		afpacket.SocketRaw,
		afpacket.TPacketVersion3,
	)
	if err != nil {
		return nil, fmt.Errorf("afpacket %s: open: %w", cfg.Interface, err)
	}

	if cfg.FilterPort != 0 {
		filter, err := AssemblePortFilter(cfg.FilterPort, uint32(cfg.SnapLen))
		if err != nil {
			tp.Close()
			return nil, err
		}
		if err := tp.SetBPF(filter); err != nil {
			tp.Close()
			return nil, fmt.Errorf("afpacket %s: attach filter: %w", cfg.Interface, err)
		}
	}

	slog.Info("afpacket device opened",
		"interface", cfg.Interface,
		"frame_size", ring.frameSize,
		"block_size", ring.blockSize,
		"num_blocks", ring.numBlocks,
		"filter_port", cfg.FilterPort)

	return &AFPacket{handle: tp, iface: cfg.Interface}, nil
}

// Receive returns the next frame. Poll timeouts are absorbed so that ctx
// is checked at least once per poll interval.
func (d *AFPacket) Receive(ctx context.Context) ([]byte, error) {
	for {
		if d.closed.Load() {
			return nil, core.ErrLinkClosed
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		data, _, err := d.handle.ReadPacketData()
		switch {
		case err == nil:
			return data, nil
		case errors.Is(err, afpacket.ErrTimeout):
			continue
		case d.closed.Load():
			return nil, core.ErrLinkClosed
		default:
			return nil, fmt.Errorf("afpacket %s: read: %w", d.iface, err)
		}
	}
}

// Send transmits one frame.
func (d *AFPacket) Send(frame []byte) error {
	if d.closed.Load() {
		return core.ErrLinkClosed
	}
	if err := d.handle.WritePacketData(frame); err != nil {
		return fmt.Errorf("afpacket %s: write: %w", d.iface, err)
	}
	return nil
}

// Stats returns kernel ring counters.
func (d *AFPacket) Stats() (afpacket.SocketStatsV3, error) {
	_, stats, err := d.handle.SocketStats()
	return stats, err
}

// Close releases the socket and its ring.
func (d *AFPacket) Close() error {
	if d.closed.Swap(true) {
		return nil
	}
	d.handle.Close()
	return nil
}
