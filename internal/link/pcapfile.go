package link

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"firestige.xyz/rawhttpd/internal/core"
)

// PcapFile replays a capture as inbound traffic and records every sent
// frame into an output capture. Files ending in .pcapng use pcapng, any
// other name classic pcap.
type PcapFile struct {
	mu     sync.Mutex
	in     *os.File
	out    *os.File
	reader packetReader
	writer packetWriter
	last   time.Time // timestamp of the frame most recently received
	closed bool
}

// OpenPcapFile opens inPath for reading. When outPath is empty, sent
// frames are discarded.
func OpenPcapFile(inPath, outPath string) (*PcapFile, error) {
	in, err := os.Open(inPath)
	if err != nil {
		return nil, fmt.Errorf("open capture %s: %w", inPath, err)
	}

	var reader packetReader
	if isPcapNG(inPath) {
		reader, err = pcapgo.NewNgReader(in, pcapgo.DefaultNgReaderOptions)
	} else {
		reader, err = pcapgo.NewReader(in)
	}
	if err != nil {
		in.Close()
		return nil, fmt.Errorf("read capture header %s: %w", inPath, err)
	}
	if reader.LinkType() != layers.LinkTypeEthernet {
		in.Close()
		return nil, fmt.Errorf("capture %s has link type %s, want Ethernet", inPath, reader.LinkType())
	}

	p := &PcapFile{in: in, reader: reader}
	if outPath == "" {
		return p, nil
	}

	out, err := os.Create(outPath)
	if err != nil {
		in.Close()
		return nil, fmt.Errorf("create capture %s: %w", outPath, err)
	}
	writer, err := newPacketWriter(out, outPath, 65535)
	if err != nil {
		in.Close()
		out.Close()
		return nil, err
	}
	p.out = out
	p.writer = writer
	return p, nil
}

// newPacketWriter writes a capture header for Ethernet frames to f.
func newPacketWriter(f *os.File, path string, snapLen uint32) (packetWriter, error) {
	if isPcapNG(path) {
		ng, err := pcapgo.NewNgWriter(f, layers.LinkTypeEthernet)
		if err != nil {
			return nil, fmt.Errorf("write capture header %s: %w", path, err)
		}
		return ng, nil
	}
	w := pcapgo.NewWriter(f)
	if err := w.WriteFileHeader(snapLen, layers.LinkTypeEthernet); err != nil {
		return nil, fmt.Errorf("write capture header %s: %w", path, err)
	}
	return w, nil
}

// Receive returns the next captured frame, or io.EOF at the end of the file.
func (p *PcapFile) Receive(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, core.ErrLinkClosed
	}

	data, ci, err := p.reader.ReadPacketData()
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read capture: %w", err)
	}
	p.last = ci.Timestamp
	return data, nil
}

// Send appends frame to the output capture, stamped with the time of the
// frame that triggered it.
func (p *PcapFile) Send(frame []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return core.ErrLinkClosed
	}
	if p.writer == nil {
		return nil
	}

	ci := gopacket.CaptureInfo{
		Timestamp:     p.last,
		CaptureLength: len(frame),
		Length:        len(frame),
	}
	if err := p.writer.WritePacket(ci, frame); err != nil {
		return fmt.Errorf("write capture: %w", err)
	}
	return nil
}

// Close flushes the output capture and closes both files.
func (p *PcapFile) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	var errs []error
	if p.writer != nil {
		errs = append(errs, flush(p.writer), p.out.Close())
	}
	errs = append(errs, p.in.Close())
	return errors.Join(errs...)
}
