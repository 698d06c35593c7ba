package link

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/gopacket"
)

// Trace wraps a Device and copies every frame received and sent into a capture file.
type Trace struct {
	Device

	mu      sync.Mutex
	file    *os.File
	writer  packetWriter
	snapLen int
	now     func() time.Time
}

// NewTrace creates path and tees dev into it. Frames longer than snapLen
// are truncated in the capture only.
func NewTrace(dev Device, path string, snapLen uint32) (*Trace, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create trace %s: %w", path, err)
	}
	w, err := newPacketWriter(f, path, snapLen)
	if err != nil {
		f.Close()
		return nil, err
	}
	slog.Info("tracing frames", "path", path, "snap_len", snapLen)
	return &Trace{Device: dev, file: f, writer: w, snapLen: int(snapLen), now: time.Now}, nil
}

// Receive reads from the wrapped device and records the frame.
func (t *Trace) Receive(ctx context.Context) ([]byte, error) {
	frame, err := t.Device.Receive(ctx)
	if err != nil {
		return nil, err
	}
	t.record(frame)
	return frame, nil
}

// Send records the frame and writes it to the wrapped device.
func (t *Trace) Send(frame []byte) error {
	t.record(frame)
	return t.Device.Send(frame)
}

// record never fails the data path; capture errors are logged.
func (t *Trace) record(frame []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.writer == nil {
		return
	}

	data := frame
	if len(data) > t.snapLen {
		data = data[:t.snapLen]
	}
	ci := gopacket.CaptureInfo{
		Timestamp:     t.now(),
		CaptureLength: len(data),
		Length:        len(frame),
	}
	if err := t.writer.WritePacket(ci, data); err != nil {
		slog.Warn("trace write failed", "error", err)
	}
}

// Close closes the trace file, then the wrapped device.
func (t *Trace) Close() error {
	t.mu.Lock()
	var errs []error
	if t.writer != nil {
		errs = append(errs, flush(t.writer), t.file.Close())
		t.writer = nil
	}
	t.mu.Unlock()

	errs = append(errs, t.Device.Close())
	return errors.Join(errs...)
}
