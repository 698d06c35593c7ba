package link

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptDevice replays a fixed list of frames and collects sent ones.
type scriptDevice struct {
	inbound [][]byte
	sent    [][]byte
	closed  bool
	sendErr error
}

func (d *scriptDevice) Receive(ctx context.Context) ([]byte, error) {
	if len(d.inbound) == 0 {
		return nil, errors.New("script exhausted")
	}
	frame := d.inbound[0]
	d.inbound = d.inbound[1:]
	return frame, nil
}

func (d *scriptDevice) Send(frame []byte) error {
	if d.sendErr != nil {
		return d.sendErr
	}
	d.sent = append(d.sent, frame)
	return nil
}

func (d *scriptDevice) Close() error {
	d.closed = true
	return nil
}

func TestTraceRecordsBothDirections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.pcap")
	inner := &scriptDevice{inbound: [][]byte{[]byte("inbound-frame-0123456789")}}

	tr, err := NewTrace(inner, path, 16)
	require.NoError(t, err)
	tr.now = func() time.Time { return epoch }

	frame, err := tr.Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("inbound-frame-0123456789"), frame, "the data path is never truncated")
	require.NoError(t, tr.Send([]byte("reply")))

	_, err = tr.Receive(context.Background())
	assert.Error(t, err)

	require.NoError(t, tr.Close())
	assert.True(t, inner.closed)
	assert.Equal(t, [][]byte{[]byte("reply")}, inner.sent)

	frames, stamps := readCapture(t, path)
	require.Len(t, frames, 2)
	assert.Equal(t, []byte("inbound-frame-01"), frames[0], "capture truncated to snap length")
	assert.Equal(t, []byte("reply"), frames[1])
	assert.True(t, stamps[0].Equal(epoch))
}

func TestTracePropagatesSendError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.pcapng")
	boom := errors.New("link down")
	tr, err := NewTrace(&scriptDevice{sendErr: boom}, path, 65535)
	require.NoError(t, err)
	defer tr.Close()

	assert.ErrorIs(t, tr.Send([]byte("reply")), boom)
}

func TestNewTraceBadPath(t *testing.T) {
	_, err := NewTrace(&scriptDevice{}, filepath.Join(t.TempDir(), "missing", "trace.pcap"), 65535)
	assert.Error(t, err)
}
