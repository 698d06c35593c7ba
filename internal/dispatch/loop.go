// Package dispatch runs the receive, decide, reply loop.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"firestige.xyz/rawhttpd/internal/conntrack"
	"firestige.xyz/rawhttpd/internal/core"
	"firestige.xyz/rawhttpd/internal/core/codec"
	"firestige.xyz/rawhttpd/internal/link"
	"firestige.xyz/rawhttpd/internal/metrics"
	"firestige.xyz/rawhttpd/internal/responder"
)

// Config contains loop configuration.
type Config struct {
	Device      link.Device
	Port        uint16 // local TCP port served
	Machine     *conntrack.Machine
	Synthesizer *responder.Synthesizer
}

// Loop processes one inbound frame to completion before reading the next.
type Loop struct {
	dev     link.Device
	port    uint16
	machine *conntrack.Machine
	synth   *responder.Synthesizer
	stats   Stats
}

// New creates a dispatch loop.
func New(cfg Config) *Loop {
	return &Loop{
		dev:     cfg.Device,
		port:    cfg.Port,
		machine: cfg.Machine,
		synth:   cfg.Synthesizer,
	}
}

// Stats returns the loop's counters.
func (l *Loop) Stats() Snapshot {
	return l.stats.Snapshot()
}

// Run receives frames until ctx is cancelled or the device reports end of
// input, both of which return nil. Device failures are returned wrapped.
func (l *Loop) Run(ctx context.Context) error {
	slog.Info("dispatch loop starting", "port", l.port)
	defer func() {
		s := l.stats.Snapshot()
		slog.Info("dispatch loop stopped",
			"received", s.Received,
			"dropped", s.Dropped,
			"ignored", s.Ignored,
			"sent", s.Sent)
	}()

	for {
		raw, err := l.dev.Receive(ctx)
		if err != nil {
			switch {
			case ctx.Err() != nil && errors.Is(err, ctx.Err()):
				return nil
			case errors.Is(err, io.EOF):
				slog.Info("link reached end of input")
				return nil
			default:
				return fmt.Errorf("receive: %w", err)
			}
		}

		if err := l.Handle(ctx, raw); err != nil {
			return err
		}
	}
}

// Handle processes a single inbound frame. Malformed or foreign frames are
// counted and discarded; only a failed send is returned.
func (l *Loop) Handle(ctx context.Context, raw []byte) error {
	start := time.Now()
	l.stats.Received.Add(1)
	metrics.FramesReceivedTotal.Inc()

	frame, err := l.accept(raw)
	if err != nil {
		return l.reject(ctx, raw, frame, err)
	}
	l.stats.Accepted.Add(1)
	dump(ctx, "in", raw)

	seg := conntrack.SegmentOf(frame)
	res := l.machine.Apply(seg)
	l.observe(seg, res)

	for _, em := range res.Emissions {
		out := l.synth.Build(frame, em)
		dump(ctx, "out", out)
		if err := l.dev.Send(out); err != nil {
			l.stats.SendFails.Add(1)
			return fmt.Errorf("send %s to %s: %w", em.Intent, seg.Key, err)
		}
		l.stats.Sent.Add(1)
		metrics.SegmentsSentTotal.WithLabelValues(em.Intent.String()).Inc()
	}

	metrics.FrameLatencySeconds.Observe(time.Since(start).Seconds())
	return nil
}

// accept decodes raw and checks that it is addressed to the served port.
// The checksum is only verified for frames that pass the port filter.
func (l *Loop) accept(raw []byte) (core.Frame, error) {
	frame, err := codec.Parse(raw)
	if err != nil {
		return frame, err
	}
	if frame.TCP.DstPort != l.port {
		return frame, core.ErrWrongPort
	}
	if err := codec.VerifyTCPChecksum(frame); err != nil {
		return frame, err
	}
	return frame, nil
}

func (l *Loop) reject(ctx context.Context, raw []byte, frame core.Frame, err error) error {
	reason := core.Reason(err)
	switch core.Classify(err) {
	case core.DispositionIgnore:
		l.stats.Ignored.Add(1)
		metrics.FramesIgnoredTotal.WithLabelValues(reason).Inc()
		return nil
	case core.DispositionDrop:
		l.stats.Dropped.Add(1)
		metrics.FramesDroppedTotal.WithLabelValues(reason).Inc()
		// Only checksum failures are known to target the served port.
		level := slog.LevelDebug
		if errors.Is(err, core.ErrChecksumMismatch) {
			level = slog.LevelWarn
		}
		slog.Log(ctx, level, "frame dropped",
			"reason", reason,
			"src", frame.IP.SrcIP,
			"sport", frame.TCP.SrcPort,
			"len", len(raw),
			"error", err)
		dump(ctx, "in", raw)
		return nil
	default:
		return err
	}
}

// observe records what the state machine did with a segment.
func (l *Loop) observe(seg conntrack.Segment, res conntrack.Result) {
	switch res.Outcome {
	case conntrack.OutcomeIgnored:
		reason := core.Reason(core.ErrUnknownFlow)
		if res.From != conntrack.StateListen {
			reason = "duplicate_syn"
		}
		l.stats.Ignored.Add(1)
		metrics.FramesIgnoredTotal.WithLabelValues(reason).Inc()
		slog.Debug("segment ignored", "peer", seg.Key, "event", res.Event, "state", res.From)
		return
	case conntrack.OutcomeOpened, conntrack.OutcomeResponded, conntrack.OutcomeClosed, conntrack.OutcomeReset:
		metrics.ConnectionsTotal.WithLabelValues(res.Outcome.String()).Inc()
		slog.Info("connection "+res.Outcome.String(),
			"peer", seg.Key,
			"from", res.From,
			"to", res.Conn.State,
			"local_seq", res.Conn.LocalSeq,
			"local_ack", res.Conn.LocalAck)
	default:
		slog.Debug("segment handled", "peer", seg.Key, "outcome", res.Outcome, "state", res.Conn.State)
	}
	metrics.ConnectionsActive.Set(float64(l.machine.Table().Len()))
}
