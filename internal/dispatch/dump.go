package dispatch

import (
	"context"
	"log/slog"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// dump logs a layer-by-layer decode of raw at debug level.
func dump(ctx context.Context, direction string, raw []byte) {
	if !slog.Default().Enabled(ctx, slog.LevelDebug) {
		return
	}
	pkt := gopacket.NewPacket(raw, layers.LayerTypeEthernet, gopacket.DecodeOptions{NoCopy: true, Lazy: true})
	attrs := []any{"direction", direction, "len", len(raw)}
	if ip, ok := pkt.Layer(layers.LayerTypeIPv4).(*layers.IPv4); ok {
		attrs = append(attrs, "src", ip.SrcIP.String(), "dst", ip.DstIP.String(), "ip_id", ip.Id)
	}
	if tcp, ok := pkt.Layer(layers.LayerTypeTCP).(*layers.TCP); ok {
		attrs = append(attrs,
			"sport", uint16(tcp.SrcPort),
			"dport", uint16(tcp.DstPort),
			"seq", tcp.Seq,
			"ack", tcp.Ack,
			"flags", tcpFlags(tcp),
			"payload", len(tcp.Payload))
	}
	if errLayer := pkt.ErrorLayer(); errLayer != nil {
		attrs = append(attrs, "decode_error", errLayer.Error())
	}
	slog.Debug("frame", attrs...)
}

func tcpFlags(tcp *layers.TCP) string {
	var b []byte
	for _, f := range []struct {
		set  bool
		name byte
	}{
		{tcp.FIN, 'F'}, {tcp.SYN, 'S'}, {tcp.RST, 'R'}, {tcp.PSH, 'P'}, {tcp.ACK, '.'}, {tcp.URG, 'U'},
	} {
		if f.set {
			b = append(b, f.name)
		}
	}
	return string(b)
}
