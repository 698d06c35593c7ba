package cmd

import (
	"bytes"
	"context"
	"net/netip"
	"os"
	"path/filepath"
	"strconv"
	"syscall"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/rawhttpd/internal/config"
	"firestige.xyz/rawhttpd/internal/core"
	"firestige.xyz/rawhttpd/internal/core/codec"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRunValidate_Valid(t *testing.T) {
	path := writeFile(t, "config.yml", "rawhttpd:\n  link:\n    interface: wlan0\n")

	var buf bytes.Buffer
	err := runValidate(path, false, &buf)

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "VALID: serving port 8080 on wlan0, 125 byte response")
}

func TestRunValidate_Print(t *testing.T) {
	path := writeFile(t, "config.yml", "rawhttpd:\n  listen:\n    port: 9000\n")

	var buf bytes.Buffer
	require.NoError(t, runValidate(path, true, &buf))

	assert.Contains(t, buf.String(), "rawhttpd:")
	assert.Contains(t, buf.String(), "port: 9000")
}

func TestRunValidate_Invalid(t *testing.T) {
	path := writeFile(t, "config.yml", "rawhttpd:\n  listen:\n    mac: nonsense\n")

	var buf bytes.Buffer
	err := runValidate(path, false, &buf)

	assert.Error(t, err)
	assert.ErrorIs(t, err, core.ErrConfigInvalid)
	assert.Contains(t, err.Error(), "INVALID")
	assert.Empty(t, buf.String())
}

func TestRunReplay(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.pcap")
	out := filepath.Join(dir, "out.pcap")

	enc := codec.NewEncoder(codec.NewIDCounter(1))
	peer := core.EthernetHeader{DstMAC: core.MAC{0x02, 0, 0, 0, 0, 1}, SrcMAC: core.MAC{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}}
	ip := core.IPv4Header{TTL: 64, SrcIP: netip.MustParseAddr("10.0.0.2"), DstIP: netip.MustParseAddr("10.0.0.1")}
	frames := [][]byte{
		enc.Encode(peer, ip, core.TCPHeader{SrcPort: 40000, DstPort: 8080, Seq: 1000, Flags: core.FlagSYN}, nil),
		enc.Encode(peer, ip, core.TCPHeader{SrcPort: 40000, DstPort: 22, Seq: 1, Flags: core.FlagSYN}, nil),
	}

	f, err := os.Create(in)
	require.NoError(t, err)
	w := pcapgo.NewWriter(f)
	require.NoError(t, w.WriteFileHeader(65535, layers.LinkTypeEthernet))
	for _, frame := range frames {
		ci := gopacket.CaptureInfo{Timestamp: time.Unix(1700000000, 0), CaptureLength: len(frame), Length: len(frame)}
		require.NoError(t, w.WritePacket(ci, frame))
	}
	require.NoError(t, f.Close())

	var buf bytes.Buffer
	require.NoError(t, runReplay(context.Background(), config.Default(), in, out, &buf))

	assert.Contains(t, buf.String(), "replayed 2 frame(s): 1 accepted, 0 dropped, 1 ignored, 1 sent")
	assert.Contains(t, buf.String(), "replies written to "+out)
}

func TestRunReplay_MissingCapture(t *testing.T) {
	err := runReplay(context.Background(), config.Default(), filepath.Join(t.TempDir(), "none.pcap"), "", &bytes.Buffer{})
	assert.Error(t, err)
}

func TestRunStop(t *testing.T) {
	pidFile := writeFile(t, "rawhttpd.pid", strconv.Itoa(os.Getpid())+"\n")

	var buf bytes.Buffer
	// Signal 0 probes the process without delivering anything.
	require.NoError(t, runStop(pidFile, syscall.Signal(0), &buf))
	assert.Contains(t, buf.String(), "pid "+strconv.Itoa(os.Getpid()))
}

func TestRunStop_NotRunning(t *testing.T) {
	err := runStop(filepath.Join(t.TempDir(), "missing.pid"), syscall.SIGTERM, &bytes.Buffer{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not running")
}

func TestRootCommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "replay", "validate", "stop"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}
