// Package daemon implements the responder process lifecycle.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"firestige.xyz/rawhttpd/internal/config"
	"firestige.xyz/rawhttpd/internal/conntrack"
	"firestige.xyz/rawhttpd/internal/core"
	"firestige.xyz/rawhttpd/internal/dispatch"
	"firestige.xyz/rawhttpd/internal/link"
	logpkg "firestige.xyz/rawhttpd/internal/log"
	"firestige.xyz/rawhttpd/internal/metrics"
	"firestige.xyz/rawhttpd/internal/responder"
)

// Version is reported at startup and by the CLI.
const Version = "0.1.0"

// DeviceOpener opens the link device the daemon serves on.
type DeviceOpener func(cfg *config.GlobalConfig) (link.Device, error)

// Daemon manages the responder process lifecycle.
type Daemon struct {
	config        *config.GlobalConfig
	openDevice    DeviceOpener
	interfaceMAC  func(name string) (core.MAC, error)
	metricsServer *metrics.Server // nil if metrics disabled
}

// Option configures a Daemon.
type Option func(*Daemon)

// WithDeviceOpener replaces the AF_PACKET device.
func WithDeviceOpener(open DeviceOpener) Option {
	return func(d *Daemon) {
		d.openDevice = open
	}
}

// WithInterfaceMAC replaces the lookup of the interface hardware address.
func WithInterfaceMAC(lookup func(name string) (core.MAC, error)) Option {
	return func(d *Daemon) {
		d.interfaceMAC = lookup
	}
}

// New creates a Daemon for a validated configuration.
func New(cfg *config.GlobalConfig, opts ...Option) *Daemon {
	d := &Daemon{
		config:       cfg,
		openDevice:   OpenAFPacket,
		interfaceMAC: InterfaceMAC,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run starts every component and serves until ctx is cancelled, SIGINT or
// SIGTERM arrives, or the link fails. Components are stopped in reverse order.
func (d *Daemon) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Initialize logging system
	if err := logpkg.Init(d.config.Log); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logpkg.Close()

	slog.Info("starting rawhttpd",
		"version", Version,
		"interface", d.config.Link.Interface,
		"port", d.config.Listen.Port)

	// 2. Write PID file
	if err := writePIDFile(d.config.Control.PIDFile); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	defer func() {
		if err := removePIDFile(d.config.Control.PIDFile); err != nil {
			slog.Error("error removing PID file", "error", err)
		}
	}()

	// 3. Start metrics server
	if err := d.startMetrics(ctx); err != nil {
		return err
	}
	defer d.stopMetrics()

	// 4. Resolve the source MAC and open the link
	mac := d.localMAC()
	dev, err := d.openDevice(d.config)
	if err != nil {
		return fmt.Errorf("failed to open link: %w", err)
	}
	raw := dev
	dev, err = Trace(d.config, dev)
	if err != nil {
		raw.Close()
		return err
	}
	defer func() {
		if af, ok := raw.(*link.AFPacket); ok {
			if stats, err := af.Stats(); err == nil {
				slog.Info("kernel ring statistics",
					"packets", stats.Packets(),
					"drops", stats.Drops(),
					"queue_freezes", stats.QueueFreezes())
			}
		}
		if err := dev.Close(); err != nil {
			slog.Error("error closing link", "error", err)
		}
	}()

	// 5. Serve
	loop := NewLoop(d.config, dev, mac)
	if err := loop.Run(ctx); err != nil {
		slog.Error("dispatch loop failed", "error", err)
		return err
	}

	slog.Info("rawhttpd stopped gracefully")
	return nil
}

// NewLoop wires the state machine, the synthesizer and the dispatch loop
// for cfg on dev. A zero mac makes replies reuse the inbound destination MAC.
func NewLoop(cfg *config.GlobalConfig, dev link.Device, mac core.MAC) *dispatch.Loop {
	machine := conntrack.NewMachine(conntrack.NewTable(), responder.HTTPResponse(cfg.Response))
	synth := responder.NewSynthesizer(responder.Options{
		MAC:    mac,
		Window: cfg.Listen.Window,
		TTL:    cfg.Listen.TTL,
	})
	return dispatch.New(dispatch.Config{
		Device:      dev,
		Port:        cfg.Listen.Port,
		Machine:     machine,
		Synthesizer: synth,
	})
}

// OpenAFPacket opens the configured interface, with the port filter when enabled.
func OpenAFPacket(cfg *config.GlobalConfig) (link.Device, error) {
	var port uint16
	if cfg.Link.BPF {
		port = cfg.Listen.Port
	}
	return link.OpenAFPacket(link.AFPacketConfig{
		Interface:    cfg.Link.Interface,
		SnapLen:      cfg.Link.BufferSize,
		RingBufferMB: cfg.Link.RingBufferMB,
		PollTimeout:  cfg.Link.PollTimeout,
		FilterPort:   port,
	})
}

// Trace wraps dev in a pcap tee when tracing is enabled.
func Trace(cfg *config.GlobalConfig, dev link.Device) (link.Device, error) {
	if !cfg.Trace.Enabled {
		return dev, nil
	}
	tr, err := link.NewTrace(dev, cfg.Trace.Path, cfg.Trace.SnapLen)
	if err != nil {
		return nil, fmt.Errorf("failed to start trace: %w", err)
	}
	return tr, nil
}

// InterfaceMAC returns the hardware address of the named interface.
func InterfaceMAC(name string) (core.MAC, error) {
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return core.MAC{}, err
	}
	var mac core.MAC
	if len(iface.HardwareAddr) != len(mac) {
		return mac, fmt.Errorf("interface %s has no 48-bit hardware address", name)
	}
	copy(mac[:], iface.HardwareAddr)
	return mac, nil
}

// localMAC picks the reply source address: configured, then the interface's,
// then zero.
func (d *Daemon) localMAC() core.MAC {
	// Validated at load time.
	if mac, _ := d.config.Listen.HardwareAddr(); !mac.IsZero() {
		return mac
	}
	mac, err := d.interfaceMAC(d.config.Link.Interface)
	if err != nil {
		slog.Warn("cannot resolve interface MAC, replies reuse the inbound destination MAC",
			"interface", d.config.Link.Interface, "error", err)
		return core.MAC{}
	}
	slog.Debug("using interface MAC", "interface", d.config.Link.Interface, "mac", mac)
	return mac
}

// startMetrics starts the metrics HTTP server if enabled.
func (d *Daemon) startMetrics(ctx context.Context) error {
	if !d.config.Metrics.Enabled {
		slog.Info("metrics server disabled")
		return nil
	}

	d.metricsServer = metrics.NewServer(d.config.Metrics.Listen, d.config.Metrics.Path)
	if err := d.metricsServer.Start(ctx); err != nil {
		d.metricsServer = nil
		return fmt.Errorf("failed to start metrics server: %w", err)
	}
	return nil
}

func (d *Daemon) stopMetrics() {
	if d.metricsServer == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.metricsServer.Stop(shutdownCtx); err != nil {
		slog.Error("error stopping metrics server", "error", err)
	}
	d.metricsServer = nil
}

// writePIDFile writes the current process ID to path.
func writePIDFile(path string) error {
	if path == "" {
		return nil
	}

	pid := os.Getpid()
	data := []byte(strconv.Itoa(pid) + "\n")

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write PID file %s: %w", path, err)
	}

	slog.Debug("PID file written", "path", path, "pid", pid)
	return nil
}

// removePIDFile removes the PID file.
func removePIDFile(path string) error {
	if path == "" {
		return nil
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove PID file %s: %w", path, err)
	}

	slog.Debug("PID file removed", "path", path)
	return nil
}

// ReadPIDFile returns the process ID recorded in path.
func ReadPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("malformed PID file %s: %w", path, err)
	}
	return pid, nil
}

// Signal sends sig to the daemon recorded in pidFile.
func Signal(pidFile string, sig syscall.Signal) (int, error) {
	pid, err := ReadPIDFile(pidFile)
	if err != nil {
		return 0, fmt.Errorf("daemon not running: %w", err)
	}
	if err := syscall.Kill(pid, sig); err != nil {
		return pid, fmt.Errorf("signal pid %d: %w", pid, err)
	}
	return pid, nil
}
