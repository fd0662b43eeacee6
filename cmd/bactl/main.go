package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/bactl/internal/admin"
	"github.com/danmuck/bactl/internal/ba"
	"github.com/danmuck/bactl/internal/logging"
	"github.com/danmuck/bactl/internal/observability"
	"github.com/danmuck/bactl/internal/stream"
	"github.com/danmuck/bactl/internal/transport"
	"github.com/danmuck/bactl/internal/wire"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "bactl: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to bactl config (toml)")
	flag.Parse()

	logging.ConfigureRuntime()

	cfg := defaultAppConfig()
	if *configPath != "" {
		loaded, err := loadAppConfig(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	observability.InitLogger(cfg.ID)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cfg.Mode {
	case modeUDP:
		return runUDP(ctx, cfg)
	default:
		return runDemo(ctx, cfg)
	}
}

// runUDP serves one station whose peers are reachable over UDP tunnels.
func runUDP(ctx context.Context, cfg appConfig) error {
	dir := stream.NewDirectory()
	tun, err := transport.NewUDP(cfg.Listen)
	if err != nil {
		return err
	}
	defer tun.Close()
	for _, p := range cfg.Peers {
		if err := tun.MapPeer(p.Station, p.Endpoint); err != nil {
			return err
		}
	}

	engine := ba.NewEngine(ba.Config{
		LocalAddr:    cfg.LocalAddr,
		BSSID:        cfg.BSSID,
		SetupTimeout: cfg.SetupTimeout,
	}, dir, tun, ba.SystemTimers())
	engine.SetCapabilities(cfg.Caps)

	serveAdmin(cfg, dir)

	log.Info().Str("id", cfg.ID).Str("listen", cfg.Listen).
		Str("station", cfg.LocalAddr.String()).Msg("station up")
	return tun.Serve(ctx, engine)
}

// runDemo negotiates between two in-process stations over the loopback
// fabric, then holds the admin surface open until interrupted.
func runDemo(ctx context.Context, cfg appConfig) error {
	fabric := transport.NewLoopback()
	defer fabric.Close()

	peerAddr, err := wire.ParseAddr("02:00:00:00:00:02")
	if err != nil {
		return err
	}

	localDir := stream.NewDirectory()
	peerDir := stream.NewDirectory()

	var local, remote *ba.Engine
	local = ba.NewEngine(ba.Config{
		LocalAddr:    cfg.LocalAddr,
		BSSID:        cfg.BSSID,
		SetupTimeout: cfg.SetupTimeout,
	}, localDir, fabric.Attach(cfg.LocalAddr, handlerFunc(func(b []byte) error { return local.HandleFrame(b) })), ba.SystemTimers())
	remote = ba.NewEngine(ba.Config{
		LocalAddr:    peerAddr,
		BSSID:        cfg.BSSID,
		SetupTimeout: cfg.SetupTimeout,
	}, peerDir, fabric.Attach(peerAddr, handlerFunc(func(b []byte) error { return remote.HandleFrame(b) })), ba.SystemTimers())

	local.SetCapabilities(cfg.Caps)
	remote.SetCapabilities(cfg.Caps)

	serveAdmin(cfg, localDir)

	const tid = 1
	if err := local.Initiate(peerAddr, tid, wire.PolicyImmediate, false); err != nil {
		return err
	}

	// Give the exchange a moment to settle before reporting.
	select {
	case <-time.After(250 * time.Millisecond):
	case <-ctx.Done():
		return nil
	}
	for _, st := range localDir.Snapshot() {
		log.Info().Interface("stream", st).Msg("local stream state")
	}

	log.Info().Str("id", cfg.ID).Msg("demo negotiation complete, serving admin until interrupt")
	<-ctx.Done()
	return nil
}

func serveAdmin(cfg appConfig, dir *stream.Directory) {
	if cfg.AdminAddr == "" {
		return
	}
	srv := admin.New(cfg.ID, dir, cfg.CorsOrigins)
	go func() {
		if err := srv.Run(cfg.AdminAddr); err != nil {
			log.Error().Err(err).Msg("admin server exited")
		}
	}()
}

type handlerFunc func([]byte) error

func (f handlerFunc) HandleFrame(b []byte) error { return f(b) }
