package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/danmuck/bactl/internal/ba"
	"github.com/danmuck/bactl/internal/wire"
)

const (
	modeDemo = "demo"
	modeUDP  = "udp"
)

type peerEndpoint struct {
	Station  wire.Addr
	Endpoint string
}

type appConfig struct {
	ID           string
	Mode         string
	LocalAddr    wire.Addr
	BSSID        wire.Addr
	SetupTimeout time.Duration
	AdminAddr    string
	CorsOrigins  []string
	Listen       string
	Peers        []peerEndpoint
	Caps         ba.Capabilities
}

type fileConfig struct {
	ID           string   `toml:"id"`
	Mode         string   `toml:"mode"`
	LocalAddr    string   `toml:"local_addr"`
	BSSID        string   `toml:"bssid"`
	SetupTimeout string   `toml:"setup_timeout"`
	AdminAddr    string   `toml:"admin_addr"`
	CorsOrigins  []string `toml:"cors_origins"`
	Listen       string   `toml:"listen"`

	Peers []filePeer `toml:"peers"`

	Capabilities fileCapabilities `toml:"capabilities"`
}

type filePeer struct {
	Station  string `toml:"station"`
	Endpoint string `toml:"endpoint"`
}

type fileCapabilities struct {
	QoS         bool `toml:"qos"`
	Aggregation bool `toml:"aggregation"`
	AMPDU       bool `toml:"ampdu"`
	SingleFrame bool `toml:"single_frame"`
}

func defaultAppConfig() appConfig {
	local, _ := wire.ParseAddr("02:00:00:00:00:01")
	bssid, _ := wire.ParseAddr("02:00:00:00:00:ff")
	return appConfig{
		ID:           "bactl",
		Mode:         modeDemo,
		LocalAddr:    local,
		BSSID:        bssid,
		SetupTimeout: ba.DefaultConfig().SetupTimeout,
		AdminAddr:    "127.0.0.1:9300",
		Caps: ba.Capabilities{
			QoSActive:          true,
			AggregationEnabled: true,
			AMPDUEnabled:       true,
		},
	}
}

func loadAppConfig(path string) (appConfig, error) {
	cfg := defaultAppConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return appConfig{}, fmt.Errorf("load config: %w", err)
	}

	if meta.IsDefined("id") {
		if id := strings.TrimSpace(raw.ID); id != "" {
			cfg.ID = id
		}
	}

	if meta.IsDefined("mode") {
		mode := strings.ToLower(strings.TrimSpace(raw.Mode))
		if mode != modeDemo && mode != modeUDP {
			return appConfig{}, fmt.Errorf("unknown mode %q", raw.Mode)
		}
		cfg.Mode = mode
	}

	if meta.IsDefined("local_addr") {
		addr, err := wire.ParseAddr(strings.TrimSpace(raw.LocalAddr))
		if err != nil {
			return appConfig{}, err
		}
		cfg.LocalAddr = addr
	}

	if meta.IsDefined("bssid") {
		addr, err := wire.ParseAddr(strings.TrimSpace(raw.BSSID))
		if err != nil {
			return appConfig{}, err
		}
		cfg.BSSID = addr
	}

	if meta.IsDefined("setup_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.SetupTimeout))
		if err != nil {
			return appConfig{}, fmt.Errorf("parse setup_timeout: %w", err)
		}
		if d <= 0 {
			return appConfig{}, fmt.Errorf("setup_timeout must be positive, got %v", d)
		}
		cfg.SetupTimeout = d
	}

	if meta.IsDefined("admin_addr") {
		cfg.AdminAddr = strings.TrimSpace(raw.AdminAddr)
	}

	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = raw.CorsOrigins
	}

	if meta.IsDefined("listen") {
		cfg.Listen = strings.TrimSpace(raw.Listen)
	}

	if meta.IsDefined("peers") {
		cfg.Peers = make([]peerEndpoint, 0, len(raw.Peers))
		for i, p := range raw.Peers {
			station, err := wire.ParseAddr(strings.TrimSpace(p.Station))
			if err != nil {
				return appConfig{}, fmt.Errorf("peers[%d]: %w", i, err)
			}
			endpoint := strings.TrimSpace(p.Endpoint)
			if endpoint == "" {
				return appConfig{}, fmt.Errorf("peers[%d]: missing endpoint", i)
			}
			cfg.Peers = append(cfg.Peers, peerEndpoint{Station: station, Endpoint: endpoint})
		}
	}

	if meta.IsDefined("capabilities") {
		cfg.Caps = ba.Capabilities{
			QoSActive:          raw.Capabilities.QoS,
			AggregationEnabled: raw.Capabilities.Aggregation,
			AMPDUEnabled:       raw.Capabilities.AMPDU,
			SingleFrameOnly:    raw.Capabilities.SingleFrame,
		}
	}

	if cfg.Mode == modeUDP && cfg.Listen == "" {
		return appConfig{}, fmt.Errorf("udp mode requires listen address")
	}

	return cfg, nil
}
