package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadAppConfigExample(t *testing.T) {
	cfg, err := loadAppConfig("ex.config.toml")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ID != "station.local" {
		t.Fatalf("unexpected id: %q", cfg.ID)
	}
	if cfg.Mode != modeUDP {
		t.Fatalf("unexpected mode: %q", cfg.Mode)
	}
	if cfg.LocalAddr.String() != "02:00:00:00:00:01" {
		t.Fatalf("unexpected local addr: %s", cfg.LocalAddr)
	}
	if cfg.BSSID.String() != "02:00:00:00:00:ff" {
		t.Fatalf("unexpected bssid: %s", cfg.BSSID)
	}
	if cfg.SetupTimeout != 200*time.Millisecond {
		t.Fatalf("unexpected setup timeout: %v", cfg.SetupTimeout)
	}
	if cfg.Listen != "127.0.0.1:9400" {
		t.Fatalf("unexpected listen: %q", cfg.Listen)
	}
	if len(cfg.Peers) != 1 || cfg.Peers[0].Endpoint != "127.0.0.1:9401" {
		t.Fatalf("unexpected peers: %+v", cfg.Peers)
	}
	if !cfg.Caps.QoSActive || !cfg.Caps.AggregationEnabled || !cfg.Caps.AMPDUEnabled {
		t.Fatalf("unexpected capabilities: %+v", cfg.Caps)
	}
	if cfg.Caps.SingleFrameOnly {
		t.Fatalf("expected full buffer capability")
	}
}

func TestLoadAppConfigDefaultsFillGaps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "minimal.toml")
	if err := os.WriteFile(path, []byte("id = \"tiny\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := loadAppConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	def := defaultAppConfig()
	if cfg.ID != "tiny" {
		t.Fatalf("unexpected id: %q", cfg.ID)
	}
	if cfg.Mode != modeDemo {
		t.Fatalf("expected demo mode, got %q", cfg.Mode)
	}
	if cfg.SetupTimeout != def.SetupTimeout {
		t.Fatalf("unexpected setup timeout: %v", cfg.SetupTimeout)
	}
	if cfg.LocalAddr != def.LocalAddr || cfg.BSSID != def.BSSID {
		t.Fatalf("expected default addressing")
	}
}

func TestLoadAppConfigRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"bad mode":          "mode = \"carrier-pigeon\"\n",
		"bad mac":           "local_addr = \"not-a-mac\"\n",
		"bad timeout":       "setup_timeout = \"soon\"\n",
		"negative timeout":  "setup_timeout = \"-5ms\"\n",
		"udp needs listen":  "mode = \"udp\"\n",
		"peer w/o endpoint": "[[peers]]\nstation = \"02:00:00:00:00:09\"\n",
	}
	for name, body := range cases {
		path := filepath.Join(t.TempDir(), "bad.toml")
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("%s: write config: %v", name, err)
		}
		if _, err := loadAppConfig(path); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
