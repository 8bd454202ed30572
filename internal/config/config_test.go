package config

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadServerParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.yaml")
	contents := "subnet: 10.1.1.0\nmask: 255.255.255.0\nlease_ttl: 300s\npurge_interval: 30s\n"
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := LoadServer(path)
	if err != nil {
		t.Fatalf("LoadServer() error = %v", err)
	}
	if cfg.Subnet != "10.1.1.0" {
		t.Errorf("Subnet = %q, want 10.1.1.0", cfg.Subnet)
	}
	if cfg.LeaseTTL != 300*time.Second {
		t.Errorf("LeaseTTL = %v, want 300s", cfg.LeaseTTL)
	}
	if cfg.PurgeInterval != 30*time.Second {
		t.Errorf("PurgeInterval = %v, want 30s", cfg.PurgeInterval)
	}
}

func TestLoadServerMissingFileErrors(t *testing.T) {
	if _, err := LoadServer("/nonexistent/server.yaml"); err == nil {
		t.Error("LoadServer() error = nil, want error for missing file")
	}
}

func TestSubnetAndMaskFallsBackToDefaults(t *testing.T) {
	cfg := &Server{}
	defaultSubnet := net.IPv4(10, 123, 123, 0)
	defaultMask := net.IPv4Mask(255, 255, 255, 0)

	subnet, mask, err := cfg.SubnetAndMask(defaultSubnet, defaultMask)
	if err != nil {
		t.Fatalf("SubnetAndMask() error = %v", err)
	}
	if !subnet.Equal(defaultSubnet) {
		t.Errorf("subnet = %v, want default %v", subnet, defaultSubnet)
	}
	if mask.String() != defaultMask.String() {
		t.Errorf("mask = %v, want default %v", mask, defaultMask)
	}
}

func TestSubnetAndMaskOverridesDefaults(t *testing.T) {
	cfg := &Server{Subnet: "10.1.1.0", Mask: "255.255.0.0"}
	subnet, mask, err := cfg.SubnetAndMask(net.IPv4(10, 123, 123, 0), net.IPv4Mask(255, 255, 255, 0))
	if err != nil {
		t.Fatalf("SubnetAndMask() error = %v", err)
	}
	if !subnet.Equal(net.IPv4(10, 1, 1, 0)) {
		t.Errorf("subnet = %v, want 10.1.1.0", subnet)
	}
	if mask.String() != net.IPv4Mask(255, 255, 0, 0).String() {
		t.Errorf("mask = %v, want 255.255.0.0", mask)
	}
}

func TestSubnetAndMaskRejectsInvalidSubnet(t *testing.T) {
	cfg := &Server{Subnet: "not-an-ip"}
	if _, _, err := cfg.SubnetAndMask(net.IPv4(10, 123, 123, 0), net.IPv4Mask(255, 255, 255, 0)); err == nil {
		t.Error("SubnetAndMask() error = nil, want error for invalid subnet")
	}
}
