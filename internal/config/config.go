// Package config loads optional on-disk overrides for the server's
// network constants. Every field is also settable from the command
// line; CLI flags always win over the file.
package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Server holds the subset of server settings that may be loaded from
// a YAML file instead of flags.
type Server struct {
	Subnet        string        `yaml:"subnet"`
	Mask          string        `yaml:"mask"`
	LeaseTTL      time.Duration `yaml:"lease_ttl"`
	PurgeInterval time.Duration `yaml:"purge_interval"`
}

// LoadServer reads and parses a YAML server config file.
func LoadServer(path string) (*Server, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Server
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &cfg, nil
}

// SubnetAndMask parses the configured subnet/mask strings, falling
// back to the caller-supplied defaults for any field left empty.
func (s *Server) SubnetAndMask(defaultSubnet net.IP, defaultMask net.IPMask) (net.IP, net.IPMask, error) {
	subnet := defaultSubnet
	mask := defaultMask

	if s.Subnet != "" {
		parsed := net.ParseIP(s.Subnet)
		if parsed == nil {
			return nil, nil, fmt.Errorf("config: invalid subnet %q", s.Subnet)
		}
		subnet = parsed
	}
	if s.Mask != "" {
		parsed := net.ParseIP(s.Mask)
		if parsed == nil || parsed.To4() == nil {
			return nil, nil, fmt.Errorf("config: invalid mask %q", s.Mask)
		}
		mask = net.IPMask(parsed.To4())
	}
	return subnet, mask, nil
}
