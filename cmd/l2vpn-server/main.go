// Command l2vpn-server runs the rendezvous server: it leases overlay
// IPv4 addresses to registering peers and forwards Ethernet frames
// between them.
package main

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/l2vpn/l2vpn/internal/config"
	"github.com/l2vpn/l2vpn/internal/netutil"
	"github.com/l2vpn/l2vpn/internal/server"
)

var (
	defaultSubnet = net.IPv4(10, 123, 123, 0)
	defaultMask   = net.IPv4Mask(255, 255, 255, 0)
)

func main() {
	cmd := newRootCmd()
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		logLevel      string
		subnetFlag    string
		maskFlag      string
		leaseTTL      time.Duration
		purgeInterval time.Duration
		configPath    string
	)

	cmd := &cobra.Command{
		Use:   "l2vpn-server <port>",
		Short: "Run the layer-2 overlay rendezvous server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			port, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid port %q: %w", args[0], err)
			}

			logger := newLogger(logLevel)

			subnet := defaultSubnet
			mask := defaultMask
			if configPath != "" {
				cfg, err := config.LoadServer(configPath)
				if err != nil {
					return err
				}
				subnet, mask, err = cfg.SubnetAndMask(subnet, mask)
				if err != nil {
					return err
				}
				if cfg.LeaseTTL > 0 && !cmd.Flags().Changed("lease-ttl") {
					leaseTTL = cfg.LeaseTTL
				}
				if cfg.PurgeInterval > 0 && !cmd.Flags().Changed("purge-interval") {
					purgeInterval = cfg.PurgeInterval
				}
			}
			if cmd.Flags().Changed("subnet") {
				parsed := net.ParseIP(subnetFlag)
				if parsed == nil {
					return fmt.Errorf("invalid --subnet %q", subnetFlag)
				}
				subnet = parsed
			}
			if cmd.Flags().Changed("mask") {
				parsed := net.ParseIP(maskFlag)
				if parsed == nil || parsed.To4() == nil {
					return fmt.Errorf("invalid --mask %q", maskFlag)
				}
				mask = net.IPMask(parsed.To4())
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			conn, err := netutil.ListenDualStackUDP(ctx, port)
			if err != nil {
				return fmt.Errorf("bind port %d: %w", port, err)
			}

			srv, err := server.New(conn, subnet, mask,
				server.WithLogger(logger),
				server.WithLeaseTTL(leaseTTL),
				server.WithPurgeInterval(purgeInterval),
			)
			if err != nil {
				conn.Close()
				return err
			}

			logger.Info("server listening", "addr", conn.LocalAddr(), "subnet", subnet, "mask", net.IP(mask))
			return srv.Run(ctx)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	flags.StringVar(&subnetFlag, "subnet", defaultSubnet.String(), "overlay subnet network address")
	flags.StringVar(&maskFlag, "mask", net.IP(defaultMask).String(), "overlay subnet mask")
	flags.DurationVar(&leaseTTL, "lease-ttl", 200*time.Second, "inactivity duration before a lease is reclaimed")
	flags.DurationVar(&purgeInterval, "purge-interval", 100*time.Second, "interval between lease-expiry sweeps")
	flags.StringVar(&configPath, "config", "", "optional YAML file overriding subnet/mask/lease-ttl/purge-interval")

	return cmd
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
