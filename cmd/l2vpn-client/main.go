// Command l2vpn-client runs an overlay peer: it registers against a
// rendezvous server, relays Ethernet frames between the server and a
// local TAP interface, and keeps the session alive with periodic pings.
package main

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/l2vpn/l2vpn/internal/client"
	"github.com/l2vpn/l2vpn/internal/netutil"
	"github.com/l2vpn/l2vpn/internal/tapdev"
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
		logLevel          string
		ifaceName         string
		registerTimeout   time.Duration
		keepaliveInterval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "l2vpn-client <host:port>",
		Short: "Connect to a layer-2 overlay rendezvous server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(logLevel)
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			serverAddr, err := netutil.ResolveServerAddr(ctx, args[0])
			if err != nil {
				return err
			}

			tap, err := tapdev.OpenOrCreate(ifaceName)
			if err != nil {
				return fmt.Errorf("open TAP %q: %w", ifaceName, err)
			}
			defer tap.Close()
			logger.Info("TAP device ready", "iface", ifaceName)

			conn, err := net.DialUDP("udp", nil, serverAddr)
			if err != nil {
				return fmt.Errorf("connect to server %s: %w", serverAddr, err)
			}
			defer conn.Close()
			logger.Info("server connection open", "addr", serverAddr)

			c, err := client.New(conn, tap,
				client.WithLogger(logger),
				client.WithRegisterWindow(registerTimeout, 5*time.Second),
				client.WithKeepaliveInterval(keepaliveInterval),
			)
			if err != nil {
				return err
			}

			if err := c.Run(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	flags.StringVar(&ifaceName, "iface-name", "tap0", "name of the TAP interface to open or create")
	flags.DurationVar(&registerTimeout, "register-timeout", 15*time.Second, "total bounded window for registration retries")
	flags.DurationVar(&keepaliveInterval, "keepalive-interval", 5*time.Second, "interval between keepalive pings")

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
