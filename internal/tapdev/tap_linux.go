//go:build linux

package tapdev

import (
	"fmt"
	"net"
	"os"
	"os/exec"

	"golang.org/x/sys/unix"

	"github.com/l2vpn/l2vpn/internal/wireerr"
)

// linuxDevice backs Device with a /dev/net/tun TAP file descriptor,
// opened the way the retrieval pack's tailscale net/tstun/tap_linux.go
// reference opens its bridge TAP: unix.Open + IoctlIfreq(TUNSETIFF).
type linuxDevice struct {
	file *os.File
	name string
}

// OpenOrCreate opens the named TAP interface, creating it if it
// doesn't already exist.
func OpenOrCreate(name string) (Device, error) {
	fd, err := unix.Open("/dev/net/tun", unix.O_RDWR, 0)
	if err != nil {
		return nil, &wireerr.NetworkError{Op: "open /dev/net/tun", Err: err}
	}

	ifr, err := unix.NewIfreq(name)
	if err != nil {
		unix.Close(fd)
		return nil, &wireerr.NetworkError{Op: "build ifreq", Err: err}
	}
	ifr.SetUint16(unix.IFF_TAP | unix.IFF_NO_PI)
	if err := unix.IoctlIfreq(fd, unix.TUNSETIFF, ifr); err != nil {
		unix.Close(fd)
		return nil, &wireerr.NetworkError{Op: "TUNSETIFF", Err: err}
	}

	return &linuxDevice{file: os.NewFile(uintptr(fd), name), name: name}, nil
}

func (d *linuxDevice) Up() error {
	if err := runIPCommand("link", "set", "up", "dev", d.name); err != nil {
		return &wireerr.NetworkError{Op: "bring TAP up", Err: err}
	}
	return nil
}

func (d *linuxDevice) MAC() (net.HardwareAddr, error) {
	iface, err := net.InterfaceByName(d.name)
	if err != nil {
		return nil, &wireerr.NetworkError{Op: "get TAP MAC", Err: err}
	}
	return iface.HardwareAddr, nil
}

func (d *linuxDevice) MTU() (int, error) {
	iface, err := net.InterfaceByName(d.name)
	if err != nil {
		return 0, &wireerr.NetworkError{Op: "get TAP MTU", Err: err}
	}
	return iface.MTU, nil
}

func (d *linuxDevice) SetIP(addr net.IP, mask net.IPMask) error {
	prefix := CIDRPrefixLen(mask)
	cidr := fmt.Sprintf("%s/%d", addr.String(), prefix)
	if err := runIPCommand("addr", "add", "dev", d.name, cidr); err != nil {
		return &wireerr.NetworkError{Op: "set TAP ip", Err: err}
	}
	return nil
}

func (d *linuxDevice) Read(buf []byte) (int, error) {
	n, err := d.file.Read(buf)
	if err != nil {
		return n, &wireerr.NetworkError{Op: "TAP read", Err: err}
	}
	return n, nil
}

func (d *linuxDevice) Write(buf []byte) (int, error) {
	n, err := d.file.Write(buf)
	if err != nil {
		return n, &wireerr.NetworkError{Op: "TAP write", Err: err}
	}
	return n, nil
}

func (d *linuxDevice) Close() error {
	return d.file.Close()
}

// runIPCommand shells out to the `ip` utility to configure the
// interface, rather than issuing netlink requests directly.
func runIPCommand(args ...string) error {
	cmd := exec.Command("ip", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
