//go:build !linux

package tapdev

import (
	"fmt"
	"net"
	"runtime"
)

// OpenOrCreate is unimplemented on platforms other than Linux. The
// upstream project ships a separate Windows TAP driver (a kernel-mode
// component, not something a Go ioctl call can stand in for); wiring
// that driver is out of scope here.
func OpenOrCreate(name string) (Device, error) {
	return nil, fmt.Errorf("tapdev: TAP devices are not supported on %s", runtime.GOOS)
}

var _ Device = (*unsupportedDevice)(nil)

type unsupportedDevice struct{}

func (unsupportedDevice) Up() error                             { return errUnsupported() }
func (unsupportedDevice) MAC() (net.HardwareAddr, error)        { return nil, errUnsupported() }
func (unsupportedDevice) MTU() (int, error)                     { return 0, errUnsupported() }
func (unsupportedDevice) SetIP(net.IP, net.IPMask) error        { return errUnsupported() }
func (unsupportedDevice) Read(buf []byte) (int, error)          { return 0, errUnsupported() }
func (unsupportedDevice) Write(buf []byte) (int, error)         { return 0, errUnsupported() }
func (unsupportedDevice) Close() error                          { return nil }

func errUnsupported() error {
	return fmt.Errorf("tapdev: TAP devices are not supported on %s", runtime.GOOS)
}
