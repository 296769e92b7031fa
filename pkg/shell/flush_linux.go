//go:build linux

package shell

import "golang.org/x/sys/unix"

// flushInput drops bytes received on fd but not yet read.
func flushInput(fd int) error {
	return unix.IoctlSetInt(fd, unix.TCFLSH, unix.TCIFLUSH)
}
