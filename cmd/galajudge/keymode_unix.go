//go:build linux || darwin

package main

import "golang.org/x/sys/unix"

// setKeyMode turns off line buffering and echo. Output processing stays on
// so log lines still end with a carriage return.
func setKeyMode(fd int) error {
	t, err := unix.IoctlGetTermios(fd, ioctlGetTermios)
	if err != nil {
		return err
	}
	t.Lflag &^= unix.ICANON | unix.ECHO
	t.Cc[unix.VMIN] = 1
	t.Cc[unix.VTIME] = 0
	return unix.IoctlSetTermios(fd, ioctlSetTermios, t)
}
