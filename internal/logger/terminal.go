//go:build !windows && !linux

package logger

import "golang.org/x/sys/unix"

// isTerminal checks if the file descriptor is a terminal on BSD-derived
// systems (macOS and friends use TIOCGETA).
func isTerminal(fd uintptr) bool {
	_, err := unix.IoctlGetTermios(int(fd), unix.TIOCGETA)
	return err == nil
}
