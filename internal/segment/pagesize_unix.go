//go:build unix

package segment

import "golang.org/x/sys/unix"

// DefaultPageSize reports the OS page size on unix platforms.
func DefaultPageSize() uintptr {
	return uintptr(unix.Getpagesize())
}
