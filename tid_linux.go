//go:build linux

package slogger

import "golang.org/x/sys/unix"

// currentTID returns the kernel id of the OS thread running the caller
func currentTID() int {
	return unix.Gettid()
}
