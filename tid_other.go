//go:build !linux

package slogger

import "os"

// currentTID falls back to the process id where thread ids are not exposed
func currentTID() int {
	return os.Getpid()
}
