//go:build unix

package search

import "golang.org/x/sys/unix"

// SetNiceness sets the scheduling priority of the whole process.
func SetNiceness(nice int) error {
	return unix.Setpriority(unix.PRIO_PROCESS, 0, nice)
}
