//go:build unix

package ringchan

import "golang.org/x/sys/unix"

// CurrentIdentity returns the Identity of the calling process.
func CurrentIdentity() Identity {
	return Identity{
		PID: unix.Getpid(),
		UID: unix.Getuid(),
	}
}
