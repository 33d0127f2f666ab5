//go:build !unix

package ringchan

import "os"

// CurrentIdentity returns the Identity of the calling process. UID is -1 on
// platforms without user ids.
func CurrentIdentity() Identity {
	return Identity{
		PID: os.Getpid(),
		UID: os.Getuid(),
	}
}
