package ringchan

import "fmt"

// Identity names the caller of an operation: the originating process (thread
// group) and the user it runs as. The zero value means "nobody yet".
type Identity struct {
	PID int `json:"tgid"`
	UID int `json:"uid"`
}

func (id Identity) IsZero() bool { return id == Identity{} }

func (id Identity) String() string {
	return fmt.Sprintf("tgid=%d, uid=%d", id.PID, id.UID)
}
