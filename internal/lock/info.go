package lock

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
)

// LockInfo is the JSON written into the lock directory on the first
// server. ID separates two runs by the same user on the same host.
type LockInfo struct {
	ID       string    `json:"id"`
	User     string    `json:"user"`
	Hostname string    `json:"hostname"`
	Started  time.Time `json:"started"`
	PID      int       `json:"pid"`
	Command  string    `json:"command,omitempty"`
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

// NewLockInfo describes this process as the holder, running command.
func NewLockInfo(command string) *LockInfo {
	host, _ := os.Hostname()
	return &LockInfo{
		ID:       uuid.NewString(),
		User:     orUnknown(os.Getenv("USER")),
		Hostname: orUnknown(host),
		Started:  time.Now(),
		PID:      os.Getpid(),
		Command:  command,
	}
}

func (i *LockInfo) Age() time.Duration { return time.Since(i.Started) }

func (i *LockInfo) Marshal() ([]byte, error) { return json.Marshal(i) }

// ParseLockInfo decodes the contents of a lock's info file.
func ParseLockInfo(data []byte) (*LockInfo, error) {
	info := new(LockInfo)
	if err := json.Unmarshal(data, info); err != nil {
		return nil, err
	}
	return info, nil
}

// String is the holder as shown by 'ftest unlock', e.g.
// "jdoe@launch-1 (pid 4242, test pool.VerifyPoolSpace)".
func (i *LockInfo) String() string {
	if i.Command == "" {
		return fmt.Sprintf("%s@%s (pid %d)", i.User, i.Hostname, i.PID)
	}
	return fmt.Sprintf("%s@%s (pid %d, %s)", i.User, i.Hostname, i.PID, i.Command)
}
