package lock

import "errors"

// ErrLocked means another run holds the cluster lock. TryAcquire returns
// it without waiting.
var ErrLocked = errors.New("cluster lock is held by another run")
