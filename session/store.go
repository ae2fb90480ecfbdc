package session

import "time"

// Cookie is a single session value together with its write options.
type Cookie struct {
	Name     string
	Value    string
	MaxAge   time.Duration
	HTTPOnly bool
}

// Store is the only place session state lives. Implementations are scoped to
// one browser session, so callers never need cross-request locking.
type Store interface {
	Get(name string) (string, bool)
	Set(cookie Cookie) error
	Delete(name string) error
}
