package watcher

import (
	"time"

	"f95-engagement/utils"
)

// State is the watcher's position in its lifecycle for the current page view.
type State int

const (
	StateIdle State = iota
	StateWatching
)

func (s State) String() string {
	if s == StateWatching {
		return "watching"
	}
	return "idle"
}

// Session is everything the watcher knows about one page view. A new
// Session replaces the old one on every navigation.
type Session struct {
	URL       string
	State     State
	Processed *utils.IDSet
	StartedAt time.Time
	Passes    int
}

func newSession(url string) *Session {
	return &Session{
		URL:       url,
		State:     StateIdle,
		Processed: utils.NewIDSet(),
		StartedAt: time.Now(),
	}
}
