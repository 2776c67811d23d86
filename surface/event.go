package surface

import (
	"time"
)

// Event types.
const (
	EventReady      = "ready"
	EventInitFailed = "init_failed"
	EventBuilding   = "building"
	EventBuilt      = "built"
	EventStale      = "stale"
	EventFailed     = "failed"
	EventActivated  = "activated"
	EventEvicted    = "evicted"
	EventProgress   = "progress"
)

// Event describes something that happened to a surface.
type Event struct {
	Type     string    `json:"type"`
	Key      Key       `json:"key"`
	Progress *Progress `json:"progress,omitempty"`
	Error    string    `json:"error,omitempty"`
	Time     time.Time `json:"time"`
}
