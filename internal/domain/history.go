package domain

import "time"

// HistoryID is a unique identifier for a history entry.
type HistoryID string

// String returns the string representation of the HistoryID.
func (id HistoryID) String() string {
	return string(id)
}

// HistoryEntry records one download served by the relay.
// Source URLs are never recorded.
type HistoryEntry struct {
	ID        HistoryID
	MediaID   string
	Title     string
	Thumbnail string
	Kind      MediaKind
	Quality   string
	Filename  string
	Source    RelaySource
	Outcome   RelayOutcome
	Bytes     int64
	CreatedAt time.Time
}
