package model

import "time"

// LogKind groups event log entries
type LogKind string

const (
	LogKindEvent     LogKind = "EVENT"
	LogKindGameEvent LogKind = "GAME_EVENT"
	LogKindError     LogKind = "ERROR"
)

// LogEntry is one record in the event log side-channel
type LogEntry struct {
	ID        string
	Kind      LogKind
	Name      string
	MatchID   MatchID
	UserID    UserID
	Data      map[string]any
	CreatedAt time.Time
}
