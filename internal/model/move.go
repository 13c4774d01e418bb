package model

import "time"

// MoveID uniquely identifies a move
type MoveID string

// Move is an append-only record of one accepted placement
type Move struct {
	ID        MoveID
	MatchID   MatchID
	PlayerID  UserID
	Position  int
	Mark      Mark
	Seq       int // 1-based move number within the match
	CreatedAt time.Time
}
