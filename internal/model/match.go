package model

import "time"

// MatchID uniquely identifies a match
type MatchID string

// MatchStatus represents the lifecycle phase of a match
type MatchStatus string

const (
	MatchStatusWaiting    MatchStatus = "WAITING"     // Created, not yet persisted as active
	MatchStatusInProgress MatchStatus = "IN_PROGRESS" // Players are taking turns
	MatchStatusFinished   MatchStatus = "FINISHED"    // Won or drawn
	MatchStatusAbandoned  MatchStatus = "ABANDONED"   // A player left before the end
)

// IsTerminal returns true for statuses no transition leaves
func (s MatchStatus) IsTerminal() bool {
	return s == MatchStatusFinished || s == MatchStatusAbandoned
}

// Seat is a player's fixed role within a match
type Seat int

const (
	SeatNone Seat = iota
	SeatPlayer1
	SeatPlayer2
)

// Mark returns the mark played from this seat
func (s Seat) Mark() Mark {
	switch s {
	case SeatPlayer1:
		return MarkX
	case SeatPlayer2:
		return MarkO
	default:
		return MarkEmpty
	}
}

// Match is a single game between two users
type Match struct {
	ID        MatchID
	Player1ID UserID // Inviter, plays X and moves first
	Player2ID UserID // Invitee, plays O
	Board     Board
	Status    MatchStatus

	// Empty once the match is terminal
	CurrentPlayerID UserID

	// Empty while in progress, on a draw, or for a match that never started
	WinnerID UserID

	CreatedAt time.Time
	UpdatedAt time.Time

	// Version is bumped by storage on every successful update
	Version int64
}

// Clone returns a copy that shares no state with m
func (m *Match) Clone() *Match {
	if m == nil {
		return nil
	}
	c := *m
	return &c
}

// SeatOf returns the seat held by the given user
func (m *Match) SeatOf(userID UserID) Seat {
	switch userID {
	case m.Player1ID:
		return SeatPlayer1
	case m.Player2ID:
		return SeatPlayer2
	default:
		return SeatNone
	}
}

// IsParticipant returns true if the user is one of the two players
func (m *Match) IsParticipant(userID UserID) bool {
	return m.SeatOf(userID) != SeatNone
}

// Opponent returns the other participant, or empty if userID is not playing
func (m *Match) Opponent(userID UserID) UserID {
	switch m.SeatOf(userID) {
	case SeatPlayer1:
		return m.Player2ID
	case SeatPlayer2:
		return m.Player1ID
	default:
		return ""
	}
}

// PlayerForMark maps a mark back to the user who owns it
func (m *Match) PlayerForMark(mark Mark) UserID {
	switch mark {
	case MarkX:
		return m.Player1ID
	case MarkO:
		return m.Player2ID
	default:
		return ""
	}
}

// Participants returns both players in seat order
func (m *Match) Participants() []UserID {
	return []UserID{m.Player1ID, m.Player2ID}
}

// Classification describes whether a board is still in play
type Classification struct {
	Status        MatchStatus // IN_PROGRESS or FINISHED
	Winner        Mark        // MarkEmpty when there is no winner
	WinningTriple *Triple
	IsDraw        bool
}
