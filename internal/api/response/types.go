package response

import (
	"time"

	"github.com/mcoot/tictactoe-go/internal/model"
)

// User represents a user in API responses
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	IsOnline    bool   `json:"is_online"`
}

// UserFromModel converts a model.User to a response User
func UserFromModel(u *model.User) User {
	return User{
		ID:          string(u.ID),
		DisplayName: u.DisplayName,
		IsOnline:    u.IsOnline,
	}
}

// Invitation represents an invitation in API responses
type Invitation struct {
	ID         string    `json:"id"`
	FromUserID string    `json:"from_user_id"`
	ToUserID   string    `json:"to_user_id"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// InvitationFromModel converts a model.Invitation
func InvitationFromModel(inv *model.Invitation) Invitation {
	return Invitation{
		ID:         string(inv.ID),
		FromUserID: string(inv.FromUserID),
		ToUserID:   string(inv.ToUserID),
		Status:     string(inv.Status),
		CreatedAt:  inv.CreatedAt,
		ExpiresAt:  inv.ExpiresAt,
	}
}

// Match represents a match in API responses.
// Board cells are "X", "O" or null.
type Match struct {
	ID              string    `json:"id"`
	Player1ID       string    `json:"player1_id"`
	Player2ID       string    `json:"player2_id"`
	Board           []*string `json:"board"`
	Status          string    `json:"status"`
	CurrentPlayerID *string   `json:"current_player_id"`
	WinnerID        *string   `json:"winner_id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// MatchFromModel converts a model.Match
func MatchFromModel(m *model.Match) Match {
	return Match{
		ID:              string(m.ID),
		Player1ID:       string(m.Player1ID),
		Player2ID:       string(m.Player2ID),
		Board:           BoardFromModel(m.Board),
		Status:          string(m.Status),
		CurrentPlayerID: optionalUser(m.CurrentPlayerID),
		WinnerID:        optionalUser(m.WinnerID),
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

// BoardFromModel converts a board into nine nullable cells
func BoardFromModel(b model.Board) []*string {
	cells := make([]*string, model.BoardSize)
	for i, mark := range b {
		if mark == model.MarkEmpty {
			continue
		}
		s := mark.String()
		cells[i] = &s
	}
	return cells
}

func optionalUser(id model.UserID) *string {
	if id == "" {
		return nil
	}
	s := string(id)
	return &s
}

// Move represents a move in API responses
type Move struct {
	ID        string    `json:"id"`
	MatchID   string    `json:"match_id"`
	PlayerID  string    `json:"player_id"`
	Position  int       `json:"position"`
	Mark      string    `json:"mark"`
	Seq       int       `json:"seq"`
	CreatedAt time.Time `json:"created_at"`
}

// MoveFromModel converts a model.Move
func MoveFromModel(mv *model.Move) Move {
	return Move{
		ID:        string(mv.ID),
		MatchID:   string(mv.MatchID),
		PlayerID:  string(mv.PlayerID),
		Position:  mv.Position,
		Mark:      mv.Mark.String(),
		Seq:       mv.Seq,
		CreatedAt: mv.CreatedAt,
	}
}

// MovesFromModel converts a list of moves
func MovesFromModel(moves []*model.Move) []Move {
	result := make([]Move, len(moves))
	for i, mv := range moves {
		result[i] = MoveFromModel(mv)
	}
	return result
}

// Classification describes the state of the board after a move
type Classification struct {
	Status        string  `json:"status"`
	Winner        *string `json:"winner"`
	WinningTriple []int   `json:"winning_triple"`
	IsDraw        bool    `json:"is_draw"`
}

// ClassificationFromModel converts a model.Classification
func ClassificationFromModel(c model.Classification) Classification {
	result := Classification{
		Status: string(c.Status),
		IsDraw: c.IsDraw,
	}
	if c.Winner != model.MarkEmpty {
		w := c.Winner.String()
		result.Winner = &w
	}
	if c.WinningTriple != nil {
		result.WinningTriple = c.WinningTriple[:]
	}
	return result
}

// MoveResult is the response for a successful move
type MoveResult struct {
	Match          Match          `json:"match"`
	Move           Move           `json:"move"`
	Classification Classification `json:"classification"`
}

// Presence lists the users currently online
type Presence struct {
	Users []string `json:"users"`
	Count int      `json:"count"`
}

// PresenceFromUsers builds a Presence response
func PresenceFromUsers(users []model.UserID) Presence {
	ids := make([]string, len(users))
	for i, u := range users {
		ids[i] = string(u)
	}
	return Presence{Users: ids, Count: len(ids)}
}

// LogEntry represents an event log entry
type LogEntry struct {
	ID        string         `json:"id"`
	Kind      string         `json:"kind"`
	Name      string         `json:"name"`
	MatchID   string         `json:"match_id,omitempty"`
	UserID    string         `json:"user_id,omitempty"`
	Data      map[string]any `json:"data"`
	CreatedAt time.Time      `json:"created_at"`
}

// LogEntriesFromModel converts log entries
func LogEntriesFromModel(entries []*model.LogEntry) []LogEntry {
	result := make([]LogEntry, len(entries))
	for i, e := range entries {
		result[i] = LogEntry{
			ID:        e.ID,
			Kind:      string(e.Kind),
			Name:      e.Name,
			MatchID:   string(e.MatchID),
			UserID:    string(e.UserID),
			Data:      e.Data,
			CreatedAt: e.CreatedAt,
		}
	}
	return result
}
