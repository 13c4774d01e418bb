package redis

import (
	"fmt"

	"github.com/mcoot/tictactoe-go/internal/model"
)

// Key generation functions for each entity type

// userKey returns the Redis key for a User
func (s *Storage) userKey(id model.UserID) string {
	return fmt.Sprintf("%s:user:%s", s.cfg.KeyPrefix, id)
}

// onlineKey returns the Redis key for the SET of online user ids
func (s *Storage) onlineKey() string {
	return fmt.Sprintf("%s:online", s.cfg.KeyPrefix)
}

// invitationKey returns the Redis key for an Invitation
func (s *Storage) invitationKey(id model.InvitationID) string {
	return fmt.Sprintf("%s:invitation:%s", s.cfg.KeyPrefix, id)
}

// pendingIndexKey returns the Redis key for the (from, to) -> pending invitation id index
func (s *Storage) pendingIndexKey(from, to model.UserID) string {
	return fmt.Sprintf("%s:idx:pending:%s:%s", s.cfg.KeyPrefix, from, to)
}

// matchKey returns the Redis key for a Match
func (s *Storage) matchKey(id model.MatchID) string {
	return fmt.Sprintf("%s:match:%s", s.cfg.KeyPrefix, id)
}

// movesKey returns the Redis key for the LIST of moves in a match
func (s *Storage) movesKey(id model.MatchID) string {
	return fmt.Sprintf("%s:moves:%s", s.cfg.KeyPrefix, id)
}

// logsKey returns the Redis key for the event log LIST (newest first)
func (s *Storage) logsKey() string {
	return fmt.Sprintf("%s:logs", s.cfg.KeyPrefix)
}
