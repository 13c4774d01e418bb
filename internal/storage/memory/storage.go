package memory

import (
	"context"
	"maps"
	"sort"
	"sync"

	"github.com/mcoot/tictactoe-go/internal/model"
	"github.com/mcoot/tictactoe-go/internal/storage"
)

// DefaultLogCapacity is how many log entries are retained before the oldest are dropped
const DefaultLogCapacity = 1000

// Storage is an in-memory implementation of the storage interface.
// Values are copied on the way in and out so callers never share state with the store.
type Storage struct {
	mu sync.RWMutex

	users       map[model.UserID]*model.User
	online      map[model.UserID]bool
	invitations map[model.InvitationID]*model.Invitation
	pending     map[pairKey]model.InvitationID
	matches     map[model.MatchID]*model.Match
	moves       map[model.MatchID][]*model.Move
	logs        []*model.LogEntry
	logCapacity int
}

type pairKey struct {
	from model.UserID
	to   model.UserID
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		users:       make(map[model.UserID]*model.User),
		online:      make(map[model.UserID]bool),
		invitations: make(map[model.InvitationID]*model.Invitation),
		pending:     make(map[pairKey]model.InvitationID),
		matches:     make(map[model.MatchID]*model.Match),
		moves:       make(map[model.MatchID][]*model.Move),
		logCapacity: DefaultLogCapacity,
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Close is a no-op for in-memory storage
func (s *Storage) Close() error {
	return nil
}

// User operations

func (s *Storage) SaveUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := *user
	u.IsOnline = s.online[user.ID]
	s.users[user.ID] = &u
	return nil
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	u := *user
	u.IsOnline = s.online[id]
	return &u, nil
}

// Online-status operations

func (s *Storage) SetOnline(ctx context.Context, id model.UserID, online bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if online {
		s.online[id] = true
	} else {
		delete(s.online, id)
	}
	return nil
}

func (s *Storage) IsOnline(ctx context.Context, id model.UserID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.online[id], nil
}

// Invitation operations

func (s *Storage) CreateInvitation(ctx context.Context, inv *model.Invitation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.invitations[inv.ID]; exists {
		return storage.ErrConflict
	}
	key := pairKey{from: inv.FromUserID, to: inv.ToUserID}
	if inv.Status == model.InvitationStatusPending {
		if _, exists := s.pending[key]; exists {
			return storage.ErrConflict
		}
		s.pending[key] = inv.ID
	}
	s.invitations[inv.ID] = inv.Clone()
	return nil
}

func (s *Storage) GetInvitation(ctx context.Context, id model.InvitationID) (*model.Invitation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.invitations[id]
	if !ok {
		return nil, model.ErrInvitationNotFound
	}
	return inv.Clone(), nil
}

func (s *Storage) UpdateInvitation(ctx context.Context, inv *model.Invitation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.invitations[inv.ID]
	if !ok {
		return model.ErrInvitationNotFound
	}
	if stored.Version != inv.Version {
		return storage.ErrConflict
	}
	key := pairKey{from: inv.FromUserID, to: inv.ToUserID}
	if inv.Status == model.InvitationStatusPending {
		if id, exists := s.pending[key]; exists && id != inv.ID {
			return storage.ErrConflict
		}
		s.pending[key] = inv.ID
	} else if s.pending[key] == inv.ID {
		delete(s.pending, key)
	}
	inv.Version++
	s.invitations[inv.ID] = inv.Clone()
	return nil
}

func (s *Storage) FindPendingInvitation(ctx context.Context, from, to model.UserID) (*model.Invitation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.pending[pairKey{from: from, to: to}]
	if !ok {
		return nil, model.ErrInvitationNotFound
	}
	return s.invitations[id].Clone(), nil
}

// Match operations

func (s *Storage) CreateMatch(ctx context.Context, match *model.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.matches[match.ID]; exists {
		return storage.ErrConflict
	}
	s.matches[match.ID] = match.Clone()
	return nil
}

func (s *Storage) GetMatch(ctx context.Context, id model.MatchID) (*model.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	match, ok := s.matches[id]
	if !ok {
		return nil, model.ErrMatchNotFound
	}
	return match.Clone(), nil
}

func (s *Storage) UpdateMatch(ctx context.Context, match *model.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.matches[match.ID]
	if !ok {
		return model.ErrMatchNotFound
	}
	if stored.Version != match.Version {
		return storage.ErrConflict
	}
	match.Version++
	s.matches[match.ID] = match.Clone()
	return nil
}

// Move operations

func (s *Storage) AppendMove(ctx context.Context, move *model.Move) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	mv := *move
	s.moves[move.MatchID] = append(s.moves[move.MatchID], &mv)
	return nil
}

func (s *Storage) ListMoves(ctx context.Context, matchID model.MatchID) ([]*model.Move, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.moves[matchID]
	result := make([]*model.Move, 0, len(stored))
	for _, mv := range stored {
		c := *mv
		result = append(result, &c)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Seq < result[j].Seq
	})
	return result, nil
}

// Event log operations

func (s *Storage) AppendLog(ctx context.Context, entry *model.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := *entry
	e.Data = maps.Clone(entry.Data)
	s.logs = append(s.logs, &e)
	if over := len(s.logs) - s.logCapacity; over > 0 {
		s.logs = append(s.logs[:0:0], s.logs[over:]...)
	}
	return nil
}

// RecentLogs returns up to limit entries, newest first
func (s *Storage) RecentLogs(ctx context.Context, limit int) ([]*model.LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.logs) {
		limit = len(s.logs)
	}
	result := make([]*model.LogEntry, 0, limit)
	for i := len(s.logs) - 1; i >= 0 && len(result) < limit; i-- {
		e := *s.logs[i]
		e.Data = maps.Clone(s.logs[i].Data)
		result = append(result, &e)
	}
	return result, nil
}
