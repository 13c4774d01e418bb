// Package storagetest holds the behavioural tests every storage backend must pass.
package storagetest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/tictactoe-go/internal/model"
	"github.com/mcoot/tictactoe-go/internal/storage"
)

// Suite runs the storage contract against the backend built by NewStorage.
// Backends embed it in their own suite and set NewStorage in SetupTest.
type Suite struct {
	suite.Suite
	Storage storage.Storage
	Ctx     context.Context
}

var baseTime = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// Use sets the backend under test
func (s *Suite) Use(st storage.Storage) {
	s.Storage = st
	s.Ctx = context.Background()
}

func (s *Suite) newInvitation(id, from, to string) *model.Invitation {
	return &model.Invitation{
		ID:         model.InvitationID(id),
		FromUserID: model.UserID(from),
		ToUserID:   model.UserID(to),
		Status:     model.InvitationStatusPending,
		CreatedAt:  baseTime,
		UpdatedAt:  baseTime,
		ExpiresAt:  baseTime.Add(model.InvitationTTL),
	}
}

func (s *Suite) newMatch(id string) *model.Match {
	return &model.Match{
		ID:              model.MatchID(id),
		Player1ID:       "alice",
		Player2ID:       "bob",
		Status:          model.MatchStatusInProgress,
		CurrentPlayerID: "alice",
		CreatedAt:       baseTime,
		UpdatedAt:       baseTime,
	}
}

// User tests

func (s *Suite) TestSaveAndGetUser() {
	user := &model.User{ID: "alice", DisplayName: "Alice", CreatedAt: baseTime, UpdatedAt: baseTime}
	s.Require().NoError(s.Storage.SaveUser(s.Ctx, user))

	retrieved, err := s.Storage.GetUser(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Equal("Alice", retrieved.DisplayName)
	s.True(baseTime.Equal(retrieved.CreatedAt))
}

func (s *Suite) TestSaveUserOverwritesDisplayName() {
	s.Require().NoError(s.Storage.SaveUser(s.Ctx, &model.User{ID: "alice", DisplayName: "Alice"}))
	s.Require().NoError(s.Storage.SaveUser(s.Ctx, &model.User{ID: "alice", DisplayName: "Alice B"}))

	retrieved, err := s.Storage.GetUser(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Equal("Alice B", retrieved.DisplayName)
}

func (s *Suite) TestGetUserNotFound() {
	_, err := s.Storage.GetUser(s.Ctx, "nobody")
	s.ErrorIs(err, model.ErrUserNotFound)
}

// Online-status tests

func (s *Suite) TestOnlineStatus() {
	online, err := s.Storage.IsOnline(s.Ctx, "alice")
	s.Require().NoError(err)
	s.False(online)

	s.Require().NoError(s.Storage.SetOnline(s.Ctx, "alice", true))
	online, err = s.Storage.IsOnline(s.Ctx, "alice")
	s.Require().NoError(err)
	s.True(online)

	s.Require().NoError(s.Storage.SetOnline(s.Ctx, "alice", false))
	online, err = s.Storage.IsOnline(s.Ctx, "alice")
	s.Require().NoError(err)
	s.False(online)
}

func (s *Suite) TestGetUserReflectsOnlineStatus() {
	s.Require().NoError(s.Storage.SaveUser(s.Ctx, &model.User{ID: "alice", DisplayName: "Alice"}))
	s.Require().NoError(s.Storage.SetOnline(s.Ctx, "alice", true))

	retrieved, err := s.Storage.GetUser(s.Ctx, "alice")
	s.Require().NoError(err)
	s.True(retrieved.IsOnline)
}

// Invitation tests

func (s *Suite) TestCreateAndGetInvitation() {
	inv := s.newInvitation("inv-1", "alice", "bob")
	s.Require().NoError(s.Storage.CreateInvitation(s.Ctx, inv))

	retrieved, err := s.Storage.GetInvitation(s.Ctx, "inv-1")
	s.Require().NoError(err)
	s.Equal(model.UserID("alice"), retrieved.FromUserID)
	s.Equal(model.UserID("bob"), retrieved.ToUserID)
	s.Equal(model.InvitationStatusPending, retrieved.Status)
	s.True(inv.ExpiresAt.Equal(retrieved.ExpiresAt))
}

func (s *Suite) TestGetInvitationNotFound() {
	_, err := s.Storage.GetInvitation(s.Ctx, "missing")
	s.ErrorIs(err, model.ErrInvitationNotFound)
}

func (s *Suite) TestCreateInvitationRejectsSecondPendingForPair() {
	s.Require().NoError(s.Storage.CreateInvitation(s.Ctx, s.newInvitation("inv-1", "alice", "bob")))

	err := s.Storage.CreateInvitation(s.Ctx, s.newInvitation("inv-2", "alice", "bob"))
	s.ErrorIs(err, storage.ErrConflict)

	// The reverse direction is a different pair
	s.NoError(s.Storage.CreateInvitation(s.Ctx, s.newInvitation("inv-3", "bob", "alice")))
}

func (s *Suite) TestFindPendingInvitation() {
	_, err := s.Storage.FindPendingInvitation(s.Ctx, "alice", "bob")
	s.ErrorIs(err, model.ErrInvitationNotFound)

	s.Require().NoError(s.Storage.CreateInvitation(s.Ctx, s.newInvitation("inv-1", "alice", "bob")))

	found, err := s.Storage.FindPendingInvitation(s.Ctx, "alice", "bob")
	s.Require().NoError(err)
	s.Equal(model.InvitationID("inv-1"), found.ID)

	_, err = s.Storage.FindPendingInvitation(s.Ctx, "bob", "alice")
	s.ErrorIs(err, model.ErrInvitationNotFound)
}

func (s *Suite) TestUpdateInvitationReleasesPendingPair() {
	inv := s.newInvitation("inv-1", "alice", "bob")
	s.Require().NoError(s.Storage.CreateInvitation(s.Ctx, inv))

	inv.Status = model.InvitationStatusRejected
	s.Require().NoError(s.Storage.UpdateInvitation(s.Ctx, inv))
	s.Equal(int64(1), inv.Version)

	_, err := s.Storage.FindPendingInvitation(s.Ctx, "alice", "bob")
	s.ErrorIs(err, model.ErrInvitationNotFound)

	s.NoError(s.Storage.CreateInvitation(s.Ctx, s.newInvitation("inv-2", "alice", "bob")))
}

func (s *Suite) TestUpdateInvitationBackToPendingReclaimsPair() {
	inv := s.newInvitation("inv-1", "alice", "bob")
	s.Require().NoError(s.Storage.CreateInvitation(s.Ctx, inv))

	inv.Status = model.InvitationStatusAccepted
	s.Require().NoError(s.Storage.UpdateInvitation(s.Ctx, inv))
	inv.Status = model.InvitationStatusPending
	s.Require().NoError(s.Storage.UpdateInvitation(s.Ctx, inv))

	found, err := s.Storage.FindPendingInvitation(s.Ctx, "alice", "bob")
	s.Require().NoError(err)
	s.Equal(model.InvitationID("inv-1"), found.ID)
	s.ErrorIs(s.Storage.CreateInvitation(s.Ctx, s.newInvitation("inv-2", "alice", "bob")), storage.ErrConflict)
}

func (s *Suite) TestUpdateInvitationBackToPendingConflictsWithNewerPending() {
	inv := s.newInvitation("inv-1", "alice", "bob")
	s.Require().NoError(s.Storage.CreateInvitation(s.Ctx, inv))
	inv.Status = model.InvitationStatusRejected
	s.Require().NoError(s.Storage.UpdateInvitation(s.Ctx, inv))
	s.Require().NoError(s.Storage.CreateInvitation(s.Ctx, s.newInvitation("inv-2", "alice", "bob")))

	inv.Status = model.InvitationStatusPending
	s.ErrorIs(s.Storage.UpdateInvitation(s.Ctx, inv), storage.ErrConflict)

	found, err := s.Storage.FindPendingInvitation(s.Ctx, "alice", "bob")
	s.Require().NoError(err)
	s.Equal(model.InvitationID("inv-2"), found.ID)
}

func (s *Suite) TestUpdateInvitationDetectsStaleVersion() {
	inv := s.newInvitation("inv-1", "alice", "bob")
	s.Require().NoError(s.Storage.CreateInvitation(s.Ctx, inv))

	first, err := s.Storage.GetInvitation(s.Ctx, "inv-1")
	s.Require().NoError(err)
	second, err := s.Storage.GetInvitation(s.Ctx, "inv-1")
	s.Require().NoError(err)

	first.Status = model.InvitationStatusAccepted
	s.Require().NoError(s.Storage.UpdateInvitation(s.Ctx, first))

	second.Status = model.InvitationStatusRejected
	s.ErrorIs(s.Storage.UpdateInvitation(s.Ctx, second), storage.ErrConflict)
	s.Equal(int64(0), second.Version)

	stored, err := s.Storage.GetInvitation(s.Ctx, "inv-1")
	s.Require().NoError(err)
	s.Equal(model.InvitationStatusAccepted, stored.Status)
}

func (s *Suite) TestUpdateInvitationNotFound() {
	err := s.Storage.UpdateInvitation(s.Ctx, s.newInvitation("missing", "alice", "bob"))
	s.ErrorIs(err, model.ErrInvitationNotFound)
}

// Match tests

func (s *Suite) TestCreateAndGetMatch() {
	m := s.newMatch("match-1")
	m.Board[4] = model.MarkX
	s.Require().NoError(s.Storage.CreateMatch(s.Ctx, m))

	retrieved, err := s.Storage.GetMatch(s.Ctx, "match-1")
	s.Require().NoError(err)
	s.Equal(m.Board, retrieved.Board)
	s.Equal(model.MatchStatusInProgress, retrieved.Status)
	s.Equal(model.UserID("alice"), retrieved.CurrentPlayerID)
	s.Empty(retrieved.WinnerID)
}

func (s *Suite) TestGetMatchNotFound() {
	_, err := s.Storage.GetMatch(s.Ctx, "missing")
	s.ErrorIs(err, model.ErrMatchNotFound)
}

func (s *Suite) TestCreateMatchRejectsDuplicateID() {
	s.Require().NoError(s.Storage.CreateMatch(s.Ctx, s.newMatch("match-1")))
	s.ErrorIs(s.Storage.CreateMatch(s.Ctx, s.newMatch("match-1")), storage.ErrConflict)
}

func (s *Suite) TestUpdateMatchPersistsAndBumpsVersion() {
	m := s.newMatch("match-1")
	s.Require().NoError(s.Storage.CreateMatch(s.Ctx, m))

	m.Board[0] = model.MarkX
	m.CurrentPlayerID = "bob"
	s.Require().NoError(s.Storage.UpdateMatch(s.Ctx, m))
	s.Equal(int64(1), m.Version)

	retrieved, err := s.Storage.GetMatch(s.Ctx, "match-1")
	s.Require().NoError(err)
	s.Equal(model.MarkX, retrieved.Board[0])
	s.Equal(model.UserID("bob"), retrieved.CurrentPlayerID)
	s.Equal(int64(1), retrieved.Version)
}

func (s *Suite) TestUpdateMatchDetectsStaleVersion() {
	s.Require().NoError(s.Storage.CreateMatch(s.Ctx, s.newMatch("match-1")))

	first, err := s.Storage.GetMatch(s.Ctx, "match-1")
	s.Require().NoError(err)
	second, err := s.Storage.GetMatch(s.Ctx, "match-1")
	s.Require().NoError(err)

	first.Board[0] = model.MarkX
	s.Require().NoError(s.Storage.UpdateMatch(s.Ctx, first))

	second.Board[1] = model.MarkX
	s.ErrorIs(s.Storage.UpdateMatch(s.Ctx, second), storage.ErrConflict)

	stored, err := s.Storage.GetMatch(s.Ctx, "match-1")
	s.Require().NoError(err)
	s.Equal(model.MarkEmpty, stored.Board[1])
}

func (s *Suite) TestConcurrentMatchUpdatesHaveOneWinner() {
	s.Require().NoError(s.Storage.CreateMatch(s.Ctx, s.newMatch("match-1")))

	const writers = 8
	var wg sync.WaitGroup
	results := make(chan error, writers)
	for i := range writers {
		m, err := s.Storage.GetMatch(s.Ctx, "match-1")
		s.Require().NoError(err)
		wg.Add(1)
		go func(pos int) {
			defer wg.Done()
			m.Board[pos] = model.MarkX
			results <- s.Storage.UpdateMatch(s.Ctx, m)
		}(i)
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			s.ErrorIs(err, storage.ErrConflict)
		}
	}
	s.Equal(1, succeeded)
}

// Move tests

func (s *Suite) TestAppendAndListMoves() {
	for i, pos := range []int{4, 0, 8} {
		mv := &model.Move{
			ID:        model.MoveID(fmt.Sprintf("move-%d", i+1)),
			MatchID:   "match-1",
			PlayerID:  "alice",
			Position:  pos,
			Mark:      model.MarkX,
			Seq:       i + 1,
			CreatedAt: baseTime.Add(time.Duration(i) * time.Second),
		}
		s.Require().NoError(s.Storage.AppendMove(s.Ctx, mv))
	}
	s.Require().NoError(s.Storage.AppendMove(s.Ctx, &model.Move{ID: "other", MatchID: "match-2", Seq: 1}))

	moves, err := s.Storage.ListMoves(s.Ctx, "match-1")
	s.Require().NoError(err)
	s.Require().Len(moves, 3)
	s.Equal([]int{4, 0, 8}, []int{moves[0].Position, moves[1].Position, moves[2].Position})
	s.Equal(model.MarkX, moves[0].Mark)
	s.Equal(1, moves[0].Seq)
}

func (s *Suite) TestListMovesEmpty() {
	moves, err := s.Storage.ListMoves(s.Ctx, "match-1")
	s.Require().NoError(err)
	s.Empty(moves)
}

// Event log tests

func (s *Suite) TestAppendAndRecentLogs() {
	for i := range 3 {
		entry := &model.LogEntry{
			ID:        fmt.Sprintf("log-%d", i),
			Kind:      model.LogKindGameEvent,
			Name:      "move_made",
			MatchID:   "match-1",
			UserID:    "alice",
			Data:      map[string]any{"position": float64(i)},
			CreatedAt: baseTime.Add(time.Duration(i) * time.Second),
		}
		s.Require().NoError(s.Storage.AppendLog(s.Ctx, entry))
	}

	logs, err := s.Storage.RecentLogs(s.Ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(logs, 2)
	s.Equal("log-2", logs[0].ID)
	s.Equal("log-1", logs[1].ID)
	s.Equal(model.LogKindGameEvent, logs[0].Kind)
	s.Equal(model.MatchID("match-1"), logs[0].MatchID)
	s.Equal(float64(2), logs[0].Data["position"])
}
