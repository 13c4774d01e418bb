package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/tictactoe-go/internal/dependencies/mocks"
	"github.com/mcoot/tictactoe-go/internal/model"
	"github.com/mcoot/tictactoe-go/internal/services/matchfactory"
	"github.com/mcoot/tictactoe-go/internal/storage"
	"github.com/mcoot/tictactoe-go/internal/storage/memory"
	"github.com/mcoot/tictactoe-go/internal/testutil"
)

const (
	alice model.UserID = "alice"
	bob   model.UserID = "bob"
	carol model.UserID = "carol"
)

type recordedError struct {
	op      string
	userID  model.UserID
	matchID model.MatchID
	err     error
}

type errorRecorder struct {
	mu     sync.Mutex
	errors []recordedError
}

func (r *errorRecorder) RecordError(_ context.Context, op string, userID model.UserID, matchID model.MatchID, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, recordedError{op: op, userID: userID, matchID: matchID, err: err})
}

type CoordinatorSuite struct {
	suite.Suite
	storage     *memory.Storage
	clock       *mocks.MockClock
	random      *mocks.MockRandom
	events      *testutil.EventRecorder
	recorder    *errorRecorder
	coordinator *Coordinator
	ctx         context.Context
}

func TestCoordinatorSuite(t *testing.T) {
	suite.Run(t, new(CoordinatorSuite))
}

func (s *CoordinatorSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.events = testutil.NewEventRecorder()
	s.recorder = &errorRecorder{}
	s.ctx = context.Background()
	s.coordinator = s.newCoordinator(s.storage)

	for _, id := range []model.UserID{alice, bob, carol} {
		s.Require().NoError(s.storage.SaveUser(s.ctx, &model.User{ID: id, DisplayName: string(id)}))
		s.Require().NoError(s.storage.SetOnline(s.ctx, id, true))
	}
}

func (s *CoordinatorSuite) newCoordinator(st storage.Storage) *Coordinator {
	return New(st, st, matchfactory.New(s.clock, s.random), s.events, s.recorder, s.clock, testutil.NopLogger())
}

func (s *CoordinatorSuite) invite(from, to model.UserID) *model.Invitation {
	inv, err := s.coordinator.CreateInvitation(s.ctx, from, to)
	s.Require().NoError(err)
	return inv
}

// startMatch runs the invitation round trip and clears the recorded events
func (s *CoordinatorSuite) startMatch(from, to model.UserID) *model.Match {
	inv := s.invite(from, to)
	match, err := s.coordinator.AcceptInvitation(s.ctx, inv.ID, to)
	s.Require().NoError(err)
	s.events.Reset()
	return match
}

func (s *CoordinatorSuite) play(matchID model.MatchID, moves ...int) *MoveResult {
	var result *MoveResult
	for _, pos := range moves {
		match, err := s.storage.GetMatch(s.ctx, matchID)
		s.Require().NoError(err)
		result, err = s.coordinator.MakeMove(s.ctx, matchID, match.CurrentPlayerID, pos)
		s.Require().NoError(err, "move at %d", pos)
	}
	return result
}

// CreateInvitation tests

func (s *CoordinatorSuite) TestCreateInvitationSucceeds() {
	inv := s.invite(alice, bob)

	s.Equal(alice, inv.FromUserID)
	s.Equal(bob, inv.ToUserID)
	s.Equal(model.InvitationStatusPending, inv.Status)
	s.Equal(s.clock.Now().Add(model.InvitationTTL), inv.ExpiresAt)

	stored, err := s.storage.GetInvitation(s.ctx, inv.ID)
	s.Require().NoError(err)
	s.Equal(model.InvitationStatusPending, stored.Status)

	events := s.events.Events()
	s.Require().Len(events, 1)
	s.Equal(model.EventInvitationCreated, events[0].Type)
	s.Equal(alice, events[0].UserID)
	s.Equal(inv.ID, events[0].Payload.(model.InvitationPayload).Invitation.ID)
}

func (s *CoordinatorSuite) TestCreateInvitationToSelfFails() {
	_, err := s.coordinator.CreateInvitation(s.ctx, alice, alice)
	s.ErrorIs(err, model.ErrSelfInvitation)
	s.ErrorIs(err, model.ErrInvalidOperation)
	s.Empty(s.events.Events())
}

func (s *CoordinatorSuite) TestCreateInvitationToOfflineUserFails() {
	s.Require().NoError(s.storage.SetOnline(s.ctx, bob, false))

	_, err := s.coordinator.CreateInvitation(s.ctx, alice, bob)
	s.ErrorIs(err, model.ErrUserOffline)
	s.ErrorIs(err, model.ErrInvalidOperation)
}

func (s *CoordinatorSuite) TestCreateInvitationTwiceFails() {
	s.invite(alice, bob)

	_, err := s.coordinator.CreateInvitation(s.ctx, alice, bob)
	s.ErrorIs(err, model.ErrDuplicateInvitation)
	s.ErrorIs(err, model.ErrInvalidOperation)
	s.Len(s.events.Events(), 1)
}

func (s *CoordinatorSuite) TestCreateInvitationOppositeDirectionAllowed() {
	s.invite(alice, bob)
	inv := s.invite(bob, alice)
	s.Equal(bob, inv.FromUserID)
}

func (s *CoordinatorSuite) TestCreateInvitationReplacesExpiredPending() {
	old := s.invite(alice, bob)
	s.clock.Advance(model.InvitationTTL + time.Second)

	fresh := s.invite(alice, bob)
	s.NotEqual(old.ID, fresh.ID)

	stored, err := s.storage.GetInvitation(s.ctx, old.ID)
	s.Require().NoError(err)
	s.Equal(model.InvitationStatusExpired, stored.Status)
}

func (s *CoordinatorSuite) TestCreateInvitationAfterAcceptAllowed() {
	s.startMatch(alice, bob)
	s.invite(alice, bob)
}

func (s *CoordinatorSuite) TestCreateInvitationConcurrentOnlyOneWins() {
	const attempts = 20
	var wg sync.WaitGroup
	errs := make(chan error, attempts)

	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.coordinator.CreateInvitation(s.ctx, alice, bob)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		s.ErrorIs(err, model.ErrDuplicateInvitation)
	}
	s.Equal(1, succeeded)
	s.Len(s.events.OfType(model.EventInvitationCreated), 1)
}

// AcceptInvitation tests

func (s *CoordinatorSuite) TestAcceptInvitationStartsMatch() {
	inv := s.invite(alice, bob)
	s.events.Reset()

	match, err := s.coordinator.AcceptInvitation(s.ctx, inv.ID, bob)
	s.Require().NoError(err)

	s.Equal(alice, match.Player1ID)
	s.Equal(bob, match.Player2ID)
	s.Equal(alice, match.CurrentPlayerID)
	s.Equal(model.MatchStatusInProgress, match.Status)
	s.Equal(model.Board{}, match.Board)
	s.Empty(match.WinnerID)

	stored, err := s.storage.GetInvitation(s.ctx, inv.ID)
	s.Require().NoError(err)
	s.Equal(model.InvitationStatusAccepted, stored.Status)

	persisted, err := s.storage.GetMatch(s.ctx, match.ID)
	s.Require().NoError(err)
	s.Equal(model.MatchStatusInProgress, persisted.Status)

	s.Equal([]model.EventType{model.EventInvitationAccepted, model.EventMatchStarted}, s.events.Types())
	accepted := s.events.Events()[0].Payload.(model.InvitationAcceptedPayload)
	s.Equal(inv.ID, accepted.Invitation.ID)
	s.Equal(match.ID, accepted.Match.ID)
}

func (s *CoordinatorSuite) TestAcceptInvitationNotFound() {
	_, err := s.coordinator.AcceptInvitation(s.ctx, "missing", bob)
	s.ErrorIs(err, model.ErrInvitationNotFound)
	s.ErrorIs(err, model.ErrNotFound)
}

func (s *CoordinatorSuite) TestAcceptInvitationByOtherUserForbidden() {
	inv := s.invite(alice, bob)

	_, err := s.coordinator.AcceptInvitation(s.ctx, inv.ID, alice)
	s.ErrorIs(err, model.ErrForbidden)

	_, err = s.coordinator.AcceptInvitation(s.ctx, inv.ID, carol)
	s.ErrorIs(err, model.ErrForbidden)
}

func (s *CoordinatorSuite) TestAcceptInvitationTwiceFails() {
	inv := s.invite(alice, bob)
	_, err := s.coordinator.AcceptInvitation(s.ctx, inv.ID, bob)
	s.Require().NoError(err)

	_, err = s.coordinator.AcceptInvitation(s.ctx, inv.ID, bob)
	s.ErrorIs(err, model.ErrInvitationNotPending)
	s.ErrorIs(err, model.ErrInvalidOperation)
}

func (s *CoordinatorSuite) TestAcceptInvitationAfterExpiryMarksExpired() {
	inv := s.invite(alice, bob)
	s.events.Reset()
	s.clock.Advance(model.InvitationTTL + time.Second)

	_, err := s.coordinator.AcceptInvitation(s.ctx, inv.ID, bob)
	s.ErrorIs(err, model.ErrInvitationExpired)
	s.ErrorIs(err, model.ErrInvalidOperation)

	stored, err := s.storage.GetInvitation(s.ctx, inv.ID)
	s.Require().NoError(err)
	s.Equal(model.InvitationStatusExpired, stored.Status)
	s.Empty(s.events.Events())

	_, err = s.coordinator.AcceptInvitation(s.ctx, inv.ID, bob)
	s.ErrorIs(err, model.ErrInvitationNotPending)
}

func (s *CoordinatorSuite) TestAcceptInvitationAtExpiryInstantSucceeds() {
	inv := s.invite(alice, bob)
	s.clock.Set(inv.ExpiresAt)

	_, err := s.coordinator.AcceptInvitation(s.ctx, inv.ID, bob)
	s.NoError(err)
}

func (s *CoordinatorSuite) TestAcceptInvitationConcurrentOnlyOneMatch() {
	inv := s.invite(alice, bob)
	s.events.Reset()

	const attempts = 10
	var wg sync.WaitGroup
	matches := make(chan *model.Match, attempts)
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if match, err := s.coordinator.AcceptInvitation(s.ctx, inv.ID, bob); err == nil {
				matches <- match
			} else {
				s.ErrorIs(err, model.ErrInvitationNotPending)
			}
		}()
	}
	wg.Wait()
	close(matches)

	s.Len(matches, 1)
	s.Len(s.events.OfType(model.EventMatchStarted), 1)
}

func (s *CoordinatorSuite) TestAcceptInvitationRestoresPendingWhenMatchCreationFails() {
	store := &matchlessStorage{Storage: s.storage, err: errors.New("disk full")}
	s.coordinator = s.newCoordinator(store)
	inv := s.invite(alice, bob)
	s.events.Reset()

	_, err := s.coordinator.AcceptInvitation(s.ctx, inv.ID, bob)
	s.ErrorIs(err, model.ErrInfrastructure)
	s.Empty(s.events.Events())

	stored, err := s.storage.GetInvitation(s.ctx, inv.ID)
	s.Require().NoError(err)
	s.Equal(model.InvitationStatusPending, stored.Status)
	pending, err := s.storage.FindPendingInvitation(s.ctx, alice, bob)
	s.Require().NoError(err)
	s.Equal(inv.ID, pending.ID)

	_, err = s.coordinator.CreateInvitation(s.ctx, alice, bob)
	s.ErrorIs(err, model.ErrDuplicateInvitation)

	store.err = nil
	match, err := s.coordinator.AcceptInvitation(s.ctx, inv.ID, bob)
	s.Require().NoError(err)
	s.Equal(model.MatchStatusInProgress, match.Status)
}

// RejectInvitation tests

func (s *CoordinatorSuite) TestRejectInvitation() {
	inv := s.invite(alice, bob)
	s.events.Reset()

	rejected, err := s.coordinator.RejectInvitation(s.ctx, inv.ID, bob)
	s.Require().NoError(err)
	s.Equal(model.InvitationStatusRejected, rejected.Status)

	stored, err := s.storage.GetInvitation(s.ctx, inv.ID)
	s.Require().NoError(err)
	s.Equal(model.InvitationStatusRejected, stored.Status)
	s.Equal([]model.EventType{model.EventInvitationRejected}, s.events.Types())

	_, err = s.coordinator.AcceptInvitation(s.ctx, inv.ID, bob)
	s.ErrorIs(err, model.ErrInvitationNotPending)
}

func (s *CoordinatorSuite) TestRejectInvitationByInviterForbidden() {
	inv := s.invite(alice, bob)

	_, err := s.coordinator.RejectInvitation(s.ctx, inv.ID, alice)
	s.ErrorIs(err, model.ErrNotInvitee)
}

func (s *CoordinatorSuite) TestRejectInvitationIgnoresExpiry() {
	inv := s.invite(alice, bob)
	s.clock.Advance(time.Hour)

	rejected, err := s.coordinator.RejectInvitation(s.ctx, inv.ID, bob)
	s.Require().NoError(err)
	s.Equal(model.InvitationStatusRejected, rejected.Status)
}

// MakeMove tests

func (s *CoordinatorSuite) TestMakeMoveAlternatesTurns() {
	match := s.startMatch(alice, bob)

	result, err := s.coordinator.MakeMove(s.ctx, match.ID, alice, 4)
	s.Require().NoError(err)
	s.Equal(bob, result.Match.CurrentPlayerID)
	s.Equal(model.MarkX, result.Match.Board[4])
	s.Equal(model.MarkX, result.Move.Mark)
	s.Equal(1, result.Move.Seq)
	s.Equal(model.MatchStatusInProgress, result.Classification.Status)

	result, err = s.coordinator.MakeMove(s.ctx, match.ID, bob, 0)
	s.Require().NoError(err)
	s.Equal(alice, result.Match.CurrentPlayerID)
	s.Equal(model.MarkO, result.Match.Board[0])
	s.Equal(2, result.Move.Seq)

	s.Equal([]model.EventType{model.EventMoveMade, model.EventMoveMade}, s.events.Types())
}

func (s *CoordinatorSuite) TestMakeMoveWinningLineFinishesMatch() {
	match := s.startMatch(alice, bob)

	result := s.play(match.ID, 0, 3, 1, 4, 2)

	s.Equal(model.MatchStatusFinished, result.Match.Status)
	s.Equal(alice, result.Match.WinnerID)
	s.Empty(result.Match.CurrentPlayerID)
	s.Equal(model.MarkX, result.Classification.Winner)
	s.Equal(&model.Triple{0, 1, 2}, result.Classification.WinningTriple)
	s.False(result.Classification.IsDraw)

	s.Len(s.events.OfType(model.EventMoveMade), 5)
	finished := s.events.OfType(model.EventMatchFinished)
	s.Require().Len(finished, 1)
	s.Equal(alice, finished[0].Payload.(model.MatchFinishedPayload).Match.WinnerID)
	s.Equal(model.EventMatchFinished, s.events.Types()[5])
}

func (s *CoordinatorSuite) TestMakeMoveSecondPlayerCanWin() {
	match := s.startMatch(alice, bob)

	result := s.play(match.ID, 0, 6, 1, 7, 5, 8)

	s.Equal(bob, result.Match.WinnerID)
	s.Equal(model.MarkO, result.Classification.Winner)
}

func (s *CoordinatorSuite) TestMakeMoveFullBoardIsDraw() {
	match := s.startMatch(alice, bob)

	result := s.play(match.ID, 0, 1, 2, 4, 3, 5, 7, 6, 8)

	s.Equal(model.MatchStatusFinished, result.Match.Status)
	s.True(result.Classification.IsDraw)
	s.Empty(result.Match.WinnerID)
	s.Empty(result.Match.CurrentPlayerID)
	s.Len(s.events.OfType(model.EventMatchFinished), 1)
}

func (s *CoordinatorSuite) TestMakeMoveRecordsMoves() {
	match := s.startMatch(alice, bob)
	s.play(match.ID, 4, 0, 8)

	moves, err := s.coordinator.ListMoves(s.ctx, match.ID, bob)
	s.Require().NoError(err)
	s.Require().Len(moves, 3)
	for i, mv := range moves {
		s.Equal(i+1, mv.Seq)
	}
	s.Equal([]int{4, 0, 8}, []int{moves[0].Position, moves[1].Position, moves[2].Position})
	s.Equal(alice, moves[0].PlayerID)
	s.Equal(bob, moves[1].PlayerID)
}

func (s *CoordinatorSuite) TestMakeMoveOutOfTurnFails() {
	match := s.startMatch(alice, bob)

	_, err := s.coordinator.MakeMove(s.ctx, match.ID, bob, 0)
	s.ErrorIs(err, model.ErrNotPlayerTurn)
	s.ErrorIs(err, model.ErrInvalidOperation)
	s.Empty(s.events.Events())
}

func (s *CoordinatorSuite) TestMakeMoveByOutsiderForbidden() {
	match := s.startMatch(alice, bob)

	_, err := s.coordinator.MakeMove(s.ctx, match.ID, carol, 0)
	s.ErrorIs(err, model.ErrNotParticipant)
	s.ErrorIs(err, model.ErrForbidden)
}

func (s *CoordinatorSuite) TestMakeMoveOnOccupiedCellFails() {
	match := s.startMatch(alice, bob)
	s.play(match.ID, 4)

	_, err := s.coordinator.MakeMove(s.ctx, match.ID, bob, 4)
	s.ErrorIs(err, model.ErrIllegalMove)
	s.ErrorIs(err, model.ErrInvalidOperation)

	stored, err := s.storage.GetMatch(s.ctx, match.ID)
	s.Require().NoError(err)
	s.Equal(bob, stored.CurrentPlayerID)
}

func (s *CoordinatorSuite) TestMakeMoveOutOfRangeFails() {
	match := s.startMatch(alice, bob)

	for _, pos := range []int{-1, 9, 100} {
		_, err := s.coordinator.MakeMove(s.ctx, match.ID, alice, pos)
		s.ErrorIs(err, model.ErrIllegalMove, "position %d", pos)
	}
}

func (s *CoordinatorSuite) TestMakeMoveUnknownMatch() {
	_, err := s.coordinator.MakeMove(s.ctx, "missing", alice, 0)
	s.ErrorIs(err, model.ErrMatchNotFound)
}

func (s *CoordinatorSuite) TestMakeMoveAfterFinishFails() {
	match := s.startMatch(alice, bob)
	s.play(match.ID, 0, 3, 1, 4, 2)

	_, err := s.coordinator.MakeMove(s.ctx, match.ID, bob, 5)
	s.ErrorIs(err, model.ErrMatchNotActive)

	// Status is checked before participation
	_, err = s.coordinator.MakeMove(s.ctx, match.ID, carol, 5)
	s.ErrorIs(err, model.ErrMatchNotActive)
}

func (s *CoordinatorSuite) TestMakeMoveConcurrentOnlyOneApplied() {
	match := s.startMatch(alice, bob)

	var wg sync.WaitGroup
	results := make(chan error, model.BoardSize)
	for pos := range model.BoardSize {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.coordinator.MakeMove(s.ctx, match.ID, alice, pos)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		s.ErrorIs(err, model.ErrNotPlayerTurn)
	}
	s.Equal(1, succeeded)

	stored, err := s.storage.GetMatch(s.ctx, match.ID)
	s.Require().NoError(err)
	s.Equal(1, stored.Board.Count(model.MarkX))
	s.Equal(bob, stored.CurrentPlayerID)
}

func (s *CoordinatorSuite) TestMakeMoveCorruptBoardIsInfrastructureError() {
	corrupt := &model.Match{
		ID:              "corrupt",
		Player1ID:       alice,
		Player2ID:       bob,
		Board:           model.Board{model.MarkX, model.MarkX, model.MarkX, model.MarkX},
		Status:          model.MatchStatusInProgress,
		CurrentPlayerID: alice,
	}
	s.Require().NoError(s.storage.CreateMatch(s.ctx, corrupt))

	_, err := s.coordinator.MakeMove(s.ctx, corrupt.ID, alice, 8)
	s.ErrorIs(err, model.ErrInfrastructure)
	s.ErrorIs(err, model.ErrInvalidBoardState)
}

// AbandonMatch tests

func (s *CoordinatorSuite) TestAbandonMatchOpponentWins() {
	match := s.startMatch(alice, bob)
	s.play(match.ID, 4)

	abandoned, err := s.coordinator.AbandonMatch(s.ctx, match.ID, alice)
	s.Require().NoError(err)

	s.Equal(model.MatchStatusAbandoned, abandoned.Status)
	s.Equal(bob, abandoned.WinnerID)
	s.Empty(abandoned.CurrentPlayerID)

	events := s.events.OfType(model.EventMatchAbandoned)
	s.Require().Len(events, 1)
	s.Equal(alice, events[0].Payload.(model.MatchAbandonedPayload).AbandonedBy)
}

func (s *CoordinatorSuite) TestAbandonMatchOutOfTurnAllowed() {
	match := s.startMatch(alice, bob)

	abandoned, err := s.coordinator.AbandonMatch(s.ctx, match.ID, bob)
	s.Require().NoError(err)
	s.Equal(alice, abandoned.WinnerID)
}

func (s *CoordinatorSuite) TestAbandonMatchTwiceFails() {
	match := s.startMatch(alice, bob)
	_, err := s.coordinator.AbandonMatch(s.ctx, match.ID, alice)
	s.Require().NoError(err)

	_, err = s.coordinator.AbandonMatch(s.ctx, match.ID, bob)
	s.ErrorIs(err, model.ErrMatchNotActive)

	_, err = s.coordinator.MakeMove(s.ctx, match.ID, alice, 0)
	s.ErrorIs(err, model.ErrMatchNotActive)
}

func (s *CoordinatorSuite) TestAbandonMatchByOutsiderForbidden() {
	match := s.startMatch(alice, bob)

	_, err := s.coordinator.AbandonMatch(s.ctx, match.ID, carol)
	s.ErrorIs(err, model.ErrNotParticipant)
}

func (s *CoordinatorSuite) TestMoveRacingAbandonStaysConsistent() {
	match := s.startMatch(alice, bob)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = s.coordinator.MakeMove(s.ctx, match.ID, alice, 0)
	}()
	go func() {
		defer wg.Done()
		_, _ = s.coordinator.AbandonMatch(s.ctx, match.ID, bob)
	}()
	wg.Wait()

	stored, err := s.storage.GetMatch(s.ctx, match.ID)
	s.Require().NoError(err)
	s.Equal(model.MatchStatusAbandoned, stored.Status)
	s.Empty(stored.CurrentPlayerID)
	s.Equal(alice, stored.WinnerID)
	s.LessOrEqual(stored.Board.Count(model.MarkX), 1)
}

// Read tests

func (s *CoordinatorSuite) TestGetMatchForParticipants() {
	match := s.startMatch(alice, bob)

	for _, user := range []model.UserID{alice, bob} {
		got, err := s.coordinator.GetMatch(s.ctx, match.ID, user)
		s.Require().NoError(err)
		s.Equal(match.ID, got.ID)
	}

	_, err := s.coordinator.GetMatch(s.ctx, match.ID, carol)
	s.ErrorIs(err, model.ErrForbidden)

	_, err = s.coordinator.ListMoves(s.ctx, match.ID, carol)
	s.ErrorIs(err, model.ErrForbidden)
}

// Error side channel tests

func (s *CoordinatorSuite) TestFailedOperationsAreRecorded() {
	match := s.startMatch(alice, bob)

	_, _ = s.coordinator.MakeMove(s.ctx, match.ID, bob, 0)

	s.recorder.mu.Lock()
	defer s.recorder.mu.Unlock()
	s.Require().Len(s.recorder.errors, 1)
	recorded := s.recorder.errors[0]
	s.Equal("make_move", recorded.op)
	s.Equal(bob, recorded.userID)
	s.Equal(match.ID, recorded.matchID)
	s.ErrorIs(recorded.err, model.ErrNotPlayerTurn)
}

func (s *CoordinatorSuite) TestUnrecordedMoveIsReported() {
	match := s.startMatch(alice, bob)
	store := &unloggedStorage{Storage: s.storage, err: errors.New("disk full")}
	logger, logs := testutil.NewCaptureLogger()
	s.coordinator = New(store, store, matchfactory.New(s.clock, s.random), s.events, s.recorder, s.clock, logger)

	result, err := s.coordinator.MakeMove(s.ctx, match.ID, alice, 4)
	s.Require().NoError(err)
	s.Equal(bob, result.Match.CurrentPlayerID)

	record, ok := logs.Find("move applied but not recorded")
	s.Require().True(ok)
	s.Equal("ERROR", record[slog.LevelKey])
	s.Equal(string(match.ID), record["match_id"])

	moves, err := s.storage.ListMoves(s.ctx, match.ID)
	s.Require().NoError(err)
	s.Empty(moves)

	s.recorder.mu.Lock()
	defer s.recorder.mu.Unlock()
	s.Require().Len(s.recorder.errors, 1)
	recorded := s.recorder.errors[0]
	s.Equal("append_move", recorded.op)
	s.Equal(alice, recorded.userID)
	s.Equal(match.ID, recorded.matchID)
	s.ErrorIs(recorded.err, model.ErrInfrastructure)
}

func (s *CoordinatorSuite) TestStorageFailureIsInfrastructureError() {
	match := s.startMatch(alice, bob)
	failing := &failingStorage{Storage: s.storage, err: errors.New("connection refused")}
	s.coordinator = s.newCoordinator(failing)

	_, err := s.coordinator.MakeMove(s.ctx, match.ID, alice, 0)
	s.ErrorIs(err, model.ErrInfrastructure)
	s.False(model.IsDomainError(err))

	_, err = s.coordinator.CreateInvitation(s.ctx, alice, carol)
	s.ErrorIs(err, model.ErrInfrastructure)
	s.Empty(s.events.Events())
}

// failingStorage fails every read used by the coordinator
type failingStorage struct {
	*memory.Storage
	err error
}

func (f *failingStorage) GetMatch(context.Context, model.MatchID) (*model.Match, error) {
	return nil, f.err
}

func (f *failingStorage) IsOnline(context.Context, model.UserID) (bool, error) {
	return false, f.err
}

// matchlessStorage fails match creation while err is set
type matchlessStorage struct {
	storage.Storage
	err error
}

func (m *matchlessStorage) CreateMatch(ctx context.Context, match *model.Match) error {
	if m.err != nil {
		return m.err
	}
	return m.Storage.CreateMatch(ctx, match)
}

// unloggedStorage fails every move append
type unloggedStorage struct {
	storage.Storage
	err error
}

func (u *unloggedStorage) AppendMove(context.Context, *model.Move) error {
	return u.err
}
