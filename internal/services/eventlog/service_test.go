package eventlog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/tictactoe-go/internal/dependencies/mocks"
	"github.com/mcoot/tictactoe-go/internal/model"
	"github.com/mcoot/tictactoe-go/internal/services/eventbus"
	"github.com/mcoot/tictactoe-go/internal/storage/memory"
	"github.com/mcoot/tictactoe-go/internal/testutil"
)

type ServiceSuite struct {
	suite.Suite
	storage *memory.Storage
	clock   *mocks.MockClock
	bus     *eventbus.Bus
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.bus = eventbus.New(testutil.NopLogger())
	s.service = New(s.storage, s.clock, mocks.NewMockRandom(), testutil.NopLogger())
	s.service.Attach(s.bus)
	s.ctx = context.Background()
}

func (s *ServiceSuite) TearDownTest() {
	s.bus.Close()
}

func (s *ServiceSuite) TestRecordsEventsFromBus() {
	match := &model.Match{ID: "m1", Player1ID: "alice", Player2ID: "bob", Status: model.MatchStatusInProgress}
	s.bus.Publish(model.Event{
		Type:      model.EventUserOnline,
		Timestamp: s.clock.Now(),
		UserID:    "alice",
		Payload:   model.UserPresencePayload{User: model.User{ID: "alice", DisplayName: "Alice"}},
	})
	s.bus.Publish(model.Event{
		Type:      model.EventMatchStarted,
		Timestamp: s.clock.Now(),
		UserID:    "bob",
		MatchID:   match.ID,
		Payload:   model.MatchStartedPayload{Match: match},
	})
	s.bus.Close()

	logs, err := s.service.Recent(s.ctx, 0)
	s.Require().NoError(err)
	s.Require().Len(logs, 2)

	started, online := logs[0], logs[1]
	s.Equal(model.LogKindGameEvent, started.Kind)
	s.Equal(string(model.EventMatchStarted), started.Name)
	s.Equal(match.ID, started.MatchID)
	s.Equal("alice", started.Data["player1_id"])

	s.Equal(model.LogKindEvent, online.Kind)
	s.Equal(model.UserID("alice"), online.UserID)
	s.Equal("Alice", online.Data["display_name"])
	s.NotEmpty(online.ID)
}

func (s *ServiceSuite) TestRecordError() {
	s.service.RecordError(s.ctx, "make_move", "bob", "m1", model.ErrNotPlayerTurn)

	logs, err := s.service.Recent(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(logs, 1)
	s.Equal(model.LogKindError, logs[0].Kind)
	s.Equal("make_move", logs[0].Name)
	s.Equal(model.MatchID("m1"), logs[0].MatchID)
	s.Equal(true, logs[0].Data["domain"])
	s.Contains(logs[0].Data["message"], "not this player's turn")
}

func (s *ServiceSuite) TestDetachStopsRecording() {
	bus := eventbus.New(testutil.NopLogger())
	detach := s.service.Attach(bus)
	detach()

	for _, t := range model.AllEventTypes {
		s.Equal(0, bus.SubscriberCount(t))
	}
	bus.Close()
}
