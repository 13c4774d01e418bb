package eventbus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/tictactoe-go/internal/model"
	"github.com/mcoot/tictactoe-go/internal/testutil"
)

type BusSuite struct {
	suite.Suite
	bus *Bus
}

func TestBusSuite(t *testing.T) {
	suite.Run(t, new(BusSuite))
}

func (s *BusSuite) SetupTest() {
	s.bus = New(testutil.NopLogger())
}

func (s *BusSuite) TearDownTest() {
	s.bus.Close()
}

func event(t model.EventType, matchID string) model.Event {
	return model.Event{Type: t, MatchID: model.MatchID(matchID)}
}

func (s *BusSuite) TestDeliversToTopicSubscribers() {
	moves := testutil.NewEventRecorder()
	online := testutil.NewEventRecorder()
	s.bus.Subscribe(model.EventMoveMade, "moves", moves.Handle)
	s.bus.Subscribe(model.EventUserOnline, "online", online.Handle)

	s.bus.Publish(event(model.EventMoveMade, "m1"))

	s.Eventually(func() bool { return len(moves.Events()) == 1 }, time.Second, 5*time.Millisecond)
	s.Empty(online.Events())
}

func (s *BusSuite) TestPreservesPublishOrderPerSubscriber() {
	rec := testutil.NewEventRecorder()
	s.bus.Subscribe(model.EventMoveMade, "rec", rec.Handle)

	for _, id := range []string{"a", "b", "c", "d", "e"} {
		s.bus.Publish(event(model.EventMoveMade, id))
	}
	s.bus.Close()

	var ids []model.MatchID
	for _, e := range rec.Events() {
		ids = append(ids, e.MatchID)
	}
	s.Equal([]model.MatchID{"a", "b", "c", "d", "e"}, ids)
}

func (s *BusSuite) TestSubscribeManyKeepsOrderAcrossTopics() {
	rec := testutil.NewEventRecorder()
	s.bus.SubscribeMany([]model.EventType{model.EventMoveMade, model.EventMatchFinished}, "rec", rec.Handle)

	s.bus.Publish(event(model.EventMoveMade, "m1"))
	s.bus.Publish(event(model.EventMatchFinished, "m1"))
	s.bus.Publish(event(model.EventUserOnline, ""))
	s.bus.Publish(event(model.EventMoveMade, "m2"))
	s.bus.Close()

	s.Equal([]model.EventType{model.EventMoveMade, model.EventMatchFinished, model.EventMoveMade}, rec.Types())
}

func (s *BusSuite) TestEverySubscriberGetsEachEvent() {
	first := testutil.NewEventRecorder()
	second := testutil.NewEventRecorder()
	s.bus.Subscribe(model.EventMatchStarted, "first", first.Handle)
	s.bus.Subscribe(model.EventMatchStarted, "second", second.Handle)

	s.bus.Publish(event(model.EventMatchStarted, "m1"))
	s.bus.Close()

	s.Len(first.Events(), 1)
	s.Len(second.Events(), 1)
}

func (s *BusSuite) TestPublishWithoutSubscribersIsNoop() {
	s.NotPanics(func() {
		s.bus.Publish(event(model.EventUserOffline, ""))
	})
}

func (s *BusSuite) TestFailingHandlerDoesNotAffectOthers() {
	rec := testutil.NewEventRecorder()
	s.bus.Subscribe(model.EventMoveMade, "failing", func(context.Context, model.Event) error {
		return errors.New("boom")
	})
	s.bus.Subscribe(model.EventMoveMade, "panicking", func(context.Context, model.Event) error {
		panic("boom")
	})
	s.bus.Subscribe(model.EventMoveMade, "rec", rec.Handle)

	s.bus.Publish(event(model.EventMoveMade, "m1"))
	s.bus.Publish(event(model.EventMoveMade, "m2"))
	s.bus.Close()

	s.Len(rec.Events(), 2)
}

func (s *BusSuite) TestPanickingHandlerKeepsReceiving() {
	var mu sync.Mutex
	calls := 0
	s.bus.Subscribe(model.EventMoveMade, "panicking", func(context.Context, model.Event) error {
		mu.Lock()
		calls++
		mu.Unlock()
		panic("boom")
	})

	s.bus.Publish(event(model.EventMoveMade, "m1"))
	s.bus.Publish(event(model.EventMoveMade, "m2"))
	s.bus.Close()

	mu.Lock()
	defer mu.Unlock()
	s.Equal(2, calls)
}

func (s *BusSuite) TestSlowHandlerDoesNotBlockPublisherOrOthers() {
	release := make(chan struct{})
	s.bus.Subscribe(model.EventMoveMade, "slow", func(context.Context, model.Event) error {
		<-release
		return nil
	})
	rec := testutil.NewEventRecorder()
	s.bus.Subscribe(model.EventMoveMade, "fast", rec.Handle)

	done := make(chan struct{})
	go func() {
		for range 100 {
			s.bus.Publish(event(model.EventMoveMade, "m"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		s.Fail("publish blocked on a slow handler")
	}
	s.Eventually(func() bool { return len(rec.Events()) == 100 }, time.Second, 5*time.Millisecond)
	close(release)
}

func (s *BusSuite) TestUnsubscribeStopsDelivery() {
	rec := testutil.NewEventRecorder()
	unsubscribe := s.bus.Subscribe(model.EventMoveMade, "rec", rec.Handle)
	s.Equal(1, s.bus.SubscriberCount(model.EventMoveMade))

	unsubscribe()
	s.Equal(0, s.bus.SubscriberCount(model.EventMoveMade))

	s.bus.Publish(event(model.EventMoveMade, "m1"))
	s.bus.Close()
	s.Empty(rec.Events())
}

func (s *BusSuite) TestCloseIsIdempotentAndIgnoresLatePublishes() {
	rec := testutil.NewEventRecorder()
	s.bus.Subscribe(model.EventMoveMade, "rec", rec.Handle)

	s.bus.Close()
	s.bus.Close()
	s.bus.Publish(event(model.EventMoveMade, "late"))

	s.Empty(rec.Events())
}

func (s *BusSuite) TestSubscribeAfterCloseReturnsNoopUnsubscribe() {
	s.bus.Close()
	unsubscribe := s.bus.Subscribe(model.EventMoveMade, "late", func(context.Context, model.Event) error { return nil })
	s.NotPanics(unsubscribe)
	s.Equal(0, s.bus.SubscriberCount(model.EventMoveMade))
}
