package redis

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/tictactoe-go/internal/model"
	"github.com/mcoot/tictactoe-go/internal/storage/storagetest"
)

type StorageSuite struct {
	storagetest.Suite
	mini    *miniredis.Miniredis
	storage *Storage
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	client := redis.NewClient(&redis.Options{
		Addr: s.mini.Addr(),
	})

	cfg := DefaultConfig()
	cfg.InvitationRetention = time.Hour
	cfg.LogCapacity = 5

	s.storage = NewWithClient(client, cfg)
	s.Use(s.storage)
}

func (s *StorageSuite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
	if s.mini != nil {
		s.mini.Close()
	}
}

func (s *StorageSuite) TestInvitationKeysHaveRetentionTTL() {
	inv := &model.Invitation{
		ID:         "inv-1",
		FromUserID: "alice",
		ToUserID:   "bob",
		Status:     model.InvitationStatusPending,
	}
	s.Require().NoError(s.storage.CreateInvitation(s.Ctx, inv))

	s.Equal(time.Hour, s.mini.TTL("ttt:invitation:inv-1"))
	s.Equal(time.Hour, s.mini.TTL("ttt:idx:pending:alice:bob"))
}

func (s *StorageSuite) TestMatchesNeverExpire() {
	m := &model.Match{ID: "match-1", Player1ID: "alice", Player2ID: "bob"}
	s.Require().NoError(s.storage.CreateMatch(s.Ctx, m))

	s.True(s.mini.Exists("ttt:match:match-1"))
	s.Equal(time.Duration(0), s.mini.TTL("ttt:match:match-1"))
}

func (s *StorageSuite) TestOnlineUsersAreASet() {
	s.Require().NoError(s.storage.SetOnline(s.Ctx, "alice", true))
	s.Require().NoError(s.storage.SetOnline(s.Ctx, "alice", true))
	s.Require().NoError(s.storage.SetOnline(s.Ctx, "bob", true))

	members, err := s.mini.Members("ttt:online")
	s.Require().NoError(err)
	s.ElementsMatch([]string{"alice", "bob"}, members)
}

func (s *StorageSuite) TestLogCapacityTrimsList() {
	for range 8 {
		s.Require().NoError(s.storage.AppendLog(s.Ctx, &model.LogEntry{Kind: model.LogKindEvent}))
	}

	list, err := s.mini.List("ttt:logs")
	s.Require().NoError(err)
	s.Len(list, 5)
}

func (s *StorageSuite) TestUnavailableServerReturnsError() {
	s.mini.Close()

	_, err := s.storage.GetMatch(s.Ctx, "match-1")
	s.Require().Error(err)
	s.NotErrorIs(err, model.ErrMatchNotFound)
}
