package memory

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/tictactoe-go/internal/model"
	"github.com/mcoot/tictactoe-go/internal/storage/storagetest"
)

type StorageSuite struct {
	storagetest.Suite
	storage *Storage
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.storage = New()
	s.Use(s.storage)
}

func (s *StorageSuite) TestReturnedMatchIsACopy() {
	m := &model.Match{ID: "match-1", Player1ID: "alice", Player2ID: "bob"}
	s.Require().NoError(s.storage.CreateMatch(s.Ctx, m))

	m.Board[0] = model.MarkX
	retrieved, err := s.storage.GetMatch(s.Ctx, "match-1")
	s.Require().NoError(err)
	s.Equal(model.MarkEmpty, retrieved.Board[0])

	retrieved.Board[1] = model.MarkO
	again, err := s.storage.GetMatch(s.Ctx, "match-1")
	s.Require().NoError(err)
	s.Equal(model.MarkEmpty, again.Board[1])
}

func (s *StorageSuite) TestLogCapacityDropsOldest() {
	s.storage.logCapacity = 3
	for i := range 5 {
		s.Require().NoError(s.storage.AppendLog(s.Ctx, &model.LogEntry{ID: fmt.Sprintf("log-%d", i)}))
	}

	logs, err := s.storage.RecentLogs(s.Ctx, 0)
	s.Require().NoError(err)
	s.Require().Len(logs, 3)
	s.Equal("log-4", logs[0].ID)
	s.Equal("log-2", logs[2].ID)
}
