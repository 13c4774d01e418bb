package sqlite

import (
	"path/filepath"
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
	st, err := Open(MemoryPath)
	s.Require().NoError(err)
	s.storage = st
	s.Use(st)
}

func (s *StorageSuite) TearDownTest() {
	_ = s.storage.Close()
}

func (s *StorageSuite) TestBoardEncodingRoundTrip() {
	b := model.Board{model.MarkX, model.MarkEmpty, model.MarkO}
	s.Equal("X.O......", encodeBoard(b))

	decoded, err := decodeBoard("X.O......")
	s.Require().NoError(err)
	s.Equal(b, decoded)
}

func (s *StorageSuite) TestDecodeBoardRejectsGarbage() {
	_, err := decodeBoard("X.O")
	s.Error(err)
	_, err = decodeBoard("X.O.....Z")
	s.Error(err)
}

func (s *StorageSuite) TestCreateMatchRejectsSamePlayers() {
	err := s.storage.CreateMatch(s.Ctx, &model.Match{ID: "match-1", Player1ID: "alice", Player2ID: "alice"})
	s.Error(err)
}

func TestOpenFilePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "ttt.db")

	st, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	m := &model.Match{ID: "match-1", Player1ID: "alice", Player2ID: "bob", Status: model.MatchStatusInProgress}
	if err := st.CreateMatch(t.Context(), m); err != nil {
		t.Fatalf("create match: %v", err)
	}
	_ = st.Close()

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()

	got, err := reopened.GetMatch(t.Context(), "match-1")
	if err != nil {
		t.Fatalf("get match: %v", err)
	}
	if got.Status != model.MatchStatusInProgress {
		t.Fatalf("status = %s, want IN_PROGRESS", got.Status)
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatal("expected error for blank path")
	}
}
