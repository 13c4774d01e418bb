package realtime

import (
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"

	"github.com/mcoot/tictactoe-go/internal/realtime/wire"
	"github.com/mcoot/tictactoe-go/internal/testutil"
)

func TestSendClosesSlowConsumer(t *testing.T) {
	c := newConn("c1", "alice", nil, wire.JSON, time.Now(), testutil.NopLogger())

	for i := range sendBufferSize {
		assert.True(t, c.sendFrame([]byte("x")), "frame %d", i)
	}
	assert.False(t, c.sendFrame([]byte("x")))

	select {
	case <-c.done:
	default:
		t.Fatal("connection not closed")
	}
	assert.Equal(t, websocket.CloseTryAgainLater, c.closeCode)
	assert.False(t, c.Send(Envelope{Type: TypePong}))
}

func TestCloseIsIdempotent(t *testing.T) {
	c := newConn("c1", "alice", nil, wire.JSON, time.Now(), testutil.NopLogger())

	c.Close()
	c.closeWith(websocket.CloseGoingAway, "later")

	assert.Equal(t, websocket.CloseNormalClosure, c.closeCode)
	assert.False(t, c.sendFrame([]byte("x")))
}
