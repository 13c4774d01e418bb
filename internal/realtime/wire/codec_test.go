package wire

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Type      string    `json:"type"`
	RequestID string    `json:"request_id,omitempty"`
	Position  *int      `json:"position,omitempty"`
	Board     []*string `json:"board"`
	Timestamp time.Time `json:"timestamp"`
}

func TestForSubprotocol(t *testing.T) {
	assert.Equal(t, SubprotocolJSON, ForSubprotocol("").Name())
	assert.Equal(t, SubprotocolJSON, ForSubprotocol("unknown").Name())
	assert.Equal(t, SubprotocolJSON, ForSubprotocol(SubprotocolJSON).Name())
	assert.Equal(t, SubprotocolCBOR, ForSubprotocol(SubprotocolCBOR).Name())
	assert.False(t, JSON.Binary())
	assert.True(t, CBOR.Binary())
}

func TestJSONUsesFieldTags(t *testing.T) {
	pos := 4
	data, err := JSON.Marshal(sample{Type: "move", Position: &pos, Board: []*string{nil}})
	require.NoError(t, err)

	assert.Contains(t, string(data), `"type":"move"`)
	assert.Contains(t, string(data), `"position":4`)
	assert.Contains(t, string(data), `"board":[null]`)
	assert.NotContains(t, string(data), "request_id")
}

func TestCBORDecodesIntoTaggedStruct(t *testing.T) {
	x := "X"
	pos := 0
	in := sample{
		Type:      "move",
		RequestID: "r1",
		Position:  &pos,
		Board:     []*string{&x, nil},
		Timestamp: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}

	data, err := CBOR.Marshal(in)
	require.NoError(t, err)

	// Keys come from the json tags
	var generic map[string]any
	require.NoError(t, CBOR.Unmarshal(data, &generic))
	assert.Contains(t, generic, "request_id")
	assert.Contains(t, generic, "board")

	var out sample
	require.NoError(t, CBOR.Unmarshal(data, &out))
	assert.Equal(t, "r1", out.RequestID)
	require.NotNil(t, out.Position)
	assert.Equal(t, 0, *out.Position)
	require.Len(t, out.Board, 2)
	assert.Equal(t, "X", *out.Board[0])
	assert.Nil(t, out.Board[1])
	assert.True(t, in.Timestamp.Equal(out.Timestamp))
}
