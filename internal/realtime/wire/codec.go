// Package wire encodes real-time messages. The codec is chosen per
// connection by WebSocket subprotocol.
package wire

import (
	"encoding/json"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// Subprotocol names offered during the WebSocket handshake
const (
	SubprotocolJSON = "ttt.v1.json"
	SubprotocolCBOR = "ttt.v1.cbor"
)

// Codec turns messages into frames and back
type Codec interface {
	// Name is the subprotocol the codec serves
	Name() string
	// Binary reports whether frames are sent as binary rather than text
	Binary() bool
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// Subprotocols lists every supported subprotocol in server preference order
func Subprotocols() []string {
	return []string{SubprotocolJSON, SubprotocolCBOR}
}

// ForSubprotocol returns the codec for a negotiated subprotocol.
// An empty or unknown name selects JSON.
func ForSubprotocol(name string) Codec {
	if name == SubprotocolCBOR {
		return CBOR
	}
	return JSON
}

// JSON is the default text codec
var JSON Codec = jsonCodec{}

type jsonCodec struct{}

func (jsonCodec) Name() string                       { return SubprotocolJSON }
func (jsonCodec) Binary() bool                       { return false }
func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// CBOR is the binary codec. Struct fields reuse their json tags as map keys.
var CBOR Codec = newCBORCodec()

type cborCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

func newCBORCodec() cborCodec {
	encOptions := cbor.CoreDetEncOptions()
	encOptions.Time = cbor.TimeRFC3339Nano
	enc, err := encOptions.EncMode()
	if err != nil {
		panic("wire: CBOR encoder initialization failed: " + err.Error())
	}

	dec, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("wire: CBOR decoder initialization failed: " + err.Error())
	}

	return cborCodec{enc: enc, dec: dec}
}

func (cborCodec) Name() string                         { return SubprotocolCBOR }
func (cborCodec) Binary() bool                         { return true }
func (c cborCodec) Marshal(v any) ([]byte, error)      { return c.enc.Marshal(v) }
func (c cborCodec) Unmarshal(data []byte, v any) error { return c.dec.Unmarshal(data, v) }
