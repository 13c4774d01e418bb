package response

import (
	"mime"
	"net/http"
	"strings"

	"github.com/mcoot/tictactoe-go/internal/realtime/wire"
)

// Media types a client may ask for in its Accept header
const (
	MediaTypeJSON = "application/json"
	MediaTypeCBOR = "application/cbor"
)

// Write encodes data as CBOR when the request accepts it and as JSON otherwise.
// The body matches what a WebSocket client on the same codec receives.
func Write(w http.ResponseWriter, r *http.Request, status int, data any) {
	codec, contentType := wire.JSON, MediaTypeJSON
	if r != nil && accepts(r.Header.Get("Accept"), MediaTypeCBOR) {
		codec, contentType = wire.CBOR, MediaTypeCBOR
	}

	body, err := codec.Marshal(data)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// JSON writes a JSON response regardless of what the request accepts
func JSON(w http.ResponseWriter, status int, data any) {
	Write(w, nil, status, data)
}

func accepts(header, mediaType string) bool {
	for _, part := range strings.Split(header, ",") {
		mt, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err == nil && mt == mediaType {
			return true
		}
	}
	return false
}
