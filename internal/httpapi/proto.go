package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/BrandonDHaskell/Portunus/keypad/internal/portunus/wire"
)

// maxRequestBody caps the request body size for both protobuf and JSON
// payloads.  A heartbeat carries at most a few dozen short codes.
const maxRequestBody = 4096

var errBodyTooLarge = errors.New("request body too large")

// isProtobuf returns true if the request's Content-Type indicates a
// protobuf payload.
func isProtobuf(r *http.Request) bool {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return ct == wire.ContentType ||
		ct == "application/protobuf" ||
		ct == "application/octet-stream"
}

// decodeRequest fills v from a JSON or protobuf body.
func decodeRequest(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody+1))
	if err != nil {
		return err
	}
	if len(body) > maxRequestBody {
		return errBodyTooLarge
	}

	if isProtobuf(r) {
		return wire.Unmarshal(body, v)
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// wantsProtobuf reports whether the response should be protobuf: the
// device either sent protobuf or asked for it via Accept.
func wantsProtobuf(r *http.Request) bool {
	return isProtobuf(r) || strings.Contains(r.Header.Get("Accept"), wire.ContentType)
}

// writeResponse answers in the encoding the device used for its request.
func writeResponse(w http.ResponseWriter, r *http.Request, status int, v any) {
	if !wantsProtobuf(r) {
		writeJSON(w, status, v)
		return
	}
	data, err := wire.Marshal(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "encode response")
		return
	}
	w.Header().Set("Content-Type", wire.ContentType)
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
