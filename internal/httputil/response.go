// Package httputil holds the small set of JSON envelope helpers shared by
// every HTTP handler package.
package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"streamvault/internal/apperr"
)

// errorBody is the flat shape spec.md §7 mandates: {error, code?}.
type errorBody struct {
	Error string     `json:"error"`
	Code  apperr.Kind `json:"code,omitempty"`
}

// WriteJSON writes data directly as the response body — endpoints in
// spec.md §6 return flat shapes like {count, movies[]}, not an envelope.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError writes the flat {error, code} error shape.
func WriteError(w http.ResponseWriter, status int, code apperr.Kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: message, Code: code})
}

// WriteErr inspects err for an *apperr.Error and writes the matching status
// and code; anything else becomes a 500 Internal error, logged server-side
// without leaking internals to the client.
func WriteErr(w http.ResponseWriter, logger *slog.Logger, err error) {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		if ae.Kind == apperr.Internal && logger != nil {
			logger.Error("internal error", "err", ae.Error())
		}
		WriteError(w, apperr.StatusCode(ae.Kind), ae.Kind, ae.Message)
		return
	}
	if logger != nil {
		logger.Error("unhandled error", "err", err)
	}
	WriteError(w, http.StatusInternalServerError, apperr.Internal, "internal error")
}

// ReadJSON decodes the request body into dst.
func ReadJSON(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
