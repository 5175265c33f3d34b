package publicapi

import (
	"encoding/json"
	"net/http"
)

// meta carries pagination bookkeeping alongside a response's data. Count
// is always the number of elements actually returned; NextCursor and
// HasMore are left zero-valued for non-paginated (single-object)
// responses.
type meta struct {
	Count      int    `json:"count"`
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
}

type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Meta    *meta       `json:"meta,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Success bool     `json:"success"`
	Error   apiError `json:"error"`
}

// writeData wraps a successful payload in the public API's standard
// envelope. meta may be nil for single-object responses.
func writeData(w http.ResponseWriter, status int, data interface{}, m *meta) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Data: data, Meta: m})
}

// writeError wraps a failure in the standard error envelope. code is a
// short machine-readable slug. internal_error and exchange_not_found
// carry a fixed message, because their errors come from the database or
// cache client; every other code surfaces the error's message as-is,
// since those errors are public-facing already.
func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := err.Error()
	switch code {
	case "internal_error":
		msg = "internal error"
	case "exchange_not_found":
		msg = "exchange not found"
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorEnvelope{Success: false, Error: apiError{Code: code, Message: msg}})
}
