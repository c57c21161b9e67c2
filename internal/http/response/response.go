package response

import (
	"encoding/json"
	"log/slog"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

type Envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
	Meta    *Meta      `json:"meta,omitempty"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type Meta struct {
	RequestID string `json:"request_id,omitempty"`
}

// Encode renders a success envelope without request metadata, so the bytes
// can be cached and replayed verbatim to later requests.
func Encode(data any) ([]byte, error) {
	return json.Marshal(Envelope{Success: true, Data: data})
}

func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	write(w, r, status, Envelope{Success: true, Data: data, Meta: metaFor(r)})
}

func Error(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	write(w, r, status, Envelope{
		Success: false,
		Error:   &ErrorBody{Code: code, Message: message, Details: details},
		Meta:    metaFor(r),
	})
}

// Cacheable writes a success envelope built by Encode. List endpoints use it
// so a replayed body never carries another request's id.
func Cacheable(w http.ResponseWriter, r *http.Request, status int, data any) {
	body, err := Encode(data)
	if err != nil {
		slog.ErrorContext(r.Context(), "encode response", "error", err)
		Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to encode response", nil)
		return
	}
	Raw(w, status, body)
}

// Raw writes an already encoded JSON body.
func Raw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func write(w http.ResponseWriter, r *http.Request, status int, env Envelope) {
	body, err := json.Marshal(env)
	if err != nil {
		slog.ErrorContext(r.Context(), "encode response", "error", err)
		status = http.StatusInternalServerError
		body = []byte(`{"success":false,"error":{"code":"INTERNAL","message":"failed to encode response"}}`)
	}
	Raw(w, status, body)
}

func metaFor(r *http.Request) *Meta {
	if r == nil {
		return nil
	}
	id := chimiddleware.GetReqID(r.Context())
	if id == "" {
		return nil
	}
	return &Meta{RequestID: id}
}
