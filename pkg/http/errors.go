package http

import (
	"encoding/json"
	"net/http"
)

// Response is the envelope every endpoint answers with
type Response struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Data       any    `json:"data,omitempty"`
	TrxID      string `json:"trxId"`
}

// ErrorData marks the data slot of a failure response
type ErrorData struct {
	Error bool `json:"error"`
}

// WriteJSON writes resp with its own status code
func WriteJSON(w http.ResponseWriter, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)

	// Encoding errors are not exposed to the client
	_ = json.NewEncoder(w).Encode(resp)
}

// WriteSuccess writes a success envelope
func WriteSuccess(w http.ResponseWriter, statusCode int, message string, data any, trxID string) {
	WriteJSON(w, Response{
		StatusCode: statusCode,
		Message:    message,
		Data:       data,
		TrxID:      trxID,
	})
}

// WriteError writes a failure envelope with data {"error": true}
func WriteError(w http.ResponseWriter, statusCode int, message, trxID string) {
	WriteJSON(w, Response{
		StatusCode: statusCode,
		Message:    message,
		Data:       ErrorData{Error: true},
		TrxID:      trxID,
	})
}

func WriteBadRequest(w http.ResponseWriter, message, trxID string) {
	WriteError(w, http.StatusBadRequest, message, trxID)
}

func WriteUnauthorized(w http.ResponseWriter, message, trxID string) {
	WriteError(w, http.StatusUnauthorized, message, trxID)
}

func WriteForbidden(w http.ResponseWriter, message, trxID string) {
	WriteError(w, http.StatusForbidden, message, trxID)
}

func WriteNotFound(w http.ResponseWriter, message, trxID string) {
	WriteError(w, http.StatusNotFound, message, trxID)
}

func WriteTooManyRequests(w http.ResponseWriter, message, trxID string) {
	WriteError(w, http.StatusTooManyRequests, message, trxID)
}

func WriteInternalError(w http.ResponseWriter, message, trxID string) {
	WriteError(w, http.StatusInternalServerError, message, trxID)
}
