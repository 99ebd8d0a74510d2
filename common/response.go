package common

import (
	"encoding/json"
	"net/http"
)

// APIResponse is the envelope every successful handler writes.
type APIResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Data       any    `json:"data"`
	Pagination any    `json:"pagination,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func Respond(w http.ResponseWriter, status int, message string, data any) {
	WriteJSON(w, status, APIResponse{
		Success: status < http.StatusBadRequest,
		Message: message,
		Data:    data,
	})
}

func RespondWithPagination(w http.ResponseWriter, status int, message string, data, pagination any) {
	WriteJSON(w, status, APIResponse{
		Success:    status < http.StatusBadRequest,
		Message:    message,
		Data:       data,
		Pagination: pagination,
	})
}
