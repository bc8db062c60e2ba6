package httpapi

import "net/http"

// errorResponse is the standard error payload for the API.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeErr(w http.ResponseWriter, status int, msg, code string) {
	toJSON(w, status, errorResponse{Error: msg, Code: code})
}

func badRequest(w http.ResponseWriter, msg string) { writeErr(w, http.StatusBadRequest, msg, "") }

func notFound(w http.ResponseWriter, code string) {
	writeErr(w, http.StatusNotFound, "not_found", code)
}

func unprocessable(w http.ResponseWriter, msg, code string) {
	writeErr(w, http.StatusUnprocessableEntity, msg, code)
}

func internalErr(w http.ResponseWriter, msg, code string) {
	writeErr(w, http.StatusInternalServerError, msg, code)
}
