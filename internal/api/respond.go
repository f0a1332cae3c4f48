package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/UkralStul/noticeboard/internal/domain"
)

// currentUserHeader несет email пользователя для проверки авторства.
const currentUserHeader = "current-user"

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, messageResponse{Message: message})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

var statusMessages = map[int]string{
	http.StatusBadRequest:   "invalid request",
	http.StatusUnauthorized: "login required",
	http.StatusForbidden:    "permission denied",
	http.StatusNotFound:     "not found",
	http.StatusConflict:     "already exists",
}

// fail отвечает клиенту по классу ошибки. Детали 500 только логируются.
// messages переопределяет текст для конкретных статусов.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, fallback string, messages map[int]string) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		s.requestLog(r).Error(fallback, "error", err)
		writeMessage(w, status, fallback)
		return
	}

	msg, ok := messages[status]
	if !ok {
		msg = statusMessages[status]
	}
	s.requestLog(r).Debug("request rejected", "status", status, "error", err)
	writeMessage(w, status, msg)
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil
}

func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.Join(domain.ErrInvalidInput, err)
	}
	return nil
}

func currentUser(r *http.Request) domain.Identity {
	return domain.Identity(r.Header.Get(currentUserHeader))
}
