package api

import (
	"net/http"

	"github.com/UkralStul/noticeboard/internal/domain"
)

type signupRequest struct {
	Name     string          `json:"name"`
	ID       domain.Identity `json:"id"`
	Password string          `json:"password"`
}

type loginRequest struct {
	ID       domain.Identity `json:"id"`
	Password string          `json:"password"`
}

type loginResponse struct {
	Message string       `json:"message"`
	User    *domain.User `json:"user"`
}

func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err, "signup failed", nil)
		return
	}

	if _, err := s.board.Users.Signup(r.Context(), req.Name, req.ID, req.Password); err != nil {
		s.fail(w, r, err, "signup failed", map[int]string{
			http.StatusBadRequest: "email and password are required",
			http.StatusConflict:   "email already registered",
		})
		return
	}
	writeMessage(w, http.StatusCreated, "signup successful")
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err, "login failed", nil)
		return
	}

	user, err := s.board.Users.Login(r.Context(), req.ID, req.Password)
	if err != nil {
		s.fail(w, r, err, "login failed", map[int]string{
			http.StatusBadRequest:   "email and password are required",
			http.StatusUnauthorized: "invalid email or password",
		})
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Message: "login successful", User: user})
}
