package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/UkralStul/noticeboard/internal/domain"
)

type likeRequest struct {
	UserID domain.Identity `json:"userId"`
}

type toggleResponse struct {
	Message string `json:"message"`
	Liked   bool   `json:"liked"`
}

type targetFunc func(id int64) domain.LikeTarget

var (
	commentTarget targetFunc = domain.CommentTarget
	postTarget    targetFunc = domain.PostTarget
)

func (s *Server) likeRoutes(target targetFunc) func(chi.Router) {
	return func(r chi.Router) {
		r.Post("/", s.toggleLike(target))
		r.Get("/", s.likeStatus(target))
		r.Delete("/", s.removeLike(target))
	}
}

func likeTarget(r *http.Request, target targetFunc) (domain.LikeTarget, bool) {
	id, ok := pathID(r, "id")
	if !ok {
		return domain.LikeTarget{}, false
	}
	return target(id), true
}

var missingUser = map[int]string{
	http.StatusBadRequest: "user is required",
}

func (s *Server) toggleLike(target targetFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, ok := likeTarget(r, target)
		if !ok {
			writeMessage(w, http.StatusBadRequest, "invalid id")
			return
		}
		var req likeRequest
		if err := decode(r, &req); err != nil {
			s.fail(w, r, err, "failed to toggle like", missingUser)
			return
		}

		liked, err := s.board.Likes.Toggle(r.Context(), req.UserID, t)
		if err != nil {
			s.fail(w, r, err, "failed to toggle like", map[int]string{
				http.StatusBadRequest: "user is required",
				http.StatusNotFound:   string(t.Kind) + " not found",
			})
			return
		}

		msg := "like removed"
		if liked {
			msg = "like added"
		}
		writeJSON(w, http.StatusOK, toggleResponse{Message: msg, Liked: liked})
	}
}

func (s *Server) likeStatus(target targetFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, ok := likeTarget(r, target)
		if !ok {
			writeMessage(w, http.StatusBadRequest, "invalid id")
			return
		}

		status, err := s.board.Likes.Status(r.Context(), domain.Identity(r.URL.Query().Get("userId")), t)
		if err != nil {
			s.fail(w, r, err, "failed to load likes", missingUser)
			return
		}
		writeJSON(w, http.StatusOK, status)
	}
}

func (s *Server) removeLike(target targetFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, ok := likeTarget(r, target)
		if !ok {
			writeMessage(w, http.StatusBadRequest, "invalid id")
			return
		}
		var req likeRequest
		if err := decode(r, &req); err != nil {
			s.fail(w, r, err, "failed to remove like", missingUser)
			return
		}

		if err := s.board.Likes.Remove(r.Context(), req.UserID, t); err != nil {
			s.fail(w, r, err, "failed to remove like", map[int]string{
				http.StatusBadRequest: "user is required",
				http.StatusNotFound:   "like not found",
			})
			return
		}
		writeMessage(w, http.StatusOK, "like removed")
	}
}
