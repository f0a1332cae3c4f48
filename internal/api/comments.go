package api

import (
	"net/http"

	"github.com/samber/lo"

	"github.com/UkralStul/noticeboard/internal/dataloader"
	"github.com/UkralStul/noticeboard/internal/domain"
)

type createCommentRequest struct {
	UserEmail domain.Identity `json:"userEmail"`
	Content   string          `json:"content"`
}

type commentResponse struct {
	*domain.Comment
	LikesCount int64 `json:"likesCount"`
}

func (s *Server) createComment(w http.ResponseWriter, r *http.Request) {
	postID, ok := pathID(r, "id")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "invalid post id")
		return
	}

	var req createCommentRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err, "failed to create comment", nil)
		return
	}

	comment, err := s.board.Comments.Create(r.Context(), postID, req.UserEmail, req.Content)
	if err != nil {
		s.fail(w, r, err, "failed to create comment", map[int]string{
			http.StatusBadRequest: "all fields are required",
			http.StatusNotFound:   "post not found",
		})
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

func (s *Server) listComments(w http.ResponseWriter, r *http.Request) {
	postID, ok := pathID(r, "id")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "invalid post id")
		return
	}

	comments, err := s.board.Comments.ListByPost(r.Context(), postID)
	if err != nil {
		s.fail(w, r, err, "failed to list comments", nil)
		return
	}

	targets := lo.Map(comments, func(c *domain.Comment, _ int) domain.LikeTarget {
		return domain.CommentTarget(c.ID)
	})
	counts, err := dataloader.For(r.Context()).LikeCounts(r.Context(), targets)
	if err != nil {
		s.fail(w, r, err, "failed to list comments", nil)
		return
	}

	writeJSON(w, http.StatusOK, lo.Map(comments, func(c *domain.Comment, _ int) commentResponse {
		return commentResponse{Comment: c, LikesCount: counts[domain.CommentTarget(c.ID)]}
	}))
}

func (s *Server) deleteComment(w http.ResponseWriter, r *http.Request) {
	commentID, ok := pathID(r, "id")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "invalid comment id")
		return
	}

	if err := s.board.Comments.Delete(r.Context(), commentID, currentUser(r)); err != nil {
		s.fail(w, r, err, "failed to delete comment", map[int]string{
			http.StatusForbidden: "only the author can delete this comment",
			http.StatusNotFound:  "comment not found",
		})
		return
	}
	writeMessage(w, http.StatusOK, "comment deleted")
}
