package api

import (
	"net/http"

	"github.com/samber/lo"

	"github.com/UkralStul/noticeboard/internal/board"
	"github.com/UkralStul/noticeboard/internal/dataloader"
	"github.com/UkralStul/noticeboard/internal/domain"
)

type createPostRequest struct {
	Name    string          `json:"name"`
	Title   string          `json:"title"`
	Content string          `json:"content"`
	Email   domain.Identity `json:"email"`
}

type createPostResponse struct {
	Message string `json:"message"`
	PostID  int64  `json:"postId"`
}

type updatePostRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type postDetailResponse struct {
	Post *domain.PostDetail `json:"post"`
}

func (s *Server) createPost(w http.ResponseWriter, r *http.Request) {
	var req createPostRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err, "failed to create post", nil)
		return
	}

	id, err := s.board.Posts.Create(r.Context(), board.NewPost{
		AuthorName: req.Name,
		Author:     req.Email,
		Title:      req.Title,
		Content:    req.Content,
	})
	if err != nil {
		s.fail(w, r, err, "failed to create post", nil)
		return
	}
	writeJSON(w, http.StatusCreated, createPostResponse{Message: "post created", PostID: id})
}

// listPosts поддерживает ?myPostsOnly=true&currentUserEmail=...
func (s *Server) listPosts(w http.ResponseWriter, r *http.Request) {
	var filter board.ListFilter
	q := r.URL.Query()
	if q.Get("myPostsOnly") == "true" {
		filter.OnlyAuthor = domain.Identity(q.Get("currentUserEmail"))
	}

	posts, err := s.board.Posts.List(r.Context(), filter)
	if err != nil {
		s.fail(w, r, err, "failed to list posts", nil)
		return
	}

	counts, err := dataloader.For(r.Context()).CommentCounts(r.Context(),
		lo.Map(posts, func(p *domain.Post, _ int) int64 { return p.ID }))
	if err != nil {
		s.fail(w, r, err, "failed to list posts", nil)
		return
	}

	writeJSON(w, http.StatusOK, lo.Map(posts, func(p *domain.Post, _ int) domain.PostDetail {
		return domain.PostDetail{Post: *p, CommentCount: counts[p.ID]}
	}))
}

func (s *Server) searchPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	posts, err := s.board.Search.Search(r.Context(), domain.SearchField(q.Get("type")), q.Get("keyword"))
	if err != nil {
		s.fail(w, r, err, "search failed", map[int]string{
			http.StatusBadRequest: "keyword and a valid search type are required",
		})
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (s *Server) postDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "invalid post id")
		return
	}

	detail, err := s.board.Posts.Detail(r.Context(), id)
	if err != nil {
		s.fail(w, r, err, "failed to load post", map[int]string{
			http.StatusNotFound: "post not found",
		})
		return
	}
	writeJSON(w, http.StatusOK, postDetailResponse{Post: detail})
}

func (s *Server) incrementViews(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "invalid post id")
		return
	}

	if err := s.board.Views.Increment(r.Context(), id); err != nil {
		s.fail(w, r, err, "failed to increment views", map[int]string{
			http.StatusNotFound: "post not found",
		})
		return
	}
	writeMessage(w, http.StatusOK, "views incremented")
}

func (s *Server) updatePost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "invalid post id")
		return
	}
	claimed := currentUser(r)
	if claimed.Blank() {
		writeMessage(w, http.StatusUnauthorized, "login required")
		return
	}

	var req updatePostRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err, "failed to update post", nil)
		return
	}

	if err := s.board.Posts.Update(r.Context(), id, claimed, req.Title, req.Content); err != nil {
		s.fail(w, r, err, "failed to update post", map[int]string{
			http.StatusForbidden: "only the author can edit this post",
			http.StatusNotFound:  "post not found",
		})
		return
	}
	writeMessage(w, http.StatusOK, "post updated")
}

func (s *Server) deletePost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "invalid post id")
		return
	}

	if err := s.board.Posts.Delete(r.Context(), id, currentUser(r)); err != nil {
		s.fail(w, r, err, "failed to delete post", map[int]string{
			http.StatusForbidden: "only the author can delete this post",
			http.StatusNotFound:  "post not found",
		})
		return
	}
	writeMessage(w, http.StatusOK, "post and related data deleted")
}
