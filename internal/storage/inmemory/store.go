package inmemory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/UkralStul/noticeboard/internal/domain"
	"github.com/UkralStul/noticeboard/internal/storage"
)

// likeKey хранит пользователя в канонической форме.
type likeKey struct {
	user   domain.Identity
	target domain.LikeTarget
}

// Store реализует интерфейс Storage в памяти.
// Каждая операция целиком выполняется под мьютексом, поэтому каскады атомарны.
type Store struct {
	mu             sync.RWMutex
	posts          map[int64]*domain.Post
	comments       map[int64]*domain.Comment
	commentsByPost map[int64][]int64 // map[postID][]commentID в порядке вставки
	likes          map[likeKey]time.Time
	users          map[domain.Identity]*domain.User

	nextPostID    int64
	nextCommentID int64
	nextUserID    int64
}

var _ storage.Storage = (*Store)(nil)

// New создает новый экземпляр in-memory хранилища.
func New() *Store {
	return &Store{
		posts:          make(map[int64]*domain.Post),
		comments:       make(map[int64]*domain.Comment),
		commentsByPost: make(map[int64][]int64),
		likes:          make(map[likeKey]time.Time),
		users:          make(map[domain.Identity]*domain.User),
	}
}

func (s *Store) Close() error { return nil }

// === Post Methods ===

func (s *Store) CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextPostID++
	stored := *post
	stored.ID = s.nextPostID
	stored.AuthorKey = stored.Author.Canonical()
	stored.Views = 0
	stored.CreatedAt = time.Now().UTC()
	s.posts[stored.ID] = &stored

	out := stored
	return &out, nil
}

func (s *Store) GetPostByID(ctx context.Context, id int64) (*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	post, ok := s.posts[id]
	if !ok {
		return nil, fmt.Errorf("post %d: %w", id, domain.ErrNotFound)
	}
	out := *post
	return &out, nil
}

func (s *Store) ListPosts(ctx context.Context, filter storage.PostFilter) ([]*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	posts := s.snapshotPosts(func(p *domain.Post) bool {
		return filter.OnlyAuthor.Blank() || p.AuthorKey == filter.OnlyAuthor.Canonical()
	})

	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].Views > posts[j].Views
	})
	return posts, nil
}

func (s *Store) SearchPosts(ctx context.Context, field domain.SearchField, keyword string) ([]*domain.Post, error) {
	if !field.Valid() {
		return nil, fmt.Errorf("search field %q: %w", field, domain.ErrInvalidInput)
	}
	needle := strings.ToLower(keyword)

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.snapshotPosts(func(p *domain.Post) bool {
		return strings.Contains(strings.ToLower(p.Field(field)), needle)
	}), nil
}

// snapshotPosts копирует посты, прошедшие фильтр, в порядке id.
func (s *Store) snapshotPosts(keep func(*domain.Post) bool) []*domain.Post {
	out := make([]*domain.Post, 0, len(s.posts))
	for _, p := range s.posts {
		if keep(p) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) IncrementViews(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[id]
	if !ok {
		return fmt.Errorf("post %d: %w", id, domain.ErrNotFound)
	}
	post.Views++
	return nil
}

func (s *Store) UpdatePost(ctx context.Context, id int64, authorize storage.Authorizer, title, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[id]
	if !ok {
		return fmt.Errorf("post %d: %w", id, domain.ErrNotFound)
	}
	if err := authorize(post.Author); err != nil {
		return err
	}
	post.Title = title
	post.Content = content
	return nil
}

func (s *Store) DeletePost(ctx context.Context, id int64, authorize storage.Authorizer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[id]
	if !ok {
		return fmt.Errorf("post %d: %w", id, domain.ErrNotFound)
	}
	if err := authorize(post.Author); err != nil {
		return err
	}

	for _, commentID := range s.commentsByPost[id] {
		s.dropLikes(domain.CommentTarget(commentID))
		delete(s.comments, commentID)
	}
	s.dropLikes(domain.PostTarget(id))
	delete(s.commentsByPost, id)
	delete(s.posts, id)
	return nil
}

func (s *Store) dropLikes(target domain.LikeTarget) {
	for k := range s.likes {
		if k.target == target {
			delete(s.likes, k)
		}
	}
}

// === Comment Methods ===

func (s *Store) CreateComment(ctx context.Context, comment *domain.Comment, requirePost bool) (*domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[comment.PostID]; !ok && requirePost {
		return nil, fmt.Errorf("post %d: %w", comment.PostID, domain.ErrNotFound)
	}

	s.nextCommentID++
	stored := *comment
	stored.ID = s.nextCommentID
	stored.CreatedAt = time.Now().UTC()
	s.comments[stored.ID] = &stored
	s.commentsByPost[stored.PostID] = append(s.commentsByPost[stored.PostID], stored.ID)

	out := stored
	return &out, nil
}

func (s *Store) GetCommentByID(ctx context.Context, id int64) (*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	comment, ok := s.comments[id]
	if !ok {
		return nil, fmt.Errorf("comment %d: %w", id, domain.ErrNotFound)
	}
	out := *comment
	return &out, nil
}

func (s *Store) GetCommentsByPostID(ctx context.Context, postID int64) ([]*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.commentsByPost[postID]
	out := make([]*domain.Comment, 0, len(ids))
	for _, id := range ids {
		if c, ok := s.comments[id]; ok {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *Store) DeleteComment(ctx context.Context, id int64, authorize storage.Authorizer) (*domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	comment, ok := s.comments[id]
	if !ok {
		return nil, fmt.Errorf("comment %d: %w", id, domain.ErrNotFound)
	}
	if err := authorize(comment.Author); err != nil {
		return nil, err
	}

	s.dropLikes(domain.CommentTarget(id))
	delete(s.comments, id)
	s.commentsByPost[comment.PostID] = lo.Without(s.commentsByPost[comment.PostID], id)

	out := *comment
	return &out, nil
}

// === Like Methods ===

func (s *Store) targetExists(target domain.LikeTarget) bool {
	switch target.Kind {
	case domain.TargetPost:
		_, ok := s.posts[target.ID]
		return ok
	case domain.TargetComment:
		_, ok := s.comments[target.ID]
		return ok
	default:
		return false
	}
}

func (s *Store) ToggleLike(ctx context.Context, user domain.Identity, target domain.LikeTarget) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := likeKey{user: user.Canonical(), target: target}
	if _, ok := s.likes[key]; ok {
		delete(s.likes, key)
		return false, nil
	}
	if !s.targetExists(target) {
		return false, fmt.Errorf("%s %d: %w", target.Kind, target.ID, domain.ErrNotFound)
	}
	s.likes[key] = time.Now().UTC()
	return true, nil
}

func (s *Store) GetLikeStatus(ctx context.Context, user domain.Identity, target domain.LikeTarget) (domain.LikeStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user = user.Canonical()
	var status domain.LikeStatus
	for k := range s.likes {
		if k.target != target {
			continue
		}
		status.Count++
		if k.user == user {
			status.LikedByUser = true
		}
	}
	return status, nil
}

func (s *Store) RemoveLike(ctx context.Context, user domain.Identity, target domain.LikeTarget) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := likeKey{user: user.Canonical(), target: target}
	if _, ok := s.likes[key]; !ok {
		return fmt.Errorf("like of %s %d by %s: %w", target.Kind, target.ID, user, domain.ErrNotFound)
	}
	delete(s.likes, key)
	return nil
}

// === Dataloader Methods ===

func (s *Store) CountCommentsByPostIDs(ctx context.Context, postIDs []int64) (map[int64]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[int64]int64, len(postIDs))
	for _, id := range postIDs {
		result[id] = int64(len(s.commentsByPost[id]))
	}
	return result, nil
}

func (s *Store) CountLikesByTargets(ctx context.Context, targets []domain.LikeTarget) (map[domain.LikeTarget]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[domain.LikeTarget]int64, len(targets))
	for _, t := range targets {
		result[t] = 0
	}
	for k := range s.likes {
		if _, ok := result[k.target]; ok {
			result[k.target]++
		}
	}
	return result, nil
}

// === User Methods ===

func (s *Store) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *user
	stored.Email = user.Email.Canonical()
	if _, ok := s.users[stored.Email]; ok {
		return nil, fmt.Errorf("user %s: %w", stored.Email, domain.ErrConflict)
	}
	s.nextUserID++
	stored.ID = s.nextUserID
	stored.CreatedAt = time.Now().UTC()
	s.users[stored.Email] = &stored

	out := stored
	return &out, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email domain.Identity) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[email.Canonical()]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", email, domain.ErrNotFound)
	}
	out := *user
	return &out, nil
}
