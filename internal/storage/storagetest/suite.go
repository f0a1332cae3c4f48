// Package storagetest содержит общие проверки контракта storage.Storage.
package storagetest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UkralStul/noticeboard/internal/domain"
	"github.com/UkralStul/noticeboard/internal/storage"
)

// Options описывает возможности проверяемого хранилища.
type Options struct {
	// Concurrency - число параллельных вызовов в проверках гонок.
	Concurrency int
}

func allow(domain.Identity) error { return nil }

func deny(domain.Identity) error { return domain.ErrForbidden }

// Run прогоняет все проверки на свежем хранилище для каждого теста.
func Run(t *testing.T, newStore func(t *testing.T) storage.Storage, opts Options) {
	if opts.Concurrency == 0 {
		opts.Concurrency = 50
	}

	t.Run("CreateAndGetPost", func(t *testing.T) { testCreateAndGetPost(t, newStore(t)) })
	t.Run("ListPosts", func(t *testing.T) { testListPosts(t, newStore(t)) })
	t.Run("SearchPosts", func(t *testing.T) { testSearchPosts(t, newStore(t)) })
	t.Run("IncrementViews", func(t *testing.T) { testIncrementViews(t, newStore(t), opts.Concurrency) })
	t.Run("UpdatePost", func(t *testing.T) { testUpdatePost(t, newStore(t)) })
	t.Run("DeletePostCascade", func(t *testing.T) { testDeletePostCascade(t, newStore(t)) })
	t.Run("Comments", func(t *testing.T) { testComments(t, newStore(t)) })
	t.Run("DeleteComment", func(t *testing.T) { testDeleteComment(t, newStore(t)) })
	t.Run("Likes", func(t *testing.T) { testLikes(t, newStore(t)) })
	t.Run("LikesIgnoreIdentityCase", func(t *testing.T) { testLikesIgnoreIdentityCase(t, newStore(t)) })
	t.Run("ConcurrentToggle", func(t *testing.T) { testConcurrentToggle(t, newStore(t), opts.Concurrency) })
	t.Run("Counts", func(t *testing.T) { testCounts(t, newStore(t)) })
	t.Run("Users", func(t *testing.T) { testUsers(t, newStore(t)) })
}

func mustPost(t *testing.T, s storage.Storage, author domain.Identity, name, title string) *domain.Post {
	t.Helper()

	post, err := s.CreatePost(context.Background(), &domain.Post{
		AuthorName: name,
		Author:     author,
		Title:      title,
		Content:    "content",
	})
	require.NoError(t, err)
	return post
}

func mustComment(t *testing.T, s storage.Storage, postID int64, author domain.Identity) *domain.Comment {
	t.Helper()

	comment, err := s.CreateComment(context.Background(), &domain.Comment{
		PostID:  postID,
		Author:  author,
		Content: "comment",
	}, true)
	require.NoError(t, err)
	return comment
}

func testCreateAndGetPost(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	post := mustPost(t, s, "alice@x.com", "Alice", "Hello")
	assert.NotZero(t, post.ID)
	assert.Zero(t, post.Views)

	retrieved, err := s.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hello", retrieved.Title)
	assert.Equal(t, domain.Identity("alice@x.com"), retrieved.Author)
	assert.Equal(t, "Alice", retrieved.AuthorName)
	assert.False(t, retrieved.CreatedAt.IsZero())

	_, err = s.GetPostByID(ctx, post.ID+1000)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func testListPosts(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	a := mustPost(t, s, "alice@x.com", "Alice", "a")
	b := mustPost(t, s, "bob@x.com", "Bob", "b")
	c := mustPost(t, s, " Alice@X.com", "Alice", "c")
	d := mustPost(t, s, "\tALICE@x.com\n", "Alice", "d")

	require.NoError(t, s.IncrementViews(ctx, b.ID))
	require.NoError(t, s.IncrementViews(ctx, b.ID))
	require.NoError(t, s.IncrementViews(ctx, c.ID))

	posts, err := s.ListPosts(ctx, storage.PostFilter{})
	require.NoError(t, err)
	require.Len(t, posts, 4)
	assert.Equal(t, []int64{b.ID, c.ID, a.ID, d.ID}, ids(posts))
	assert.Equal(t, domain.Identity("\tALICE@x.com\n"), posts[3].Author)

	posts, err = s.ListPosts(ctx, storage.PostFilter{OnlyAuthor: "alice@x.com"})
	require.NoError(t, err)
	assert.Equal(t, []int64{c.ID, a.ID, d.ID}, ids(posts))

	posts, err = s.ListPosts(ctx, storage.PostFilter{OnlyAuthor: "\talice@X.COM "})
	require.NoError(t, err)
	assert.Equal(t, []int64{c.ID, a.ID, d.ID}, ids(posts))
}

func ids(posts []*domain.Post) []int64 {
	out := make([]int64, len(posts))
	for i, p := range posts {
		out[i] = p.ID
	}
	return out
}

func testSearchPosts(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	foo := mustPost(t, s, "alice@x.com", "Alice", "All about FOO")
	mustPost(t, s, "bob@x.com", "Bobby", "bar")
	pct := mustPost(t, s, "carol@x.com", "Carol", "100% sure")

	found, err := s.SearchPosts(ctx, domain.SearchByTitle, "foo")
	require.NoError(t, err)
	assert.Equal(t, []int64{foo.ID}, ids(found))

	found, err = s.SearchPosts(ctx, domain.SearchByName, "BOB")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "bar", found[0].Title)

	found, err = s.SearchPosts(ctx, domain.SearchByTitle, "0%")
	require.NoError(t, err)
	assert.Equal(t, []int64{pct.ID}, ids(found))

	anna := mustPost(t, s, "anna@x.com", "Анна", "ПРОДАМ Велосипед")

	found, err = s.SearchPosts(ctx, domain.SearchByName, "анна")
	require.NoError(t, err)
	assert.Equal(t, []int64{anna.ID}, ids(found))

	found, err = s.SearchPosts(ctx, domain.SearchByTitle, "продам вел")
	require.NoError(t, err)
	assert.Equal(t, []int64{anna.ID}, ids(found))

	found, err = s.SearchPosts(ctx, domain.SearchByTitle, "missing")
	require.NoError(t, err)
	assert.Empty(t, found)

	_, err = s.SearchPosts(ctx, "content", "foo")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func testIncrementViews(t *testing.T, s storage.Storage, n int) {
	ctx := context.Background()
	post := mustPost(t, s, "alice@x.com", "Alice", "popular")

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			assert.NoError(t, s.IncrementViews(ctx, post.ID))
		}()
	}
	wg.Wait()

	retrieved, err := s.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(n), retrieved.Views)

	assert.ErrorIs(t, s.IncrementViews(ctx, post.ID+1000), domain.ErrNotFound)
}

func testUpdatePost(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	post := mustPost(t, s, "alice@x.com", "Alice", "T1")

	var seen domain.Identity
	err := s.UpdatePost(ctx, post.ID, func(author domain.Identity) error {
		seen = author
		return nil
	}, "T2", "new")
	require.NoError(t, err)
	assert.Equal(t, domain.Identity("alice@x.com"), seen)

	err = s.UpdatePost(ctx, post.ID, deny, "T3", "denied")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	retrieved, err := s.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "T2", retrieved.Title)
	assert.Equal(t, "new", retrieved.Content)

	assert.ErrorIs(t, s.UpdatePost(ctx, post.ID+1000, allow, "x", "y"), domain.ErrNotFound)
}

func testDeletePostCascade(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	doomed := mustPost(t, s, "alice@x.com", "Alice", "doomed")
	kept := mustPost(t, s, "alice@x.com", "Alice", "kept")

	dc := mustComment(t, s, doomed.ID, "carol@x.com")
	kc := mustComment(t, s, kept.ID, "carol@x.com")

	for _, target := range []domain.LikeTarget{
		domain.CommentTarget(dc.ID),
		domain.CommentTarget(kc.ID),
		domain.PostTarget(doomed.ID),
		domain.PostTarget(kept.ID),
	} {
		liked, err := s.ToggleLike(ctx, "dave@x.com", target)
		require.NoError(t, err)
		require.True(t, liked)
	}

	// отказ в доступе не должен ничего удалить
	assert.ErrorIs(t, s.DeletePost(ctx, doomed.ID, deny), domain.ErrForbidden)
	_, err := s.GetCommentByID(ctx, dc.ID)
	require.NoError(t, err)

	require.NoError(t, s.DeletePost(ctx, doomed.ID, allow))

	_, err = s.GetPostByID(ctx, doomed.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.GetCommentByID(ctx, dc.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	counts, err := s.CountLikesByTargets(ctx, []domain.LikeTarget{
		domain.CommentTarget(dc.ID),
		domain.CommentTarget(kc.ID),
		domain.PostTarget(doomed.ID),
		domain.PostTarget(kept.ID),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), counts[domain.CommentTarget(dc.ID)])
	assert.Equal(t, int64(0), counts[domain.PostTarget(doomed.ID)])
	assert.Equal(t, int64(1), counts[domain.CommentTarget(kc.ID)])
	assert.Equal(t, int64(1), counts[domain.PostTarget(kept.ID)])

	comments, err := s.GetCommentsByPostID(ctx, kept.ID)
	require.NoError(t, err)
	assert.Len(t, comments, 1)

	assert.ErrorIs(t, s.DeletePost(ctx, doomed.ID, allow), domain.ErrNotFound)
}

func testComments(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	post := mustPost(t, s, "alice@x.com", "Alice", "T")

	first := mustComment(t, s, post.ID, "carol@x.com")
	second := mustComment(t, s, post.ID, "dave@x.com")

	comments, err := s.GetCommentsByPostID(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, first.ID, comments[0].ID)
	assert.Equal(t, second.ID, comments[1].ID)
	assert.Equal(t, post.ID, comments[0].PostID)
	assert.False(t, comments[0].CreatedAt.IsZero())

	_, err = s.CreateComment(ctx, &domain.Comment{PostID: post.ID + 1000, Author: "carol@x.com", Content: "x"}, true)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	orphan, err := s.CreateComment(ctx, &domain.Comment{PostID: post.ID + 1000, Author: "carol@x.com", Content: "x"}, false)
	require.NoError(t, err)
	assert.Equal(t, post.ID+1000, orphan.PostID)
}

func testDeleteComment(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	post := mustPost(t, s, "alice@x.com", "Alice", "T")
	comment := mustComment(t, s, post.ID, "carol@x.com")
	other := mustComment(t, s, post.ID, "carol@x.com")

	_, err := s.ToggleLike(ctx, "dave@x.com", domain.CommentTarget(comment.ID))
	require.NoError(t, err)
	_, err = s.ToggleLike(ctx, "dave@x.com", domain.CommentTarget(other.ID))
	require.NoError(t, err)

	_, err = s.DeleteComment(ctx, comment.ID, deny)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	deleted, err := s.DeleteComment(ctx, comment.ID, allow)
	require.NoError(t, err)
	assert.Equal(t, post.ID, deleted.PostID)

	status, err := s.GetLikeStatus(ctx, "dave@x.com", domain.CommentTarget(comment.ID))
	require.NoError(t, err)
	assert.Equal(t, domain.LikeStatus{}, status)

	status, err = s.GetLikeStatus(ctx, "dave@x.com", domain.CommentTarget(other.ID))
	require.NoError(t, err)
	assert.Equal(t, domain.LikeStatus{Count: 1, LikedByUser: true}, status)

	_, err = s.DeleteComment(ctx, comment.ID, allow)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	comments, err := s.GetCommentsByPostID(ctx, post.ID)
	require.NoError(t, err)
	assert.Len(t, comments, 1)
}

func testLikes(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	post := mustPost(t, s, "alice@x.com", "Alice", "T")
	comment := mustComment(t, s, post.ID, "carol@x.com")
	target := domain.CommentTarget(comment.ID)

	liked, err := s.ToggleLike(ctx, "dave@x.com", target)
	require.NoError(t, err)
	assert.True(t, liked)

	status, err := s.GetLikeStatus(ctx, "carol@x.com", target)
	require.NoError(t, err)
	assert.Equal(t, domain.LikeStatus{Count: 1, LikedByUser: false}, status)

	liked, err = s.ToggleLike(ctx, "dave@x.com", target)
	require.NoError(t, err)
	assert.False(t, liked)

	status, err = s.GetLikeStatus(ctx, "dave@x.com", target)
	require.NoError(t, err)
	assert.Equal(t, domain.LikeStatus{}, status)

	// лайк поста и лайк комментария с тем же id не пересекаются
	require.Equal(t, post.ID, comment.ID)
	liked, err = s.ToggleLike(ctx, "dave@x.com", domain.PostTarget(post.ID))
	require.NoError(t, err)
	assert.True(t, liked)
	status, err = s.GetLikeStatus(ctx, "dave@x.com", target)
	require.NoError(t, err)
	assert.Zero(t, status.Count)

	_, err = s.ToggleLike(ctx, "dave@x.com", domain.CommentTarget(comment.ID+1000))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, s.RemoveLike(ctx, "dave@x.com", target), domain.ErrNotFound)
	_, err = s.ToggleLike(ctx, "dave@x.com", target)
	require.NoError(t, err)
	require.NoError(t, s.RemoveLike(ctx, "dave@x.com", target))
	assert.ErrorIs(t, s.RemoveLike(ctx, "dave@x.com", target), domain.ErrNotFound)
}

func testLikesIgnoreIdentityCase(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	post := mustPost(t, s, "alice@x.com", "Alice", "T")
	comment := mustComment(t, s, post.ID, "carol@x.com")
	target := domain.CommentTarget(comment.ID)

	liked, err := s.ToggleLike(ctx, "dave@x.com", target)
	require.NoError(t, err)
	assert.True(t, liked)

	status, err := s.GetLikeStatus(ctx, "Dave@X.com", target)
	require.NoError(t, err)
	assert.Equal(t, domain.LikeStatus{Count: 1, LikedByUser: true}, status)

	// тот же пользователь в другом регистре снимает лайк, а не ставит второй
	liked, err = s.ToggleLike(ctx, " DAVE@x.com", target)
	require.NoError(t, err)
	assert.False(t, liked)

	status, err = s.GetLikeStatus(ctx, "dave@x.com", target)
	require.NoError(t, err)
	assert.Equal(t, domain.LikeStatus{}, status)

	_, err = s.ToggleLike(ctx, "DAVE@X.COM", target)
	require.NoError(t, err)
	require.NoError(t, s.RemoveLike(ctx, "dave@x.com", target))
	assert.ErrorIs(t, s.RemoveLike(ctx, "Dave@x.com", target), domain.ErrNotFound)

	counts, err := s.CountLikesByTargets(ctx, []domain.LikeTarget{target})
	require.NoError(t, err)
	assert.Equal(t, int64(0), counts[target])
}

func testConcurrentToggle(t *testing.T, s storage.Storage, n int) {
	ctx := context.Background()
	post := mustPost(t, s, "alice@x.com", "Alice", "T")
	target := domain.PostTarget(post.ID)

	// четное число переключений одного пользователя дает исходное состояние
	if n%2 == 1 {
		n++
	}

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		likes int
	)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			liked, err := s.ToggleLike(ctx, "dave@x.com", target)
			if !assert.NoError(t, err) {
				return
			}
			if liked {
				mu.Lock()
				likes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, n/2, likes)
	status, err := s.GetLikeStatus(ctx, "dave@x.com", target)
	require.NoError(t, err)
	assert.Equal(t, domain.LikeStatus{}, status)
}

func testCounts(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	a := mustPost(t, s, "alice@x.com", "Alice", "a")
	b := mustPost(t, s, "alice@x.com", "Alice", "b")
	mustComment(t, s, a.ID, "carol@x.com")
	mustComment(t, s, a.ID, "carol@x.com")

	counts, err := s.CountCommentsByPostIDs(ctx, []int64{a.ID, b.ID})
	require.NoError(t, err)
	assert.Equal(t, map[int64]int64{a.ID: 2, b.ID: 0}, counts)
}

func testUsers(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	user, err := s.CreateUser(ctx, &domain.User{Name: "Alice", Email: "alice@x.com", Password: "secret"})
	require.NoError(t, err)
	assert.NotZero(t, user.ID)

	_, err = s.CreateUser(ctx, &domain.User{Name: "Alice", Email: "alice@x.com", Password: "other"})
	assert.True(t, errors.Is(err, domain.ErrConflict), "got %v", err)

	// регистр и пробелы не создают второй аккаунт
	_, err = s.CreateUser(ctx, &domain.User{Name: "Alice", Email: " ALICE@x.com", Password: "other"})
	assert.True(t, errors.Is(err, domain.ErrConflict), "got %v", err)

	retrieved, err := s.GetUserByEmail(ctx, "alice@x.com")
	require.NoError(t, err)
	assert.Equal(t, "secret", retrieved.Password)

	retrieved, err = s.GetUserByEmail(ctx, "ALICE@X.COM")
	require.NoError(t, err)
	assert.Equal(t, user.ID, retrieved.ID)

	mixed, err := s.CreateUser(ctx, &domain.User{Name: "Bob", Email: "Bob@X.com", Password: "pw"})
	require.NoError(t, err)
	retrieved, err = s.GetUserByEmail(ctx, "bob@x.com")
	require.NoError(t, err)
	assert.Equal(t, mixed.ID, retrieved.ID)

	_, err = s.GetUserByEmail(ctx, "nobody@x.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
