package board

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UkralStul/noticeboard/internal/domain"
	"github.com/UkralStul/noticeboard/internal/events"
	"github.com/UkralStul/noticeboard/internal/storage/inmemory"
)

func newTestBoard(t *testing.T, opts Options) (*Board, *events.Observer) {
	t.Helper()

	observer := events.NewObserver()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(inmemory.New(), logger, observer, opts), observer
}

func createPost(t *testing.T, b *Board, author domain.Identity, title string) int64 {
	t.Helper()

	id, err := b.Posts.Create(context.Background(), NewPost{
		AuthorName: "Author",
		Author:     author,
		Title:      title,
		Content:    "content",
	})
	require.NoError(t, err)
	return id
}

func TestPosts_UpdateOwnership(t *testing.T) {
	b, _ := newTestBoard(t, Options{CommentsRequirePost: true})
	ctx := context.Background()
	id := createPost(t, b, "alice@x.com", "T1")

	err := b.Posts.Update(ctx, id, "bob@x.com", "hacked", "hacked")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	err = b.Posts.Update(ctx, id, "", "T2", "c")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	require.NoError(t, b.Posts.Update(ctx, id, " ALICE@x.com ", "T2", "new content"))

	detail, err := b.Posts.Detail(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "T2", detail.Title)
	assert.Equal(t, "new content", detail.Content)

	err = b.Posts.Update(ctx, id+100, "alice@x.com", "T3", "c")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPosts_DetailCommentCount(t *testing.T) {
	b, _ := newTestBoard(t, Options{CommentsRequirePost: true})
	ctx := context.Background()
	id := createPost(t, b, "alice@x.com", "T1")

	for i := 0; i < 3; i++ {
		_, err := b.Comments.Create(ctx, id, "carol@x.com", "hi")
		require.NoError(t, err)
	}

	detail, err := b.Posts.Detail(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(3), detail.CommentCount)

	_, err = b.Posts.Detail(ctx, id+1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPosts_ListOrderAndFilter(t *testing.T) {
	b, _ := newTestBoard(t, Options{})
	ctx := context.Background()

	low := createPost(t, b, "alice@x.com", "low")
	high := createPost(t, b, "bob@x.com", "high")
	mid := createPost(t, b, "Alice@X.com", "mid")

	for i := 0; i < 3; i++ {
		require.NoError(t, b.Views.Increment(ctx, high))
	}
	require.NoError(t, b.Views.Increment(ctx, mid))

	posts, err := b.Posts.List(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, posts, 3)
	assert.Equal(t, []int64{high, mid, low}, []int64{posts[0].ID, posts[1].ID, posts[2].ID})

	mine, err := b.Posts.List(ctx, ListFilter{OnlyAuthor: "  alice@x.com "})
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, mid, mine[0].ID)
	assert.Equal(t, low, mine[1].ID)
}

func TestViews_ConcurrentIncrements(t *testing.T) {
	b, _ := newTestBoard(t, Options{})
	ctx := context.Background()
	id := createPost(t, b, "alice@x.com", "popular")

	const n = 200
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			assert.NoError(t, b.Views.Increment(ctx, id))
		}()
	}
	wg.Wait()

	detail, err := b.Posts.Detail(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(n), detail.Views)

	assert.ErrorIs(t, b.Views.Increment(ctx, id+1), domain.ErrNotFound)
}

func TestPosts_DeleteCascadeIsolation(t *testing.T) {
	b, observer := newTestBoard(t, Options{CommentsRequirePost: true})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	doomed := createPost(t, b, "alice@x.com", "doomed")
	kept := createPost(t, b, "alice@x.com", "kept")

	doomedComment, err := b.Comments.Create(ctx, doomed, "carol@x.com", "bye")
	require.NoError(t, err)
	keptComment, err := b.Comments.Create(ctx, kept, "carol@x.com", "stay")
	require.NoError(t, err)

	_, err = b.Likes.Toggle(ctx, "dave@x.com", domain.CommentTarget(doomedComment.ID))
	require.NoError(t, err)
	_, err = b.Likes.Toggle(ctx, "dave@x.com", domain.CommentTarget(keptComment.ID))
	require.NoError(t, err)
	_, err = b.Likes.Toggle(ctx, "dave@x.com", domain.PostTarget(doomed))
	require.NoError(t, err)

	feed := observer.Subscribe(ctx, doomed, 1)

	assert.ErrorIs(t, b.Posts.Delete(ctx, doomed, "bob@x.com"), domain.ErrForbidden)
	assert.ErrorIs(t, b.Posts.Delete(ctx, doomed, " "), domain.ErrUnauthenticated)
	require.NoError(t, b.Posts.Delete(ctx, doomed, "Alice@x.com"))

	select {
	case ev := <-feed:
		assert.Equal(t, events.PostDeleted, ev.Type)
	case <-time.After(time.Second):
		t.Fatal("post.deleted not published")
	}

	_, err = b.Posts.Detail(ctx, doomed)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	comments, err := b.Comments.ListByPost(ctx, doomed)
	require.NoError(t, err)
	assert.Empty(t, comments)

	status, err := b.Likes.Status(ctx, "dave@x.com", domain.CommentTarget(doomedComment.ID))
	require.NoError(t, err)
	assert.Equal(t, domain.LikeStatus{}, status)

	status, err = b.Likes.Status(ctx, "dave@x.com", domain.CommentTarget(keptComment.ID))
	require.NoError(t, err)
	assert.Equal(t, domain.LikeStatus{Count: 1, LikedByUser: true}, status)

	comments, err = b.Comments.ListByPost(ctx, kept)
	require.NoError(t, err)
	assert.Len(t, comments, 1)

	assert.ErrorIs(t, b.Posts.Delete(ctx, doomed, "alice@x.com"), domain.ErrNotFound)
}

func TestComments_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("validation", func(t *testing.T) {
		b, _ := newTestBoard(t, Options{CommentsRequirePost: true})
		id := createPost(t, b, "alice@x.com", "T")

		_, err := b.Comments.Create(ctx, id, "", "content")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		_, err = b.Comments.Create(ctx, id, "carol@x.com", "  ")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("missing post rejected", func(t *testing.T) {
		b, _ := newTestBoard(t, Options{CommentsRequirePost: true})

		_, err := b.Comments.Create(ctx, 42, "carol@x.com", "orphan")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("missing post allowed", func(t *testing.T) {
		b, _ := newTestBoard(t, Options{CommentsRequirePost: false})

		comment, err := b.Comments.Create(ctx, 42, "carol@x.com", "orphan")
		require.NoError(t, err)
		assert.Equal(t, int64(42), comment.PostID)
	})

	t.Run("insertion order", func(t *testing.T) {
		b, _ := newTestBoard(t, Options{CommentsRequirePost: true})
		id := createPost(t, b, "alice@x.com", "T")

		for _, text := range []string{"first", "second", "third"} {
			_, err := b.Comments.Create(ctx, id, "carol@x.com", text)
			require.NoError(t, err)
		}

		comments, err := b.Comments.ListByPost(ctx, id)
		require.NoError(t, err)
		require.Len(t, comments, 3)
		assert.Equal(t, "first", comments[0].Content)
		assert.Equal(t, "third", comments[2].Content)
	})
}

func TestComments_Delete(t *testing.T) {
	b, _ := newTestBoard(t, Options{CommentsRequirePost: true})
	ctx := context.Background()
	id := createPost(t, b, "alice@x.com", "T")

	comment, err := b.Comments.Create(ctx, id, "carol@x.com", "mine")
	require.NoError(t, err)
	other, err := b.Comments.Create(ctx, id, "carol@x.com", "other")
	require.NoError(t, err)

	_, err = b.Likes.Toggle(ctx, "dave@x.com", domain.CommentTarget(comment.ID))
	require.NoError(t, err)
	_, err = b.Likes.Toggle(ctx, "dave@x.com", domain.CommentTarget(other.ID))
	require.NoError(t, err)

	// автор поста не является автором комментария
	assert.ErrorIs(t, b.Comments.Delete(ctx, comment.ID, "alice@x.com"), domain.ErrForbidden)
	assert.ErrorIs(t, b.Comments.Delete(ctx, comment.ID, ""), domain.ErrUnauthenticated)
	require.NoError(t, b.Comments.Delete(ctx, comment.ID, "CAROL@x.com"))
	assert.ErrorIs(t, b.Comments.Delete(ctx, comment.ID, "carol@x.com"), domain.ErrNotFound)

	status, err := b.Likes.Status(ctx, "dave@x.com", domain.CommentTarget(comment.ID))
	require.NoError(t, err)
	assert.Zero(t, status.Count)

	status, err = b.Likes.Status(ctx, "dave@x.com", domain.CommentTarget(other.ID))
	require.NoError(t, err)
	assert.Equal(t, int64(1), status.Count)
}

func TestLikes_ToggleAndStatus(t *testing.T) {
	b, _ := newTestBoard(t, Options{CommentsRequirePost: true})
	ctx := context.Background()
	id := createPost(t, b, "alice@x.com", "T")

	comment, err := b.Comments.Create(ctx, id, "carol@x.com", "like me")
	require.NoError(t, err)
	target := domain.CommentTarget(comment.ID)

	liked, err := b.Likes.Toggle(ctx, "dave@x.com", target)
	require.NoError(t, err)
	assert.True(t, liked)

	status, err := b.Likes.Status(ctx, "erin@x.com", target)
	require.NoError(t, err)
	assert.Equal(t, domain.LikeStatus{Count: 1, LikedByUser: false}, status)

	status, err = b.Likes.Status(ctx, "dave@x.com", target)
	require.NoError(t, err)
	assert.Equal(t, domain.LikeStatus{Count: 1, LikedByUser: true}, status)

	liked, err = b.Likes.Toggle(ctx, "dave@x.com", target)
	require.NoError(t, err)
	assert.False(t, liked)

	status, err = b.Likes.Status(ctx, "dave@x.com", target)
	require.NoError(t, err)
	assert.Equal(t, domain.LikeStatus{}, status)

	_, err = b.Likes.Status(ctx, "", target)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = b.Likes.Toggle(ctx, " ", target)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = b.Likes.Toggle(ctx, "dave@x.com", domain.CommentTarget(comment.ID+99))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLikes_Remove(t *testing.T) {
	b, _ := newTestBoard(t, Options{})
	ctx := context.Background()
	id := createPost(t, b, "alice@x.com", "T")
	target := domain.PostTarget(id)

	assert.ErrorIs(t, b.Likes.Remove(ctx, "dave@x.com", target), domain.ErrNotFound)

	_, err := b.Likes.Toggle(ctx, "dave@x.com", target)
	require.NoError(t, err)
	require.NoError(t, b.Likes.Remove(ctx, "dave@x.com", target))
	assert.ErrorIs(t, b.Likes.Remove(ctx, "dave@x.com", target), domain.ErrNotFound)
}

func TestSearch(t *testing.T) {
	b, _ := newTestBoard(t, Options{})
	ctx := context.Background()

	_, err := b.Posts.Create(ctx, NewPost{AuthorName: "Alice", Author: "alice@x.com", Title: "Foo fighters"})
	require.NoError(t, err)
	_, err = b.Posts.Create(ctx, NewPost{AuthorName: "Bob", Author: "bob@x.com", Title: "about FOOD"})
	require.NoError(t, err)
	_, err = b.Posts.Create(ctx, NewPost{AuthorName: "Carol", Author: "carol@x.com", Title: "bar"})
	require.NoError(t, err)

	_, err = b.Search.Search(ctx, domain.SearchByTitle, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = b.Search.Search(ctx, "content", "foo")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	found, err := b.Search.Search(ctx, domain.SearchByTitle, "foo")
	require.NoError(t, err)
	require.Len(t, found, 2)
	for _, p := range found {
		assert.Contains(t, []string{"Foo fighters", "about FOOD"}, p.Title)
	}

	found, err = b.Search.Search(ctx, domain.SearchByName, "CAR")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "bar", found[0].Title)
}

func TestUsers_SignupLogin(t *testing.T) {
	b, _ := newTestBoard(t, Options{})
	ctx := context.Background()

	_, err := b.Users.Signup(ctx, "Alice", "alice@x.com", "secret")
	require.NoError(t, err)

	_, err = b.Users.Signup(ctx, "Alice again", "alice@x.com", "other")
	assert.ErrorIs(t, err, domain.ErrConflict)

	user, err := b.Users.Login(ctx, "alice@x.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.Name)

	_, err = b.Users.Login(ctx, "alice@x.com", "wrong")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	_, err = b.Users.Login(ctx, "nobody@x.com", "secret")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	_, err = b.Users.Login(ctx, "", "secret")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSeed(t *testing.T) {
	b, _ := newTestBoard(t, Options{CommentsRequirePost: true})
	ctx := context.Background()

	require.NoError(t, Seed(ctx, b))

	posts, err := b.Posts.List(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, posts, 2)

	detail, err := b.Posts.Detail(ctx, posts[0].ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), detail.CommentCount)

	status, err := b.Likes.Status(ctx, "boris@example.com", domain.PostTarget(posts[0].ID))
	require.NoError(t, err)
	assert.Equal(t, domain.LikeStatus{Count: 1, LikedByUser: true}, status)

	_, err = b.Users.Login(ctx, "anna@example.com", "password")
	require.NoError(t, err)

	// повторный запуск не дублирует данные
	require.NoError(t, Seed(ctx, b))
	posts, err = b.Posts.List(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Len(t, posts, 2)
}

func TestUsers_EmailCaseInsensitive(t *testing.T) {
	b, _ := newTestBoard(t, Options{})
	ctx := context.Background()

	_, err := b.Users.Signup(ctx, "Alice", "Alice@x.com", "secret")
	require.NoError(t, err)

	_, err = b.Users.Signup(ctx, "Alice again", "alice@X.COM", "other")
	assert.ErrorIs(t, err, domain.ErrConflict)

	for _, email := range []domain.Identity{"alice@x.com", "ALICE@X.COM", " Alice@x.com "} {
		user, err := b.Users.Login(ctx, email, "secret")
		require.NoError(t, err, email)
		assert.Equal(t, "Alice", user.Name)
	}
}

func TestLikes_UserCaseInsensitive(t *testing.T) {
	b, observer := newTestBoard(t, Options{CommentsRequirePost: true})
	ctx := context.Background()
	postID := createPost(t, b, "alice@x.com", "T")
	target := domain.PostTarget(postID)

	sub, cancel := context.WithCancel(ctx)
	defer cancel()
	feed := observer.Subscribe(sub, postID, 4)

	liked, err := b.Likes.Toggle(ctx, "Dave@X.com", target)
	require.NoError(t, err)
	assert.True(t, liked)

	select {
	case event := <-feed:
		assert.Equal(t, domain.Identity("dave@x.com"), event.User)
	case <-time.After(time.Second):
		t.Fatal("like event was not published")
	}

	status, err := b.Likes.Status(ctx, "dave@x.com", target)
	require.NoError(t, err)
	assert.Equal(t, domain.LikeStatus{Count: 1, LikedByUser: true}, status)

	liked, err = b.Likes.Toggle(ctx, "DAVE@x.com ", target)
	require.NoError(t, err)
	assert.False(t, liked)

	status, err = b.Likes.Status(ctx, "dave@x.com", target)
	require.NoError(t, err)
	assert.Zero(t, status.Count)
}
