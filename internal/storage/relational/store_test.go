package relational

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/UkralStul/noticeboard/internal/domain"
	"github.com/UkralStul/noticeboard/internal/storage"
	"github.com/UkralStul/noticeboard/internal/storage/storagetest"
)

func newSQLiteStore(t *testing.T) *Store {
	t.Helper()

	store, err := New(SQLite(filepath.Join(t.TempDir(), "board.db")), Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLite_Contract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Storage { return newSQLiteStore(t) }, storagetest.Options{Concurrency: 40})
}

func TestSQLite_Ping(t *testing.T) {
	store := newSQLiteStore(t)
	require.NoError(t, store.Ping(context.Background()))
}

func TestSQLite_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.db")

	store, err := New(SQLite(path), Options{})
	require.NoError(t, err)
	post, err := store.CreatePost(context.Background(), &domain.Post{Author: "alice@x.com", Title: "persisted"})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := New(SQLite(path), Options{})
	require.NoError(t, err)
	defer reopened.Close()

	retrieved, err := reopened.GetPostByID(context.Background(), post.ID)
	require.NoError(t, err)
	assert.Equal(t, "persisted", retrieved.Title)
}

// abortOn ставит триггер, который прерывает DELETE из таблицы посреди каскада.
func abortOn(t *testing.T, store *Store, table string) {
	t.Helper()

	require.NoError(t, store.db.Exec(
		"CREATE TRIGGER abort_delete_" + table + " BEFORE DELETE ON " + table +
			" BEGIN SELECT RAISE(ABORT, 'delete blocked'); END").Error)
}

func seedThread(t *testing.T, store *Store) (*domain.Post, *domain.Comment) {
	t.Helper()
	ctx := context.Background()

	post, err := store.CreatePost(ctx, &domain.Post{Author: "alice@x.com", Title: "thread"})
	require.NoError(t, err)
	comment, err := store.CreateComment(ctx, &domain.Comment{PostID: post.ID, Author: "carol@x.com", Content: "hi"}, true)
	require.NoError(t, err)

	for _, target := range []domain.LikeTarget{domain.PostTarget(post.ID), domain.CommentTarget(comment.ID)} {
		liked, err := store.ToggleLike(ctx, "dave@x.com", target)
		require.NoError(t, err)
		require.True(t, liked)
	}
	return post, comment
}

func TestSQLite_DeletePostRollsBack(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()
	post, comment := seedThread(t, store)

	// лайки уже удалены к моменту удаления комментариев
	abortOn(t, store, "comments")

	err := store.DeletePost(ctx, post.ID, func(domain.Identity) error { return nil })
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)

	_, err = store.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	_, err = store.GetCommentByID(ctx, comment.ID)
	require.NoError(t, err)

	counts, err := store.CountLikesByTargets(ctx, []domain.LikeTarget{
		domain.PostTarget(post.ID),
		domain.CommentTarget(comment.ID),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[domain.PostTarget(post.ID)])
	assert.Equal(t, int64(1), counts[domain.CommentTarget(comment.ID)])
}

func TestSQLite_DeleteCommentRollsBack(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()
	post, comment := seedThread(t, store)

	abortOn(t, store, "comments")

	_, err := store.DeleteComment(ctx, comment.ID, func(domain.Identity) error { return nil })
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)

	status, err := store.GetLikeStatus(ctx, "dave@x.com", domain.CommentTarget(comment.ID))
	require.NoError(t, err)
	assert.Equal(t, domain.LikeStatus{Count: 1, LikedByUser: true}, status)

	comments, err := store.GetCommentsByPostID(ctx, post.ID)
	require.NoError(t, err)
	assert.Len(t, comments, 1)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%`, escapeLike("100%"))
	assert.Equal(t, `a\_b`, escapeLike("a_b"))
	assert.Equal(t, `c:\\dir`, escapeLike(`c:\dir`))
	assert.Equal(t, "plain", escapeLike("plain"))
}

func TestWrap(t *testing.T) {
	assert.NoError(t, wrap("op", nil))
	assert.ErrorIs(t, wrap("op", gorm.ErrRecordNotFound), domain.ErrNotFound)
	assert.ErrorIs(t, wrap("op", gorm.ErrDuplicatedKey), domain.ErrConflict)
	assert.ErrorIs(t, wrap("op", &pgconn.PgError{Code: uniqueViolation}), domain.ErrConflict)
	assert.ErrorIs(t, wrap("op", domain.ErrForbidden), domain.ErrForbidden)

	err := wrap("op", errors.New("connection refused"))
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	assert.Contains(t, err.Error(), "connection refused")
}
