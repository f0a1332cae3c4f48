package inmemory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UkralStul/noticeboard/internal/domain"
	"github.com/UkralStul/noticeboard/internal/storage"
	"github.com/UkralStul/noticeboard/internal/storage/storagetest"
)

// newTestStore создает хранилище и один пост для тестов
func newTestStore(t *testing.T) (*Store, *domain.Post) {
	store := New()
	post, err := store.CreatePost(context.Background(), &domain.Post{
		AuthorName: "Alice",
		Author:     "alice@x.com",
		Title:      "Test Post",
		Content:    "Content",
	})
	require.NoError(t, err)
	return store, post
}

func TestStore_Contract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Storage { return New() }, storagetest.Options{Concurrency: 200})
}

func TestStore_ReturnsCopies(t *testing.T) {
	store, post := newTestStore(t)
	ctx := context.Background()

	post.Title = "mutated"
	retrieved, err := store.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Test Post", retrieved.Title)

	retrieved.Views = 100
	again, err := store.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Zero(t, again.Views)
}

func TestStore_DeleteComment_KeepsOrder(t *testing.T) {
	store, post := newTestStore(t)
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 3; i++ {
		c, err := store.CreateComment(ctx, &domain.Comment{PostID: post.ID, Author: "bob@x.com", Content: "c"}, true)
		require.NoError(t, err)
		ids = append(ids, c.ID)
	}

	_, err := store.DeleteComment(ctx, ids[1], func(domain.Identity) error { return nil })
	require.NoError(t, err)

	comments, err := store.GetCommentsByPostID(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, ids[0], comments[0].ID)
	assert.Equal(t, ids[2], comments[1].ID)

	counts, err := store.CountCommentsByPostIDs(ctx, []int64{post.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[post.ID])
}

func TestStore_CreatePost_IgnoresClientFields(t *testing.T) {
	store := New()
	post, err := store.CreatePost(context.Background(), &domain.Post{ID: 42, Views: 7, Author: "alice@x.com", Title: "t"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), post.ID)
	assert.Zero(t, post.Views)
}
