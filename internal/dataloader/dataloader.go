package dataloader

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/graph-gophers/dataloader"

	"github.com/UkralStul/noticeboard/internal/domain"
	"github.com/UkralStul/noticeboard/internal/storage"
)

type contextKey string

const key = contextKey("dataloaders")

// Loaders содержит все дата-лоадеры приложения.
type Loaders struct {
	CommentCountByPostID *dataloader.Loader
	LikeCountByTarget    *dataloader.Loader
}

// NewLoaders создает лоадеры одного запроса.
func NewLoaders(store storage.Storage) *Loaders {
	return &Loaders{
		CommentCountByPostID: dataloader.NewBatchedLoader(commentCountBatch(store), dataloader.WithWait(time.Millisecond*1)),
		LikeCountByTarget:    dataloader.NewBatchedLoader(likeCountBatch(store), dataloader.WithWait(time.Millisecond*1)),
	}
}

// Middleware для внедрения лоадеров в контекст запроса.
func Middleware(store storage.Storage, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), key, NewLoaders(store))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// For извлекает лоадеры из контекста.
func For(ctx context.Context) *Loaders {
	return ctx.Value(key).(*Loaders)
}

func PostKey(id int64) dataloader.Key {
	return dataloader.StringKey(strconv.FormatInt(id, 10))
}

func TargetKey(t domain.LikeTarget) dataloader.Key {
	return dataloader.StringKey(string(t.Kind) + ":" + strconv.FormatInt(t.ID, 10))
}

func parseTargetKey(k string) (domain.LikeTarget, error) {
	kind, id, ok := strings.Cut(k, ":")
	if !ok {
		return domain.LikeTarget{}, fmt.Errorf("malformed target key %q", k)
	}
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return domain.LikeTarget{}, err
	}
	return domain.LikeTarget{Kind: domain.TargetKind(kind), ID: n}, nil
}

func failAll(n int, err error) []*dataloader.Result {
	results := make([]*dataloader.Result, n)
	for i := range results {
		results[i] = &dataloader.Result{Error: err}
	}
	return results
}

func commentCountBatch(store storage.Storage) dataloader.BatchFunc {
	return func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		postIDs := make([]int64, len(keys))
		for i, k := range keys {
			id, err := strconv.ParseInt(k.String(), 10, 64)
			if err != nil {
				return failAll(len(keys), err)
			}
			postIDs[i] = id
		}

		// Один запрос к хранилищу на все ключи
		counts, err := store.CountCommentsByPostIDs(ctx, postIDs)
		if err != nil {
			return failAll(len(keys), err)
		}

		// Результат в том же порядке, что и ключи
		results := make([]*dataloader.Result, len(keys))
		for i, id := range postIDs {
			results[i] = &dataloader.Result{Data: counts[id]}
		}
		return results
	}
}

func likeCountBatch(store storage.Storage) dataloader.BatchFunc {
	return func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		targets := make([]domain.LikeTarget, len(keys))
		for i, k := range keys {
			t, err := parseTargetKey(k.String())
			if err != nil {
				return failAll(len(keys), err)
			}
			targets[i] = t
		}

		counts, err := store.CountLikesByTargets(ctx, targets)
		if err != nil {
			return failAll(len(keys), err)
		}

		results := make([]*dataloader.Result, len(keys))
		for i, t := range targets {
			results[i] = &dataloader.Result{Data: counts[t]}
		}
		return results
	}
}

// CommentCounts загружает количество комментариев для набора постов одним батчем.
func (l *Loaders) CommentCounts(ctx context.Context, postIDs []int64) (map[int64]int64, error) {
	thunks := make([]dataloader.Thunk, len(postIDs))
	for i, id := range postIDs {
		thunks[i] = l.CommentCountByPostID.Load(ctx, PostKey(id))
	}
	out := make(map[int64]int64, len(postIDs))
	for i, thunk := range thunks {
		v, err := thunk()
		if err != nil {
			return nil, err
		}
		out[postIDs[i]] = v.(int64)
	}
	return out, nil
}

// LikeCounts загружает количество лайков для набора целей одним батчем.
func (l *Loaders) LikeCounts(ctx context.Context, targets []domain.LikeTarget) (map[domain.LikeTarget]int64, error) {
	thunks := make([]dataloader.Thunk, len(targets))
	for i, t := range targets {
		thunks[i] = l.LikeCountByTarget.Load(ctx, TargetKey(t))
	}
	out := make(map[domain.LikeTarget]int64, len(targets))
	for i, thunk := range thunks {
		v, err := thunk()
		if err != nil {
			return nil, err
		}
		out[targets[i]] = v.(int64)
	}
	return out, nil
}
