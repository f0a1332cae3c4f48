package board

import (
	"context"
	"fmt"
	"strings"

	"github.com/UkralStul/noticeboard/internal/auth"
	"github.com/UkralStul/noticeboard/internal/domain"
	"github.com/UkralStul/noticeboard/internal/events"
	"github.com/UkralStul/noticeboard/internal/metrics"
	"github.com/UkralStul/noticeboard/internal/storage"
)

// NewPost - данные для публикации поста.
type NewPost struct {
	AuthorName string
	Author     domain.Identity
	Title      string
	Content    string
}

// ListFilter - необязательный фильтр списка постов.
type ListFilter struct {
	OnlyAuthor domain.Identity
}

// Posts управляет жизненным циклом постов.
type Posts struct {
	base
}

func (p *Posts) Create(ctx context.Context, in NewPost) (int64, error) {
	post, err := p.store.CreatePost(ctx, &domain.Post{
		AuthorName: in.AuthorName,
		Author:     in.Author,
		Title:      in.Title,
		Content:    in.Content,
	})
	if err != nil {
		return 0, err
	}

	metrics.PostsCreated.Inc()
	p.logger.Info("post created", "id", post.ID, "author", post.Author)
	return post.ID, nil
}

// List возвращает посты по убыванию просмотров.
func (p *Posts) List(ctx context.Context, filter ListFilter) ([]*domain.Post, error) {
	return p.store.ListPosts(ctx, storage.PostFilter{
		OnlyAuthor: domain.Identity(strings.TrimSpace(string(filter.OnlyAuthor))),
	})
}

// Detail возвращает пост с количеством комментариев.
func (p *Posts) Detail(ctx context.Context, id int64) (*domain.PostDetail, error) {
	post, err := p.store.GetPostByID(ctx, id)
	if err != nil {
		return nil, err
	}
	counts, err := p.store.CountCommentsByPostIDs(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	return &domain.PostDetail{Post: *post, CommentCount: counts[id]}, nil
}

func (p *Posts) Update(ctx context.Context, id int64, claimed domain.Identity, title, content string) error {
	if claimed.Blank() {
		return domain.ErrUnauthenticated
	}
	if err := p.store.UpdatePost(ctx, id, auth.Owner(claimed), title, content); err != nil {
		return fmt.Errorf("update post %d: %w", id, err)
	}

	p.logger.Info("post updated", "id", id, "by", claimed)
	return nil
}

// Delete удаляет пост вместе с его комментариями и всеми связанными лайками.
func (p *Posts) Delete(ctx context.Context, id int64, claimed domain.Identity) error {
	if claimed.Blank() {
		return domain.ErrUnauthenticated
	}
	if err := p.store.DeletePost(ctx, id, auth.Owner(claimed)); err != nil {
		return fmt.Errorf("delete post %d: %w", id, err)
	}

	metrics.PostsDeleted.Inc()
	p.logger.Info("post deleted", "id", id, "by", claimed)
	p.publish(ctx, events.Event{Type: events.PostDeleted, PostID: id})
	return nil
}
