package events

import (
	"context"
	"time"

	"github.com/UkralStul/noticeboard/internal/domain"
)

// Type - вид события вовлеченности.
type Type string

const (
	CommentCreated Type = "comment.created"
	CommentDeleted Type = "comment.deleted"
	PostDeleted    Type = "post.deleted"
	LikeToggled    Type = "like.toggled"
)

// Event описывает изменение контента. PostID заполнен для всех событий,
// относящихся к посту, Comment - для событий комментариев.
type Event struct {
	Type       Type               `json:"type"`
	PostID     int64              `json:"postId,omitempty"`
	Comment    *domain.Comment    `json:"comment,omitempty"`
	Target     *domain.LikeTarget `json:"target,omitempty"`
	User       domain.Identity    `json:"user,omitempty"`
	Liked      bool               `json:"liked,omitempty"`
	OccurredAt time.Time          `json:"occurredAt"`
}

// Publisher доставляет события подписчикам. Ошибки публикации не влияют на
// результат операции, вызвавшей событие.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Multi рассылает событие всем издателям и возвращает первую ошибку.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, event Event) error {
	var first error
	for _, p := range m {
		if err := p.Publish(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Nop игнорирует события.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
