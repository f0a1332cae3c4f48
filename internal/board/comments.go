package board

import (
	"context"
	"fmt"
	"strings"

	"github.com/UkralStul/noticeboard/internal/auth"
	"github.com/UkralStul/noticeboard/internal/domain"
	"github.com/UkralStul/noticeboard/internal/events"
	"github.com/UkralStul/noticeboard/internal/metrics"
)

// Comments управляет комментариями к постам.
type Comments struct {
	base
	requirePost bool
}

func (c *Comments) Create(ctx context.Context, postID int64, author domain.Identity, content string) (*domain.Comment, error) {
	if author.Blank() || strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("author and content are required: %w", domain.ErrInvalidInput)
	}

	comment, err := c.store.CreateComment(ctx, &domain.Comment{
		PostID:  postID,
		Author:  author,
		Content: content,
	}, c.requirePost)
	if err != nil {
		return nil, err
	}

	metrics.CommentsCreated.Inc()
	c.logger.Debug("comment created", "id", comment.ID, "post", postID)
	c.publish(ctx, events.Event{Type: events.CommentCreated, PostID: postID, Comment: comment})
	return comment, nil
}

func (c *Comments) ListByPost(ctx context.Context, postID int64) ([]*domain.Comment, error) {
	return c.store.GetCommentsByPostID(ctx, postID)
}

// Delete удаляет комментарий и лайки к нему.
func (c *Comments) Delete(ctx context.Context, id int64, claimed domain.Identity) error {
	if claimed.Blank() {
		return domain.ErrUnauthenticated
	}
	comment, err := c.store.DeleteComment(ctx, id, auth.Owner(claimed))
	if err != nil {
		return fmt.Errorf("delete comment %d: %w", id, err)
	}

	metrics.CommentsDeleted.Inc()
	c.logger.Debug("comment deleted", "id", id, "post", comment.PostID)
	c.publish(ctx, events.Event{Type: events.CommentDeleted, PostID: comment.PostID, Comment: comment})
	return nil
}
