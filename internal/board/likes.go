package board

import (
	"context"
	"fmt"
	"strconv"

	"github.com/UkralStul/noticeboard/internal/domain"
	"github.com/UkralStul/noticeboard/internal/events"
	"github.com/UkralStul/noticeboard/internal/metrics"
)

// Likes хранит отметки "нравится" для постов и комментариев.
type Likes struct {
	base
}

func normalizeUser(user domain.Identity) (domain.Identity, error) {
	if user.Blank() {
		return "", fmt.Errorf("user is required: %w", domain.ErrInvalidInput)
	}
	return user.Canonical(), nil
}

// Toggle ставит лайк, если его не было, и снимает, если был.
func (l *Likes) Toggle(ctx context.Context, user domain.Identity, target domain.LikeTarget) (bool, error) {
	user, err := normalizeUser(user)
	if err != nil {
		return false, err
	}

	liked, err := l.store.ToggleLike(ctx, user, target)
	if err != nil {
		return false, err
	}

	metrics.LikesToggled.WithLabelValues(string(target.Kind), strconv.FormatBool(liked)).Inc()
	l.publish(ctx, events.Event{
		Type:   events.LikeToggled,
		PostID: l.postOf(ctx, target),
		Target: &target,
		User:   user,
		Liked:  liked,
	})
	return liked, nil
}

func (l *Likes) Status(ctx context.Context, user domain.Identity, target domain.LikeTarget) (domain.LikeStatus, error) {
	user, err := normalizeUser(user)
	if err != nil {
		return domain.LikeStatus{}, err
	}
	return l.store.GetLikeStatus(ctx, user, target)
}

func (l *Likes) Remove(ctx context.Context, user domain.Identity, target domain.LikeTarget) error {
	user, err := normalizeUser(user)
	if err != nil {
		return err
	}
	return l.store.RemoveLike(ctx, user, target)
}

// postOf находит пост, к которому относится цель, для адресации события.
func (l *Likes) postOf(ctx context.Context, target domain.LikeTarget) int64 {
	if target.Kind == domain.TargetPost {
		return target.ID
	}
	comment, err := l.store.GetCommentByID(ctx, target.ID)
	if err != nil {
		return 0
	}
	return comment.PostID
}
