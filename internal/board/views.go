package board

import (
	"context"

	"github.com/UkralStul/noticeboard/internal/metrics"
)

// Views считает просмотры постов. Каждый вызов добавляет ровно один просмотр.
type Views struct {
	base
}

func (v *Views) Increment(ctx context.Context, postID int64) error {
	if err := v.store.IncrementViews(ctx, postID); err != nil {
		return err
	}
	metrics.PostViews.Inc()
	return nil
}
