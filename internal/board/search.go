package board

import (
	"context"
	"fmt"

	"github.com/UkralStul/noticeboard/internal/domain"
	"github.com/UkralStul/noticeboard/internal/metrics"
)

// Search ищет посты по подстроке в заголовке или имени автора.
type Search struct {
	base
}

func (s *Search) Search(ctx context.Context, field domain.SearchField, keyword string) ([]*domain.Post, error) {
	if keyword == "" {
		return nil, fmt.Errorf("keyword is required: %w", domain.ErrInvalidInput)
	}
	if !field.Valid() {
		return nil, fmt.Errorf("unknown search type %q: %w", field, domain.ErrInvalidInput)
	}

	metrics.Searches.WithLabelValues(string(field)).Inc()
	return s.store.SearchPosts(ctx, field, keyword)
}
