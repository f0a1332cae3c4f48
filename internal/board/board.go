package board

import (
	"context"
	"log/slog"
	"time"

	"github.com/UkralStul/noticeboard/internal/auth"
	"github.com/UkralStul/noticeboard/internal/events"
	"github.com/UkralStul/noticeboard/internal/storage"
)

// Options настраивает поведение компонентов доски.
type Options struct {
	// CommentsRequirePost запрещает комментарии к несуществующим постам.
	// При false комментарий сохраняется без проверки поста.
	CommentsRequirePost bool
	Verifier            auth.Verifier
}

// Board объединяет компоненты, работающие поверх одного хранилища.
type Board struct {
	Posts    *Posts
	Views    *Views
	Comments *Comments
	Likes    *Likes
	Search   *Search
	Users    *Users
}

// New собирает компоненты доски. publisher может быть nil.
func New(store storage.Storage, logger *slog.Logger, publisher events.Publisher, opts Options) *Board {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if opts.Verifier == nil {
		opts.Verifier = auth.Plain{}
	}

	b := func(component string) base {
		return base{
			store:     store,
			logger:    logger.With("component", component),
			publisher: publisher,
		}
	}

	return &Board{
		Posts:    &Posts{base: b("board.Posts")},
		Views:    &Views{base: b("board.Views")},
		Comments: &Comments{base: b("board.Comments"), requirePost: opts.CommentsRequirePost},
		Likes:    &Likes{base: b("board.Likes")},
		Search:   &Search{base: b("board.Search")},
		Users:    &Users{base: b("board.Users"), verifier: opts.Verifier},
	}
}

type base struct {
	store     storage.Storage
	logger    *slog.Logger
	publisher events.Publisher
}

func (b base) publish(ctx context.Context, event events.Event) {
	event.OccurredAt = time.Now().UTC()
	if err := b.publisher.Publish(ctx, event); err != nil {
		b.logger.Warn("failed to publish event", "type", event.Type, "error", err)
	}
}
