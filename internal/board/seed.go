package board

import (
	"context"
	"errors"
	"fmt"

	"github.com/UkralStul/noticeboard/internal/domain"
)

// Seed заполняет пустую доску демонстрационными данными.
// Если посты уже есть, ничего не делает.
func Seed(ctx context.Context, b *Board) error {
	existing, err := b.Posts.List(ctx, ListFilter{})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	// 1. Пользователи. Повторная регистрация не ошибка.
	for _, u := range []struct {
		name  string
		email domain.Identity
	}{
		{"Анна", "anna@example.com"},
		{"Борис", "boris@example.com"},
	} {
		if _, err := b.Users.Signup(ctx, u.name, u.email, "password"); err != nil && !errors.Is(err, domain.ErrConflict) {
			return fmt.Errorf("seed: failed to create user %s: %w", u.email, err)
		}
	}

	// 2. Пост с комментариями и лайками.
	postID, err := b.Posts.Create(ctx, NewPost{
		AuthorName: "Анна",
		Author:     "anna@example.com",
		Title:      "Продам велосипед",
		Content:    "Почти новый, пробег 200 км. Самовывоз.",
	})
	if err != nil {
		return fmt.Errorf("seed: failed to create post: %w", err)
	}

	comment, err := b.Comments.Create(ctx, postID, "boris@example.com", "А торг уместен?")
	if err != nil {
		return fmt.Errorf("seed: failed to create comment: %w", err)
	}
	if _, err := b.Comments.Create(ctx, postID, "anna@example.com", "Небольшой, пишите."); err != nil {
		return fmt.Errorf("seed: failed to create reply: %w", err)
	}
	if _, err := b.Likes.Toggle(ctx, "anna@example.com", domain.CommentTarget(comment.ID)); err != nil {
		return fmt.Errorf("seed: failed to like comment: %w", err)
	}
	if _, err := b.Likes.Toggle(ctx, "boris@example.com", domain.PostTarget(postID)); err != nil {
		return fmt.Errorf("seed: failed to like post: %w", err)
	}

	// 3. Второй пост без комментариев.
	if _, err := b.Posts.Create(ctx, NewPost{
		AuthorName: "Борис",
		Author:     "boris@example.com",
		Title:      "Ищу репетитора по Go",
		Content:    "Два занятия в неделю, онлайн.",
	}); err != nil {
		return fmt.Errorf("seed: failed to create second post: %w", err)
	}

	b.Posts.logger.Info("demo data seeded", "postId", postID)
	return nil
}
