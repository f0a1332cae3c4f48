package storage

import (
	"context"

	"github.com/UkralStul/noticeboard/internal/domain"
)

// Authorizer проверяет автора ресурса внутри операции хранилища.
// Ненулевая ошибка отменяет операцию.
type Authorizer func(author domain.Identity) error

// PostFilter - фильтр для списка постов.
type PostFilter struct {
	OnlyAuthor domain.Identity
}

// Storage определяет контракт для хранилищ.
//
// Каскадные удаления и проверка автора выполняются атомарно: либо все шаги
// применяются, либо ни один.
type Storage interface {
	CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error)
	GetPostByID(ctx context.Context, id int64) (*domain.Post, error)
	ListPosts(ctx context.Context, filter PostFilter) ([]*domain.Post, error)
	SearchPosts(ctx context.Context, field domain.SearchField, keyword string) ([]*domain.Post, error)
	IncrementViews(ctx context.Context, id int64) error
	UpdatePost(ctx context.Context, id int64, authorize Authorizer, title, content string) error
	DeletePost(ctx context.Context, id int64, authorize Authorizer) error

	CreateComment(ctx context.Context, comment *domain.Comment, requirePost bool) (*domain.Comment, error)
	GetCommentByID(ctx context.Context, id int64) (*domain.Comment, error)
	GetCommentsByPostID(ctx context.Context, postID int64) ([]*domain.Comment, error)
	DeleteComment(ctx context.Context, id int64, authorize Authorizer) (*domain.Comment, error)

	ToggleLike(ctx context.Context, user domain.Identity, target domain.LikeTarget) (bool, error)
	GetLikeStatus(ctx context.Context, user domain.Identity, target domain.LikeTarget) (domain.LikeStatus, error)
	RemoveLike(ctx context.Context, user domain.Identity, target domain.LikeTarget) error

	// Методы для Dataloader'ов
	CountCommentsByPostIDs(ctx context.Context, postIDs []int64) (map[int64]int64, error)
	CountLikesByTargets(ctx context.Context, targets []domain.LikeTarget) (map[domain.LikeTarget]int64, error)

	CreateUser(ctx context.Context, user *domain.User) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email domain.Identity) (*domain.User, error)

	Close() error
}
