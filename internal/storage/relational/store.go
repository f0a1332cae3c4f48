package relational

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/lo"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/UkralStul/noticeboard/internal/domain"
	"github.com/UkralStul/noticeboard/internal/storage"
)

const uniqueViolation = "23505"

// Options - параметры пула соединений.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Debug           bool
}

// Store реализует интерфейс Storage поверх GORM (PostgreSQL или SQLite).
type Store struct {
	db *gorm.DB
}

var _ storage.Storage = (*Store)(nil)

// Postgres возвращает диалект для PostgreSQL.
func Postgres(dsn string) gorm.Dialector {
	return postgres.Open(dsn)
}

// SQLite возвращает диалект для встроенной базы SQLite.
func SQLite(path string) gorm.Dialector {
	return sqlite.Open(path + "?_busy_timeout=5000")
}

// New открывает соединение, настраивает пул и мигрирует схему.
func New(dialector gorm.Dialector, opts Options) (*Store, error) {
	level := logger.Silent
	if opts.Debug {
		level = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get connection pool: %w", err)
	}
	maxOpen := opts.MaxOpenConns
	if db.Dialector.Name() == "sqlite" {
		// SQLite допускает только одного писателя.
		maxOpen = 1
	}
	if maxOpen > 0 {
		sqlDB.SetMaxOpenConns(maxOpen)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	if err := db.AutoMigrate(&domain.User{}, &domain.Post{}, &domain.Comment{}, &domain.Like{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close освобождает пул соединений.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping проверяет доступность базы.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// === Post Methods ===

func (s *Store) CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	stored := *post
	stored.ID = 0
	stored.AuthorKey = stored.Author.Canonical()
	stored.Views = 0
	if err := s.db.WithContext(ctx).Create(&stored).Error; err != nil {
		return nil, wrap("create post", err)
	}
	return &stored, nil
}

func (s *Store) GetPostByID(ctx context.Context, id int64) (*domain.Post, error) {
	var post domain.Post
	if err := s.db.WithContext(ctx).First(&post, "id = ?", id).Error; err != nil {
		return nil, wrap(fmt.Sprintf("get post %d", id), err)
	}
	return &post, nil
}

func (s *Store) ListPosts(ctx context.Context, filter storage.PostFilter) ([]*domain.Post, error) {
	var posts []*domain.Post
	query := s.db.WithContext(ctx).Model(&domain.Post{})
	if !filter.OnlyAuthor.Blank() {
		query = query.Where("email_key = ?", filter.OnlyAuthor.Canonical())
	}
	if err := query.Order("views DESC").Order("id ASC").Find(&posts).Error; err != nil {
		return nil, wrap("list posts", err)
	}
	return posts, nil
}

func (s *Store) SearchPosts(ctx context.Context, field domain.SearchField, keyword string) ([]*domain.Post, error) {
	if !field.Valid() {
		return nil, fmt.Errorf("search field %q: %w", field, domain.ErrInvalidInput)
	}

	var posts []*domain.Post
	if s.db.Dialector.Name() == "postgres" {
		// Имя колонки берется только из проверенного SearchField.
		err := s.db.WithContext(ctx).
			Where(string(field)+" ILIKE ? ESCAPE '\\'", "%"+escapeLike(keyword)+"%").
			Order("id ASC").
			Find(&posts).Error
		if err != nil {
			return nil, wrap("search posts", err)
		}
		return posts, nil
	}

	// lower() и LIKE в SQLite сворачивают регистр только для ASCII.
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&posts).Error; err != nil {
		return nil, wrap("search posts", err)
	}
	needle := strings.ToLower(keyword)
	return lo.Filter(posts, func(p *domain.Post, _ int) bool {
		return strings.Contains(strings.ToLower(p.Field(field)), needle)
	}), nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (s *Store) IncrementViews(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).
		Model(&domain.Post{}).
		Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + ?", 1))
	if res.Error != nil {
		return wrap(fmt.Sprintf("increment views of post %d", id), res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("post %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (s *Store) UpdatePost(ctx context.Context, id int64, authorize storage.Authorizer, title, content string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		post, err := s.lockPost(tx, id)
		if err != nil {
			return err
		}
		if err := authorize(post.Author); err != nil {
			return err
		}

		res := tx.Model(&domain.Post{}).
			Where("id = ?", id).
			Updates(map[string]any{"title": title, "content": content})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("post %d: %w", id, domain.ErrNotFound)
		}
		return nil
	})
	return wrap(fmt.Sprintf("update post %d", id), err)
}

func (s *Store) DeletePost(ctx context.Context, id int64, authorize storage.Authorizer) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		post, err := s.lockPost(tx, id)
		if err != nil {
			return err
		}
		if err := authorize(post.Author); err != nil {
			return err
		}

		commentIDs := tx.Model(&domain.Comment{}).Select("id").Where("postid = ?", id)
		if err := tx.Where("target_kind = ? AND target_id IN (?)", domain.TargetComment, commentIDs).
			Delete(&domain.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("target_kind = ? AND target_id = ?", domain.TargetPost, id).
			Delete(&domain.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("postid = ?", id).Delete(&domain.Comment{}).Error; err != nil {
			return err
		}

		res := tx.Delete(&domain.Post{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("post %d: %w", id, domain.ErrNotFound)
		}
		return nil
	})
	return wrap(fmt.Sprintf("delete post %d", id), err)
}

// lockPost читает автора поста внутри транзакции. В PostgreSQL строка
// блокируется до конца транзакции.
func (s *Store) lockPost(tx *gorm.DB, id int64) (*domain.Post, error) {
	query := tx.Select("id", "email")
	if s.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var post domain.Post
	if err := query.First(&post, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

// === Comment Methods ===

func (s *Store) CreateComment(ctx context.Context, comment *domain.Comment, requirePost bool) (*domain.Comment, error) {
	stored := *comment
	stored.ID = 0

	// Проверяем существование поста и создаем комментарий в одной транзакции
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if requirePost {
			var count int64
			if err := tx.Model(&domain.Post{}).Where("id = ?", stored.PostID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return fmt.Errorf("post %d: %w", stored.PostID, domain.ErrNotFound)
			}
		}
		return tx.Create(&stored).Error
	})
	if err != nil {
		return nil, wrap("create comment", err)
	}
	return &stored, nil
}

func (s *Store) GetCommentByID(ctx context.Context, id int64) (*domain.Comment, error) {
	var comment domain.Comment
	if err := s.db.WithContext(ctx).First(&comment, "id = ?", id).Error; err != nil {
		return nil, wrap(fmt.Sprintf("get comment %d", id), err)
	}
	return &comment, nil
}

func (s *Store) GetCommentsByPostID(ctx context.Context, postID int64) ([]*domain.Comment, error) {
	var comments []*domain.Comment
	err := s.db.WithContext(ctx).
		Where("postid = ?", postID).
		Order("id ASC").
		Find(&comments).Error
	if err != nil {
		return nil, wrap(fmt.Sprintf("list comments of post %d", postID), err)
	}
	return comments, nil
}

func (s *Store) DeleteComment(ctx context.Context, id int64, authorize storage.Authorizer) (*domain.Comment, error) {
	var comment domain.Comment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&comment, "id = ?", id).Error; err != nil {
			return err
		}
		if err := authorize(comment.Author); err != nil {
			return err
		}

		if err := tx.Where("target_kind = ? AND target_id = ?", domain.TargetComment, id).
			Delete(&domain.Like{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&domain.Comment{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("comment %d: %w", id, domain.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return nil, wrap(fmt.Sprintf("delete comment %d", id), err)
	}
	return &comment, nil
}

// === Like Methods ===

func likeOf(tx *gorm.DB, user domain.Identity, target domain.LikeTarget) *gorm.DB {
	return tx.Where("user_id = ? AND target_kind = ? AND target_id = ?", user.Canonical(), target.Kind, target.ID)
}

func (s *Store) ToggleLike(ctx context.Context, user domain.Identity, target domain.LikeTarget) (bool, error) {
	var liked bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := likeOf(tx, user, target).Delete(&domain.Like{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			liked = false
			return nil
		}

		if err := targetExists(tx, target); err != nil {
			return err
		}

		ins := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&domain.Like{
			User:       user.Canonical(),
			TargetKind: target.Kind,
			TargetID:   target.ID,
		})
		if ins.Error != nil {
			return ins.Error
		}
		if ins.RowsAffected > 0 {
			liked = true
			return nil
		}

		// Параллельный toggle успел вставить ту же пару: уникальный индекс
		// не дал дубликата, поэтому этот вызов снимает лайк.
		if err := likeOf(tx, user, target).Delete(&domain.Like{}).Error; err != nil {
			return err
		}
		liked = false
		return nil
	})
	if err != nil {
		return false, wrap("toggle like", err)
	}
	return liked, nil
}

func targetExists(tx *gorm.DB, target domain.LikeTarget) error {
	var model any
	switch target.Kind {
	case domain.TargetPost:
		model = &domain.Post{}
	case domain.TargetComment:
		model = &domain.Comment{}
	default:
		return fmt.Errorf("like target kind %q: %w", target.Kind, domain.ErrInvalidInput)
	}

	var count int64
	if err := tx.Model(model).Where("id = ?", target.ID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("%s %d: %w", target.Kind, target.ID, domain.ErrNotFound)
	}
	return nil
}

func (s *Store) GetLikeStatus(ctx context.Context, user domain.Identity, target domain.LikeTarget) (domain.LikeStatus, error) {
	var status domain.LikeStatus
	db := s.db.WithContext(ctx)

	if err := db.Model(&domain.Like{}).
		Where("target_kind = ? AND target_id = ?", target.Kind, target.ID).
		Count(&status.Count).Error; err != nil {
		return status, wrap("count likes", err)
	}

	var mine int64
	if err := likeOf(db.Model(&domain.Like{}), user, target).Count(&mine).Error; err != nil {
		return status, wrap("check like", err)
	}
	status.LikedByUser = mine > 0
	return status, nil
}

func (s *Store) RemoveLike(ctx context.Context, user domain.Identity, target domain.LikeTarget) error {
	res := likeOf(s.db.WithContext(ctx), user, target).Delete(&domain.Like{})
	if res.Error != nil {
		return wrap("remove like", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("like of %s %d by %s: %w", target.Kind, target.ID, user, domain.ErrNotFound)
	}
	return nil
}

// === Dataloader Methods ===

func (s *Store) CountCommentsByPostIDs(ctx context.Context, postIDs []int64) (map[int64]int64, error) {
	var rows []struct {
		PostID int64
		Total  int64
	}
	err := s.db.WithContext(ctx).
		Model(&domain.Comment{}).
		Select("postid AS post_id, COUNT(*) AS total").
		Where("postid IN ?", postIDs).
		Group("postid").
		Scan(&rows).Error
	if err != nil {
		return nil, wrap("count comments", err)
	}

	result := make(map[int64]int64, len(postIDs))
	for _, id := range postIDs {
		result[id] = 0
	}
	for _, r := range rows {
		result[r.PostID] = r.Total
	}
	return result, nil
}

func (s *Store) CountLikesByTargets(ctx context.Context, targets []domain.LikeTarget) (map[domain.LikeTarget]int64, error) {
	result := make(map[domain.LikeTarget]int64, len(targets))
	for _, t := range targets {
		result[t] = 0
	}

	byKind := lo.GroupBy(targets, func(t domain.LikeTarget) domain.TargetKind { return t.Kind })
	for kind, group := range byKind {
		var rows []struct {
			TargetID int64
			Total    int64
		}
		err := s.db.WithContext(ctx).
			Model(&domain.Like{}).
			Select("target_id, COUNT(*) AS total").
			Where("target_kind = ? AND target_id IN ?", kind, lo.Map(group, func(t domain.LikeTarget, _ int) int64 { return t.ID })).
			Group("target_id").
			Scan(&rows).Error
		if err != nil {
			return nil, wrap("count likes", err)
		}
		for _, r := range rows {
			result[domain.LikeTarget{Kind: kind, ID: r.TargetID}] = r.Total
		}
	}
	return result, nil
}

// === User Methods ===

func (s *Store) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	stored := *user
	stored.ID = 0
	stored.Email = user.Email.Canonical()
	if err := s.db.WithContext(ctx).Create(&stored).Error; err != nil {
		return nil, wrap(fmt.Sprintf("create user %s", user.Email), err)
	}
	return &stored, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email domain.Identity) (*domain.User, error) {
	var user domain.User
	if err := s.db.WithContext(ctx).First(&user, "email = ?", email.Canonical()).Error; err != nil {
		return nil, wrap(fmt.Sprintf("get user %s", email), err)
	}
	return &user, nil
}

// wrap переводит ошибки GORM и драйверов в доменные.
func wrap(op string, err error) error {
	var pgErr *pgconn.PgError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey),
		errors.As(err, &pgErr) && pgErr.Code == uniqueViolation:
		return fmt.Errorf("%s: %w", op, domain.ErrConflict)
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrForbidden),
		errors.Is(err, domain.ErrUnauthenticated),
		errors.Is(err, domain.ErrInvalidInput):
		return err
	default:
		return fmt.Errorf("%s: %w: %w", op, domain.ErrStorageUnavailable, err)
	}
}
