package domain

import "time"

// Post представляет пост на доске объявлений.
type Post struct {
	ID         int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	AuthorName string    `json:"name" gorm:"column:name;type:varchar(255);not null;default:''"`
	Author     Identity  `json:"email" gorm:"column:email;type:varchar(255);not null"`
	AuthorKey  Identity  `json:"-" gorm:"column:email_key;type:varchar(255);not null;default:'';index"` // Author.Canonical(), заполняет хранилище
	Title      string    `json:"title" gorm:"type:varchar(255);not null"`
	Content    string    `json:"content" gorm:"type:text;not null"`
	Views      int64     `json:"views" gorm:"not null;default:0;index"`
	CreatedAt  time.Time `json:"created_at" gorm:"not null"`
}

// TableName сохраняет имя таблицы исходной схемы.
func (Post) TableName() string { return "noticeboard" }

// Field возвращает значение поля, по которому идет поиск.
func (p *Post) Field(f SearchField) string {
	if f == SearchByName {
		return p.AuthorName
	}
	return p.Title
}

// PostDetail - пост вместе с вычисляемым количеством комментариев.
type PostDetail struct {
	Post
	CommentCount int64 `json:"commentCount"`
}

// Comment представляет комментарий к посту.
type Comment struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	PostID    int64     `json:"postid" gorm:"column:postid;not null;index"`
	Author    Identity  `json:"userid" gorm:"column:userid;type:varchar(255);not null"`
	Content   string    `json:"content" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"createdat" gorm:"column:createdat;not null"`
}

// TargetKind - тип сущности, которую можно лайкнуть.
type TargetKind string

const (
	TargetPost    TargetKind = "post"
	TargetComment TargetKind = "comment"
)

// LikeTarget явно указывает, к чему относится лайк.
type LikeTarget struct {
	Kind TargetKind `json:"kind"`
	ID   int64      `json:"id"`
}

func CommentTarget(id int64) LikeTarget { return LikeTarget{Kind: TargetComment, ID: id} }
func PostTarget(id int64) LikeTarget    { return LikeTarget{Kind: TargetPost, ID: id} }

// Like - запись о том, что пользователь лайкнул цель. Пара (User, Target) уникальна.
type Like struct {
	ID         int64      `json:"-" gorm:"primaryKey;autoIncrement"`
	User       Identity   `json:"userId" gorm:"column:user_id;type:varchar(255);not null;uniqueIndex:idx_likes_user_target"`
	TargetKind TargetKind `json:"kind" gorm:"column:target_kind;type:varchar(16);not null;uniqueIndex:idx_likes_user_target;index:idx_likes_target"`
	TargetID   int64      `json:"targetId" gorm:"column:target_id;not null;uniqueIndex:idx_likes_user_target;index:idx_likes_target"`
	CreatedAt  time.Time  `json:"createdAt" gorm:"not null"`
}

func (l Like) Target() LikeTarget { return LikeTarget{Kind: l.TargetKind, ID: l.TargetID} }

// LikeStatus - агрегированное состояние лайков цели для конкретного пользователя.
type LikeStatus struct {
	Count       int64 `json:"likesCount"`
	LikedByUser bool  `json:"isLiked"`
}

// User - зарегистрированный пользователь. Пароль никогда не сериализуется.
type User struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Name      string    `json:"name" gorm:"type:varchar(255);not null"`
	Email     Identity  `json:"email" gorm:"type:varchar(255);not null;uniqueIndex"`
	Password  string    `json:"-" gorm:"type:varchar(255);not null"`
	CreatedAt time.Time `json:"created_at" gorm:"not null"`
}

// SearchField - поле, по которому ищутся посты.
type SearchField string

const (
	SearchByTitle SearchField = "title"
	SearchByName  SearchField = "name"
)

func (f SearchField) Valid() bool {
	return f == SearchByTitle || f == SearchByName
}
