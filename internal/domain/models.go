package domain

import "time"

// Post представляет пост в системе.
// В нормализованном виде (Entity Store) хранит только идентификаторы комментариев.
type Post struct {
	ID         string    `json:"post_id" gorm:"type:varchar(64);primary_key"`
	Author     string    `json:"author" gorm:"type:varchar(255);not null"`
	Title      string    `json:"title" gorm:"type:varchar(255);not null"`
	Visible    bool      `json:"visible" gorm:"not null"`
	Content    string    `json:"-" gorm:"type:text;not null"` // отдаётся отдельно через FetchContent
	CreatedAt  time.Time `json:"created_at" gorm:"not null;default:now()"`
	CommentIDs []string  `json:"descendants" gorm:"-"`
}

// Comment представляет комментарий к посту.
type Comment struct {
	ID        string    `json:"comment_id" gorm:"type:varchar(64);primary_key"`
	PostID    string    `json:"ascendant" gorm:"type:varchar(64);not null;index"`
	Author    string    `json:"author" gorm:"type:varchar(255);not null"`
	Content   string    `json:"content" gorm:"type:varchar(2000);not null"`
	CreatedAt time.Time `json:"created_at" gorm:"not null;default:now()"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null;default:now()"`
}

// PageInfo - запрошенная страница списка постов.
type PageInfo struct {
	Limit int `json:"limit"`
	Page  int `json:"page"`
}

// Offset переводит номер страницы (с единицы) в смещение.
func (p PageInfo) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// Paging - описание страницы, вернувшееся вместе со списком.
type Paging struct {
	Limit int `json:"limit"`
	Page  int `json:"page"`
	Total int `json:"total"`
}

// PostContent - полный текст поста.
type PostContent struct {
	Content string `json:"content"`
}

// CommentInput - данные нового комментария от пользователя.
type CommentInput struct {
	Author  string `json:"author"`
	Content string `json:"content"`
}
