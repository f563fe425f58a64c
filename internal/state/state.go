package state

import (
	"time"

	"github.com/UkralStul/blog-state/internal/domain"
)

// State - полное состояние клиента: Entity Store, проекция списка и текущий пост.
type State struct {
	PostsList []string               `json:"postsList"`
	Paging    domain.Paging          `json:"paging"`
	PostsByID map[string]domain.Post `json:"postsById"`
	Current   CurrentView            `json:"current"`
}

// CurrentView - денормализованный снимок открытого поста для экрана деталей.
type CurrentView struct {
	Post      CurrentPost `json:"post"`
	IsEditing bool        `json:"isEditing"`
}

// CurrentPost - пост вместе с текстом и полными записями комментариев.
// Пустой PostID означает, что активного поста нет.
type CurrentPost struct {
	PostID    string           `json:"post_id"`
	Author    string           `json:"author"`
	Title     string           `json:"title"`
	Visible   bool             `json:"visible"`
	CreatedAt time.Time        `json:"created_at"`
	Content   string           `json:"content"`
	Comments  []domain.Comment `json:"descendants"`
}

// New возвращает начальное состояние процесса.
func New() State {
	return State{
		PostsList: []string{},
		PostsByID: map[string]domain.Post{},
		Current:   CurrentView{Post: CurrentPost{Comments: []domain.Comment{}}},
	}
}

// ActivePostID возвращает id текущего поста или "".
func (s State) ActivePostID() string {
	return s.Current.Post.PostID
}

// Clone делает глубокую копию, которую можно отдавать наружу.
func (s State) Clone() State {
	cloned := s
	cloned.PostsList = append([]string{}, s.PostsList...)
	cloned.PostsByID = make(map[string]domain.Post, len(s.PostsByID))
	for id, post := range s.PostsByID {
		post.CommentIDs = append([]string{}, post.CommentIDs...)
		cloned.PostsByID[id] = post
	}
	cloned.Current.Post.Comments = append([]domain.Comment{}, s.Current.Post.Comments...)
	return cloned
}

// copyPosts копирует карту постов перед изменением (copy-on-write).
func (s State) copyPosts() map[string]domain.Post {
	posts := make(map[string]domain.Post, len(s.PostsByID)+1)
	for id, post := range s.PostsByID {
		posts[id] = post
	}
	return posts
}
