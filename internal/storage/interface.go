package storage

import (
	"context"
	"errors"
	"strings"

	"github.com/UkralStul/blog-state/internal/domain"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrCommentTooLong = errors.New("comment content is too long")
	ErrEmptyComment   = errors.New("comment content cannot be empty")
)

// MaxCommentLength - максимальная длина комментария в символах.
const MaxCommentLength = 2000

// PostsPage - ответ на запрос списка постов.
type PostsPage struct {
	Data   []*domain.Post `json:"data"`
	Paging domain.Paging  `json:"paging"`
}

// CommentsPage - ответ на запрос комментариев поста.
type CommentsPage struct {
	Descendants []*domain.Comment `json:"descendants"`
}

// DataService - внешний сервис данных, с которым работают воркфлоу.
// Пустой ответ (nil без ошибки) означает "нет данных" и не является ошибкой.
type DataService interface {
	FetchPosts(ctx context.Context, page domain.PageInfo) (*PostsPage, error)
	FetchContent(ctx context.Context, postID string) (*domain.PostContent, error)
	FetchComments(ctx context.Context, postID string) (*CommentsPage, error)
	CreateComment(ctx context.Context, postID string, input domain.CommentInput) (*domain.Comment, error)
	DeleteComment(ctx context.Context, commentID string) error
	PatchComment(ctx context.Context, commentID, content string) (*domain.Comment, error)
}

// Storage определяет контракт для хранилищ.
type Storage interface {
	DataService

	CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error)

	// Метод для Dataloader'а
	BatchComments(ctx context.Context, postIDs []string) (map[string][]*domain.Comment, error)
}

// ValidateComment проверяет текст комментария перед сохранением.
func ValidateComment(content string) error {
	if len([]rune(content)) > MaxCommentLength {
		return ErrCommentTooLong
	}
	if strings.TrimSpace(content) == "" {
		return ErrEmptyComment
	}
	return nil
}
