package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/UkralStul/blog-state/internal/domain"
	"github.com/UkralStul/blog-state/internal/storage"
	"github.com/google/uuid"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store реализует интерфейс Storage с использованием PostgreSQL.
type Store struct {
	db *gorm.DB
}

// New создает новый экземпляр хранилища PostgreSQL.
func New(dsn string, debug bool) (*Store, error) {
	logLevel := logger.Warn
	if debug {
		logLevel = logger.Info
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Выполняем миграцию схемы
	if err := db.AutoMigrate(&domain.Post{}, &domain.Comment{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db}, nil
}

// === Post Methods ===

func (s *Store) CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(post).Error; err != nil {
		return nil, err
	}
	summary := *post
	summary.Content = ""
	summary.CommentIDs = []string{}
	return &summary, nil
}

func (s *Store) FetchPosts(ctx context.Context, page domain.PageInfo) (*storage.PostsPage, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&domain.Post{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count posts: %w", err)
	}

	var posts []*domain.Post
	err := s.db.WithContext(ctx).
		Omit("content").
		Order("created_at DESC, id ASC").
		Limit(page.Limit).
		Offset(page.Offset()).
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get posts: %w", err)
	}

	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	byPost, err := s.commentIDsByPost(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, p := range posts {
		p.CommentIDs = byPost[p.ID]
		if p.CommentIDs == nil {
			p.CommentIDs = []string{}
		}
	}

	return &storage.PostsPage{
		Data:   posts,
		Paging: domain.Paging{Limit: page.Limit, Page: page.Page, Total: int(total)},
	}, nil
}

func (s *Store) FetchContent(ctx context.Context, postID string) (*domain.PostContent, error) {
	var post domain.Post
	if err := s.db.WithContext(ctx).Select("content").First(&post, "id = ?", postID).Error; err != nil {
		return nil, wrapNotFound(err, "post", postID)
	}
	return &domain.PostContent{Content: post.Content}, nil
}

// commentIDsByPost загружает id комментариев для нескольких постов одним запросом.
func (s *Store) commentIDsByPost(ctx context.Context, postIDs []string) (map[string][]string, error) {
	result := make(map[string][]string, len(postIDs))
	if len(postIDs) == 0 {
		return result, nil
	}

	var comments []*domain.Comment
	err := s.db.WithContext(ctx).
		Select("id", "post_id").
		Where("post_id IN ?", postIDs).
		Order("post_id, created_at ASC").
		Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get comment ids: %w", err)
	}
	for _, c := range comments {
		result[c.PostID] = append(result[c.PostID], c.ID)
	}
	return result, nil
}

// === Comment Methods ===

func (s *Store) FetchComments(ctx context.Context, postID string) (*storage.CommentsPage, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&domain.Post{}).Where("id = ?", postID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, fmt.Errorf("post with id %s: %w", postID, storage.ErrNotFound)
	}

	comments := []*domain.Comment{}
	err := s.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get post comments: %w", err)
	}
	return &storage.CommentsPage{Descendants: comments}, nil
}

func (s *Store) CreateComment(ctx context.Context, postID string, input domain.CommentInput) (*domain.Comment, error) {
	if err := storage.ValidateComment(input.Content); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	comment := &domain.Comment{
		ID:        uuid.NewString(),
		PostID:    postID,
		Author:    input.Author,
		Content:   input.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	// Проверяем существование поста и создаем комментарий в одной транзакции
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post domain.Post
		if err := tx.Select("id").First(&post, "id = ?", postID).Error; err != nil {
			return wrapNotFound(err, "post", postID)
		}
		return tx.Create(comment).Error
	})
	if err != nil {
		return nil, err
	}

	return comment, nil
}

func (s *Store) DeleteComment(ctx context.Context, commentID string) error {
	result := s.db.WithContext(ctx).Delete(&domain.Comment{}, "id = ?", commentID)
	if result.Error != nil {
		return fmt.Errorf("failed to delete comment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("comment with id %s: %w", commentID, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) PatchComment(ctx context.Context, commentID, content string) (*domain.Comment, error) {
	if err := storage.ValidateComment(content); err != nil {
		return nil, err
	}

	var comment domain.Comment
	// Используем транзакцию для атомарности операции чтения-записи
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&comment, "id = ?", commentID).Error; err != nil {
			return wrapNotFound(err, "comment", commentID)
		}
		comment.Content = content
		comment.UpdatedAt = time.Now().UTC()
		return tx.Save(&comment).Error
	})
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// === Dataloader Method ===

func (s *Store) BatchComments(ctx context.Context, postIDs []string) (map[string][]*domain.Comment, error) {
	result := make(map[string][]*domain.Comment, len(postIDs))
	if len(postIDs) == 0 {
		return result, nil
	}

	var known []string
	if err := s.db.WithContext(ctx).Model(&domain.Post{}).Where("id IN ?", postIDs).Pluck("id", &known).Error; err != nil {
		return nil, err
	}
	for _, id := range known {
		result[id] = []*domain.Comment{}
	}

	var comments []*domain.Comment
	// Загружаем комментарии всех постов одним запросом
	err := s.db.WithContext(ctx).
		Where("post_id IN ?", postIDs).
		Order("post_id, created_at ASC").
		Find(&comments).Error
	if err != nil {
		return nil, err
	}
	for _, c := range comments {
		result[c.PostID] = append(result[c.PostID], c)
	}

	return result, nil
}

func wrapNotFound(err error, kind, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s with id %s: %w", kind, id, storage.ErrNotFound)
	}
	return err
}
