package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/UkralStul/blog-state/internal/domain"
	"github.com/UkralStul/blog-state/internal/storage"
	"github.com/google/uuid"
)

// Store реализует интерфейс Storage в памяти.
type Store struct {
	mu             sync.RWMutex
	posts          map[string]*domain.Post
	comments       map[string]*domain.Comment
	commentsByPost map[string][]string // map[postID][]commentID в порядке создания
	now            func() time.Time
}

// New создает новый экземпляр in-memory хранилища.
func New() *Store {
	return &Store{
		posts:          make(map[string]*domain.Post),
		comments:       make(map[string]*domain.Comment),
		commentsByPost: make(map[string][]string),
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// === Post Methods ===

func (s *Store) CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	if _, exists := s.posts[post.ID]; exists {
		return nil, fmt.Errorf("post with id %s already exists", post.ID)
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = s.now()
	}
	post.CommentIDs = nil
	s.posts[post.ID] = post
	return s.summaryLocked(post), nil
}

func (s *Store) FetchPosts(ctx context.Context, page domain.PageInfo) (*storage.PostsPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	allPosts := make([]*domain.Post, 0, len(s.posts))
	for _, p := range s.posts {
		allPosts = append(allPosts, p)
	}

	sort.Slice(allPosts, func(i, j int) bool {
		if allPosts[i].CreatedAt.Equal(allPosts[j].CreatedAt) {
			return allPosts[i].ID < allPosts[j].ID
		}
		return allPosts[i].CreatedAt.After(allPosts[j].CreatedAt)
	})

	result := &storage.PostsPage{
		Data:   []*domain.Post{},
		Paging: domain.Paging{Limit: page.Limit, Page: page.Page, Total: len(allPosts)},
	}

	start := page.Offset()
	if start >= len(allPosts) || page.Limit <= 0 {
		return result, nil
	}
	end := start + page.Limit
	if end > len(allPosts) {
		end = len(allPosts)
	}
	for _, p := range allPosts[start:end] {
		result.Data = append(result.Data, s.summaryLocked(p))
	}
	return result, nil
}

func (s *Store) FetchContent(ctx context.Context, postID string) (*domain.PostContent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	post, ok := s.posts[postID]
	if !ok {
		return nil, fmt.Errorf("post with id %s: %w", postID, storage.ErrNotFound)
	}
	return &domain.PostContent{Content: post.Content}, nil
}

// summaryLocked возвращает копию поста без текста, но с id комментариев.
func (s *Store) summaryLocked(p *domain.Post) *domain.Post {
	summary := *p
	summary.Content = ""
	summary.CommentIDs = append([]string{}, s.commentsByPost[p.ID]...)
	return &summary
}

// === Comment Methods ===

func (s *Store) FetchComments(ctx context.Context, postID string) (*storage.CommentsPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.posts[postID]; !ok {
		return nil, fmt.Errorf("post with id %s: %w", postID, storage.ErrNotFound)
	}
	return &storage.CommentsPage{Descendants: s.commentsLocked(postID)}, nil
}

func (s *Store) CreateComment(ctx context.Context, postID string, input domain.CommentInput) (*domain.Comment, error) {
	if err := storage.ValidateComment(input.Content); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[postID]; !ok {
		return nil, fmt.Errorf("post with id %s: %w", postID, storage.ErrNotFound)
	}

	now := s.now()
	comment := &domain.Comment{
		ID:        uuid.NewString(),
		PostID:    postID,
		Author:    input.Author,
		Content:   input.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.comments[comment.ID] = comment
	s.commentsByPost[postID] = append(s.commentsByPost[postID], comment.ID)

	created := *comment
	return &created, nil
}

func (s *Store) DeleteComment(ctx context.Context, commentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	comment, ok := s.comments[commentID]
	if !ok {
		return fmt.Errorf("comment with id %s: %w", commentID, storage.ErrNotFound)
	}
	delete(s.comments, commentID)

	ids := s.commentsByPost[comment.PostID]
	kept := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != commentID {
			kept = append(kept, id)
		}
	}
	s.commentsByPost[comment.PostID] = kept
	return nil
}

func (s *Store) PatchComment(ctx context.Context, commentID, content string) (*domain.Comment, error) {
	if err := storage.ValidateComment(content); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	comment, ok := s.comments[commentID]
	if !ok {
		return nil, fmt.Errorf("comment with id %s: %w", commentID, storage.ErrNotFound)
	}
	comment.Content = content
	comment.UpdatedAt = s.now()

	updated := *comment
	return &updated, nil
}

// commentsLocked возвращает копии комментариев поста в порядке создания.
func (s *Store) commentsLocked(postID string) []*domain.Comment {
	ids := s.commentsByPost[postID]
	result := make([]*domain.Comment, 0, len(ids))
	for _, id := range ids {
		if c, ok := s.comments[id]; ok {
			copied := *c
			result = append(result, &copied)
		}
	}
	return result
}

// === Dataloader Methods ===

func (s *Store) BatchComments(ctx context.Context, postIDs []string) (map[string][]*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make(map[string][]*domain.Comment, len(postIDs))
	for _, pID := range postIDs {
		if _, ok := s.posts[pID]; !ok {
			continue
		}
		results[pID] = s.commentsLocked(pID)
	}
	return results, nil
}
