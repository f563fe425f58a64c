package main

import (
	"context"
	"time"

	"github.com/UkralStul/blog-state/internal/domain"
	"github.com/UkralStul/blog-state/internal/oops"
	"github.com/UkralStul/blog-state/internal/storage"
	"github.com/rs/zerolog"
)

type mockPost struct {
	post     domain.Post
	comments []domain.CommentInput
}

func mockPosts(now time.Time) []mockPost {
	return []mockPost{
		{
			post: domain.Post{
				ID:        "1",
				Author:    "user-1",
				Title:     "Normalized state for comment trees",
				Content:   "Posts keep only comment ids, the open post keeps full comments.",
				Visible:   true,
				CreatedAt: now.Add(-48 * time.Hour),
			},
			comments: []domain.CommentInput{
				{Author: "user-2", Content: "Great post, very clear."},
				{Author: "user-3", Content: "What happens on fast navigation?"},
			},
		},
		{
			post: domain.Post{
				ID:        "2",
				Author:    "user-2",
				Title:     "Routing without regexps",
				Content:   "Two routes are enough: the list and one post.",
				Visible:   true,
				CreatedAt: now.Add(-24 * time.Hour),
			},
			comments: []domain.CommentInput{
				{Author: "user-1", Content: "Agreed."},
			},
		},
		{
			post: domain.Post{
				ID:        "3",
				Author:    "user-admin",
				Title:     "Hidden draft",
				Content:   "Not visible yet.",
				Visible:   false,
				CreatedAt: now,
			},
		},
	}
}

func fillWithMockData(ctx context.Context, s storage.Storage, log zerolog.Logger) error {
	for _, mock := range mockPosts(time.Now().UTC()) {
		post := mock.post
		created, err := s.CreatePost(ctx, &post)
		if err != nil {
			return oops.New(err, "fillWithMockData: failed to create post %s", mock.post.ID)
		}
		for _, input := range mock.comments {
			if _, err := s.CreateComment(ctx, created.ID, input); err != nil {
				return oops.New(err, "fillWithMockData: failed to create comment on post %s", created.ID)
			}
		}
	}

	log.Info().Msg("Mock data filled successfully")
	return nil
}
