package workflow

import "github.com/UkralStul/blog-state/internal/domain"

// Trigger - запрос UI-слоя или роутера на запуск воркфлоу.
type Trigger interface {
	TriggerName() string
}

type FetchPostsList struct {
	Page domain.PageInfo
}

type DisplayPost struct {
	PostID string
}

type CreateComment struct {
	Input domain.CommentInput
}

type DeleteComment struct {
	CommentID string
}

type PatchComment struct {
	CommentID string
	Content   string
}

type ShowEditor struct{}

type CloseEditor struct{}

func (FetchPostsList) TriggerName() string { return "fetchPostsList" }
func (DisplayPost) TriggerName() string    { return "displayPost" }
func (CreateComment) TriggerName() string  { return "createComment" }
func (DeleteComment) TriggerName() string  { return "deleteComment" }
func (PatchComment) TriggerName() string   { return "patchComment" }
func (ShowEditor) TriggerName() string     { return "showEditor" }
func (CloseEditor) TriggerName() string    { return "closeEditor" }
