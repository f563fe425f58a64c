package workflow

import (
	"github.com/rs/zerolog"
)

// Notifier показывает пользователю сообщение об успехе. Вызов не должен блокировать.
type Notifier interface {
	NotifySuccess(message string)
}

// LogNotifier пишет уведомления в лог.
type LogNotifier struct {
	Log zerolog.Logger
}

func (n LogNotifier) NotifySuccess(message string) {
	n.Log.Info().Str("notification", message).Msg("success")
}

// Notifiers рассылает уведомление всем получателям по порядку.
type Notifiers []Notifier

func (ns Notifiers) NotifySuccess(message string) {
	for _, n := range ns {
		if n != nil {
			n.NotifySuccess(message)
		}
	}
}

const (
	MessageCommentCreated = "Comment created successfully"
	MessageCommentDeleted = "Comment deleted successfully"
	MessageCommentUpdated = "Comment updated successfully"
)
