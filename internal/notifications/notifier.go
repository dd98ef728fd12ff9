package notifications

import "context"

type CommentNotificationInput struct {
	AuthorEmail string // post author being notified
	AuthorName  string
	PostTitle   string
	CommentID   string
	CommentBody string
}

type Notifier interface {
	SendCommentNotification(ctx context.Context, input CommentNotificationInput) error
}
