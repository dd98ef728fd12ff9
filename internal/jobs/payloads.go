package jobs

// PublishPostPayload carries the data needed to publish a scheduled post.
// Keep payload minimal and ID-based; the worker loads details from DB.
type PublishPostPayload struct {
	PostID    string `json:"postId"`
	ActorID   string `json:"actorId,omitempty"`   // user who scheduled it
	RequestID string `json:"requestId,omitempty"` // optional: correlation
}

// NotifyCommentPayload is used to tell a post author about a new comment.
type NotifyCommentPayload struct {
	CommentID string `json:"commentId"`
	PostID    string `json:"postId"`
}
