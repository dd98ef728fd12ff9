package jobs

import "strings"

// ValidatePayload performs minimal validation on decoded payloads.
func ValidatePayload(t JobType, payload any) error {
	if !t.IsValid() {
		return ErrInvalidJobType
	}

	trim := func(s string) string { return strings.TrimSpace(s) }

	switch t {
	case JobPublishPost:
		var p PublishPostPayload
		switch v := payload.(type) {
		case PublishPostPayload:
			p = v
		case *PublishPostPayload:
			p = *v
		default:
			return ErrPayloadTypeMismatch
		}
		if trim(p.PostID) == "" {
			return ErrInvalidJobPayload
		}
		return nil

	case JobNotifyComment:
		var p NotifyCommentPayload
		switch v := payload.(type) {
		case NotifyCommentPayload:
			p = v
		case *NotifyCommentPayload:
			p = *v
		default:
			return ErrPayloadTypeMismatch
		}
		if trim(p.CommentID) == "" || trim(p.PostID) == "" {
			return ErrInvalidJobPayload
		}
		return nil

	default:
		return ErrInvalidJobType
	}
}
