package jobs

type JobType string

const (
	// JobPublishPost flips a scheduled post to published once its publish
	// time is due.
	JobPublishPost JobType = "publish_post"

	// JobNotifyComment tells a post author a new comment is waiting for
	// moderation.
	JobNotifyComment JobType = "notify_comment"
)

// check to see if the job type is a known constant

func (t JobType) IsValid() bool {
	switch t {
	case JobPublishPost, JobNotifyComment:
		return true
	default:
		return false
	}
}
