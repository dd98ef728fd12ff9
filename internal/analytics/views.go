package analytics

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const viewKeyPrefix = "post:views:"

// Views tracks per-post view counters in redis. Counters are best-effort:
// a redis outage must never fail a page read, so callers ignore errors on
// the increment path and fall back to zero on reads.
type Views struct {
	rdb *redis.Client
}

func NewViews(rdb *redis.Client) *Views {
	return &Views{rdb: rdb}
}

func (v *Views) Record(ctx context.Context, postID string) error {
	return v.rdb.Incr(ctx, viewKeyPrefix+postID).Err()
}

func (v *Views) Count(ctx context.Context, postID string) (int64, error) {
	raw, err := v.rdb.Get(ctx, viewKeyPrefix+postID).Result()

	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, err
	}

	return n, nil
}

// Counts returns view counts for the given posts in input order. Missing
// keys come back as zero.
func (v *Views) Counts(ctx context.Context, postIDs []string) ([]int64, error) {
	if len(postIDs) == 0 {
		return nil, nil
	}

	keys := make([]string, len(postIDs))
	for i, id := range postIDs {
		keys[i] = viewKeyPrefix + id
	}

	vals, err := v.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	out := make([]int64, len(postIDs))
	for i, raw := range vals {
		s, ok := raw.(string)
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			continue
		}
		out[i] = n
	}

	return out, nil
}
