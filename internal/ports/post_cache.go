package ports

import (
	"context"
	"time"

	"github.com/bnema/perch/internal/domain"
)

// PostCache persists fetched posts for offline display. It is invoked by
// the result consumer, never by the worker itself.
type PostCache interface {
	SavePosts(ctx context.Context, posts []domain.Post) error
	RecentPosts(ctx context.Context, limit int) ([]domain.Post, error)
}

// ScheduledPost is a post queued for later submission.
type ScheduledPost struct {
	ID           string
	Content      string
	Networks     []domain.Network
	ScheduledFor time.Time
	CreatedAt    time.Time
	Posted       bool
}

type ScheduleStore interface {
	SaveScheduled(ctx context.Context, post ScheduledPost) error
	DueScheduled(ctx context.Context, now time.Time) ([]ScheduledPost, error)
	MarkPosted(ctx context.Context, id string) error
}
