package ports

import (
	"context"

	"github.com/bnema/perch/internal/domain"
)

// SocialClient is the nine-operation surface every network adapter
// implements. All posts cross this boundary in the unified model.
type SocialClient interface {
	// Timeline fetches the authenticated user's home timeline, newest
	// first as returned by the backend.
	Timeline(ctx context.Context, limit int) ([]domain.Post, error)

	// Context fetches the flat reply list for a post. Only downstream
	// replies are returned; ancestors are discarded.
	Context(ctx context.Context, post domain.Post) ([]domain.Post, error)

	// Publish creates a new top-level post.
	Publish(ctx context.Context, content string) (domain.Post, error)

	// Reply creates a post in reply to target.
	Reply(ctx context.Context, content string, target domain.Post) (domain.Post, error)

	Like(ctx context.Context, post domain.Post) error
	Unlike(ctx context.Context, post domain.Post) error
	Repost(ctx context.Context, post domain.Post) error
	Unrepost(ctx context.Context, post domain.Post) error

	// VerifyCredentials checks the session and returns the account the
	// backend believes it is serving.
	VerifyCredentials(ctx context.Context) (domain.Account, error)
}
