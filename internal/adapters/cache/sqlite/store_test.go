package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/perch/internal/domain"
	"github.com/bnema/perch/internal/ports"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "perch.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func cachedPost(networkID string, created time.Time) domain.Post {
	post := domain.NewPost(domain.NetworkMastodon, networkID)
	post.AuthorHandle = "alice"
	post.Content = "content of " + networkID
	post.CreatedAt = created
	post.LikeCount = 3
	return post
}

func TestSaveAndRecentPosts(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	posts := []domain.Post{
		cachedPost("old", base.Add(-time.Hour)),
		cachedPost("new", base),
		cachedPost("middle", base.Add(-30*time.Minute)),
	}
	require.NoError(t, store.SavePosts(ctx, posts))

	recent, err := store.RecentPosts(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "new", recent[0].NetworkID)
	assert.Equal(t, "middle", recent[1].NetworkID)
	assert.Equal(t, "old", recent[2].NetworkID)
	assert.Equal(t, "content of new", recent[0].Content)
	assert.Equal(t, 3, recent[0].LikeCount)

	limited, err := store.RecentPosts(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "new", limited[0].NetworkID)
}

func TestSavePostsUpsertsByNetworkIdentity(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	created := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	post := cachedPost("p1", created)
	require.NoError(t, store.SavePosts(ctx, []domain.Post{post}))

	post.LikeCount = 10
	require.NoError(t, store.SavePosts(ctx, []domain.Post{post}))

	recent, err := store.RecentPosts(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, 10, recent[0].LikeCount)
}

func TestSavePostsEmptyBatchIsNoop(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	require.NoError(t, store.SavePosts(context.Background(), nil))
}

func TestScheduledPostLifecycle(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC)

	early := ports.ScheduledPost{
		ID:           "s1",
		Content:      "early",
		Networks:     []domain.Network{domain.NetworkMastodon},
		ScheduledFor: now.Add(-time.Hour),
		CreatedAt:    now.Add(-2 * time.Hour),
	}
	late := ports.ScheduledPost{
		ID:           "s2",
		Content:      "late",
		Networks:     []domain.Network{domain.NetworkMastodon, domain.NetworkBluesky},
		ScheduledFor: now.Add(time.Hour),
		CreatedAt:    now,
	}
	require.NoError(t, store.SaveScheduled(ctx, early))
	require.NoError(t, store.SaveScheduled(ctx, late))

	due, err := store.DueScheduled(ctx, now)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "s1", due[0].ID)
	assert.Equal(t, []domain.Network{domain.NetworkMastodon}, due[0].Networks)
	assert.Equal(t, early.ScheduledFor, due[0].ScheduledFor)

	require.NoError(t, store.MarkPosted(ctx, "s1"))
	due, err = store.DueScheduled(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, due)

	due, err = store.DueScheduled(ctx, now.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "s2", due[0].ID)
}

func TestMarkPostedUnknownID(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	err := store.MarkPosted(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorContains(t, err, "not found")
}
