package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/bnema/perch/internal/domain"
	"github.com/bnema/perch/internal/ports"
)

const cacheDirMode = 0o700

// Store persists timeline posts and scheduled posts in a local SQLite
// database. Posts are stored as JSON blobs keyed by network identity, so
// schema churn in the post model does not require a migration.
type Store struct {
	db *sql.DB
}

var (
	_ ports.PostCache     = (*Store)(nil)
	_ ports.ScheduleStore = (*Store)(nil)
)

func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), cacheDirMode); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	const schema = `
CREATE TABLE IF NOT EXISTS posts (
	network    TEXT NOT NULL,
	network_id TEXT NOT NULL,
	created_at TEXT NOT NULL,
	payload    TEXT NOT NULL,
	PRIMARY KEY (network, network_id)
);
CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts (created_at DESC);

CREATE TABLE IF NOT EXISTS scheduled_posts (
	id            TEXT PRIMARY KEY,
	content       TEXT NOT NULL,
	networks      TEXT NOT NULL,
	scheduled_for TEXT NOT NULL,
	created_at    TEXT NOT NULL,
	posted        INTEGER NOT NULL DEFAULT 0
);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create cache schema: %w", err)
	}
	return nil
}

// SavePosts upserts the batch; a post refetched with fresh counters
// replaces its previous snapshot.
func (s *Store) SavePosts(ctx context.Context, posts []domain.Post) error {
	if len(posts) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin cache transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO posts (network, network_id, created_at, payload)
VALUES (?, ?, ?, ?)
ON CONFLICT (network, network_id) DO UPDATE SET
	created_at = excluded.created_at,
	payload    = excluded.payload`)
	if err != nil {
		return fmt.Errorf("prepare cache insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, post := range posts {
		payload, err := json.Marshal(post)
		if err != nil {
			return fmt.Errorf("encode post %s: %w", post.NetworkID, err)
		}
		createdAt := post.CreatedAt.UTC().Format(time.RFC3339Nano)
		if _, err := stmt.ExecContext(ctx, string(post.Network), post.NetworkID, createdAt, payload); err != nil {
			return fmt.Errorf("insert post %s: %w", post.NetworkID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit cache transaction: %w", err)
	}
	return nil
}

// RecentPosts returns up to limit cached posts, newest first.
func (s *Store) RecentPosts(ctx context.Context, limit int) ([]domain.Post, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM posts ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query cached posts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var posts []domain.Post
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan cached post: %w", err)
		}
		var post domain.Post
		if err := json.Unmarshal(payload, &post); err != nil {
			return nil, fmt.Errorf("decode cached post: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cached posts: %w", err)
	}
	return posts, nil
}

func (s *Store) SaveScheduled(ctx context.Context, post ports.ScheduledPost) error {
	networks, err := json.Marshal(post.Networks)
	if err != nil {
		return fmt.Errorf("encode networks: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO scheduled_posts (id, content, networks, scheduled_for, created_at, posted)
VALUES (?, ?, ?, ?, ?, ?)`,
		post.ID,
		post.Content,
		string(networks),
		post.ScheduledFor.UTC().Format(time.RFC3339Nano),
		post.CreatedAt.UTC().Format(time.RFC3339Nano),
		boolToInt(post.Posted),
	)
	if err != nil {
		return fmt.Errorf("insert scheduled post: %w", err)
	}
	return nil
}

// DueScheduled returns unposted entries whose scheduled time has passed,
// oldest first.
func (s *Store) DueScheduled(ctx context.Context, now time.Time) ([]ports.ScheduledPost, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, content, networks, scheduled_for, created_at, posted
FROM scheduled_posts
WHERE posted = 0 AND scheduled_for <= ?
ORDER BY scheduled_for ASC`,
		now.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("query due posts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var due []ports.ScheduledPost
	for rows.Next() {
		var (
			post         ports.ScheduledPost
			networks     string
			scheduledFor string
			createdAt    string
			posted       int
		)
		if err := rows.Scan(&post.ID, &post.Content, &networks, &scheduledFor, &createdAt, &posted); err != nil {
			return nil, fmt.Errorf("scan scheduled post: %w", err)
		}
		if err := json.Unmarshal([]byte(networks), &post.Networks); err != nil {
			return nil, fmt.Errorf("decode networks for %s: %w", post.ID, err)
		}
		post.ScheduledFor = parseStoredTime(scheduledFor)
		post.CreatedAt = parseStoredTime(createdAt)
		post.Posted = posted != 0
		due = append(due, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate due posts: %w", err)
	}
	return due, nil
}

func (s *Store) MarkPosted(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE scheduled_posts SET posted = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark scheduled post: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check scheduled post update: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("scheduled post %s not found", id)
	}
	return nil
}

func parseStoredTime(raw string) time.Time {
	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return parsed
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
