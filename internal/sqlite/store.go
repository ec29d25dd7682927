// Package sqlite provides a SQLite-backed implementation of the like,
// counter and profile repositories.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/blackmichael/space-feeds/internal/domain"
)

//go:embed schema.sql
var schema string

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Store persists likes, counters and profiles in SQLite.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

var _ domain.Store = (*Store)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// Open opens the database at path and creates missing tables. An empty path
// or MemoryPath gives an in-memory database.
func Open(ctx context.Context, path string) (*Store, error) {
	path = strings.TrimSpace(path)
	memory := path == "" || path == MemoryPath

	dsn := MemoryPath
	if !memory {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		dsn = path + sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	}

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if memory {
		// every pooled connection would otherwise see its own empty database
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.ExecContext(ctx, schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// HasLiked reports whether the user has a like row for the post.
func (s *Store) HasLiked(ctx context.Context, userID, postID string) (bool, error) {
	var n int
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM likes WHERE user_id = ? AND nasa_id = ?`,
		userID, postID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check like: %w", err)
	}
	return n > 0, nil
}

// AddLike inserts a like row. Liking twice is a no-op.
func (s *Store) AddLike(ctx context.Context, userID, postID string) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO likes (user_id, nasa_id, created_at) VALUES (?, ?, ?)
		 ON CONFLICT (user_id, nasa_id) DO NOTHING`,
		userID, postID, toMillis(s.now()),
	)
	if err != nil {
		return fmt.Errorf("insert like: %w", err)
	}
	return nil
}

// RemoveLike deletes a like row.
func (s *Store) RemoveLike(ctx context.Context, userID, postID string) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`DELETE FROM likes WHERE user_id = ? AND nasa_id = ?`,
		userID, postID,
	)
	if err != nil {
		return fmt.Errorf("delete like: %w", err)
	}
	return nil
}

// LikedPostIDs returns the ids the user liked, most recent first. A non-nil
// postIDs restricts the result to those ids.
func (s *Store) LikedPostIDs(ctx context.Context, userID string, postIDs []string) ([]string, error) {
	query := `SELECT nasa_id FROM likes WHERE user_id = ?`
	args := []any{userID}
	if postIDs != nil {
		if len(postIDs) == 0 {
			return []string{}, nil
		}
		query += ` AND nasa_id IN (` + placeholders(len(postIDs)) + `)`
		for _, id := range postIDs {
			args = append(args, id)
		}
	}
	query += ` ORDER BY created_at DESC, rowid DESC`

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query likes: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan like: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate likes: %w", err)
	}
	return ids, nil
}

// GetLikeCounts returns stored counters for the given ids in one query.
func (s *Store) GetLikeCounts(ctx context.Context, postIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(postIDs))
	if len(postIDs) == 0 {
		return counts, nil
	}

	args := make([]any, len(postIDs))
	for i, id := range postIDs {
		args[i] = id
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT post_id, like_count FROM post_likes WHERE post_id IN (`+placeholders(len(postIDs))+`)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query like counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id    string
			count int
		)
		if err := rows.Scan(&id, &count); err != nil {
			return nil, fmt.Errorf("scan like count: %w", err)
		}
		counts[id] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate like counts: %w", err)
	}
	return counts, nil
}

// GetLikeCount returns one counter, 0 when no row exists.
func (s *Store) GetLikeCount(ctx context.Context, postID string) (int, error) {
	var count int
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT like_count FROM post_likes WHERE post_id = ?`, postID,
	).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query like count: %w", err)
	}
	return count, nil
}

// UpsertLikeCount stores the post's counter.
func (s *Store) UpsertLikeCount(ctx context.Context, postID string, count int) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO post_likes (post_id, like_count, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (post_id) DO UPDATE SET like_count = excluded.like_count, updated_at = excluded.updated_at`,
		postID, count, toMillis(s.now()),
	)
	if err != nil {
		return fmt.Errorf("upsert like count: %w", err)
	}
	return nil
}

// GetProfile loads a profile row.
func (s *Store) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	p := domain.Profile{UserID: userID}
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT username, avatar_url FROM profiles WHERE id = ?`, userID,
	).Scan(&p.Username, &p.AvatarURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query profile: %w", err)
	}
	return &p, nil
}

// UpsertProfile creates or replaces a profile row.
func (s *Store) UpsertProfile(ctx context.Context, profile *domain.Profile) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO profiles (id, username, avatar_url, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET username = excluded.username, avatar_url = excluded.avatar_url, updated_at = excluded.updated_at`,
		profile.UserID, profile.Username, profile.AvatarURL, toMillis(s.now()),
	)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
