package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/blackmichael/space-feeds/internal/domain"
)

//go:embed schema.sql
var schema string

// Repository implements domain.LikeRepository, domain.LikeCounterRepository
// and domain.ProfileRepository using PostgreSQL.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

var _ domain.Store = (*Repository)(nil)

// NewRepository connects to PostgreSQL at the given URL, verifies the
// connection, creates missing tables and returns a new Repository. The
// caller should call Close when the repository is no longer needed.
func NewRepository(ctx context.Context, databaseURL string) (*Repository, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := newRepository(db)
	if err := r.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

func newRepository(db *sql.DB) *Repository {
	return &Repository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Migrate creates the tables and indexes if they do not exist.
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// HasLiked reports whether the user has a like row for the post.
func (r *Repository) HasLiked(ctx context.Context, userID, postID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM likes WHERE user_id = $1 AND nasa_id = $2)`,
		userID, postID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check like (user=%s, post=%s): %w", userID, postID, err)
	}
	return exists, nil
}

// AddLike inserts a like row. Liking twice is a no-op.
func (r *Repository) AddLike(ctx context.Context, userID, postID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO likes (user_id, nasa_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, nasa_id) DO NOTHING`,
		userID, postID, r.now(),
	)
	if err != nil {
		return fmt.Errorf("insert like: %w", err)
	}
	return nil
}

// RemoveLike deletes a like row.
func (r *Repository) RemoveLike(ctx context.Context, userID, postID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM likes WHERE user_id = $1 AND nasa_id = $2`,
		userID, postID,
	)
	if err != nil {
		return fmt.Errorf("delete like: %w", err)
	}
	return nil
}

// LikedPostIDs returns the ids the user liked, most recent first. A non-nil
// postIDs restricts the result to those ids.
func (r *Repository) LikedPostIDs(ctx context.Context, userID string, postIDs []string) ([]string, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if postIDs == nil {
		rows, err = r.db.QueryContext(ctx, `
			SELECT nasa_id FROM likes
			WHERE user_id = $1
			ORDER BY created_at DESC, nasa_id`,
			userID,
		)
	} else {
		if len(postIDs) == 0 {
			return []string{}, nil
		}
		rows, err = r.db.QueryContext(ctx, `
			SELECT nasa_id FROM likes
			WHERE user_id = $1 AND nasa_id = ANY($2)
			ORDER BY created_at DESC, nasa_id`,
			userID, pq.Array(postIDs),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("query likes (user=%s): %w", userID, err)
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
func (r *Repository) GetLikeCounts(ctx context.Context, postIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(postIDs))
	if len(postIDs) == 0 {
		return counts, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT post_id, like_count FROM post_likes WHERE post_id = ANY($1)`,
		pq.Array(postIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("query like counts (%d ids): %w", len(postIDs), err)
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
func (r *Repository) GetLikeCount(ctx context.Context, postID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT like_count FROM post_likes WHERE post_id = $1`, postID,
	).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query like count (post=%s): %w", postID, err)
	}
	return count, nil
}

// UpsertLikeCount stores the post's counter.
func (r *Repository) UpsertLikeCount(ctx context.Context, postID string, count int) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO post_likes (post_id, like_count, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (post_id) DO UPDATE SET like_count = $2, updated_at = $3`,
		postID, count, r.now(),
	)
	if err != nil {
		return fmt.Errorf("upsert like count: %w", err)
	}
	return nil
}

// GetProfile loads a profile row.
func (r *Repository) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	p := domain.Profile{UserID: userID}
	err := r.db.QueryRowContext(ctx,
		`SELECT username, avatar_url FROM profiles WHERE id = $1`, userID,
	).Scan(&p.Username, &p.AvatarURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query profile (user=%s): %w", userID, err)
	}
	return &p, nil
}

// UpsertProfile creates or replaces a profile row.
func (r *Repository) UpsertProfile(ctx context.Context, profile *domain.Profile) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO profiles (id, username, avatar_url, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET username = $2, avatar_url = $3, updated_at = $4`,
		profile.UserID, profile.Username, profile.AvatarURL, r.now(),
	)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}
