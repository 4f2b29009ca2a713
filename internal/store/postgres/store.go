// Package postgres provides the Postgres-backed Store implementation.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/forumvac/forumvac/internal/store"
)

// uniqueViolation is the Postgres error code for duplicate keys.
const uniqueViolation = "23505"

// Config controls the connection pool.
type Config struct {
	DSN      string
	MaxConns int32
}

type dbConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store persists harvested entities in Postgres. Writes follow an
// insert-then-update-on-conflict sequence: conflicts on an entity's key
// refresh its mutable fields, an update that matches nothing is logged
// and swallowed, and every other database error is surfaced as fatal.
type Store struct {
	pool   dbConn
	logger *zap.Logger
}

var _ store.Store = (*Store)(nil)

// New connects a pool, applies the schema, and returns a Store.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("store.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return NewWithPool(pool, logger), nil
}

// NewWithPool constructs a Store from an existing pool (primarily for
// testing with pgxmock).
func NewWithPool(pool dbConn, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{pool: pool, logger: logger}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// upsert runs the insert, falls back to the update on a unique-key
// conflict, and treats "update matched nothing" as a logged no-op.
func (s *Store) upsert(ctx context.Context, kind, key, insertSQL string, insertArgs []any, updateSQL string, updateArgs []any) error {
	_, err := s.pool.Exec(ctx, insertSQL, insertArgs...)
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return fmt.Errorf("insert %s %s: %w", kind, key, err)
	}
	tag, err := s.pool.Exec(ctx, updateSQL, updateArgs...)
	if err != nil {
		return fmt.Errorf("update %s %s: %w", kind, key, err)
	}
	if tag.RowsAffected() == 0 {
		// The row vanished between insert and update. Nothing to refresh.
		s.logger.Warn("update matched nothing",
			zap.String("kind", kind),
			zap.String("key", key),
		)
	}
	return nil
}

// UpsertPreset merges a preset row.
func (s *Store) UpsertPreset(ctx context.Context, p store.Preset) error {
	return s.upsert(ctx, "preset", p.PresetID,
		`INSERT INTO forum_presets (preset_id, title_welcome, total_threads, total_posts)
		 VALUES ($1, $2, $3, $4)`,
		[]any{p.PresetID, p.TitleWelcome, p.TotalThreads, p.TotalPosts},
		`UPDATE forum_presets SET title_welcome = $2, total_threads = $3, total_posts = $4
		 WHERE preset_id = $1`,
		[]any{p.PresetID, p.TitleWelcome, p.TotalThreads, p.TotalPosts},
	)
}

// UpsertCategory merges a category row.
func (s *Store) UpsertCategory(ctx context.Context, c store.Category) error {
	return s.upsert(ctx, "category", c.CategoryID,
		`INSERT INTO category_names (category_id, category_name) VALUES ($1, $2)`,
		[]any{c.CategoryID, c.CategoryName},
		`UPDATE category_names SET category_name = $2 WHERE category_id = $1`,
		[]any{c.CategoryID, c.CategoryName},
	)
}

// UpsertSubforum merges a subforum row.
func (s *Store) UpsertSubforum(ctx context.Context, sf store.Subforum) error {
	return s.upsert(ctx, "subforum", sf.ForumID,
		`INSERT INTO subforums (forum_id, parent_id, preset_id, category_id, category_name,
		 forum_name, forum_description, forum_type, title_welcome)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		[]any{sf.ForumID, sf.ParentID, sf.PresetID, sf.CategoryID, sf.CategoryName,
			sf.ForumName, sf.ForumDescription, sf.ForumType, sf.TitleWelcome},
		`UPDATE subforums SET parent_id = $2, preset_id = $3, category_id = $4,
		 category_name = $5, forum_name = $6, forum_description = $7, forum_type = $8,
		 title_welcome = $9
		 WHERE forum_id = $1`,
		[]any{sf.ForumID, sf.ParentID, sf.PresetID, sf.CategoryID, sf.CategoryName,
			sf.ForumName, sf.ForumDescription, sf.ForumType, sf.TitleWelcome},
	)
}

// UpsertThread merges a thread row.
func (s *Store) UpsertThread(ctx context.Context, t store.Thread) error {
	return s.upsert(ctx, "thread", t.ThreadID,
		`INSERT INTO forum_threads (thread_id, thread_subject, thread_views, thread_type,
		 thread_status, forum_id, username, category_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		[]any{t.ThreadID, t.ThreadSubject, t.ThreadViews, t.ThreadType,
			t.ThreadStatus, t.ForumID, t.Username, t.CategoryID},
		`UPDATE forum_threads SET thread_subject = $2, thread_views = $3, thread_type = $4,
		 thread_status = $5, forum_id = $6, username = $7, category_id = $8
		 WHERE thread_id = $1`,
		[]any{t.ThreadID, t.ThreadSubject, t.ThreadViews, t.ThreadType,
			t.ThreadStatus, t.ForumID, t.Username, t.CategoryID},
	)
}

// UpsertPost merges a post row.
func (s *Store) UpsertPost(ctx context.Context, p store.Post) error {
	return s.upsert(ctx, "post", p.PostID,
		`INSERT INTO forum_posts (post_id, post_time, post_content, post_user_id,
		 post_username, last_edit_time, last_edit_user, post_unhidden, post_admin_hidden,
		 post_locked, thread_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		[]any{p.PostID, p.PostTime, p.PostContent, p.PostUserID, p.PostUsername,
			p.LastEditTime, p.LastEditUser, p.PostUnhidden, p.PostAdminHidden,
			p.PostLocked, p.ThreadID},
		`UPDATE forum_posts SET post_time = $2, post_content = $3, post_user_id = $4,
		 post_username = $5, last_edit_time = $6, last_edit_user = $7, post_unhidden = $8,
		 post_admin_hidden = $9, post_locked = $10, thread_id = $11
		 WHERE post_id = $1`,
		[]any{p.PostID, p.PostTime, p.PostContent, p.PostUserID, p.PostUsername,
			p.LastEditTime, p.LastEditUser, p.PostUnhidden, p.PostAdminHidden,
			p.PostLocked, p.ThreadID},
	)
}

// UpsertApplication merges an application row.
func (s *Store) UpsertApplication(ctx context.Context, a store.Application) error {
	return s.upsert(ctx, "application", a.ApplicationID,
		`INSERT INTO applications (application_id, site_id, preset_id, title, user_ip,
		 created, username, user_id, user_data)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		[]any{a.ApplicationID, a.SiteID, a.PresetID, a.Title, a.UserIP,
			a.Created, a.Username, a.UserID, a.UserData},
		`UPDATE applications SET site_id = $2, preset_id = $3, title = $4, user_ip = $5,
		 created = $6, username = $7, user_id = $8, user_data = $9
		 WHERE application_id = $1`,
		[]any{a.ApplicationID, a.SiteID, a.PresetID, a.Title, a.UserIP,
			a.Created, a.Username, a.UserID, a.UserData},
	)
}

// HasImage reports whether an image row exists for the URL.
func (s *Store) HasImage(ctx context.Context, url string) (bool, error) {
	var one int
	err := s.pool.QueryRow(ctx, `SELECT 1 FROM images WHERE image_url = $1`, url).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup image %s: %w", url, err)
	}
	return true, nil
}

// PutImage merges an image row.
func (s *Store) PutImage(ctx context.Context, img store.Image) error {
	return s.upsert(ctx, "image", img.ImageURL,
		`INSERT INTO images (image_url, image_content) VALUES ($1, $2)`,
		[]any{img.ImageURL, img.ImageContent},
		`UPDATE images SET image_content = $2 WHERE image_url = $1`,
		[]any{img.ImageURL, img.ImageContent},
	)
}
