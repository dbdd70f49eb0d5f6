package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"followarr/internal/config"
	"followarr/internal/services"
)

// Follow is one user's subscription to one show. show_name is denormalized at
// follow time so listings don't need a catalog round-trip.
type Follow struct {
	ID        int64
	UserID    string
	ShowID    int64
	ShowName  string
	CreatedAt time.Time
}

// Stats summarizes the follow table for the status surface.
type Stats struct {
	Follows int64 `json:"follows"`
	Users   int64 `json:"users"`
	Shows   int64 `json:"shows"`
}

// Store manages follow persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the follow database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.DatabasePath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, services.Wrap(services.ErrStore, "store", "open", dbPath, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, services.Wrap(services.ErrStore, "store", "open", fmt.Sprintf("apply pragma %q", pragma), execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, services.Wrap(services.ErrStore, "store", "open", "init schema", err)
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the on-disk database location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// AddFollow records that a user follows a show. Idempotent: if the
// (user, show) pair already exists the stored row is returned unchanged.
func (s *Store) AddFollow(ctx context.Context, userID string, showID int64, showName string) (*Follow, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO follows (user_id, show_id, show_name, created_at)
         VALUES (?, ?, ?, ?)
         ON CONFLICT (user_id, show_id) DO NOTHING`,
		userID,
		showID,
		showName,
		timestamp,
	)
	if err != nil {
		return nil, services.Wrap(services.ErrStore, "store", "add follow", "", err)
	}

	follow, err := s.getFollow(ctx, userID, showID)
	if err != nil {
		return nil, err
	}
	if follow == nil {
		return nil, services.Wrap(services.ErrStore, "store", "add follow", "row missing after insert", nil)
	}
	return follow, nil
}

// RemoveFollow deletes a follow. Returns false when the user was not
// following the show; that is a no-op, not an error.
func (s *Store) RemoveFollow(ctx context.Context, userID string, showID int64) (bool, error) {
	res, err := s.db.ExecContext(
		ctx,
		`DELETE FROM follows WHERE user_id = ? AND show_id = ?`,
		userID,
		showID,
	)
	if err != nil {
		return false, services.Wrap(services.ErrStore, "store", "remove follow", "", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, services.Wrap(services.ErrStore, "store", "remove follow", "rows affected", err)
	}
	return affected > 0, nil
}

// ListFollows returns every show the user follows, ordered by show name.
func (s *Store) ListFollows(ctx context.Context, userID string) ([]Follow, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+followColumns+` FROM follows WHERE user_id = ? ORDER BY show_name COLLATE NOCASE`,
		userID,
	)
	if err != nil {
		return nil, services.Wrap(services.ErrStore, "store", "list follows", "", err)
	}
	defer rows.Close()
	return collectFollows(rows)
}

// ListFollowers returns every follow row for a show. Runs on every inbound
// event, so it is served by the show_id index.
func (s *Store) ListFollowers(ctx context.Context, showID int64) ([]Follow, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+followColumns+` FROM follows WHERE show_id = ? ORDER BY user_id`,
		showID,
	)
	if err != nil {
		return nil, services.Wrap(services.ErrStore, "store", "list followers", "", err)
	}
	defer rows.Close()
	return collectFollows(rows)
}

// Stats returns aggregate counts for the status surface.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT user_id), COUNT(DISTINCT show_id) FROM follows`)
	if err := row.Scan(&stats.Follows, &stats.Users, &stats.Shows); err != nil {
		return Stats{}, services.Wrap(services.ErrStore, "store", "stats", "", err)
	}
	return stats, nil
}

const followColumns = `id, user_id, show_id, show_name, created_at`

func (s *Store) getFollow(ctx context.Context, userID string, showID int64) (*Follow, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+followColumns+` FROM follows WHERE user_id = ? AND show_id = ?`,
		userID,
		showID,
	)
	follow, err := scanFollow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, services.Wrap(services.ErrStore, "store", "get follow", "", err)
	}
	return follow, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFollow(row rowScanner) (*Follow, error) {
	var follow Follow
	var createdAt string
	if err := row.Scan(&follow.ID, &follow.UserID, &follow.ShowID, &follow.ShowName, &createdAt); err != nil {
		return nil, err
	}
	if parsed, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		follow.CreatedAt = parsed
	}
	return &follow, nil
}

func collectFollows(rows *sql.Rows) ([]Follow, error) {
	var follows []Follow
	for rows.Next() {
		follow, err := scanFollow(rows)
		if err != nil {
			return nil, services.Wrap(services.ErrStore, "store", "scan follow", "", err)
		}
		follows = append(follows, *follow)
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrStore, "store", "iterate follows", "", err)
	}
	return follows, nil
}
