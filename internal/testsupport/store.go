package testsupport

import (
	"context"
	"testing"

	"followarr/internal/config"
	"followarr/internal/store"
)

// MustOpenStore opens a follow store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	s, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

// MustFollow inserts a follow row for tests.
func MustFollow(t testing.TB, s *store.Store, userID string, showID int64, showName string) *store.Follow {
	t.Helper()

	follow, err := s.AddFollow(context.Background(), userID, showID, showName)
	if err != nil {
		t.Fatalf("store.AddFollow: %v", err)
	}
	return follow
}
