package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/PrimaryFunction/Arkos/internal/model"
)

// createTestStore creates a new file-backed store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestProxy inserts a proxy owned by creatorID.
func createTestProxy(t *testing.T, s *Store, key, creatorID string) model.Proxy {
	t.Helper()
	p := model.Proxy{Key: key, Name: "Name " + key, AvatarURL: "http://x/" + key + ".png"}
	if err := s.CreateProxy(context.Background(), p, creatorID); err != nil {
		t.Fatalf("CreateProxy(%q) failed: %v", key, err)
	}
	return p
}
