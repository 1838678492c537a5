package testsupport

import (
	"context"
	"testing"

	"github.com/mhingston/DriveTime/internal/config"
	"github.com/mhingston/DriveTime/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config, opts ...queue.Option) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg, opts...)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// Enqueue adds a pending request for tests using the provided store.
func Enqueue(t testing.TB, store *queue.Store, origin, destination string) *queue.Item {
	t.Helper()

	item, _, err := store.Enqueue(context.Background(), origin, destination)
	if err != nil {
		t.Fatalf("store.Enqueue: %v", err)
	}
	return item
}
