package cases

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/beaconhq/beacon/pkg/lifecycle"
	"github.com/beaconhq/beacon/pkg/storage"
)

type fakeStorage struct {
	mu      sync.Mutex
	copies  map[string]string
	deletes []string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{copies: map[string]string{}}
}

func (f *fakeStorage) Start(lc *lifecycle.Coordinator) error { return nil }

func (f *fakeStorage) Upload(ctx context.Context, key string, reader io.Reader, contentType string) error {
	return nil
}

func (f *fakeStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	return nil, storage.ErrNotFound
}

func (f *fakeStorage) Copy(ctx context.Context, src, dst string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.copies[src] = dst
	return nil
}

func (f *fakeStorage) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, key)
	return nil
}

func (f *fakeStorage) Exists(ctx context.Context, key string) (bool, error) {
	return false, nil
}

func TestFreezeManifestKeepsDuplicateFilenamesDistinct(t *testing.T) {
	store := newFakeStorage()
	r := &repo{
		storage: store,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	sessionID := uuid.New()
	manifest := []ManifestEntry{
		{Filename: "receipt.pdf", StorageKey: "sessions/" + sessionID.String() + "/evidence/item-aaa/receipt.pdf"},
		{Filename: "receipt.pdf", StorageKey: "sessions/" + sessionID.String() + "/evidence/item-bbb/receipt.pdf"},
	}

	frozen, err := r.freezeManifest(context.Background(), uuid.New(), manifest)
	if err != nil {
		t.Fatalf("freezeManifest failed: %v", err)
	}

	if len(frozen) != 2 {
		t.Fatalf("frozen = %d entries, want 2", len(frozen))
	}
	if frozen[0].StorageKey == frozen[1].StorageKey {
		t.Fatalf("both items froze to %q, duplicate filenames collided", frozen[0].StorageKey)
	}

	for i, entry := range frozen {
		if got := store.copies[manifest[i].StorageKey]; got != entry.StorageKey {
			t.Errorf("copy dst for %q = %q, want %q", manifest[i].StorageKey, got, entry.StorageKey)
		}
	}
}

func TestFreezeManifestPreservesItemSegment(t *testing.T) {
	store := newFakeStorage()
	r := &repo{
		storage: store,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	caseUUID := uuid.New()
	manifest := []ManifestEntry{
		{Filename: "photo.jpg", StorageKey: "sessions/s1/evidence/item-ccc/photo.jpg"},
	}

	frozen, err := r.freezeManifest(context.Background(), caseUUID, manifest)
	if err != nil {
		t.Fatalf("freezeManifest failed: %v", err)
	}

	want := "cases/" + caseUUID.String() + "/evidence/item-ccc/photo.jpg"
	if frozen[0].StorageKey != want {
		t.Errorf("StorageKey = %q, want %q", frozen[0].StorageKey, want)
	}
}
