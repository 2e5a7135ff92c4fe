package conversation

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	km := newKeyedMutex()
	key := uuid.New()

	unlock := km.Lock(key)

	acquired := make(chan struct{})
	go func() {
		second := km.Lock(key)
		close(acquired)
		second()
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while first still held")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second lock never acquired after release")
	}
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	km := newKeyedMutex()

	unlockA := km.Lock(uuid.New())
	defer unlockA()

	acquired := make(chan struct{})
	go func() {
		unlockB := km.Lock(uuid.New())
		close(acquired)
		unlockB()
	}()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("lock on a different key blocked")
	}
}

func TestKeyedMutexReleasesEntry(t *testing.T) {
	km := newKeyedMutex()
	key := uuid.New()

	unlock := km.Lock(key)
	unlock()

	km.mu.Lock()
	defer km.mu.Unlock()
	if len(km.locks) != 0 {
		t.Errorf("locks = %d, want 0 after release", len(km.locks))
	}
}
