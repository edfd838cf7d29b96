package sync

import (
	"sync"
	"testing"
)

func TestKeyLock_TryLock(t *testing.T) {
	l := NewKeyLock()

	if !l.TryLock("a/b#1@sha") {
		t.Fatal("first TryLock must succeed")
	}
	if l.TryLock("a/b#1@sha") {
		t.Error("second TryLock on held key must fail")
	}
	l.Unlock("a/b#1@sha")
	if !l.TryLock("a/b#1@sha") {
		t.Error("TryLock after Unlock must succeed")
	}
	l.Unlock("a/b#1@sha")
}

func TestKeyLock_KeysIndependent(t *testing.T) {
	l := NewKeyLock()

	if !l.TryLock("key-1") {
		t.Fatal("first key refused")
	}
	if !l.TryLock("key-2") {
		t.Error("holding one key must not block another")
	}
	l.Unlock("key-1")
	l.Unlock("key-2")
}

func TestKeyLock_UnlockUnknownKey(t *testing.T) {
	l := NewKeyLock()
	// Must not panic
	l.Unlock("never-locked")
}

func TestKeyLock_SerializesCounter(t *testing.T) {
	l := NewKeyLock()
	var wg sync.WaitGroup
	counter := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Lock("counter")
			counter++
			l.Unlock("counter")
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Errorf("expected 50, got %d", counter)
	}
}
