package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLocalLocker_MutualExclusion(t *testing.T) {
	l := NewLocalLocker(0)
	key := ResourceKey("room-1")

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Acquire(context.Background(), key)
			if err != nil {
				t.Errorf("Acquire: %v", err)
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			_ = unlock(context.Background())
		}()
	}
	wg.Wait()

	if maxInside != 1 {
		t.Fatalf("max concurrent holders = %d, want 1", maxInside)
	}
	if n := l.size(); n != 0 {
		t.Fatalf("entries left = %d, want 0", n)
	}
}

func TestLocalLocker_WaitTimeout(t *testing.T) {
	l := NewLocalLocker(20 * time.Millisecond)
	key := ResourceKey("room-1")

	unlock, err := l.Acquire(context.Background(), key)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer unlock(context.Background())

	_, err = l.Acquire(context.Background(), key)
	if !errors.Is(err, ErrNotAcquired) {
		t.Fatalf("second Acquire err = %v, want ErrNotAcquired", err)
	}
}

func TestLocalLocker_ContextCancelled(t *testing.T) {
	l := NewLocalLocker(0)
	key := ResourceKey("room-1")

	unlock, err := l.Acquire(context.Background(), key)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := l.Acquire(ctx, key); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}

	_ = unlock(context.Background())
	if n := l.size(); n != 0 {
		t.Fatalf("entries left = %d, want 0", n)
	}
}

func TestLocalLocker_IndependentKeys(t *testing.T) {
	l := NewLocalLocker(10 * time.Millisecond)

	unlockA, err := l.Acquire(context.Background(), ResourceKey("a"))
	if err != nil {
		t.Fatalf("Acquire a: %v", err)
	}
	defer unlockA(context.Background())

	unlockB, err := l.Acquire(context.Background(), ResourceKey("b"))
	if err != nil {
		t.Fatalf("Acquire b while a is held: %v", err)
	}
	_ = unlockB(context.Background())
}

func TestLocalLocker_DoubleUnlock(t *testing.T) {
	l := NewLocalLocker(10 * time.Millisecond)
	key := ResourceKey("room-1")

	unlock, err := l.Acquire(context.Background(), key)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	_ = unlock(context.Background())
	_ = unlock(context.Background())

	again, err := l.Acquire(context.Background(), key)
	if err != nil {
		t.Fatalf("re-Acquire: %v", err)
	}
	_ = again(context.Background())
}
