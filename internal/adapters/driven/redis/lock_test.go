package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	return client, func() {
		client.Close()
		mr.Close()
	}
}

func TestLock_Acquire_Success(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	lock := NewLock(client)
	ctx := context.Background()

	acquired, err := lock.Acquire(ctx, "sync-run", 10*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !acquired {
		t.Error("expected to acquire lock")
	}
}

func TestLock_Acquire_AlreadyHeld(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	lock1 := NewLock(client)
	lock2 := NewLock(client)
	ctx := context.Background()

	acquired, err := lock1.Acquire(ctx, "sync-run", 10*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !acquired {
		t.Fatal("expected first acquire to succeed")
	}

	acquired, err = lock2.Acquire(ctx, "sync-run", 10*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if acquired {
		t.Error("expected second acquire to fail while held")
	}
}

func TestLock_ReleaseAllowsReacquire(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	lock1 := NewLock(client)
	lock2 := NewLock(client)
	ctx := context.Background()

	if _, err := lock1.Acquire(ctx, "sync-run", 10*time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := lock1.Release(ctx, "sync-run"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	acquired, err := lock2.Acquire(ctx, "sync-run", 10*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !acquired {
		t.Error("expected acquire after release")
	}
}

func TestLock_ReleaseByNonOwnerIsNoop(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	owner := NewLock(client)
	other := NewLock(client)
	ctx := context.Background()

	if _, err := owner.Acquire(ctx, "sync-run", 10*time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Not the owner, so the lock must survive.
	if err := other.Release(ctx, "sync-run"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	acquired, err := other.Acquire(ctx, "sync-run", 10*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if acquired {
		t.Error("expected lock to still be held by the owner")
	}
}

func TestLock_ReleaseWithoutHoldIsSafe(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	lock := NewLock(client)
	if err := lock.Release(context.Background(), "sync-run"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
