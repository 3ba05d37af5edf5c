package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestTokenBucketAllowsUpToCapacity(t *testing.T) {
	bucket := NewTokenBucket(5, time.Hour)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		ok, err := bucket.Allow(ctx, "client")
		if err != nil {
			t.Fatalf("Allow failed: %v", err)
		}
		if !ok {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}

	ok, err := bucket.Allow(ctx, "client")
	if err != nil {
		t.Fatalf("Allow failed: %v", err)
	}
	if ok {
		t.Error("request over capacity should be denied")
	}
}

func TestTokenBucketRefills(t *testing.T) {
	// 100 requests per 100ms refills a token every millisecond.
	bucket := NewTokenBucket(100, 100*time.Millisecond)
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		bucket.Allow(ctx, "client")
	}
	if ok, _ := bucket.Allow(ctx, "client"); ok {
		t.Fatal("bucket should be empty")
	}

	time.Sleep(20 * time.Millisecond)
	if ok, _ := bucket.Allow(ctx, "client"); !ok {
		t.Error("bucket should have refilled after the wait")
	}
}
