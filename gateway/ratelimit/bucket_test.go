// Copyright 2025 PromptGate
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ratelimit

import (
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestBucket(capacity int, refillRate float64) (*TokenBucket, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	b := NewTokenBucket(capacity, refillRate)
	b.now = clock.Now
	b.lastRefill = clock.t
	return b, clock
}

func TestTokenBucketStartsFull(t *testing.T) {
	b, _ := newTestBucket(10, 1.0)
	if got := b.Peek(); got != 10 {
		t.Errorf("expected new bucket to hold 10 tokens, got %d", got)
	}
}

func TestTokenBucketExhaustion(t *testing.T) {
	b, _ := newTestBucket(10, 0)

	for i := 0; i < 10; i++ {
		allowed, remaining := b.Consume(1)
		if !allowed {
			t.Fatalf("consume %d: expected allowed", i+1)
		}
		if want := 10 - (i + 1); remaining != want {
			t.Errorf("consume %d: remaining = %d, want %d", i+1, remaining, want)
		}
	}

	allowed, remaining := b.Consume(1)
	if allowed {
		t.Error("expected 11th consume to be denied")
	}
	if remaining != 0 {
		t.Errorf("remaining after denial = %d, want 0", remaining)
	}
}

func TestTokenBucketDenialDoesNotSpend(t *testing.T) {
	b, _ := newTestBucket(5, 0)

	if allowed, _ := b.Consume(3); !allowed {
		t.Fatal("expected first consume to succeed")
	}
	// 2 tokens left; a cost-5 request must be denied without charge.
	if allowed, _ := b.Consume(5); allowed {
		t.Fatal("expected oversized consume to be denied")
	}
	if allowed, _ := b.Consume(2); !allowed {
		t.Error("denied consume must not have spent tokens")
	}
}

func TestTokenBucketRefill(t *testing.T) {
	b, clock := newTestBucket(10, 10.0)

	for i := 0; i < 10; i++ {
		b.Consume(1)
	}
	if got := b.Peek(); got != 0 {
		t.Fatalf("expected empty bucket, got %d tokens", got)
	}

	// 500ms at 10 tokens/sec refills 5 tokens.
	clock.Advance(500 * time.Millisecond)
	if got := b.Peek(); got != 5 {
		t.Errorf("after 500ms: tokens = %d, want 5", got)
	}

	// Refill never exceeds capacity however long the bucket sits idle.
	clock.Advance(time.Hour)
	if got := b.Peek(); got != 10 {
		t.Errorf("after idle hour: tokens = %d, want 10", got)
	}
}

func TestTokenBucketFractionalCost(t *testing.T) {
	b, _ := newTestBucket(1, 0)

	if allowed, _ := b.Consume(0.5); !allowed {
		t.Fatal("expected first half-token consume to succeed")
	}
	if allowed, _ := b.Consume(0.5); !allowed {
		t.Fatal("expected second half-token consume to succeed")
	}
	if allowed, _ := b.Consume(0.5); allowed {
		t.Error("expected third half-token consume to be denied")
	}
}

func TestTokenBucketConcurrentConsume(t *testing.T) {
	const tokens = 64
	b, _ := newTestBucket(tokens, 0)

	var wg sync.WaitGroup
	results := make(chan bool, tokens*2)
	for i := 0; i < tokens*2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			allowed, _ := b.Consume(1)
			results <- allowed
		}()
	}
	wg.Wait()
	close(results)

	granted := 0
	for allowed := range results {
		if allowed {
			granted++
		}
	}
	if granted != tokens {
		t.Errorf("granted %d requests, want exactly %d", granted, tokens)
	}
}
