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
	"math"
	"sync"
	"time"
)

// TokenBucket is a capped counter refilled at a constant rate. Refill is
// lazy: tokens are accounted from wall-clock elapsed time on each call, so
// no background timer is needed and the bucket is idle-cost free.
type TokenBucket struct {
	capacity   float64
	tokens     float64
	refillRate float64 // tokens per second
	lastRefill time.Time

	mu  sync.Mutex
	now func() time.Time
}

// NewTokenBucket creates a full bucket.
// capacity: maximum tokens held; refillRate: tokens added per second.
func NewTokenBucket(capacity int, refillRate float64) *TokenBucket {
	b := &TokenBucket{
		capacity:   float64(capacity),
		tokens:     float64(capacity),
		refillRate: refillRate,
		now:        time.Now,
	}
	b.lastRefill = b.now()
	return b
}

// refill adds tokens for the time elapsed since the last accounting.
// Callers must hold mu.
func (b *TokenBucket) refill() {
	now := b.now()
	elapsed := now.Sub(b.lastRefill).Seconds()
	b.tokens = math.Min(b.capacity, b.tokens+elapsed*b.refillRate)
	b.lastRefill = now
}

// Consume attempts to remove cost tokens. The refill and the consumption
// happen in one critical section, so two concurrent callers can never both
// spend the same token. Returns whether the tokens were taken and the whole
// tokens remaining afterwards.
func (b *TokenBucket) Consume(cost float64) (allowed bool, remaining int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill()

	if b.tokens >= cost {
		b.tokens -= cost
		return true, int(b.tokens)
	}
	return false, int(b.tokens)
}

// Peek refills and reports the whole tokens available without consuming.
func (b *TokenBucket) Peek() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill()
	return int(b.tokens)
}
