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
	"context"
	"sync"
)

// Checker is the admission interface the gateway pipeline consumes.
// Implementations must be safe for concurrent use.
type Checker interface {
	// Check attempts to spend cost tokens on behalf of clientID.
	// Returns whether the request is admitted and the whole tokens
	// remaining for that client afterwards.
	Check(ctx context.Context, clientID string, cost float64) (allowed bool, remaining int)
}

// Limiter owns one token bucket per client identity, or a single shared
// bucket in global mode. Buckets are created lazily on first sight of a
// client and are never evicted: a long-running process accumulates one
// bucket per distinct identity (see Len for monitoring).
type Limiter struct {
	capacity   int
	refillRate float64
	perClient  bool

	global  *TokenBucket
	buckets map[string]*TokenBucket
	mu      sync.RWMutex
}

// NewLimiter creates a limiter. In per-client mode each client identity gets
// its own bucket sized capacity/refillRate; otherwise all clients share one.
func NewLimiter(capacity int, refillRate float64, perClient bool) *Limiter {
	return &Limiter{
		capacity:   capacity,
		refillRate: refillRate,
		perClient:  perClient,
		global:     NewTokenBucket(capacity, refillRate),
		buckets:    make(map[string]*TokenBucket),
	}
}

// Check spends cost tokens for clientID, creating the bucket if needed.
func (l *Limiter) Check(_ context.Context, clientID string, cost float64) (bool, int) {
	return l.bucket(clientID).Consume(cost)
}

// Remaining reports the tokens currently available to clientID without
// consuming any.
func (l *Limiter) Remaining(clientID string) int {
	return l.bucket(clientID).Peek()
}

// Len returns the number of tracked client buckets. Always 0 in global mode.
func (l *Limiter) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.buckets)
}

// bucket resolves the bucket for a client, creating it under the write lock
// if this is the first request from that identity.
func (l *Limiter) bucket(clientID string) *TokenBucket {
	if !l.perClient {
		return l.global
	}

	l.mu.RLock()
	b, ok := l.buckets[clientID]
	l.mu.RUnlock()
	if ok {
		return b
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring the write lock
	if b, ok = l.buckets[clientID]; ok {
		return b
	}
	b = NewTokenBucket(l.capacity, l.refillRate)
	l.buckets[clientID] = b
	return b
}
