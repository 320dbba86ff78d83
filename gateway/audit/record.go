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

// Package audit records one entry per gateway request, whatever its outcome.
// Entries go to a Sink: structured stdout logging by default, or batched
// Postgres writes when an audit database is configured.
package audit

import "time"

// Outcome classifies how a request left the gateway.
type Outcome string

const (
	OutcomeProxied       Outcome = "proxied"
	OutcomeRateLimited   Outcome = "rate_limited"
	OutcomeBlocked       Outcome = "blocked"
	OutcomeUpstreamError Outcome = "upstream_error"
	OutcomeInternalError Outcome = "internal_error"
	OutcomeNotFound      Outcome = "not_found"
	OutcomeInvalidInput  Outcome = "invalid_input"
)

// Record is one audit entry. Exactly one Record is written per request the
// gateway accepts onto a route, regardless of where in the pipeline the
// request terminated.
type Record struct {
	RequestID          string    `json:"request_id"`
	Timestamp          time.Time `json:"timestamp"`
	ClientID           string    `json:"client_id"`
	Method             string    `json:"method"`
	Path               string    `json:"path"`
	Route              string    `json:"route"`
	Outcome            Outcome   `json:"outcome"`
	StatusCode         int       `json:"status_code"`
	LatencyMS          float64   `json:"latency_ms"`
	SecurityStatus     string    `json:"security_status"`
	PIIDetected        []string  `json:"pii_detected,omitempty"`
	InjectionDetected  []string  `json:"injection_detected,omitempty"`
	RateLimitRemaining int       `json:"rate_limit_remaining"`
	InputTokens        int       `json:"input_tokens,omitempty"`
	OutputTokens       int       `json:"output_tokens,omitempty"`
	EstimatedCostUSD   float64   `json:"estimated_cost_usd,omitempty"`
	UpstreamService    string    `json:"upstream_service,omitempty"`
	UpstreamStatus     int       `json:"upstream_status,omitempty"`
	ErrorMessage       string    `json:"error_message,omitempty"`
}

// TotalTokens returns the combined token count of the record.
func (r *Record) TotalTokens() int {
	return r.InputTokens + r.OutputTokens
}

// Sink consumes audit records. Write must not block the request path for
// longer than an in-memory enqueue; implementations buffer and flush on
// their own schedule. Close flushes anything still buffered.
type Sink interface {
	Write(entry *Record)
	Close() error
}
