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

package gateway

import (
	"net/http"

	"promptgate/gateway/security"
)

// ErrorKind classifies a terminal gateway failure.
type ErrorKind int

const (
	// ErrRateLimitExceeded: the caller's token bucket is empty.
	ErrRateLimitExceeded ErrorKind = iota
	// ErrSecurityBlocked: an injection attempt was detected; the request
	// never reaches the upstream.
	ErrSecurityBlocked
	// ErrUpstreamUnavailable: transport failure, timeout, or non-2xx from
	// the downstream service. Never retried by the gateway.
	ErrUpstreamUnavailable
	// ErrUpstreamNotFound: upstream answered 404 on a route that passes
	// not-found through to the caller.
	ErrUpstreamNotFound
	// ErrInvalidRequest: the request body is not valid JSON.
	ErrInvalidRequest
	// ErrInternal: unexpected pipeline failure. Details stay server-side.
	ErrInternal
)

// StatusCode maps an error kind to its HTTP status.
func (k ErrorKind) StatusCode() int {
	switch k {
	case ErrRateLimitExceeded:
		return http.StatusTooManyRequests
	case ErrSecurityBlocked:
		return http.StatusForbidden
	case ErrUpstreamUnavailable:
		return http.StatusBadGateway
	case ErrUpstreamNotFound:
		return http.StatusNotFound
	case ErrInvalidRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse is the gateway-level error body returned to callers.
type ErrorResponse struct {
	Error     string                `json:"error"`
	RequestID string                `json:"request_id"`
	Blocked   bool                  `json:"blocked"`
	Security  *security.CheckResult `json:"security,omitempty"`
}
