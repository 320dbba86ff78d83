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

package security

import (
	"strings"

	"promptgate/shared/logger"
)

// Status is the overall outcome of a security check.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusBlocked Status = "blocked"
	StatusWarning Status = "warning"
)

// CheckResult reports everything the security pass found in one request.
type CheckResult struct {
	Status            Status          `json:"status"`
	PIIDetected       []PIIKind       `json:"pii_detected"`
	PIIRedacted       bool            `json:"pii_redacted"`
	InjectionDetected []InjectionKind `json:"injection_detected"`
	BlockedReason     string          `json:"blocked_reason,omitempty"`
}

// Middleware runs the PII and injection checks over request text. Either
// check can be disabled independently through configuration.
type Middleware struct {
	enablePII       bool
	enableInjection bool

	// The scan functions default to the package scanners; tests swap in
	// faulty ones to exercise the recovery path.
	redact func(text string) (string, []PIIKind)
	detect func(text string) []InjectionKind
	log    *logger.Logger
}

// NewMiddleware creates a Middleware with the given checks enabled.
func NewMiddleware(enablePII, enableInjection bool, log *logger.Logger) *Middleware {
	var (
		redactor PIIRedactor
		detector InjectionDetector
	)
	return &Middleware{
		enablePII:       enablePII,
		enableInjection: enableInjection,
		redact:          redactor.Redact,
		detect:          detector.Detect,
		log:             log,
	}
}

// Process runs the enabled checks over text. Injection detection runs
// against the original text, PII redaction produces the processed text that
// is forwarded upstream. An injection hit takes precedence over a PII
// warning. A fault inside the scanners must never take a request down with
// it: Process recovers, logs, and passes the original text through.
func (m *Middleware) Process(text string) (processed string, result CheckResult) {
	defer func() {
		if r := recover(); r != nil {
			if m.log != nil {
				m.log.Warn("", "", "security check panicked, passing request through", map[string]interface{}{
					"panic": r,
				})
			}
			processed = text
			result = CheckResult{Status: StatusPassed}
		}
	}()

	processed = text
	result = CheckResult{Status: StatusPassed}

	if m.enablePII {
		processed, result.PIIDetected = m.redact(text)
		result.PIIRedacted = len(result.PIIDetected) > 0
	}

	if m.enableInjection {
		result.InjectionDetected = m.detect(text)
	}

	if (InjectionDetector{}).ShouldBlock(result.InjectionDetected) {
		result.Status = StatusBlocked
		result.BlockedReason = "Detected injection attempt: " + joinInjectionKinds(result.InjectionDetected)
	} else if len(result.PIIDetected) > 0 {
		result.Status = StatusWarning
	}

	return processed, result
}

func joinInjectionKinds(kinds []InjectionKind) string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}
