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

package audit

import "promptgate/shared/logger"

// LogSink writes audit records as structured log lines. It is the default
// sink when no audit database is configured.
type LogSink struct {
	log *logger.Logger
}

// NewLogSink creates a LogSink writing through the given logger.
func NewLogSink(log *logger.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Write(entry *Record) {
	fields := map[string]interface{}{
		"method":               entry.Method,
		"path":                 entry.Path,
		"route":                entry.Route,
		"outcome":              string(entry.Outcome),
		"status_code":          entry.StatusCode,
		"latency_ms":           entry.LatencyMS,
		"security_status":      entry.SecurityStatus,
		"rate_limit_remaining": entry.RateLimitRemaining,
	}
	if len(entry.PIIDetected) > 0 {
		fields["pii_detected"] = entry.PIIDetected
	}
	if len(entry.InjectionDetected) > 0 {
		fields["injection_detected"] = entry.InjectionDetected
	}
	if entry.TotalTokens() > 0 {
		fields["input_tokens"] = entry.InputTokens
		fields["output_tokens"] = entry.OutputTokens
		fields["estimated_cost_usd"] = entry.EstimatedCostUSD
	}
	if entry.UpstreamService != "" {
		fields["upstream_service"] = entry.UpstreamService
	}
	if entry.UpstreamStatus != 0 {
		fields["upstream_status"] = entry.UpstreamStatus
	}
	if entry.ErrorMessage != "" {
		fields["error"] = entry.ErrorMessage
	}

	s.log.Info(entry.ClientID, entry.RequestID, "request audited", fields)
}

func (s *LogSink) Close() error {
	return nil
}
