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

package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestLoggerWritesJSONLine(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("gateway", &buf)

	l.Info("203.0.113.7", "req-1", "request complete", map[string]interface{}{
		"status_code": 200,
	})

	line := strings.TrimSpace(buf.String())
	var entry LogEntry
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("output is not valid JSON: %v (%q)", err, line)
	}

	if entry.Level != INFO {
		t.Errorf("level = %q, want INFO", entry.Level)
	}
	if entry.Component != "gateway" {
		t.Errorf("component = %q, want gateway", entry.Component)
	}
	if entry.ClientID != "203.0.113.7" {
		t.Errorf("client_id = %q", entry.ClientID)
	}
	if entry.RequestID != "req-1" {
		t.Errorf("request_id = %q", entry.RequestID)
	}
	if got := entry.Fields["status_code"]; got != float64(200) {
		t.Errorf("fields.status_code = %v, want 200", got)
	}
}

func TestInfoWithDuration(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("gateway", &buf)

	l.InfoWithDuration("c", "r", "done", 12.5, nil)

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if entry.Fields["duration_ms"] != 12.5 {
		t.Errorf("duration_ms = %v, want 12.5", entry.Fields["duration_ms"])
	}
}

func TestErrorWithCode(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("gateway", &buf)

	l.ErrorWithCode("c", "r", "upstream failed", 502, errors.New("boom"), nil)

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if entry.Level != ERROR {
		t.Errorf("level = %q, want ERROR", entry.Level)
	}
	if entry.Fields["status_code"] != float64(502) {
		t.Errorf("status_code = %v, want 502", entry.Fields["status_code"])
	}
	if entry.Fields["error"] != "boom" {
		t.Errorf("error = %v, want boom", entry.Fields["error"])
	}
}
