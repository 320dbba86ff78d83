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
	"testing"
)

func containsPII(kinds []PIIKind, want PIIKind) bool {
	for _, k := range kinds {
		if k == want {
			return true
		}
	}
	return false
}

func TestPIIDetect(t *testing.T) {
	var redactor PIIRedactor

	tests := []struct {
		name string
		text string
		want PIIKind
	}{
		{"email", "Contact me at john.doe@example.com", PIIEmail},
		{"phone", "Call me at 555-123-4567", PIIPhone},
		{"phone with country code", "Call +1 555-123-4567 today", PIIPhone},
		{"ssn", "My SSN is 123-45-6789", PIISSN},
		{"credit card", "Card: 4111-1111-1111-1111", PIICreditCard},
		{"credit card spaces", "Card 4111 1111 1111 1111 on file", PIICreditCard},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			detected := redactor.Detect(tt.text)
			if !containsPII(detected, tt.want) {
				t.Errorf("Detect(%q) = %v, want to contain %q", tt.text, detected, tt.want)
			}
		})
	}
}

func TestPIIRedact(t *testing.T) {
	var redactor PIIRedactor

	t.Run("email", func(t *testing.T) {
		redacted, detected := redactor.Redact("Contact john@example.com for help")
		if !strings.Contains(redacted, "[EMAIL REDACTED]") {
			t.Errorf("redacted text missing placeholder: %q", redacted)
		}
		if strings.Contains(redacted, "john@example.com") {
			t.Errorf("original address leaked: %q", redacted)
		}
		if !containsPII(detected, PIIEmail) {
			t.Errorf("detected = %v, want email", detected)
		}
	})

	t.Run("multiple categories", func(t *testing.T) {
		redacted, detected := redactor.Redact("Email: test@test.com, Phone: 555-111-2222")
		if !strings.Contains(redacted, "[EMAIL REDACTED]") || !strings.Contains(redacted, "[PHONE REDACTED]") {
			t.Errorf("expected both placeholders, got %q", redacted)
		}
		if !containsPII(detected, PIIEmail) || !containsPII(detected, PIIPhone) {
			t.Errorf("detected = %v, want email and phone", detected)
		}
	})

	t.Run("clean text unchanged", func(t *testing.T) {
		text := "This is a normal question about vacation policy"
		redacted, detected := redactor.Redact(text)
		if redacted != text {
			t.Errorf("clean text modified: %q", redacted)
		}
		if len(detected) != 0 {
			t.Errorf("detected = %v, want none", detected)
		}
	})
}
