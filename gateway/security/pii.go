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

import "regexp"

// PIIKind identifies a category of personally identifiable information.
type PIIKind string

const (
	PIIEmail      PIIKind = "email"
	PIIPhone      PIIKind = "phone"
	PIISSN        PIIKind = "ssn"
	PIICreditCard PIIKind = "credit_card"
)

// piiRule binds a PII category to its detection pattern and the placeholder
// that replaces matches.
type piiRule struct {
	kind        PIIKind
	pattern     *regexp.Regexp
	placeholder string
}

// piiRules are applied in order. Phone numbers are redacted before SSNs so
// that the looser SSN digit pattern never fires on the tail of an already
// matched phone number.
var piiRules = []piiRule{
	{
		kind:        PIIEmail,
		pattern:     regexp.MustCompile(`(?i)\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
		placeholder: "[EMAIL REDACTED]",
	},
	{
		kind:        PIIPhone,
		pattern:     regexp.MustCompile(`(?i)\b(?:\+1[-.\s]?)?\(?[0-9]{3}\)?[-.\s]?[0-9]{3}[-.\s]?[0-9]{4}\b`),
		placeholder: "[PHONE REDACTED]",
	},
	{
		kind:        PIISSN,
		pattern:     regexp.MustCompile(`(?i)\b\d{3}[-\s]?\d{2}[-\s]?\d{4}\b`),
		placeholder: "[SSN REDACTED]",
	},
	{
		kind:        PIICreditCard,
		pattern:     regexp.MustCompile(`(?i)\b(?:\d{4}[-\s]?){3}\d{4}\b`),
		placeholder: "[CARD REDACTED]",
	},
}

// PIIRedactor detects and redacts PII from text. The zero value is ready to
// use and safe for concurrent use.
type PIIRedactor struct{}

// Detect reports which PII categories appear in text, in rule order.
func (PIIRedactor) Detect(text string) []PIIKind {
	var detected []PIIKind
	for _, rule := range piiRules {
		if rule.pattern.MatchString(text) {
			detected = append(detected, rule.kind)
		}
	}
	return detected
}

// Redact replaces every PII match with its category placeholder and reports
// which categories were found.
func (PIIRedactor) Redact(text string) (string, []PIIKind) {
	var detected []PIIKind
	redacted := text
	for _, rule := range piiRules {
		if rule.pattern.MatchString(redacted) {
			detected = append(detected, rule.kind)
			redacted = rule.pattern.ReplaceAllString(redacted, rule.placeholder)
		}
	}
	return redacted, detected
}
