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

// InjectionKind identifies a category of prompt injection attempt.
type InjectionKind string

const (
	InjectionSystemOverride   InjectionKind = "system_override"
	InjectionDataExfiltration InjectionKind = "data_exfiltration"
	InjectionJailbreak        InjectionKind = "jailbreak"
)

// injectionFamily groups the patterns for one injection category. A single
// match anywhere in the family marks the category as detected.
type injectionFamily struct {
	kind     InjectionKind
	patterns []*regexp.Regexp
}

func compileAll(exprs ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, len(exprs))
	for i, expr := range exprs {
		compiled[i] = regexp.MustCompile(`(?i)` + expr)
	}
	return compiled
}

var injectionFamilies = []injectionFamily{
	{
		kind: InjectionSystemOverride,
		patterns: compileAll(
			`ignore\s+(previous|all|above)\s+(instructions?|prompts?)`,
			`disregard\s+(previous|all|above)`,
			`forget\s+(everything|all|previous)`,
			`you\s+are\s+now\s+(?:a|an)`,
			`new\s+instructions?\s*:`,
			`system\s*:\s*you\s+are`,
			`override\s+(system|instructions?)`,
			`\]\s*\[\s*system`, // injected system-message markup
		),
	},
	{
		kind: InjectionDataExfiltration,
		patterns: compileAll(
			`reveal\s+(your|the|system)\s+(prompt|instructions?)`,
			`show\s+me\s+(your|the)\s+(system|prompt|instructions?)`,
			`what\s+(are|is)\s+(your|the)\s+(system|instructions?|prompt)`,
			`print\s+(your|the|all)\s+(instructions?|prompt)`,
			`repeat\s+(your|the)\s+(system|prompt|instructions?)`,
			`output\s+(your|the|system)\s+(prompt|instructions?)`,
		),
	},
	{
		kind: InjectionJailbreak,
		patterns: compileAll(
			`DAN\s+mode`,
			`developer\s+mode`,
			`jailbreak`,
			`bypass\s+(filters?|restrictions?|safety)`,
			`pretend\s+(you\s+)?have\s+no\s+(restrictions?|limits?)`,
			`act\s+as\s+if\s+(you\s+)?have\s+no\s+rules`,
		),
	},
}

// InjectionDetector detects prompt injection attempts. The zero value is
// ready to use and safe for concurrent use.
type InjectionDetector struct{}

// Detect reports which injection categories appear in text. Scanning stops
// at the first matching pattern within each category.
func (InjectionDetector) Detect(text string) []InjectionKind {
	var detected []InjectionKind
	for _, family := range injectionFamilies {
		for _, pattern := range family.patterns {
			if pattern.MatchString(text) {
				detected = append(detected, family.kind)
				break
			}
		}
	}
	return detected
}

// ShouldBlock reports whether the detected categories warrant rejecting the
// request. Any injection attempt blocks.
func (InjectionDetector) ShouldBlock(detected []InjectionKind) bool {
	return len(detected) > 0
}
