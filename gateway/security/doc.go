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

// Package security screens request text before it reaches an upstream AI
// service. It redacts PII (emails, phone numbers, SSNs, card numbers) and
// detects prompt injection attempts (system overrides, data exfiltration,
// jailbreaks). Detection is pattern based: fast, deterministic, and easy to
// audit, at the cost of catching only known phrasings.
package security
