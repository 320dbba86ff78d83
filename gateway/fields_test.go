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
	"strings"
	"testing"
)

func upper(s string) string { return strings.ToUpper(s) }

func TestTransformFieldTopLevel(t *testing.T) {
	body := map[string]interface{}{"question": "hello", "count": 3.0}
	transformField(body, "question", upper)

	if body["question"] != "HELLO" {
		t.Errorf("question = %v", body["question"])
	}
	if body["count"] != 3.0 {
		t.Errorf("untouched field changed: %v", body["count"])
	}
}

func TestTransformFieldNested(t *testing.T) {
	body := map[string]interface{}{
		"change": map[string]interface{}{"diff_summary": "renamed handler"},
	}
	transformField(body, "change.diff_summary", upper)

	got := body["change"].(map[string]interface{})["diff_summary"]
	if got != "RENAMED HANDLER" {
		t.Errorf("diff_summary = %v", got)
	}
}

func TestTransformFieldArrayOfObjects(t *testing.T) {
	body := map[string]interface{}{
		"artifacts": []interface{}{
			map[string]interface{}{"content": "one"},
			map[string]interface{}{"content": "two"},
			map[string]interface{}{"type": "log"}, // no content key
		},
	}
	transformField(body, "artifacts[].content", upper)

	arr := body["artifacts"].([]interface{})
	if arr[0].(map[string]interface{})["content"] != "ONE" {
		t.Errorf("first = %v", arr[0])
	}
	if arr[1].(map[string]interface{})["content"] != "TWO" {
		t.Errorf("second = %v", arr[1])
	}
}

func TestTransformFieldArrayOfStrings(t *testing.T) {
	body := map[string]interface{}{
		"notes": []interface{}{"a", "b", 7.0},
	}
	transformField(body, "notes[]", upper)

	arr := body["notes"].([]interface{})
	if arr[0] != "A" || arr[1] != "B" {
		t.Errorf("notes = %v", arr)
	}
	if arr[2] != 7.0 {
		t.Errorf("non-string element changed: %v", arr[2])
	}
}

func TestTransformFieldMissingAndMismatched(t *testing.T) {
	calls := 0
	counting := func(s string) string { calls++; return s }

	body := map[string]interface{}{
		"question": 42.0,
		"nested":   "not a map",
	}
	transformField(body, "absent", counting)
	transformField(body, "question", counting)
	transformField(body, "nested.inner", counting)

	if calls != 0 {
		t.Errorf("transform called %d times on non-string targets, want 0", calls)
	}
}
