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

import "strings"

// transformField rewrites every string value reachable at path inside a
// decoded JSON body, replacing it with fn's return value. Paths are dotted
// key chains; a "[]" suffix on a segment descends into each element of an
// array, as in "artifacts[].content". Missing keys, nulls, and type
// mismatches are skipped silently: a route's inspect list describes fields
// that may appear, not fields that must.
func transformField(body map[string]interface{}, path string, fn func(string) string) {
	applySegments(body, strings.Split(path, "."), fn)
}

func applySegments(node interface{}, segments []string, fn func(string) string) {
	if len(segments) == 0 {
		return
	}
	m, ok := node.(map[string]interface{})
	if !ok {
		return
	}

	seg := segments[0]
	key := strings.TrimSuffix(seg, "[]")
	val, ok := m[key]
	if !ok || val == nil {
		return
	}

	if strings.HasSuffix(seg, "[]") {
		arr, ok := val.([]interface{})
		if !ok {
			return
		}
		for i, item := range arr {
			if len(segments) == 1 {
				if s, ok := item.(string); ok {
					arr[i] = fn(s)
				}
			} else {
				applySegments(item, segments[1:], fn)
			}
		}
		return
	}

	if len(segments) == 1 {
		if s, ok := val.(string); ok {
			m[key] = fn(s)
		}
		return
	}

	applySegments(val, segments[1:], fn)
}
