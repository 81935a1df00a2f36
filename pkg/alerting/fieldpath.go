/*
 * Copyright 2026 Relayops, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package alerting

import (
	"strconv"
	"strings"
)

// ExtractNumber walks a decoded JSON document along a dotted field path and
// returns the numeric value at its end. The grammar is small:
//
//   - a segment applied to an object is a map key
//   - a purely numeric segment applied to an array is an index
//   - the literal segment "length" applied to an array yields its length
//
// The walk is total: any missing key, out-of-range index, or non-numeric
// terminal value returns ok=false, never an error or panic.
func ExtractNumber(doc any, path string) (float64, bool) {
	if path == "" {
		return asNumber(doc)
	}

	current := doc

	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[segment]
			if !ok {
				return 0, false
			}

			current = next
		case []any:
			if segment == "length" {
				current = float64(len(node))
				continue
			}

			index, err := strconv.Atoi(segment)
			if err != nil || index < 0 || index >= len(node) {
				return 0, false
			}

			current = node[index]
		default:
			return 0, false
		}
	}

	return asNumber(current)
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
