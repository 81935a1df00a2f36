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
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, raw string) any {
	t.Helper()

	var doc any
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))

	return doc
}

func TestExtractNumber(t *testing.T) {
	tests := []struct {
		name   string
		doc    string
		path   string
		want   float64
		wantOK bool
	}{
		{
			name:   "top_level_key",
			doc:    `{"usagePercent": 95.5}`,
			path:   "usagePercent",
			want:   95.5,
			wantOK: true,
		},
		{
			name:   "nested_keys",
			doc:    `{"memory": {"used": {"percent": 81}}}`,
			path:   "memory.used.percent",
			want:   81,
			wantOK: true,
		},
		{
			name:   "array_length",
			doc:    `{"processes": [1, 2, 3]}`,
			path:   "processes.length",
			want:   3,
			wantOK: true,
		},
		{
			name:   "array_index",
			doc:    `{"cores": [12.5, 99.9]}`,
			path:   "cores.1",
			want:   99.9,
			wantOK: true,
		},
		{
			name:   "index_then_key",
			doc:    `{"disks": [{"freePercent": 4}]}`,
			path:   "disks.0.freePercent",
			want:   4,
			wantOK: true,
		},
		{
			name: "missing_key",
			doc:  `{"usagePercent": 95}`,
			path: "somethingElse",
		},
		{
			name: "index_out_of_range",
			doc:  `{"cores": [1]}`,
			path: "cores.5",
		},
		{
			name: "negative_index",
			doc:  `{"cores": [1]}`,
			path: "cores.-1",
		},
		{
			name: "terminal_not_numeric",
			doc:  `{"status": "ok"}`,
			path: "status",
		},
		{
			name: "key_into_scalar",
			doc:  `{"usagePercent": 95}`,
			path: "usagePercent.deeper",
		},
		{
			name: "length_on_object",
			doc:  `{"processes": {"count": 3}}`,
			path: "processes.length",
		},
		{
			name:   "length_on_empty_array",
			doc:    `{"errors": []}`,
			path:   "errors.length",
			want:   0,
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractNumber(decode(t, tt.doc), tt.path)

			assert.Equal(t, tt.wantOK, ok)

			if tt.wantOK {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}
