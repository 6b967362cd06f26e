/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"reflect"
	"testing"

	"golang.org/x/image/font/basicfont"
)

func TestWrapLabel(t *testing.T) {
	face := basicfont.Face7x13 // 7px per glyph
	cases := []struct {
		in    string
		width int
		want  []string
	}{
		{"one two three", 49, []string{"one two", "three"}},
		{"one two three", 0, []string{"one two three"}},
		{"a\nb c", 100, []string{"a", "b c"}},
		{"x verylongword y", 21, []string{"x", "verylongword", "y"}},
		{"", 10, []string{""}},
	}
	for _, tc := range cases {
		if got := WrapLabel(face, tc.in, tc.width); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("WrapLabel(%q, %d) = %q, want %q", tc.in, tc.width, got, tc.want)
		}
	}
}
