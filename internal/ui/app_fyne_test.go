//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// These tests validate Fyne-facing glue. They are gated behind the
// "fyne" build tag so CI (which is headless) does not need Fyne or a
// display. To run locally:
//
//	go test -tags fyne ./internal/ui
package ui

import (
	"testing"

	"refdock/internal/panel"
)

func TestEdgeStringRoundTrip(t *testing.T) {
	tests := []struct {
		in   string
		edge panel.DockedEdge
	}{
		{"left", panel.EdgeLeft},
		{"LEFT", panel.EdgeLeft},
		{"right", panel.EdgeRight},
		{"", panel.EdgeRight},
		{"bogus", panel.EdgeRight},
	}
	for _, tt := range tests {
		if got := edgeFromString(tt.in); got != tt.edge {
			t.Errorf("edgeFromString(%q) = %v, want %v", tt.in, got, tt.edge)
		}
	}
	if edgeToString(panel.EdgeLeft) != "left" || edgeToString(panel.EdgeRight) != "right" {
		t.Error("edgeToString mismatch")
	}
}
