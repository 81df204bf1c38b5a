/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package panel

import "refdock/internal/geom"

// Metrics configures panel sizing. Sizing depends only on the state tag;
// payload identities never influence geometry.
type Metrics struct {
	// CollapsedSize is the side length of the collapsed icon square.
	CollapsedSize float32
	// ListWidth is the fixed width of the folder-list and folder-open states.
	ListWidth float32
	// ListHeightFrac scales the list height with the screen's visible height.
	ListHeightFrac float32
	// FocusWidth/FocusHeight size the image-focused state, independent of
	// screen size.
	FocusWidth  float32
	FocusHeight float32
	// Margin is kept between the panel and the top/bottom of the screen's
	// visible bounds when clamping.
	Margin float32
}

// DefaultMetrics returns the stock panel dimensions in logical units.
func DefaultMetrics() Metrics {
	return Metrics{
		CollapsedSize:  50,
		ListWidth:      220,
		ListHeightFrac: 0.55,
		FocusWidth:     460,
		FocusHeight:    520,
		Margin:         8,
	}
}

// SizeFor computes the panel size for a state given the visible screen
// height. Pure; no side effects.
func (m Metrics) SizeFor(s State, screenHeight float32) geom.Size {
	switch s.Tag() {
	case TagCollapsed:
		return geom.Size{W: m.CollapsedSize, H: m.CollapsedSize}
	case TagImageFocused:
		return geom.Size{W: m.FocusWidth, H: m.FocusHeight}
	default: // folder list and folder open share the list size class
		return geom.Size{W: m.ListWidth, H: screenHeight * m.ListHeightFrac}
	}
}

// FrameFor computes the on-screen rectangle for a state: flush against the
// docked edge horizontally, yFromTop below the top of the visible bounds
// vertically, clamped so the whole panel (plus Margin) stays inside the
// visible bounds. Out-of-range inputs are sanitized, never rejected.
//
// Frames use the top-left convention of the window drivers: origin at the
// top-left of the visible bounds, y growing downward, so yFromTop maps
// directly onto the frame's Y offset.
func (m Metrics) FrameFor(s State, edge DockedEdge, yFromTop float32, visible geom.Rect) geom.Rect {
	sz := m.SizeFor(s, visible.H)

	var x float32
	if edge == EdgeRight {
		x = visible.X + visible.W - sz.W
	} else {
		x = visible.X
	}

	y := visible.Y + yFromTop
	y = geom.Clamp(y, visible.Y+m.Margin, visible.Y+visible.H-sz.H-m.Margin)

	return geom.Rect{X: x, Y: y, W: sz.W, H: sz.H}
}

// ClampYFromTop sanitizes a vertical offset for the given state so the
// resulting frame stays within the visible bounds.
func (m Metrics) ClampYFromTop(s State, yFromTop float32, visible geom.Rect) float32 {
	sz := m.SizeFor(s, visible.H)
	return geom.Clamp(yFromTop, m.Margin, visible.H-sz.H-m.Margin)
}
