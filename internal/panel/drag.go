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

import (
	"log/slog"
	"sync"
	"time"

	"refdock/internal/geom"
	applog "refdock/internal/log"
)

// DefaultHoldDelay is how long a press must be held before it is promoted
// to a drag. A release before the delay counts as a tap.
const DefaultHoldDelay = 600 * time.Millisecond

// afterFunc is swapped by tests to fire the hold timer deterministically.
var afterFunc = time.AfterFunc

// DragHandler converts press-and-hold-then-move gestures into vertical
// window movement. A quick tap (released before the hold delay) invokes
// OnTap instead; the collapsed icon wires OnTap to Model.Toggle.
//
// Gesture callbacks arrive on the main loop; the hold timer fires on its
// own goroutine, so promotion is guarded by a mutex and a generation
// counter against stale fires after release or teardown.
type DragHandler struct {
	model   *Model
	win     Window
	metrics Metrics

	// HoldDelay overrides DefaultHoldDelay when > 0.
	HoldDelay time.Duration
	// OnTap runs when the gesture ends before promotion. Optional.
	OnTap func()
	// OnPromote runs when the hold threshold elapses and dragging begins
	// (visual feedback such as a wiggle). Optional.
	OnPromote func()

	mu       sync.Mutex
	gen      int
	pressed  bool
	dragging bool
	timer    *time.Timer
	lastY    float32
	log      *slog.Logger
}

// NewDragHandler returns a handler moving win vertically and committing
// the settled offset into the model on release.
func NewDragHandler(m *Model, win Window, metrics Metrics) *DragHandler {
	return &DragHandler{
		model:   m,
		win:     win,
		metrics: metrics,
		log:     applog.WithComponent("panel.drag"),
	}
}

// Dragging reports whether the gesture has been promoted to a drag.
func (h *DragHandler) Dragging() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dragging
}

// Begin arms the hold timer for a new gesture at pointer position p.
func (h *DragHandler) Begin(p geom.Pt) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopTimerLocked()
	h.gen++
	h.pressed = true
	h.dragging = false
	h.lastY = p.Y
	gen := h.gen
	h.timer = afterFunc(h.holdDelay(), func() { h.promote(gen) })
}

func (h *DragHandler) holdDelay() time.Duration {
	if h.HoldDelay > 0 {
		return h.HoldDelay
	}
	return DefaultHoldDelay
}

func (h *DragHandler) promote(gen int) {
	h.mu.Lock()
	if gen != h.gen || !h.pressed {
		// Stale fire: the gesture ended or a new one started.
		h.mu.Unlock()
		return
	}
	h.dragging = true
	cb := h.OnPromote
	h.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// Move applies a pointer movement. Before promotion it only tracks the
// position; after promotion it moves the live window vertically, clamped
// to the screen's visible bounds. Missing window or screen skips the
// update silently.
func (h *DragHandler) Move(p geom.Pt) {
	h.mu.Lock()
	dragging := h.dragging
	dy := p.Y - h.lastY
	h.lastY = p.Y
	h.mu.Unlock()
	if !dragging || dy == 0 {
		return
	}

	cur, ok := h.win.Frame()
	if !ok {
		return
	}
	screen, ok := h.win.Screen()
	if !ok {
		return
	}
	margin := h.metrics.Margin
	y := geom.Clamp(cur.Y+dy, screen.Y+margin, screen.Y+screen.H-cur.H-margin)
	h.win.SetFrame(geom.Rect{X: cur.X, Y: y, W: cur.W, H: cur.H}, false)
}

// End finishes the gesture. A quick tap invokes OnTap; a drag commits the
// settled frame's offset via UpdateYPosition. If the window or screen
// cannot be resolved the offset is left unchanged.
func (h *DragHandler) End() {
	h.mu.Lock()
	h.stopTimerLocked()
	wasDragging := h.dragging
	wasPressed := h.pressed
	h.pressed = false
	h.dragging = false
	h.mu.Unlock()

	if !wasPressed {
		return
	}
	if !wasDragging {
		if h.OnTap != nil {
			h.OnTap()
		}
		return
	}

	cur, ok := h.win.Frame()
	if !ok {
		return
	}
	screen, ok := h.win.Screen()
	if !ok {
		return
	}
	y := cur.Y - screen.Y
	h.log.Debug("drag committed", slog.Float64("y_from_top", float64(y)))
	h.model.UpdateYPosition(y)
}

// Cancel invalidates a pending gesture on view teardown. No tap, no
// commit, and any later timer fire is discarded.
func (h *DragHandler) Cancel() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopTimerLocked()
	h.gen++
	h.pressed = false
	h.dragging = false
}

func (h *DragHandler) stopTimerLocked() {
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
}
