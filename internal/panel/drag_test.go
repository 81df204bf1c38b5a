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
	"testing"
	"time"

	"refdock/internal/geom"
)

// manualTimer swaps the hold timer for a hand-fired callback so tests do
// not sleep through the hold delay.
type manualTimer struct {
	fire func()
}

func installManualTimer(t *testing.T) *manualTimer {
	t.Helper()
	mt := &manualTimer{}
	orig := afterFunc
	afterFunc = func(_ time.Duration, f func()) *time.Timer {
		mt.fire = f
		return time.NewTimer(time.Hour)
	}
	t.Cleanup(func() { afterFunc = orig })
	return mt
}

func newTestDrag() (*Model, *DragHandler, *fakeWindow) {
	m := NewModel(EdgeRight, 200)
	w := newFakeWindow()
	w.frame = geom.R(1870, 200, 50, 50)
	w.realized = true
	h := NewDragHandler(m, w, DefaultMetrics())
	return m, h, w
}

func TestQuickTapActivates(t *testing.T) {
	installManualTimer(t)
	_, h, _ := newTestDrag()
	tapped := 0
	h.OnTap = func() { tapped++ }

	h.Begin(geom.Pt{X: 1880, Y: 220})
	h.End() // released before the timer fired

	if tapped != 1 {
		t.Fatalf("quick tap should invoke OnTap once, got %d", tapped)
	}
	if h.Dragging() {
		t.Fatalf("quick tap must not leave the handler dragging")
	}
}

func TestHoldPromotesAndMoves(t *testing.T) {
	mt := installManualTimer(t)
	m, h, w := newTestDrag()
	promoted := false
	h.OnPromote = func() { promoted = true }

	h.Begin(geom.Pt{X: 1880, Y: 220})
	mt.fire()
	if !promoted || !h.Dragging() {
		t.Fatalf("hold should promote the gesture to dragging")
	}

	h.Move(geom.Pt{X: 1880, Y: 270}) // 50 down
	if w.frame.Y != 250 {
		t.Fatalf("window y = %v, want 250 after +50 drag", w.frame.Y)
	}
	if last := w.animated[len(w.animated)-1]; last {
		t.Fatalf("drag movement must not animate")
	}

	h.End()
	if m.YFromTop() != 250 {
		t.Fatalf("committed offset = %v, want settled 250", m.YFromTop())
	}
}

func TestMovementBeforePromotionDoesNotDrag(t *testing.T) {
	installManualTimer(t)
	_, h, w := newTestDrag()

	h.Begin(geom.Pt{X: 1880, Y: 220})
	h.Move(geom.Pt{X: 1880, Y: 260})
	if w.setCalls != 0 {
		t.Fatalf("moving before the hold fired must not move the window")
	}
}

func TestDragClampsToScreen(t *testing.T) {
	mt := installManualTimer(t)
	_, h, w := newTestDrag()
	h.Begin(geom.Pt{X: 1880, Y: 220})
	mt.fire()

	h.Move(geom.Pt{X: 1880, Y: -5000})
	if want := DefaultMetrics().Margin; w.frame.Y != want {
		t.Fatalf("window y = %v, want clamped to top margin %v", w.frame.Y, want)
	}

	h.Move(geom.Pt{X: 1880, Y: 9000})
	if want := w.screen.H - w.frame.H - DefaultMetrics().Margin; w.frame.Y != want {
		t.Fatalf("window y = %v, want clamped to bottom %v", w.frame.Y, want)
	}
}

func TestStaleTimerFireIgnored(t *testing.T) {
	mt := installManualTimer(t)
	_, h, _ := newTestDrag()
	h.OnTap = func() {}

	h.Begin(geom.Pt{X: 0, Y: 0})
	h.End()
	mt.fire() // fires after release: must not promote anything
	if h.Dragging() {
		t.Fatalf("stale timer fire promoted a finished gesture")
	}
}

func TestCancelInvalidatesGesture(t *testing.T) {
	mt := installManualTimer(t)
	m, h, _ := newTestDrag()
	tapped := false
	h.OnTap = func() { tapped = true }

	h.Begin(geom.Pt{X: 0, Y: 100})
	h.Cancel() // view teardown mid-gesture
	mt.fire()
	if h.Dragging() || tapped {
		t.Fatalf("canceled gesture must neither drag nor tap")
	}
	h.End() // release after cancel is a no-op
	if tapped || m.YFromTop() != 200 {
		t.Fatalf("release after cancel must not commit or tap")
	}
}

func TestMoveSkipsWhenWindowUnrealized(t *testing.T) {
	mt := installManualTimer(t)
	m, h, w := newTestDrag()
	w.realized = false

	h.Begin(geom.Pt{X: 0, Y: 100})
	mt.fire()
	h.Move(geom.Pt{X: 0, Y: 150}) // silently skipped
	if w.setCalls != 0 {
		t.Fatalf("movement applied without a realized window")
	}
	h.End() // commit also requires the window; offset stays unchanged
	if m.YFromTop() != 200 {
		t.Fatalf("offset changed without a realized window: %v", m.YFromTop())
	}
}

func TestMoveSkipsWhenNoScreen(t *testing.T) {
	mt := installManualTimer(t)
	_, h, w := newTestDrag()
	w.hasScreen = false

	h.Begin(geom.Pt{X: 0, Y: 100})
	mt.fire()
	h.Move(geom.Pt{X: 0, Y: 150})
	if w.setCalls != 0 {
		t.Fatalf("movement applied without a screen")
	}
}
