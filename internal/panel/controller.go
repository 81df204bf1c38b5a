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

	"refdock/internal/geom"
	applog "refdock/internal/log"
)

// Window abstracts the single OS panel window the controller owns. The UI
// driver provides the real implementation; tests use a fake. A Window is
// realized lazily: Frame and Screen report false until the driver has put
// an actual window on screen.
type Window interface {
	// Frame returns the current on-screen frame, false if the window has
	// not been realized yet.
	Frame() (geom.Rect, bool)
	// SetFrame applies a new frame. When animate is false the change is a
	// teleport (zero duration); otherwise the driver animates it with its
	// short ease-out curve.
	SetFrame(r geom.Rect, animate bool)
	Show()
	Hide()
	// Screen returns the visible bounds of the screen hosting the window,
	// false if no screen is available.
	Screen() (geom.Rect, bool)
}

// Visibility is the window visibility state, orthogonal to the panel
// state. NotCreated is left exactly once per process.
type Visibility int

const (
	NotCreated Visibility = iota
	Visible
	Hidden
)

// Controller synchronizes the live window with the model. It is the sole
// owner of window geometry: no other component calls SetFrame outside a
// drag gesture. Constructed once at startup and passed by reference to the
// menu-bar command layer; never a package global.
type Controller struct {
	model   *Model
	metrics Metrics
	win     Window

	visibility Visibility
	lastEdge   DockedEdge
	lastState  State
	log        *slog.Logger
}

// NewController wires a controller to the model and window. It subscribes
// to the model; every mutation reaches syncFrame exactly once, in order.
func NewController(m *Model, metrics Metrics, win Window) *Controller {
	c := &Controller{
		model:     m,
		metrics:   metrics,
		win:       win,
		lastEdge:  m.DockedEdge(),
		lastState: m.State(),
		log:       applog.WithComponent("panel.controller"),
	}
	m.Subscribe(c.syncFrame)
	return c
}

// Visibility reports the window visibility state.
func (c *Controller) Visibility() Visibility { return c.visibility }

// ShowPanel realizes the window on first call and brings it to front on
// subsequent calls. Idempotent.
func (c *Controller) ShowPanel() {
	c.visibility = Visible
	// The frame may be stale: first call ever, or the state changed while
	// hidden. Either way the window is not on screen yet, so this is a
	// teleport, not an animation.
	if r, ok := c.computeFrame(); ok {
		c.win.SetFrame(r, false)
	}
	c.lastEdge = c.model.DockedEdge()
	c.lastState = c.model.State()
	c.win.Show()
}

// HidePanel orders the window out without destroying it and resets the
// logical state to Collapsed, matching the window no longer being on
// screen.
func (c *Controller) HidePanel() {
	if c.visibility != Visible {
		return
	}
	c.visibility = Hidden
	c.win.Hide()
	c.model.Collapse()
}

// TogglePanel flips between Visible and Hidden, creating the window when
// needed.
func (c *Controller) TogglePanel() {
	if c.visibility == Visible {
		c.HidePanel()
		return
	}
	c.ShowPanel()
}

// SetWindowActive is called by the driver when this window (and only this
// window; the driver filters out events for other windows in the process)
// gains or loses key status.
func (c *Controller) SetWindowActive(active bool) {
	c.model.SetWindowActive(active)
}

// syncFrame runs after every model mutation:
//  1. refresh the model's offset from the live frame, so the recompute
//     starts from ground truth and resizes do not jump,
//  2. recompute the frame for the (possibly just-updated) state,
//  3. teleport when the docked edge changed since the last observation,
//     animate otherwise,
//  4. record the observed edge and state for the next diff.
//
// Steps 1-3 are atomic with respect to model mutations because everything
// runs on the main loop.
func (c *Controller) syncFrame() {
	if c.visibility != Visible {
		return
	}

	screen, ok := c.win.Screen()
	if !ok {
		// Display disconnected mid-operation: keep the previously applied
		// frame. Recoverable, never fatal.
		c.log.Warn("no screen available, keeping current frame")
		return
	}

	if cur, ok := c.win.Frame(); ok {
		c.model.refreshYFromTop(cur.Y - screen.Y)
	}

	r, ok := c.computeFrame()
	if !ok {
		return
	}

	edge := c.model.DockedEdge()
	animate := edge == c.lastEdge
	c.win.SetFrame(r, animate)
	c.log.Debug("frame applied",
		slog.String("state", c.model.State().Tag().String()),
		slog.String("edge", edge.String()),
		slog.Bool("animated", animate))

	c.lastEdge = edge
	c.lastState = c.model.State()
}

func (c *Controller) computeFrame() (geom.Rect, bool) {
	screen, ok := c.win.Screen()
	if !ok {
		return geom.Rect{}, false
	}
	s := c.model.State()
	return c.metrics.FrameFor(s, c.model.DockedEdge(), c.model.YFromTop(), screen), true
}
