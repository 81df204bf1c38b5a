/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package panel implements the floating panel core: the logical state
// machine, the geometry calculator, the window controller that keeps the
// live OS window in sync, and the drag-to-reposition handler.
//
// Everything in this package runs on the UI main loop. The model is the
// single source of truth for logical state; the controller is the only
// owner of window geometry.
package panel

import (
	"log/slog"

	"refdock/internal/library"
	applog "refdock/internal/log"
)

// StateTag discriminates the panel state variants.
type StateTag int

const (
	TagCollapsed StateTag = iota
	TagFolderList
	TagFolderOpen
	TagImageFocused
)

func (t StateTag) String() string {
	switch t {
	case TagCollapsed:
		return "collapsed"
	case TagFolderList:
		return "folder_list"
	case TagFolderOpen:
		return "folder_open"
	case TagImageFocused:
		return "image_focused"
	default:
		return "unknown"
	}
}

// State is the panel state sum type. Exactly one variant is active at a
// time; FolderOpen and ImageFocused carry the identity of the referenced
// entity. Constructors zero the payload fields that do not belong to the
// variant, so plain == compares by tag plus referenced identity.
type State struct {
	tag    StateTag
	folder library.FolderID
	image  library.ImageID
}

func Collapsed() State                      { return State{tag: TagCollapsed} }
func FolderList() State                     { return State{tag: TagFolderList} }
func FolderOpen(id library.FolderID) State  { return State{tag: TagFolderOpen, folder: id} }
func ImageFocused(id library.ImageID) State { return State{tag: TagImageFocused, image: id} }

func (s State) Tag() StateTag { return s.tag }

// Folder returns the referenced folder identity for FolderOpen states.
func (s State) Folder() (library.FolderID, bool) {
	return s.folder, s.tag == TagFolderOpen
}

// Image returns the referenced image identity for ImageFocused states.
func (s State) Image() (library.ImageID, bool) {
	return s.image, s.tag == TagImageFocused
}

// DockedEdge is the screen edge the panel is flush against.
type DockedEdge int

const (
	EdgeLeft DockedEdge = iota
	EdgeRight
)

func (e DockedEdge) String() string {
	if e == EdgeLeft {
		return "left"
	}
	return "right"
}

// Model owns the logical panel state and docking attributes. Mutations go
// through the operation methods below; each one updates the state
// synchronously and then notifies registered observers in registration
// order. The model has no knowledge of its observers beyond the callback.
//
// Not safe for concurrent use; all access happens on the UI main loop.
type Model struct {
	state           State
	activeFolder    library.FolderID
	hasActiveFolder bool
	edge            DockedEdge
	yFromTop        float32
	windowActive    bool

	observers []func()
	log       *slog.Logger
}

// NewModel returns a model in the Collapsed state docked to the given edge
// at the given vertical offset.
func NewModel(edge DockedEdge, yFromTop float32) *Model {
	return &Model{
		state:    Collapsed(),
		edge:     edge,
		yFromTop: yFromTop,
		log:      applog.WithComponent("panel"),
	}
}

// Subscribe registers an observer invoked after every mutation.
// Observers must not mutate the model re-entrantly.
func (m *Model) Subscribe(fn func()) { m.observers = append(m.observers, fn) }

func (m *Model) notify() {
	for _, fn := range m.observers {
		fn()
	}
}

// State returns the current panel state.
func (m *Model) State() State { return m.state }

// ActiveFolder returns the last-opened folder, used as the back-navigation
// target from ImageFocused.
func (m *Model) ActiveFolder() (library.FolderID, bool) {
	return m.activeFolder, m.hasActiveFolder
}

func (m *Model) DockedEdge() DockedEdge { return m.edge }
func (m *Model) YFromTop() float32      { return m.yFromTop }
func (m *Model) WindowActive() bool     { return m.windowActive }

// Collapse sets the state to Collapsed and clears the active folder.
func (m *Model) Collapse() {
	m.state = Collapsed()
	m.activeFolder = 0
	m.hasActiveFolder = false
	m.log.Debug("collapse")
	m.notify()
}

// ShowFolderList sets the state to FolderList.
func (m *Model) ShowFolderList() {
	m.state = FolderList()
	m.log.Debug("show folder list")
	m.notify()
}

// OpenFolder records the folder as active and opens it.
func (m *Model) OpenFolder(id library.FolderID) {
	m.activeFolder = id
	m.hasActiveFolder = true
	m.state = FolderOpen(id)
	m.log.Debug("open folder", slog.Int64("folder", int64(id)))
	m.notify()
}

// FocusImage focuses a single image. The active folder is left untouched
// so GoBack returns to it.
func (m *Model) FocusImage(id library.ImageID) {
	m.state = ImageFocused(id)
	m.log.Debug("focus image", slog.Int64("image", int64(id)))
	m.notify()
}

// GoBack moves exactly one level toward Collapsed:
// ImageFocused -> FolderOpen(activeFolder) (or FolderList when no active
// folder remains), FolderOpen -> FolderList, FolderList -> Collapsed.
// GoBack from Collapsed is a no-op.
func (m *Model) GoBack() {
	switch m.state.tag {
	case TagImageFocused:
		if m.hasActiveFolder {
			m.state = FolderOpen(m.activeFolder)
		} else {
			m.state = FolderList()
		}
	case TagFolderOpen:
		m.activeFolder = 0
		m.hasActiveFolder = false
		m.state = FolderList()
	case TagFolderList:
		m.state = Collapsed()
	case TagCollapsed:
		return
	}
	m.log.Debug("go back", slog.String("state", m.state.tag.String()))
	m.notify()
}

// Toggle expands a collapsed panel to the folder list, and collapses it
// from any other state.
func (m *Model) Toggle() {
	if m.state.tag == TagCollapsed {
		m.ShowFolderList()
		return
	}
	m.Collapse()
}

// SetDockedEdge flips the docked edge. Edge changes are discontinuous;
// the controller applies the resulting frame without animation.
func (m *Model) SetDockedEdge(e DockedEdge) {
	m.edge = e
	m.log.Debug("set docked edge", slog.String("edge", e.String()))
	m.notify()
}

// UpdateYPosition commits a new vertical offset (distance from the top of
// the screen's visible bounds to the top of the panel).
func (m *Model) UpdateYPosition(y float32) {
	m.yFromTop = y
	m.notify()
}

// SetWindowActive mirrors the OS window's key/focus status into the model.
func (m *Model) SetWindowActive(active bool) {
	if m.windowActive == active {
		return
	}
	m.windowActive = active
	m.notify()
}

// refreshYFromTop overwrites the stored offset from the live window frame
// without notifying; the controller calls it immediately before a reframe
// so resizes preserve the user's on-screen position.
func (m *Model) refreshYFromTop(y float32) { m.yFromTop = y }
