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

	"refdock/internal/library"
)

func TestStateEqualityByIdentity(t *testing.T) {
	if FolderOpen(1) != FolderOpen(1) {
		t.Fatalf("FolderOpen with same identity should compare equal")
	}
	if FolderOpen(1) == FolderOpen(2) {
		t.Fatalf("FolderOpen with distinct identities should differ")
	}
	if ImageFocused(7) != ImageFocused(7) {
		t.Fatalf("ImageFocused with same identity should compare equal")
	}
	if Collapsed() != Collapsed() || FolderList() != FolderList() {
		t.Fatalf("payload-free variants should compare equal")
	}
	if Collapsed() == FolderList() {
		t.Fatalf("distinct tags should differ")
	}
}

func TestOpenFolderThenFocusImage(t *testing.T) {
	m := NewModel(EdgeRight, 200)

	m.ShowFolderList()
	if m.State() != FolderList() {
		t.Fatalf("state = %v, want folder list", m.State().Tag())
	}

	m.OpenFolder(library.FolderID(3))
	if m.State() != FolderOpen(3) {
		t.Fatalf("state = %v, want folder open", m.State().Tag())
	}
	if f, ok := m.ActiveFolder(); !ok || f != 3 {
		t.Fatalf("active folder = %v,%v, want 3,true", f, ok)
	}

	m.FocusImage(library.ImageID(9))
	if m.State() != ImageFocused(9) {
		t.Fatalf("state = %v, want image focused", m.State().Tag())
	}
	// Focusing an image must not alter the active folder.
	if f, ok := m.ActiveFolder(); !ok || f != 3 {
		t.Fatalf("active folder changed by focus: %v,%v", f, ok)
	}
}

func TestGoBackReturnsToActiveFolder(t *testing.T) {
	m := NewModel(EdgeRight, 200)
	m.ShowFolderList()
	m.OpenFolder(1)
	m.FocusImage(5)

	m.GoBack()
	if m.State() != FolderOpen(1) {
		t.Fatalf("back from focused image should land on the open folder, got %v", m.State().Tag())
	}
	m.GoBack()
	if m.State() != FolderList() {
		t.Fatalf("back from folder should land on folder list, got %v", m.State().Tag())
	}
	if _, ok := m.ActiveFolder(); ok {
		t.Fatalf("active folder should be cleared when leaving the folder")
	}
	m.GoBack()
	if m.State() != Collapsed() {
		t.Fatalf("back from folder list should collapse, got %v", m.State().Tag())
	}
	m.GoBack() // no-op
	if m.State() != Collapsed() {
		t.Fatalf("back from collapsed must be a no-op")
	}
}

func TestGoBackWithoutActiveFolderFallsBackToList(t *testing.T) {
	m := NewModel(EdgeRight, 200)
	m.FocusImage(5) // focused without ever opening a folder
	m.GoBack()
	if m.State() != FolderList() {
		t.Fatalf("back without active folder should land on folder list, got %v", m.State().Tag())
	}
}

// Every reachable state drains to Collapsed in at most 3 GoBack calls.
func TestLatticeClosure(t *testing.T) {
	build := map[string]func(m *Model){
		"collapsed":   func(m *Model) {},
		"folder_list": func(m *Model) { m.ShowFolderList() },
		"folder_open": func(m *Model) { m.OpenFolder(2) },
		"focused":     func(m *Model) { m.OpenFolder(2); m.FocusImage(4) },
	}
	for name, fn := range build {
		m := NewModel(EdgeLeft, 100)
		fn(m)
		for i := 0; i < 3; i++ {
			m.GoBack()
		}
		if m.State() != Collapsed() {
			t.Errorf("%s: not collapsed after 3 GoBack calls, got %v", name, m.State().Tag())
		}
	}
}

func TestToggle(t *testing.T) {
	m := NewModel(EdgeRight, 200)
	m.Toggle()
	if m.State() != FolderList() {
		t.Fatalf("toggle from collapsed should expand to folder list")
	}
	m.OpenFolder(1)
	m.Toggle()
	if m.State() != Collapsed() {
		t.Fatalf("toggle from any expanded state should collapse")
	}
	if _, ok := m.ActiveFolder(); ok {
		t.Fatalf("collapse should clear the active folder")
	}
}

func TestCollapseClearsActiveFolder(t *testing.T) {
	m := NewModel(EdgeRight, 200)
	m.OpenFolder(8)
	m.Collapse()
	if _, ok := m.ActiveFolder(); ok {
		t.Fatalf("active folder should be cleared on collapse")
	}
}

func TestYPositionRoundTrip(t *testing.T) {
	m := NewModel(EdgeRight, 200)
	m.UpdateYPosition(333)
	if got := m.YFromTop(); got != 333 {
		t.Fatalf("YFromTop = %v, want 333", got)
	}
}

func TestObserversNotifiedInOrder(t *testing.T) {
	m := NewModel(EdgeRight, 200)
	var order []int
	m.Subscribe(func() { order = append(order, 1) })
	m.Subscribe(func() { order = append(order, 2) })

	m.ShowFolderList()
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("observers not notified in registration order: %v", order)
	}

	order = order[:0]
	m.SetDockedEdge(EdgeLeft)
	m.UpdateYPosition(50)
	m.SetWindowActive(true)
	m.SetWindowActive(true) // unchanged, no notification
	if len(order) != 6 {
		t.Fatalf("expected 6 notifications (3 mutations x 2 observers), got %d", len(order))
	}
}

func TestWindowActiveMirrors(t *testing.T) {
	m := NewModel(EdgeRight, 200)
	if m.WindowActive() {
		t.Fatalf("window should start inactive")
	}
	m.SetWindowActive(true)
	if !m.WindowActive() {
		t.Fatalf("window active flag not mirrored")
	}
}
