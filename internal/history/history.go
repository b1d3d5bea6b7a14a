/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package history implements a linear undo/redo stack over a closed set of
// reversible editor actions. The manager holds no live editor state: callers
// supply a State that can snapshot the current value an action addresses and
// apply an action's previous value back. That separation lets one manager
// arbitrate three unrelated state shapes (text slots, image slots, page order)
// without per-feature stacks.
package history

import (
	"sync"

	"invitestudio/internal/domain"
)

// Action is one reversible edit. The three variants form a closed union;
// dispatch is by type switch in the State implementation.
type Action interface{ isAction() }

// TextChange remembers a text slot's previous value.
type TextChange struct {
	Slot domain.SlotKey
	Prev string
}

// ImageChange remembers an image slot's previous reference. HasPrev
// distinguishes "previously absent" (template default) from an empty string.
type ImageChange struct {
	Slot    domain.SlotKey
	Prev    string
	HasPrev bool
}

// PageOrderChange remembers the full prior page order and which page the
// user was looking at, so undo restores the viewport too.
type PageOrderChange struct {
	Prev      []string
	PrevIndex int
}

func (TextChange) isAction()      {}
func (ImageChange) isAction()     {}
func (PageOrderChange) isAction() {}

// State is the live editor state arbitrated by the manager.
// Invert snapshots the current live value addressed by a into a new action
// of the same shape; Apply writes a's previous value into live state.
type State interface {
	Invert(a Action) Action
	Apply(a Action)
}

// Config controls stack depth.
type Config struct {
	// MaxDepth caps the undo stack; oldest entries are dropped when exceeded.
	// 0 means the default of 100.
	MaxDepth int
}

// Manager holds the undo and redo stacks. It is safe for concurrent use,
// though the editor drives it from a single event loop.
type Manager struct {
	cfg  Config
	mu   sync.Mutex
	undo []Action
	redo []Action
}

func NewManager(cfg Config) *Manager {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = 100
	}
	return &Manager{cfg: cfg}
}

// Record pushes a new action onto the undo stack and clears the redo stack:
// any fork in the edit timeline invalidates forward history.
func (m *Manager) Record(a Action) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.undo = append(m.undo, a)
	if len(m.undo) > m.cfg.MaxDepth {
		m.undo = append([]Action{}, m.undo[len(m.undo)-m.cfg.MaxDepth:]...)
	}
	m.redo = nil
}

// Undo pops the newest action, snapshots its current live counterpart onto
// the redo stack, and applies the action's previous value. Returns false on
// an empty stack; never an error.
func (m *Manager) Undo(s State) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.undo)
	if n == 0 {
		return false
	}
	a := m.undo[n-1]
	m.undo = m.undo[:n-1]
	inv := s.Invert(a)
	s.Apply(a)
	m.redo = append(m.redo, inv)
	return true
}

// Redo mirrors Undo in the other direction.
func (m *Manager) Redo(s State) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.redo)
	if n == 0 {
		return false
	}
	a := m.redo[n-1]
	m.redo = m.redo[:n-1]
	inv := s.Invert(a)
	s.Apply(a)
	m.undo = append(m.undo, inv)
	return true
}

// CanUndo reports whether an undoable action exists.
func (m *Manager) CanUndo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.undo) > 0
}

// CanRedo reports whether a redoable action exists.
func (m *Manager) CanRedo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.redo) > 0
}

// Depths returns current stack sizes for diagnostics.
func (m *Manager) Depths() (undo, redo int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.undo), len(m.redo)
}

// Clear drops both stacks, e.g. when a different project is opened.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.undo, m.redo = nil, nil
}
