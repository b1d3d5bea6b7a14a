/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package editor owns the live customization state of one editing session:
// text slots, image slots, page order, music selection, and the undo/redo
// wiring that keeps them reversible. Every mutation goes through the
// history-aware setters on Session; there is no ambient mutable state.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"invitestudio/internal/crop"
	"invitestudio/internal/domain"
	"invitestudio/internal/history"
	applog "invitestudio/internal/log"
)

// Validation errors surfaced inline to the user; no collaborator is called.
var (
	ErrLastPage     = errors.New("cannot delete the last remaining page")
	ErrUnknownPage  = errors.New("page is not part of the template")
	ErrUnknownField = errors.New("field is not part of the template")
	ErrNotTextField = errors.New("field does not accept text")
	ErrNotImageSlot = errors.New("field does not accept an image")
	ErrTextTooLong  = errors.New("text exceeds the field's maximum length")
	ErrBadReorder   = errors.New("new order must be a permutation of the current pages")
)

// ImageProcessor decodes uploads and renders confirmed crops. Implemented by
// internal/imaging; stubbed in tests.
type ImageProcessor interface {
	Decode(ctx context.Context, data []byte) (ref string, width, height int, err error)
	RenderCrop(ctx context.Context, data []byte, box crop.Box) (ref string, err error)
}

// Session is the session-scoped editor state over one template instance.
// It is safe for concurrent use; asynchronous decodes commit through the
// same lock the synchronous mutations take.
type Session struct {
	mu   sync.Mutex
	tmpl domain.Template
	proj domain.Project
	hist *history.Manager
	proc ImageProcessor

	// index of the page the user is viewing, within proj.PageOrder
	current int
	// per-slot text value as of the last recorded history snapshot
	lastText map[domain.SlotKey]string

	outputWidth int
	log         *slog.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithHistoryDepth caps the undo stack.
func WithHistoryDepth(n int) Option {
	return func(s *Session) { s.hist = history.NewManager(history.Config{MaxDepth: n}) }
}

// WithOutputWidth overrides the crop output canvas width.
func WithOutputWidth(w int) Option {
	return func(s *Session) {
		if w > 0 {
			s.outputWidth = w
		}
	}
}

// NewSession starts a fresh draft over the template.
func NewSession(t domain.Template, proc ImageProcessor, opts ...Option) *Session {
	return newSession(t, domain.NewProject(t), proc, opts...)
}

// ResumeSession continues editing a previously persisted project.
func ResumeSession(t domain.Template, p domain.Project, proc ImageProcessor, opts ...Option) (*Session, error) {
	if p.TemplateID != t.ID {
		return nil, fmt.Errorf("project template %q does not match template %q", p.TemplateID, t.ID)
	}
	if len(p.PageOrder) == 0 {
		return nil, errors.New("persisted project has an empty page order")
	}
	return newSession(t, p, proc, opts...), nil
}

func newSession(t domain.Template, p domain.Project, proc ImageProcessor, opts ...Option) *Session {
	s := &Session{
		tmpl:        t,
		proj:        p,
		hist:        history.NewManager(history.Config{}),
		proc:        proc,
		lastText:    make(map[domain.SlotKey]string),
		outputWidth: crop.DefaultOutputWidth,
		log:         applog.WithComponent("editor"),
	}
	if s.proj.FieldValues == nil {
		s.proj.FieldValues = make(map[string]string)
	}
	if s.proj.ImageOverrides == nil {
		s.proj.ImageOverrides = make(map[string]string)
	}
	if s.proj.PagePreviewURLs == nil {
		s.proj.PagePreviewURLs = make(map[string]string)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Template returns the immutable template under edit.
func (s *Session) Template() domain.Template { return s.tmpl }

// Project returns a deep copy of the current project state. Collaborator
// request builders read this snapshot, never the live maps.
func (s *Session) Project() domain.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() domain.Project {
	cp := s.proj
	cp.FieldValues = make(map[string]string, len(s.proj.FieldValues))
	for k, v := range s.proj.FieldValues {
		cp.FieldValues[k] = v
	}
	cp.ImageOverrides = make(map[string]string, len(s.proj.ImageOverrides))
	for k, v := range s.proj.ImageOverrides {
		cp.ImageOverrides[k] = v
	}
	cp.PagePreviewURLs = make(map[string]string, len(s.proj.PagePreviewURLs))
	for k, v := range s.proj.PagePreviewURLs {
		cp.PagePreviewURLs[k] = v
	}
	cp.PageOrder = append([]string(nil), s.proj.PageOrder...)
	return cp
}

// SetProjectID records the identity allocated by the persistence collaborator
// on first save.
func (s *Session) SetProjectID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proj.ID = id
}

// Status returns the project lifecycle status.
func (s *Session) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.proj.Status
}

// SetStatus transitions the project lifecycle status.
func (s *Session) SetStatus(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proj.Status = status
}

// SetPreviewURL stores the most recently rendered preview for a page.
// Staleness is not tracked: a newer edit does not clear the old URL.
func (s *Session) SetPreviewURL(pageID, url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proj.PagePreviewURLs[pageID] = url
}

// PreviewURL returns the last rendered preview for a page, if any.
func (s *Session) PreviewURL(pageID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.proj.PagePreviewURLs[pageID]
	return u, ok
}

// Undo reverts the most recent recorded action. Returns false when there is
// nothing to undo.
func (s *Session) Undo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hist.Undo((*liveState)(s))
}

// Redo re-applies the most recently undone action.
func (s *Session) Redo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hist.Redo((*liveState)(s))
}

// CanUndo reports whether Undo would change state.
func (s *Session) CanUndo() bool { return s.hist.CanUndo() }

// CanRedo reports whether Redo would change state.
func (s *Session) CanRedo() bool { return s.hist.CanRedo() }

// liveState adapts Session to history.State. Its methods run with s.mu held
// (history Undo/Redo are only entered from Session.Undo/Redo) and must not
// take the lock again.
type liveState Session

func (s *liveState) Invert(a history.Action) history.Action {
	switch v := a.(type) {
	case history.TextChange:
		return history.TextChange{Slot: v.Slot, Prev: s.proj.FieldValues[v.Slot.String()]}
	case history.ImageChange:
		cur, ok := s.proj.ImageOverrides[v.Slot.String()]
		return history.ImageChange{Slot: v.Slot, Prev: cur, HasPrev: ok}
	case history.PageOrderChange:
		return history.PageOrderChange{
			Prev:      append([]string(nil), s.proj.PageOrder...),
			PrevIndex: s.current,
		}
	}
	return nil
}

func (s *liveState) Apply(a history.Action) {
	switch v := a.(type) {
	case history.TextChange:
		s.proj.FieldValues[v.Slot.String()] = v.Prev
		// keep the tracker in sync so the next edit snapshots from here
		s.lastText[v.Slot] = v.Prev
	case history.ImageChange:
		if v.HasPrev {
			s.proj.ImageOverrides[v.Slot.String()] = v.Prev
		} else {
			delete(s.proj.ImageOverrides, v.Slot.String())
		}
	case history.PageOrderChange:
		s.proj.PageOrder = append([]string(nil), v.Prev...)
		s.current = clampIndex(v.PrevIndex, len(s.proj.PageOrder))
	}
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
