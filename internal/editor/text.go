/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package editor

import (
	"strings"

	"invitestudio/internal/domain"
	"invitestudio/internal/history"
)

// Text editing records one history entry per completed word, not per
// keystroke. A snapshot is taken when the edit crosses a word boundary
// (the segment count changes, i.e. a separating space appears or goes
// away) or when the field blurs with changes since the last snapshot.
// Each slot tracks its own snapshot so interleaved edits across fields
// undo independently.

// SetFieldText applies one text edit, typically per keystroke. The value is
// validated against the template's field declaration before any state change.
func (s *Session) SetFieldText(slot domain.SlotKey, text string) error {
	f, ok := s.tmpl.Field(slot)
	if !ok {
		return ErrUnknownField
	}
	if f.Kind != domain.FieldKindShortText && f.Kind != domain.FieldKindLongText {
		return ErrNotTextField
	}
	if f.MaxLen > 0 && len([]rune(text)) > f.MaxLen {
		return ErrTextTooLong
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key := slot.String()
	cur := s.proj.FieldValues[key]
	if _, seeded := s.lastText[slot]; !seeded {
		s.lastText[slot] = cur
	}
	if text == cur {
		return nil
	}
	if wordCount(text) != wordCount(cur) {
		s.hist.Record(history.TextChange{Slot: slot, Prev: s.lastText[slot]})
		s.lastText[slot] = text
	}
	s.proj.FieldValues[key] = text
	return nil
}

// BlurField flushes pending text changes on a field into history. Called
// when the field loses focus so the tail of a sentence is still undoable.
func (s *Session) BlurField(slot domain.SlotKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	last, seeded := s.lastText[slot]
	if !seeded {
		return
	}
	cur := s.proj.FieldValues[slot.String()]
	if cur == last {
		return
	}
	s.hist.Record(history.TextChange{Slot: slot, Prev: last})
	s.lastText[slot] = cur
}

// FieldText returns the current text of a slot.
func (s *Session) FieldText(slot domain.SlotKey) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.proj.FieldValues[slot.String()]
}

// wordCount counts space-separated segments, so a trailing space opens a
// new (empty) segment and typing inside a word never changes the count.
// The empty string counts as one (empty) segment: typing the first letter
// of a word is not a boundary, completing the word with a space is.
func wordCount(s string) int {
	return strings.Count(s, " ") + 1
}
