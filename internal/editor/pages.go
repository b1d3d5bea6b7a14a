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
	"log/slog"

	"invitestudio/internal/history"
)

// PageOrder returns a copy of the current page sequence.
func (s *Session) PageOrder() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.proj.PageOrder...)
}

// CurrentIndex returns the position of the page the user is viewing.
func (s *Session) CurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// CurrentPageID returns the id of the page the user is viewing.
func (s *Session) CurrentPageID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.proj.PageOrder[s.current]
}

// SetCurrentPage moves the view to the given page. Navigation is not
// undoable; only the sequence itself is.
func (s *Session) SetCurrentPage(pageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, id := range s.proj.PageOrder {
		if id == pageID {
			s.current = i
			return nil
		}
	}
	return ErrUnknownPage
}

// Reorder replaces the page sequence with newOrder, which must be a
// permutation of the current sequence. The viewed page follows its page id
// to the new position.
func (s *Session) Reorder(newOrder []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !isPermutation(s.proj.PageOrder, newOrder) {
		return ErrBadReorder
	}
	s.hist.Record(history.PageOrderChange{
		Prev:      append([]string(nil), s.proj.PageOrder...),
		PrevIndex: s.current,
	})
	viewed := s.proj.PageOrder[s.current]
	s.proj.PageOrder = append([]string(nil), newOrder...)
	for i, id := range s.proj.PageOrder {
		if id == viewed {
			s.current = i
			break
		}
	}
	s.log.Debug("pages reordered", slog.Int("count", len(newOrder)))
	return nil
}

// DeletePage removes a page from the sequence. The last remaining page cannot
// be deleted. Field values of the removed page are kept, so re-adding the
// page via Undo restores its content.
func (s *Session) DeletePage(pageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.proj.PageOrder) == 1 {
		return ErrLastPage
	}
	at := -1
	for i, id := range s.proj.PageOrder {
		if id == pageID {
			at = i
			break
		}
	}
	if at < 0 {
		return ErrUnknownPage
	}
	s.hist.Record(history.PageOrderChange{
		Prev:      append([]string(nil), s.proj.PageOrder...),
		PrevIndex: s.current,
	})
	s.proj.PageOrder = append(s.proj.PageOrder[:at:at], s.proj.PageOrder[at+1:]...)
	if at < s.current {
		s.current--
	}
	s.current = clampIndex(s.current, len(s.proj.PageOrder))
	return nil
}

// isPermutation reports whether b rearranges exactly the elements of a.
// Page ids are unique within a template, so a count map suffices.
func isPermutation(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, id := range a {
		seen[id]++
	}
	for _, id := range b {
		seen[id]--
		if seen[id] < 0 {
			return false
		}
	}
	return true
}
