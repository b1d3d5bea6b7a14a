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
	"errors"

	"invitestudio/internal/domain"
)

// Music selection does not go through the history stack. Re-auditioning
// tracks is frequent and cheap to redo by hand; recording every selection
// would push the edits the user actually wants to undo off the stack.

var ErrNoCustomTrack = errors.New("no custom track is selected")

// Music returns the current selection.
func (s *Session) Music() domain.MusicSelection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.proj.Music
}

// SelectStockTrack picks a track from the curated library. Any custom upload
// is dropped; the two sources are mutually exclusive.
func (s *Session) SelectStockTrack(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proj.Music = domain.MusicSelection{StockID: id}
}

// SelectCustomTrack switches to an uploaded track. The url is the stored
// reference returned by the upload collaborator, duration its length in
// seconds. Any stock selection is dropped.
func (s *Session) SelectCustomTrack(url string, duration float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proj.Music = domain.MusicSelection{CustomURL: url, CustomDuration: duration}
}

// ClearMusic removes any selection, leaving the render silent.
func (s *Session) ClearMusic() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proj.Music = domain.MusicSelection{}
}

// CanTrim reports whether the current custom track is long enough to offer a
// trim window. A track shorter than the render consumes plays in full from
// the start.
func (s *Session) CanTrim() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canTrimLocked()
}

func (s *Session) canTrimLocked() bool {
	m := s.proj.Music
	return m.CustomURL != "" && m.CustomDuration > s.tmpl.RequiredMusicSeconds
}

// SetTrimStart moves the playback offset of the custom track. The offset is
// clamped so the window starting there still covers the full required
// duration.
func (s *Session) SetTrimStart(seconds float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.proj.Music.CustomURL == "" {
		return ErrNoCustomTrack
	}
	if !s.canTrimLocked() {
		s.proj.Music.TrimStart = 0
		return nil
	}
	max := s.proj.Music.CustomDuration - s.tmpl.RequiredMusicSeconds
	if seconds < 0 {
		seconds = 0
	}
	if seconds > max {
		seconds = max
	}
	s.proj.Music.TrimStart = seconds
	return nil
}
