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
	"context"
	"fmt"
	"log/slog"

	"invitestudio/internal/crop"
	"invitestudio/internal/domain"
	"invitestudio/internal/history"
)

// Image selection is a two-phase operation: the history entry is recorded
// synchronously before the asynchronous decode starts. Recording first means
// a rapid double-selection captures two distinct "previous" values; recording
// after the decode resolved could capture the same stale one twice and
// corrupt undo.

// SelectImage replaces a slot's image with the decoded preview of the given
// file bytes. The decode is the suspension point; callers may run SelectImage
// itself off the event loop. On decode failure the slot keeps its old value.
func (s *Session) SelectImage(ctx context.Context, slot domain.SlotKey, data []byte) error {
	if err := s.beginImageChange(slot); err != nil {
		return err
	}
	ref, w, h, err := s.proc.Decode(ctx, data)
	if err != nil {
		return fmt.Errorf("decode %s: %w", slot, err)
	}
	s.commitImage(slot, ref)
	s.log.Debug("image committed", slog.String("slot", slot.String()), slog.Int("w", w), slog.Int("h", h))
	return nil
}

// RemoveImage clears a slot back to the template default, undoably.
func (s *Session) RemoveImage(slot domain.SlotKey) error {
	if err := s.beginImageChange(slot); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.proj.ImageOverrides, slot.String())
	return nil
}

// PreviewCrop computes the sampling rectangle shown while the user drags the
// zoom slider or switches aspect. Pure; recomputed on every change, stored
// nowhere.
func (s *Session) PreviewCrop(imgW, imgH int, aspect string, zoom float64) crop.Box {
	return crop.ComputeWithWidth(imgW, imgH, aspect, zoom, s.outputWidth)
}

// ConfirmCrop renders the currently previewed crop of the raw file and
// commits the result as the slot's image, collapsing the crop session into
// a plain image reference.
func (s *Session) ConfirmCrop(ctx context.Context, slot domain.SlotKey, data []byte, aspect string, zoom float64) error {
	if err := s.beginImageChange(slot); err != nil {
		return err
	}
	imgW, imgH, err := s.probe(ctx, data)
	if err != nil {
		return err
	}
	box := crop.ComputeWithWidth(imgW, imgH, aspect, zoom, s.outputWidth)
	ref, err := s.proc.RenderCrop(ctx, data, box)
	if err != nil {
		return fmt.Errorf("render crop for %s: %w", slot, err)
	}
	s.commitImage(slot, ref)
	return nil
}

// ImageOverride returns the committed override for a slot, if any.
func (s *Session) ImageOverride(slot domain.SlotKey) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref, ok := s.proj.ImageOverrides[slot.String()]
	return ref, ok
}

// beginImageChange validates the slot and records the history entry with the
// slot's current value. Must complete before any asynchronous work starts.
func (s *Session) beginImageChange(slot domain.SlotKey) error {
	f, ok := s.tmpl.Field(slot)
	if !ok {
		return ErrUnknownField
	}
	if f.Kind != domain.FieldKindImage {
		return ErrNotImageSlot
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, has := s.proj.ImageOverrides[slot.String()]
	s.hist.Record(history.ImageChange{Slot: slot, Prev: cur, HasPrev: has})
	return nil
}

func (s *Session) commitImage(slot domain.SlotKey, ref string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proj.ImageOverrides[slot.String()] = ref
}

func (s *Session) probe(ctx context.Context, data []byte) (w, h int, err error) {
	_, w, h, err = s.proc.Decode(ctx, data)
	if err != nil {
		return 0, 0, fmt.Errorf("probe image: %w", err)
	}
	return w, h, nil
}
