/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the core data model for the invitation customization
// editor: immutable templates supplied by the catalog, and the mutable
// project a user builds on top of one.

import (
	"fmt"
	"strings"
)

// FieldKind enumerates what an editable field accepts.
const (
	FieldKindShortText = "short-text"
	FieldKindLongText  = "long-text"
	FieldKindImage     = "image"
)

// MediaLayerKind enumerates the drawable layers of a template page.
const (
	LayerKindBackground = "background"
	LayerKindOverlay    = "overlay"
)

// Project lifecycle statuses.
const (
	StatusDraft            = "draft"
	StatusPreviewRequested = "preview_requested"
	StatusPaid             = "paid"
)

// Template is an immutable multi-page design supplied by the catalog.
type Template struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Pages []TemplatePage `json:"pages"`
	// RequiredMusicSeconds is how much audio the rendered artifact consumes.
	RequiredMusicSeconds float64     `json:"requiredMusicSeconds,omitempty"`
	DefaultMusic         *MusicTrack `json:"defaultMusic,omitempty"`
}

// TemplatePage is one page of a template with its editable fields and layers.
type TemplatePage struct {
	ID     string          `json:"id"`
	Fields []EditableField `json:"fields"`
	Layers []MediaLayer    `json:"layers,omitempty"`
}

// EditableField declares a user-editable unit on a page.
type EditableField struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"` // short-text, long-text, image
	Default string `json:"default,omitempty"`
	MaxLen  int    `json:"maxLen,omitempty"`
}

// MediaLayer is a fixed background or overlay image with a draw position.
type MediaLayer struct {
	ID   string  `json:"id"`
	Kind string  `json:"kind"` // background, overlay
	URL  string  `json:"url"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// MusicTrack describes a stock audio track from the curated library.
type MusicTrack struct {
	ID       string  `json:"id"`
	Title    string  `json:"title,omitempty"`
	URL      string  `json:"url"`
	Duration float64 `json:"duration"` // seconds
}

// SlotKey identifies one editable unit: a (page, field) pair.
type SlotKey struct {
	PageID  string `json:"pageId"`
	FieldID string `json:"fieldId"`
}

// String encodes the key as "pageID/fieldID" for use as a map key in wire payloads.
func (k SlotKey) String() string { return k.PageID + "/" + k.FieldID }

// ParseSlotKey decodes the "pageID/fieldID" form produced by String.
func ParseSlotKey(s string) (SlotKey, error) {
	i := strings.IndexByte(s, '/')
	if i <= 0 || i == len(s)-1 {
		return SlotKey{}, fmt.Errorf("invalid slot key %q", s)
	}
	return SlotKey{PageID: s[:i], FieldID: s[i+1:]}, nil
}

// MusicSelection is either a stock track id or a custom uploaded track,
// never both. TrimStart applies to custom uploads only.
type MusicSelection struct {
	StockID   string  `json:"stockId,omitempty"`
	CustomURL string  `json:"customUrl,omitempty"`
	TrimStart float64 `json:"trimStart,omitempty"` // seconds into the custom track
	// Duration of the custom track in seconds, reported by the upload collaborator.
	CustomDuration float64 `json:"customDuration,omitempty"`
}

// Project is the mutable customization a user builds on a template.
// Field values and image overrides are keyed by the SlotKey string form.
// FieldValues keeps entries for pages removed from PageOrder so an undone
// deletion restores the page's edits.
type Project struct {
	ID              string            `json:"id,omitempty"`
	TemplateID      string            `json:"templateId"`
	FieldValues     map[string]string `json:"fieldValues"`
	ImageOverrides  map[string]string `json:"imageOverrides"`
	PageOrder       []string          `json:"pageOrder"`
	PagePreviewURLs map[string]string `json:"pagePreviewUrls,omitempty"`
	Music           MusicSelection    `json:"music"`
	Status          string            `json:"status"`
}

// NewProject creates a draft project over a template with template defaults
// filled in and all pages present in order.
func NewProject(t Template) Project {
	p := Project{
		TemplateID:      t.ID,
		FieldValues:     make(map[string]string),
		ImageOverrides:  make(map[string]string),
		PageOrder:       make([]string, 0, len(t.Pages)),
		PagePreviewURLs: make(map[string]string),
		Status:          StatusDraft,
	}
	for _, pg := range t.Pages {
		p.PageOrder = append(p.PageOrder, pg.ID)
		for _, f := range pg.Fields {
			if f.Kind == FieldKindImage {
				continue
			}
			p.FieldValues[SlotKey{PageID: pg.ID, FieldID: f.ID}.String()] = f.Default
		}
	}
	if t.DefaultMusic != nil {
		p.Music.StockID = t.DefaultMusic.ID
	}
	return p
}

// Page returns the template page with the given id.
func (t Template) Page(id string) (TemplatePage, bool) {
	for _, pg := range t.Pages {
		if pg.ID == id {
			return pg, true
		}
	}
	return TemplatePage{}, false
}

// Field returns a page's field declaration by slot key.
func (t Template) Field(k SlotKey) (EditableField, bool) {
	pg, ok := t.Page(k.PageID)
	if !ok {
		return EditableField{}, false
	}
	for _, f := range pg.Fields {
		if f.ID == k.FieldID {
			return f, true
		}
	}
	return EditableField{}, false
}

// CustomizationPayload is the wire shape exchanged with the persistence
// collaborator. Pages maps pageID to a fieldID→text map.
type CustomizationPayload struct {
	Pages           map[string]map[string]string `json:"pages"`
	Images          map[string]string            `json:"images"`
	PageOrder       []string                     `json:"pageOrder"`
	PagePreviewURLs map[string]string            `json:"pagePreviewUrls,omitempty"`
	SelectedMusicID *string                      `json:"selectedMusicId"`
	CustomMusicURL  *string                      `json:"customMusicUrl"`
	MusicTrimStart  float64                      `json:"musicTrimStart,omitempty"`
	// CustomMusicDuration preserves the upload collaborator's reported track
	// length; the trim clamp depends on it after a session resume.
	CustomMusicDuration float64 `json:"customMusicDuration,omitempty"`
}

// Payload converts the project into the persistence wire shape. All pages
// with recorded field values are included, not only those in PageOrder.
func (p Project) Payload() CustomizationPayload {
	out := CustomizationPayload{
		Pages:     make(map[string]map[string]string),
		Images:    make(map[string]string, len(p.ImageOverrides)),
		PageOrder: append([]string(nil), p.PageOrder...),
	}
	for key, val := range p.FieldValues {
		k, err := ParseSlotKey(key)
		if err != nil {
			continue
		}
		m := out.Pages[k.PageID]
		if m == nil {
			m = make(map[string]string)
			out.Pages[k.PageID] = m
		}
		m[k.FieldID] = val
	}
	for key, ref := range p.ImageOverrides {
		out.Images[key] = ref
	}
	if len(p.PagePreviewURLs) > 0 {
		out.PagePreviewURLs = make(map[string]string, len(p.PagePreviewURLs))
		for k, v := range p.PagePreviewURLs {
			out.PagePreviewURLs[k] = v
		}
	}
	if p.Music.StockID != "" {
		id := p.Music.StockID
		out.SelectedMusicID = &id
	}
	if p.Music.CustomURL != "" {
		u := p.Music.CustomURL
		out.CustomMusicURL = &u
		out.MusicTrimStart = p.Music.TrimStart
		out.CustomMusicDuration = p.Music.CustomDuration
	}
	return out
}

// ApplyPayload restores project state from a persisted payload.
func (p *Project) ApplyPayload(c CustomizationPayload) {
	p.FieldValues = make(map[string]string)
	for pageID, fields := range c.Pages {
		for fieldID, val := range fields {
			p.FieldValues[SlotKey{PageID: pageID, FieldID: fieldID}.String()] = val
		}
	}
	p.ImageOverrides = make(map[string]string, len(c.Images))
	for k, v := range c.Images {
		p.ImageOverrides[k] = v
	}
	p.PageOrder = append([]string(nil), c.PageOrder...)
	p.PagePreviewURLs = make(map[string]string, len(c.PagePreviewURLs))
	for k, v := range c.PagePreviewURLs {
		p.PagePreviewURLs[k] = v
	}
	p.Music = MusicSelection{}
	if c.SelectedMusicID != nil {
		p.Music.StockID = *c.SelectedMusicID
	}
	if c.CustomMusicURL != nil {
		p.Music.CustomURL = *c.CustomMusicURL
		p.Music.TrimStart = c.MusicTrimStart
		p.Music.CustomDuration = c.CustomMusicDuration
	}
}
