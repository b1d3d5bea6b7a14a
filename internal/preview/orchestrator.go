/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package preview turns the live editor state into per-page render requests
// against the external render collaborator, with at most one request in
// flight per page.
package preview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"invitestudio/internal/domain"
	applog "invitestudio/internal/log"
)

// PageSlice is the subset of the customization a single page render needs.
type PageSlice struct {
	FieldValues    map[string]string `json:"fieldValues"`
	ImageOverrides map[string]string `json:"imageOverrides"`
	PageOrder      []string          `json:"pageOrder"`
}

// RenderResult is the render collaborator's answer to a page preview request.
type RenderResult struct {
	PreviewURL       string `json:"previewUrl"`
	NextVariantIndex int    `json:"nextVariantIndex"`
}

// Renderer is the render collaborator. Implemented over HTTP by
// internal/backend; stubbed in tests.
type Renderer interface {
	RenderPagePreview(ctx context.Context, projectID, templateID, pageID string, variantIndex int, slice PageSlice) (RenderResult, error)
}

// Source is the editor state an orchestrator reads and writes back to.
// Implemented by editor.Session.
type Source interface {
	Project() domain.Project
	Template() domain.Template
	SetPreviewURL(pageID, url string)
}

// Orchestrator manages per-page preview rendering. The in-flight guard is
// the one deliberate mutual-exclusion mechanism here: a second request for a
// page whose render has not resolved yet is silently dropped.
type Orchestrator struct {
	src      Source
	renderer Renderer
	variants int

	mu       sync.Mutex
	inFlight map[string]bool
	variant  map[string]int

	log *slog.Logger
}

// ErrInFlight is returned by RequestPreviewWait when the page already has a
// render pending. RequestPreview swallows it; callers that need to know use
// the blocking form.
var ErrInFlight = errors.New("preview render already in flight")

// NewOrchestrator builds an orchestrator over the given state source.
// variants is the number of layout variants the renderer cycles through;
// values below 1 are treated as 1.
func NewOrchestrator(src Source, r Renderer, variants int) *Orchestrator {
	if variants < 1 {
		variants = 1
	}
	return &Orchestrator{
		src:      src,
		renderer: r,
		variants: variants,
		inFlight: make(map[string]bool),
		variant:  make(map[string]int),
		log:      applog.WithComponent("preview"),
	}
}

// VariantIndex returns the variant the next render of the page will request.
func (o *Orchestrator) VariantIndex(pageID string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.variant[pageID]
}

// InFlight reports whether the page has a pending render.
func (o *Orchestrator) InFlight(pageID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.inFlight[pageID]
}

// RequestPreview renders a preview of one page. If a render for the page is
// already pending the call is a no-op. The render request carries only that
// page's slice of the customization. On success the returned URL is stored
// on the project and the variant index advances; on failure the guard is
// cleared and no state changes.
func (o *Orchestrator) RequestPreview(ctx context.Context, pageID string) error {
	err := o.RequestPreviewWait(ctx, pageID)
	if errors.Is(err, ErrInFlight) {
		return nil
	}
	return err
}

// RequestPreviewWait is RequestPreview but reports ErrInFlight instead of
// dropping the duplicate silently.
func (o *Orchestrator) RequestPreviewWait(ctx context.Context, pageID string) error {
	o.mu.Lock()
	if o.inFlight[pageID] {
		o.mu.Unlock()
		return ErrInFlight
	}
	o.inFlight[pageID] = true
	idx := o.variant[pageID]
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.inFlight[pageID] = false
		o.mu.Unlock()
	}()

	proj := o.src.Project()
	tmpl := o.src.Template()
	slice := sliceFor(proj, pageID)

	res, err := o.renderer.RenderPagePreview(ctx, proj.ID, tmpl.ID, pageID, idx, slice)
	if err != nil {
		o.log.Warn("page preview failed",
			slog.String("page", pageID), slog.Int("variant", idx), slog.Any("error", err))
		return fmt.Errorf("render preview for page %s: %w", pageID, err)
	}

	o.src.SetPreviewURL(pageID, res.PreviewURL)
	next := res.NextVariantIndex % o.variants
	if next < 0 {
		next += o.variants
	}
	o.mu.Lock()
	o.variant[pageID] = next
	o.mu.Unlock()
	o.log.Debug("page preview stored", slog.String("page", pageID), slog.String("url", res.PreviewURL))
	return nil
}

// sliceFor extracts the page's own field values and image overrides plus the
// order context the renderer needs to place the page.
func sliceFor(p domain.Project, pageID string) PageSlice {
	s := PageSlice{
		FieldValues:    make(map[string]string),
		ImageOverrides: make(map[string]string),
		PageOrder:      append([]string(nil), p.PageOrder...),
	}
	prefix := pageID + "/"
	for k, v := range p.FieldValues {
		if strings.HasPrefix(k, prefix) {
			s.FieldValues[k] = v
		}
	}
	for k, v := range p.ImageOverrides {
		if strings.HasPrefix(k, prefix) {
			s.ImageOverrides[k] = v
		}
	}
	return s
}
