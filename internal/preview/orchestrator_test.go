/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package preview

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"invitestudio/internal/domain"
)

func waitInFlight(t *testing.T, o *Orchestrator, pageID string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !o.InFlight(pageID) {
		if time.Now().After(deadline) {
			t.Fatalf("render for %s never became in flight", pageID)
		}
		time.Sleep(time.Millisecond)
	}
}

// fakeSource is a minimal editor stand-in.
type fakeSource struct {
	mu   sync.Mutex
	proj domain.Project
	tmpl domain.Template
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		tmpl: domain.Template{ID: "tmpl-1"},
		proj: domain.Project{
			TemplateID: "tmpl-1",
			FieldValues: map[string]string{
				"p1/title": "hello",
				"p2/body":  "world",
			},
			ImageOverrides:  map[string]string{"p1/photo": "ref-1"},
			PageOrder:       []string{"p1", "p2"},
			PagePreviewURLs: map[string]string{},
		},
	}
}

func (f *fakeSource) Project() domain.Project {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.proj
}

func (f *fakeSource) Template() domain.Template { return f.tmpl }

func (f *fakeSource) SetPreviewURL(pageID, url string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.proj.PagePreviewURLs[pageID] = url
}

type fakeRenderer struct {
	mu      sync.Mutex
	calls   int
	lastReq PageSlice
	fail    bool
	block   chan struct{}
}

func (r *fakeRenderer) RenderPagePreview(ctx context.Context, projectID, templateID, pageID string, variantIndex int, slice PageSlice) (RenderResult, error) {
	r.mu.Lock()
	r.calls++
	r.lastReq = slice
	block := r.block
	r.mu.Unlock()
	if block != nil {
		<-block
	}
	if r.fail {
		return RenderResult{}, errors.New("render backend unavailable")
	}
	return RenderResult{
		PreviewURL:       fmt.Sprintf("https://cdn.test/%s-v%d.png", pageID, variantIndex),
		NextVariantIndex: variantIndex + 1,
	}, nil
}

func (r *fakeRenderer) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func TestRequestPreviewStoresURLAndAdvancesVariant(t *testing.T) {
	src := newFakeSource()
	r := &fakeRenderer{}
	o := NewOrchestrator(src, r, 3)

	if err := o.RequestPreview(context.Background(), "p1"); err != nil {
		t.Fatal(err)
	}
	if got := src.Project().PagePreviewURLs["p1"]; got != "https://cdn.test/p1-v0.png" {
		t.Fatalf("stored url = %q", got)
	}
	if got := o.VariantIndex("p1"); got != 1 {
		t.Fatalf("variant after first render = %d", got)
	}
	if o.InFlight("p1") {
		t.Fatal("guard must clear after resolution")
	}
}

func TestVariantIndexWraps(t *testing.T) {
	src := newFakeSource()
	o := NewOrchestrator(src, &fakeRenderer{}, 3)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := o.RequestPreview(ctx, "p1"); err != nil {
			t.Fatal(err)
		}
	}
	if got := o.VariantIndex("p1"); got != 0 {
		t.Fatalf("variant after full cycle = %d, want wrap to 0", got)
	}
}

// negativeVariantRenderer answers with an out-of-contract negative next
// variant, as a misbehaving server might.
type negativeVariantRenderer struct{}

func (negativeVariantRenderer) RenderPagePreview(context.Context, string, string, string, int, PageSlice) (RenderResult, error) {
	return RenderResult{PreviewURL: "https://cdn.test/p.png", NextVariantIndex: -2}, nil
}

func TestNegativeVariantFromServerIsWrapped(t *testing.T) {
	src := newFakeSource()
	o := NewOrchestrator(src, negativeVariantRenderer{}, 3)
	if err := o.RequestPreview(context.Background(), "p1"); err != nil {
		t.Fatal(err)
	}
	if got := o.VariantIndex("p1"); got < 0 || got >= 3 {
		t.Fatalf("variant = %d, want a value in [0,3)", got)
	}
}

func TestDuplicateRequestIsNoOp(t *testing.T) {
	src := newFakeSource()
	r := &fakeRenderer{block: make(chan struct{})}
	o := NewOrchestrator(src, r, 3)

	done := make(chan error, 1)
	go func() { done <- o.RequestPreviewWait(context.Background(), "p1") }()
	waitInFlight(t, o, "p1")

	// Second request while the first is pending: no second network call.
	if err := o.RequestPreview(context.Background(), "p1"); err != nil {
		t.Fatalf("duplicate must be a silent no-op, got %v", err)
	}
	if err := o.RequestPreviewWait(context.Background(), "p1"); !errors.Is(err, ErrInFlight) {
		t.Fatalf("blocking form must report ErrInFlight, got %v", err)
	}

	close(r.block)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if got := r.callCount(); got != 1 {
		t.Fatalf("render calls = %d, want exactly 1", got)
	}
}

func TestIndependentPagesRenderConcurrently(t *testing.T) {
	src := newFakeSource()
	r := &fakeRenderer{block: make(chan struct{})}
	o := NewOrchestrator(src, r, 3)

	done := make(chan error, 1)
	go func() { done <- o.RequestPreviewWait(context.Background(), "p1") }()
	waitInFlight(t, o, "p1")
	if o.InFlight("p2") {
		t.Fatal("p2 must not share p1's guard")
	}
	close(r.block)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}

func TestFailureClearsGuardWithoutStateChange(t *testing.T) {
	src := newFakeSource()
	r := &fakeRenderer{fail: true}
	o := NewOrchestrator(src, r, 3)

	if err := o.RequestPreview(context.Background(), "p1"); err == nil {
		t.Fatal("renderer failure must surface")
	}
	if _, ok := src.Project().PagePreviewURLs["p1"]; ok {
		t.Fatal("failed render must not store a url")
	}
	if got := o.VariantIndex("p1"); got != 0 {
		t.Fatalf("failed render must not advance the variant, got %d", got)
	}
	if o.InFlight("p1") {
		t.Fatal("guard must clear on failure")
	}
	// A retry goes through.
	r.fail = false
	if err := o.RequestPreview(context.Background(), "p1"); err != nil {
		t.Fatal(err)
	}
}

func TestSliceContainsOnlyOwnPage(t *testing.T) {
	src := newFakeSource()
	r := &fakeRenderer{}
	o := NewOrchestrator(src, r, 3)
	if err := o.RequestPreview(context.Background(), "p1"); err != nil {
		t.Fatal(err)
	}
	s := r.lastReq
	if _, ok := s.FieldValues["p1/title"]; !ok {
		t.Fatal("own field missing from slice")
	}
	if _, ok := s.FieldValues["p2/body"]; ok {
		t.Fatal("other page's field leaked into slice")
	}
	if _, ok := s.ImageOverrides["p1/photo"]; !ok {
		t.Fatal("own image override missing from slice")
	}
	if len(s.PageOrder) != 2 {
		t.Fatalf("page order context missing: %v", s.PageOrder)
	}
}
