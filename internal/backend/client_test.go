/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/xeipuuv/gojsonschema"

	"invitestudio/internal/domain"
	"invitestudio/internal/preview"
)

func samplePayload() domain.CustomizationPayload {
	return domain.CustomizationPayload{
		Pages:     map[string]map[string]string{"p1": {"title": "hello"}},
		Images:    map[string]string{"p1/photo": "https://cdn.test/1.png"},
		PageOrder: []string{"p1"},
	}
}

func TestClientCreateProject(t *testing.T) {
	var gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		var req createProjectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.TemplateID != "tmpl-1" {
			t.Errorf("templateId = %q", req.TemplateID)
		}
		writeJSON(w, http.StatusCreated, createProjectResponse{ProjectID: "proj-9"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "tok-1")
	id, err := c.CreateProject(context.Background(), "tmpl-1", samplePayload())
	if err != nil {
		t.Fatal(err)
	}
	if id != "proj-9" {
		t.Fatalf("project id = %q", id)
	}
	if gotAuth != "Bearer tok-1" {
		t.Fatalf("auth header = %q", gotAuth)
	}
	if gotPath != "/api/projects" {
		t.Fatalf("path = %q", gotPath)
	}
}

func TestClientSurfacesServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusUnprocessableEntity, context.DeadlineExceeded)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	if err := c.UpdateProject(context.Background(), "proj-1", samplePayload()); err == nil {
		t.Fatal("non-2xx must error")
	}
}

func TestClientRenderPagePreview(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req renderPageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.PageID != "p1" || req.VariantIndex != 2 {
			t.Errorf("request %+v", req)
		}
		writeJSON(w, http.StatusOK, preview.RenderResult{PreviewURL: "/previews/x.png", NextVariantIndex: 3})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	res, err := c.RenderPagePreview(context.Background(), "", "tmpl-1", "p1", 2, preview.PageSlice{PageOrder: []string{"p1"}})
	if err != nil {
		t.Fatal(err)
	}
	if res.PreviewURL != "/previews/x.png" || res.NextVariantIndex != 3 {
		t.Fatalf("result %+v", res)
	}
}

func TestClientAuthenticateInstallsToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, authResponse{Token: "jwt-abc"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	if c.Authenticated() {
		t.Fatal("fresh client must not be authenticated")
	}
	if err := c.Authenticate(context.Background(), "a@b.test", "pw"); err != nil {
		t.Fatal(err)
	}
	if c.Token != "jwt-abc" || !c.Authenticated() {
		t.Fatalf("token = %q", c.Token)
	}
}

func TestPayloadSchemaValidation(t *testing.T) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(payloadSchemaJSON))
	if err != nil {
		t.Fatal(err)
	}
	good, _ := json.Marshal(samplePayload())
	res, err := schema.Validate(gojsonschema.NewBytesLoader(good))
	if err != nil {
		t.Fatal(err)
	}
	if !res.Valid() {
		t.Fatalf("valid payload rejected: %v", res.Errors())
	}

	for name, bad := range map[string]string{
		"empty page order": `{"pages":{},"images":{},"pageOrder":[]}`,
		"missing images":   `{"pages":{},"pageOrder":["p1"]}`,
		"negative trim":    `{"pages":{},"images":{},"pageOrder":["p1"],"musicTrimStart":-1}`,
	} {
		res, err := schema.Validate(gojsonschema.NewBytesLoader([]byte(bad)))
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if res.Valid() {
			t.Fatalf("%s: invalid payload accepted", name)
		}
	}
}
