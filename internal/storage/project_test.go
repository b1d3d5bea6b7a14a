/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"os"
	"path/filepath"
	"testing"

	"invitestudio/internal/domain"
)

func sampleProject() domain.Project {
	return domain.Project{
		TemplateID:  "tmpl-1",
		FieldValues: map[string]string{"p1/title": "hello"},
		ImageOverrides: map[string]string{
			"p1/photo": "https://cdn.test/1.png",
		},
		PageOrder:       []string{"p1"},
		PagePreviewURLs: map[string]string{},
		Status:          domain.StatusDraft,
	}
}

func TestInitAndOpenWorkingCopy(t *testing.T) {
	root := filepath.Join(t.TempDir(), "proj")
	wc, err := InitWorkingCopy(root, sampleProject())
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	for _, d := range []string{"media", "previews", BackupsDirName} {
		if fi, err := os.Stat(filepath.Join(root, d)); err != nil || !fi.IsDir() {
			t.Fatalf("missing subdir %s: %v", d, err)
		}
	}
	if _, err := os.Stat(wc.ManifestPath); err != nil {
		t.Fatalf("manifest not written: %v", err)
	}

	got, err := Open(root)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if got.Project.FieldValues["p1/title"] != "hello" {
		t.Fatalf("round trip lost data: %+v", got.Project)
	}
}

func TestSaveWritesBackup(t *testing.T) {
	root := filepath.Join(t.TempDir(), "proj")
	wc, err := InitWorkingCopy(root, sampleProject())
	if err != nil {
		t.Fatal(err)
	}
	wc.Project.FieldValues["p1/title"] = "changed"
	if err := Save(wc); err != nil {
		t.Fatal(err)
	}
	ents, err := os.ReadDir(filepath.Join(root, BackupsDirName))
	if err != nil {
		t.Fatal(err)
	}
	if len(ents) == 0 {
		t.Fatal("expected a timestamped backup of the previous manifest")
	}
}

func TestOpenFallsBackToBackup(t *testing.T) {
	root := filepath.Join(t.TempDir(), "proj")
	wc, err := InitWorkingCopy(root, sampleProject())
	if err != nil {
		t.Fatal(err)
	}
	// Second save creates a backup of the valid manifest.
	if err := Save(wc); err != nil {
		t.Fatal(err)
	}
	// Corrupt the live manifest.
	if err := os.WriteFile(wc.ManifestPath, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := Open(root)
	if err != nil {
		t.Fatalf("open with corrupt manifest: %v", err)
	}
	if got.Project.TemplateID != "tmpl-1" {
		t.Fatalf("backup restore lost data: %+v", got.Project)
	}
}

func TestTemplateRoundTrip(t *testing.T) {
	root := filepath.Join(t.TempDir(), "proj")
	wc, err := InitWorkingCopy(root, sampleProject())
	if err != nil {
		t.Fatal(err)
	}
	tmpl := domain.Template{
		ID:   "tmpl-1",
		Name: "Rose",
		Pages: []domain.TemplatePage{
			{ID: "p1", Fields: []domain.EditableField{{ID: "title", Kind: domain.FieldKindShortText}}},
		},
	}
	if err := SaveTemplate(wc, tmpl); err != nil {
		t.Fatalf("save template: %v", err)
	}
	got, err := LoadTemplate(root)
	if err != nil {
		t.Fatalf("load template: %v", err)
	}
	if got.ID != "tmpl-1" || len(got.Pages) != 1 {
		t.Fatalf("round trip lost data: %+v", got)
	}
}

func TestLoadTemplateRejectsEmptyPages(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, TemplateFileName), []byte(`{"id":"t","pages":[]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadTemplate(root); err == nil {
		t.Fatal("template without pages must be rejected")
	}
}

func TestOpenRejectsEmptyPageOrder(t *testing.T) {
	root := filepath.Join(t.TempDir(), "proj")
	p := sampleProject()
	p.PageOrder = nil
	if _, err := InitWorkingCopy(root, p); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(root); err == nil {
		t.Fatal("manifest without pages must be rejected")
	}
}
