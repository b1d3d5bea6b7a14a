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
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestSnapshotRoundTrip(t *testing.T) {
	root := filepath.Join(t.TempDir(), "proj")
	wc, err := InitWorkingCopy(root, sampleProject())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	got, err := GetLatestSnapshot(ctx, wc)
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Fatal("fresh project should have no snapshots")
	}

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := SaveSnapshot(ctx, wc, "autosave", base); err != nil {
		t.Fatal(err)
	}
	wc.Project.FieldValues["p1/title"] = "v2"
	if err := SaveSnapshot(ctx, wc, "autosave", base.Add(time.Minute)); err != nil {
		t.Fatal(err)
	}

	got, err = GetLatestSnapshot(ctx, wc)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Payload.Pages["p1"]["title"] != "v2" {
		t.Fatalf("latest snapshot: %+v", got)
	}

	list, err := ListSnapshots(ctx, wc, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("snapshot count = %d", len(list))
	}
	if !list[0].TS.After(list[1].TS) {
		t.Fatal("snapshots must list newest first")
	}
}

func TestPruneOldSnapshots(t *testing.T) {
	root := filepath.Join(t.TempDir(), "proj")
	wc, err := InitWorkingCopy(root, sampleProject())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		if err := SaveSnapshot(ctx, wc, "autosave", base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatal(err)
		}
	}
	n, err := PruneOldSnapshots(ctx, wc, 2)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("pruned %d, want 3", n)
	}
	list, err := ListSnapshots(ctx, wc, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("kept %d", len(list))
	}
}

func TestRestoreLatestSnapshot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "proj")
	wc, err := InitWorkingCopy(root, sampleProject())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := SaveSnapshot(ctx, wc, "crash", time.Now()); err != nil {
		t.Fatal(err)
	}
	wc.Project.FieldValues["p1/title"] = "lost edit"
	ok, err := RestoreLatestSnapshot(ctx, wc)
	if err != nil || !ok {
		t.Fatalf("restore: ok=%v err=%v", ok, err)
	}
	if wc.Project.FieldValues["p1/title"] != "hello" {
		t.Fatalf("restore did not roll back: %q", wc.Project.FieldValues["p1/title"])
	}
}
