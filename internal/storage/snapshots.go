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
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"invitestudio/internal/domain"
)

// language=SQL
// dialect=SQLite
const insertSnapshotSQL = `INSERT INTO snapshots(ts, reason, payload) VALUES (?, ?, ?)`

// language=SQL
// dialect=SQLite
const selectLatestSnapshotSQL = `SELECT ts, payload FROM snapshots ORDER BY ts DESC, id DESC LIMIT 1`

// language=SQL
// dialect=SQLite
const listSnapshotsSQL = `SELECT ts, payload FROM snapshots ORDER BY ts DESC, id DESC LIMIT ?`

// language=SQL
// dialect=SQLite
const pruneOldSnapshotsSQL = `DELETE FROM snapshots WHERE id NOT IN (
	SELECT id FROM snapshots ORDER BY ts DESC, id DESC LIMIT ?
)`

// Snapshot is one autosaved customization payload.
type Snapshot struct {
	TS      time.Time
	Payload domain.CustomizationPayload
}

// SaveSnapshot persists the project's current customization payload with a
// timestamp. reason tags the trigger, e.g. "autosave" or "crash".
func SaveSnapshot(ctx context.Context, wc *WorkingCopy, reason string, ts time.Time) error {
	if wc == nil {
		return errors.New("nil WorkingCopy")
	}
	if reason == "" {
		reason = "autosave"
	}
	blob, err := json.Marshal(wc.Project.Payload())
	if err != nil {
		return err
	}
	db, err := InitOrOpenIndex(wc.Root)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	_, err = db.ExecContext(ctx, insertSnapshotSQL, ts.UTC().Format(time.RFC3339Nano), reason, blob)
	return err
}

// GetLatestSnapshot returns the most recent snapshot or nil if none exists.
func GetLatestSnapshot(ctx context.Context, wc *WorkingCopy) (*Snapshot, error) {
	if wc == nil {
		return nil, errors.New("nil WorkingCopy")
	}
	db, err := InitOrOpenIndex(wc.Root)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()
	var tsStr string
	var blob []byte
	err = db.QueryRowContext(ctx, selectLatestSnapshotSQL).Scan(&tsStr, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeSnapshot(tsStr, blob)
}

// ListSnapshots returns up to limit most recent snapshots, newest first.
func ListSnapshots(ctx context.Context, wc *WorkingCopy, limit int) ([]Snapshot, error) {
	if wc == nil {
		return nil, errors.New("nil WorkingCopy")
	}
	if limit <= 0 {
		limit = 50
	}
	db, err := InitOrOpenIndex(wc.Root)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()
	rows, err := db.QueryContext(ctx, listSnapshotsSQL, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []Snapshot
	for rows.Next() {
		var tsStr string
		var blob []byte
		if err := rows.Scan(&tsStr, &blob); err != nil {
			return nil, err
		}
		s, err := decodeSnapshot(tsStr, blob)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// PruneOldSnapshots keeps at most keepLast snapshots and deletes older ones.
func PruneOldSnapshots(ctx context.Context, wc *WorkingCopy, keepLast int) (int64, error) {
	if wc == nil {
		return 0, errors.New("nil WorkingCopy")
	}
	if keepLast <= 0 {
		return 0, nil
	}
	db, err := InitOrOpenIndex(wc.Root)
	if err != nil {
		return 0, err
	}
	defer func() { _ = db.Close() }()
	res, err := db.ExecContext(ctx, pruneOldSnapshotsSQL, keepLast)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// RestoreLatestSnapshot applies the most recent snapshot's payload onto the
// working copy's project. Returns false when no snapshot exists.
func RestoreLatestSnapshot(ctx context.Context, wc *WorkingCopy) (bool, error) {
	s, err := GetLatestSnapshot(ctx, wc)
	if err != nil || s == nil {
		return false, err
	}
	wc.Project.ApplyPayload(s.Payload)
	return true, nil
}

// AutosaveCrashSnapshot writes the in-memory project to a crash-stamped
// manifest copy in the backups dir and records a "crash" snapshot in the
// cache database. Returns the path of the manifest copy.
func AutosaveCrashSnapshot(wc *WorkingCopy) (string, error) {
	if wc == nil {
		return "", errors.New("nil WorkingCopy")
	}
	data, err := json.MarshalIndent(wc.Project, "", "  ")
	if err != nil {
		return "", err
	}
	bdir := filepath.Join(wc.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return "", err
	}
	stamp := time.Now().Format("20060102-150405")
	path := filepath.Join(bdir, fmt.Sprintf("%s.crash-%s.bak", ManifestFileName, stamp))
	if err := writeFileSync(path, append(data, '\n')); err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := SaveSnapshot(ctx, wc, "crash", time.Now()); err != nil {
		// The manifest copy already landed; the cache row is best effort.
		return path, nil
	}
	return path, nil
}

func decodeSnapshot(tsStr string, blob []byte) (*Snapshot, error) {
	var p domain.CustomizationPayload
	if err := json.Unmarshal(blob, &p); err != nil {
		return nil, err
	}
	ts, _ := time.Parse(time.RFC3339Nano, tsStr)
	return &Snapshot{TS: ts, Payload: p}, nil
}
