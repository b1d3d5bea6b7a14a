/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package storage owns the local working copy of an invitation project: the
// invite.json manifest with timestamped backups and transactional writes,
// and the per-project SQLite cache under .ivs/ holding rendered preview
// blobs (LRU-capped) and autosave snapshots. Everything under .ivs/ is
// derived state and can be rebuilt; the manifest is the durable local truth.
package storage
