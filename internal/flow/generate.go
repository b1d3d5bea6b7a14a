/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package flow sequences the user-facing generate pipeline: authentication
// gating, project persistence, full-artifact generation, and the payment
// gate in front of the download.
package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"invitestudio/internal/backend"
	"invitestudio/internal/domain"
	"invitestudio/internal/editor"
	applog "invitestudio/internal/log"
)

// ErrAuthRequired is returned by Generate when no session token exists. The
// generation intent stays armed; call Generate again after authenticating.
var ErrAuthRequired = errors.New("authentication required before generating")

// ErrPaymentRequired is returned by Download for unpaid projects.
var ErrPaymentRequired = errors.New("payment required before download")

// Persistence is the subset of the backend client the pipeline saves through.
type Persistence interface {
	CreateProject(ctx context.Context, templateID string, payload domain.CustomizationPayload) (string, error)
	UpdateProject(ctx context.Context, projectID string, payload domain.CustomizationPayload) error
}

// Generator triggers and tracks full-artifact renders.
type Generator interface {
	StartFullRender(ctx context.Context, projectID string) (backend.RenderJob, error)
	WaitForRender(ctx context.Context, jobID string, interval time.Duration) (backend.RenderJob, error)
}

// Payments resolves the payment gate.
type Payments interface {
	Pay(ctx context.Context, projectID string, amountCents int64) (backend.PaymentResult, error)
}

// Pipeline drives one session through save, generate, and download.
type Pipeline struct {
	session *editor.Session
	store   Persistence
	gen     Generator
	pay     Payments

	mu            sync.Mutex
	authenticated bool
	// single pending-intent slot; a second Generate click before the auth
	// flow resolves re-arms the same intent rather than queueing another
	intentPending bool
	artifactURL   string
	amountCents   int64

	log *slog.Logger
}

// New builds a pipeline over the session and its collaborators.
func New(s *editor.Session, store Persistence, gen Generator, pay Payments, amountCents int64) *Pipeline {
	return &Pipeline{
		session:     s,
		store:       store,
		gen:         gen,
		pay:         pay,
		amountCents: amountCents,
		log:         applog.WithComponent("flow"),
	}
}

// SetAuthenticated records the result of the auth collaborator's challenge.
func (p *Pipeline) SetAuthenticated(ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.authenticated = ok
}

// IntentPending reports whether a Generate click is waiting on auth. The
// armed intent is consumed by ResumeIntent or by the next Generate call.
func (p *Pipeline) IntentPending() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.intentPending
}

// ResumeIntent picks up a Generate that was blocked on authentication.
// Call it after the auth collaborator resolves; it is a no-op when no
// intent is armed.
func (p *Pipeline) ResumeIntent(ctx context.Context) error {
	p.mu.Lock()
	pending := p.intentPending
	p.mu.Unlock()
	if !pending {
		return nil
	}
	return p.Generate(ctx)
}

// Generate runs the pipeline: gate on auth, persist the full project, then
// trigger full-artifact generation. Persistence failure leaves the project
// status unchanged and is retryable by calling Generate again; generation
// failure is reported but the saved project stays a valid draft.
func (p *Pipeline) Generate(ctx context.Context) error {
	p.mu.Lock()
	if !p.authenticated {
		p.intentPending = true
		p.mu.Unlock()
		return ErrAuthRequired
	}
	p.intentPending = false
	p.mu.Unlock()

	if err := p.save(ctx); err != nil {
		return err
	}

	proj := p.session.Project()
	job, err := p.gen.StartFullRender(ctx, proj.ID)
	if err != nil {
		return fmt.Errorf("trigger generation: %w", err)
	}
	p.session.SetStatus(domain.StatusPreviewRequested)
	p.log.Info("generation started",
		slog.String("project", proj.ID), slog.String("job", job.ID))

	done, err := p.gen.WaitForRender(ctx, job.ID, 0)
	if err != nil {
		return fmt.Errorf("generation: %w", err)
	}
	p.mu.Lock()
	p.artifactURL = done.ArtifactURL
	p.mu.Unlock()
	return nil
}

// save persists the complete project, including field values of deleted
// pages so a later undo of the deletion still finds its edits.
func (p *Pipeline) save(ctx context.Context) error {
	proj := p.session.Project()
	payload := proj.Payload()
	if proj.ID == "" {
		id, err := p.store.CreateProject(ctx, proj.TemplateID, payload)
		if err != nil {
			return fmt.Errorf("save project: %w", err)
		}
		p.session.SetProjectID(id)
		p.log.Info("project created", slog.String("project", id))
		return nil
	}
	if err := p.store.UpdateProject(ctx, proj.ID, payload); err != nil {
		return fmt.Errorf("save project: %w", err)
	}
	return nil
}

// Save persists the project without generating. Exposed for explicit "save
// draft" actions.
func (p *Pipeline) Save(ctx context.Context) error {
	p.mu.Lock()
	auth := p.authenticated
	p.mu.Unlock()
	if !auth {
		return ErrAuthRequired
	}
	return p.save(ctx)
}

// ArtifactReady reports whether generation has produced an artifact.
func (p *Pipeline) ArtifactReady() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.artifactURL != ""
}

// Download resolves the payment gate and returns the artifact URL. A project
// already carrying paid status skips the charge entirely.
func (p *Pipeline) Download(ctx context.Context) (string, error) {
	p.mu.Lock()
	url := p.artifactURL
	p.mu.Unlock()
	if url == "" {
		return "", errors.New("no generated artifact to download")
	}
	if p.session.Status() == domain.StatusPaid {
		return url, nil
	}
	proj := p.session.Project()
	res, err := p.pay.Pay(ctx, proj.ID, p.amountCents)
	if err != nil {
		return "", fmt.Errorf("payment: %w", err)
	}
	if !res.Paid {
		return "", ErrPaymentRequired
	}
	p.session.SetStatus(domain.StatusPaid)
	if res.DownloadURL != "" {
		url = res.DownloadURL
	}
	return url, nil
}
