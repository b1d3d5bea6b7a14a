/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package backend holds the HTTP client for the invitation API and, behind
// the server entrypoint, the API implementation itself. The client covers
// the five external collaborators the editor talks to: persistence, render,
// auth, payment, and upload.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"invitestudio/internal/domain"
	"invitestudio/internal/preview"
)

// Client is the HTTP client for the invitation backend API.
type Client struct {
	BaseURL string
	Token   string // bearer token from the auth challenge
	client  *http.Client
}

// NewClient creates a new backend client. baseURL may include a trailing
// slash; it will be normalized.
func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Authenticated reports whether the client holds a session token.
func (c *Client) Authenticated() bool { return c.Token != "" }

func (c *Client) doJSON(ctx context.Context, method, path string, body, dest any) error {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return err
	}
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("server %s %s: %s", method, u.Path, resp.Status)
	}
	if dest == nil {
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	return dec.Decode(dest)
}

// --- persistence collaborator ---

type createProjectRequest struct {
	TemplateID    string                      `json:"templateId"`
	Customization domain.CustomizationPayload `json:"customization"`
}

type createProjectResponse struct {
	ProjectID string `json:"projectId"`
}

// CreateProject allocates a new project identity for the payload.
func (c *Client) CreateProject(ctx context.Context, templateID string, payload domain.CustomizationPayload) (string, error) {
	var out createProjectResponse
	req := createProjectRequest{TemplateID: templateID, Customization: payload}
	if err := c.doJSON(ctx, http.MethodPost, "/api/projects", req, &out); err != nil {
		return "", err
	}
	return out.ProjectID, nil
}

// UpdateProject overwrites the stored customization of an existing project.
func (c *Client) UpdateProject(ctx context.Context, projectID string, payload domain.CustomizationPayload) error {
	path := "/api/projects/" + url.PathEscape(projectID)
	return c.doJSON(ctx, http.MethodPut, path, payload, nil)
}

// GetProject fetches the stored customization payload.
func (c *Client) GetProject(ctx context.Context, projectID string) (domain.CustomizationPayload, error) {
	var out domain.CustomizationPayload
	path := "/api/projects/" + url.PathEscape(projectID)
	err := c.doJSON(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// --- render collaborator ---

type renderPageRequest struct {
	ProjectID    string            `json:"projectId,omitempty"`
	TemplateID   string            `json:"templateId"`
	PageID       string            `json:"pageId"`
	VariantIndex int               `json:"variantIndex"`
	Slice        preview.PageSlice `json:"slice"`
}

// RenderPagePreview implements preview.Renderer over the render API.
func (c *Client) RenderPagePreview(ctx context.Context, projectID, templateID, pageID string, variantIndex int, slice preview.PageSlice) (preview.RenderResult, error) {
	var out preview.RenderResult
	req := renderPageRequest{
		ProjectID:    projectID,
		TemplateID:   templateID,
		PageID:       pageID,
		VariantIndex: variantIndex,
		Slice:        slice,
	}
	err := c.doJSON(ctx, http.MethodPost, "/api/render/page", req, &out)
	return out, err
}

// RenderJob tracks an asynchronous full-artifact render.
type RenderJob struct {
	ID          string `json:"id"`
	Status      string `json:"status"` // pending | done | failed
	ArtifactURL string `json:"artifactUrl,omitempty"`
	Error       string `json:"error,omitempty"`
}

// StartFullRender kicks off generation of the complete artifact.
func (c *Client) StartFullRender(ctx context.Context, projectID string) (RenderJob, error) {
	var out RenderJob
	path := "/api/render/full/" + url.PathEscape(projectID)
	err := c.doJSON(ctx, http.MethodPost, path, nil, &out)
	return out, err
}

// PollRenderJob fetches the current state of a render job.
func (c *Client) PollRenderJob(ctx context.Context, jobID string) (RenderJob, error) {
	var out RenderJob
	path := "/api/render/jobs/" + url.PathEscape(jobID)
	err := c.doJSON(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// WaitForRender polls the job until it resolves or ctx is cancelled.
func (c *Client) WaitForRender(ctx context.Context, jobID string, interval time.Duration) (RenderJob, error) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		job, err := c.PollRenderJob(ctx, jobID)
		if err != nil {
			return job, err
		}
		switch job.Status {
		case "done":
			return job, nil
		case "failed":
			return job, fmt.Errorf("render job %s failed: %s", jobID, job.Error)
		}
		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-t.C:
		}
	}
}

// --- auth collaborator ---

type authRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string `json:"token"`
}

// Authenticate resolves the auth challenge and installs the session token on
// the client for subsequent calls.
func (c *Client) Authenticate(ctx context.Context, email, password string) error {
	var out authResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/login", authRequest{Email: email, Password: password}, &out); err != nil {
		return err
	}
	c.Token = out.Token
	return nil
}

// --- payment collaborator ---

type paymentRequest struct {
	ProjectID   string `json:"projectId"`
	AmountCents int64  `json:"amountCents"`
}

// PaymentResult is the payment collaborator's resolution.
type PaymentResult struct {
	Paid        bool   `json:"paid"`
	DownloadURL string `json:"downloadUrl,omitempty"`
}

// Pay charges for a project and, on success, returns the download URL of the
// generated artifact.
func (c *Client) Pay(ctx context.Context, projectID string, amountCents int64) (PaymentResult, error) {
	var out PaymentResult
	err := c.doJSON(ctx, http.MethodPost, "/api/payments", paymentRequest{ProjectID: projectID, AmountCents: amountCents}, &out)
	return out, err
}

// --- upload collaborator ---

type uploadResponse struct {
	URL string `json:"url"`
	// Duration is set for audio uploads, in seconds.
	Duration float64 `json:"duration,omitempty"`
}

// Upload stores raw media bytes and returns their stable reference URL.
// For audio uploads the reported duration is returned as well.
func (c *Client) Upload(ctx context.Context, contentType string, data []byte) (ref string, duration float64, err error) {
	u, err := url.Parse(c.BaseURL + "/api/uploads")
	if err != nil {
		return "", 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(data))
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Content-Type", contentType)
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", 0, fmt.Errorf("server POST %s: %s", u.Path, resp.Status)
	}
	var out uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", 0, err
	}
	return out.URL, out.Duration, nil
}
