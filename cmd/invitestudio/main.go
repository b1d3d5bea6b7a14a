/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"invitestudio/internal/backend"
	"invitestudio/internal/config"
	"invitestudio/internal/crash"
	"invitestudio/internal/domain"
	"invitestudio/internal/editor"
	"invitestudio/internal/flow"
	"invitestudio/internal/imaging"
	applog "invitestudio/internal/log"
	"invitestudio/internal/preview"
	"invitestudio/internal/storage"
	"invitestudio/internal/version"
)

// artifactPriceCents is the single price tier of the current catalog.
const artifactPriceCents = 1999

// previewVariants is how many design variants a page preview cycles through.
const previewVariants = 3

func usage() {
	fmt.Println("Invite Studio — invitation customization editor")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  invitestudio version|-v|--version             Show version")
	fmt.Println("  invitestudio init <dir> <template.json>       Create a working copy at <dir> from a template file")
	fmt.Println("  invitestudio open <dir>                       Open the working copy at <dir> and print a summary")
	fmt.Println("  invitestudio save <dir>                       Save the working copy (creates backup and snapshot)")
	fmt.Println("  invitestudio login <email> <password>         Authenticate against the backend and store the token")
	fmt.Println("  invitestudio preview <dir> <pageID>           Render a preview for one page and store its URL")
	fmt.Println("  invitestudio generate <dir>                   Save the project remotely and render the full artifact")
	fmt.Println("  invitestudio download <dir>                   Generate, pay if needed, and print the download URL")
	fmt.Println("  invitestudio serve                            Run the backend API server")
}

func main() {
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("cli")
	var wc *storage.WorkingCopy
	defer func() { crash.Recover(wc) }()

	args := os.Args
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) > 1 {
		switch args[1] {
		case "version", "--version", "-v":
			fmt.Println("Invite Studio — invitation customization editor")
			fmt.Println(version.String())
			return
		case "init":
			if len(args) < 4 {
				fmt.Println("init requires <dir> and <template.json>")
				usage()
				os.Exit(2)
			}
			dir := args[2]
			abs, _ := filepath.Abs(dir)
			tmpl, err := readTemplateFile(args[3])
			if err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			l.Info("init working copy", slog.String("root", abs), slog.String("template", tmpl.ID))
			h, err := storage.InitWorkingCopy(abs, domain.NewProject(tmpl))
			if err != nil {
				l.Error("init failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			wc = h
			if err := storage.SaveTemplate(h, tmpl); err != nil {
				l.Error("store template failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			fmt.Println("Created working copy at", abs)
			return
		case "open":
			if len(args) < 3 {
				fmt.Println("open requires <dir>")
				usage()
				os.Exit(2)
			}
			abs, _ := filepath.Abs(args[2])
			l.Info("open working copy", slog.String("root", abs))
			h, err := storage.Open(abs)
			if err != nil {
				l.Error("open failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			wc = h
			fmt.Printf("Template: %s\n", h.Project.TemplateID)
			fmt.Printf("Pages: %d\n", len(h.Project.PageOrder))
			fmt.Printf("Status: %s\n", h.Project.Status)
			fmt.Println("Root:", h.Root)
			return
		case "save":
			if len(args) < 3 {
				fmt.Println("save requires <dir>")
				usage()
				os.Exit(2)
			}
			abs, _ := filepath.Abs(args[2])
			l.Info("save working copy", slog.String("root", abs))
			h, err := storage.Open(abs)
			if err != nil {
				l.Error("open before save failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			wc = h
			if err := storage.Save(h); err != nil {
				l.Error("save failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			if err := storage.SaveSnapshot(context.Background(), h, "manual", time.Now()); err != nil {
				l.Warn("snapshot failed", slog.Any("err", err))
			}
			fmt.Println("Saved working copy and created a backup of the previous manifest (if any).")
			return
		case "login":
			if len(args) < 4 {
				fmt.Println("login requires <email> and <password>")
				usage()
				os.Exit(2)
			}
			cfg, _, err := config.Load()
			if err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			cl := backend.NewClient(cfg.Backend.BaseURL, "")
			if err := cl.Authenticate(context.Background(), args[2], args[3]); err != nil {
				l.Error("login failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			if err := config.Save(cfg, cl.Token); err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			fmt.Println("Logged in. Token stored in the OS keychain.")
			return
		case "preview":
			if len(args) < 4 {
				fmt.Println("preview requires <dir> and <pageID>")
				usage()
				os.Exit(2)
			}
			abs, _ := filepath.Abs(args[2])
			pageID := args[3]
			h, sess, cl, err := openSession(abs)
			if err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			wc = h
			orch := preview.NewOrchestrator(sess, cl, previewVariants)
			variant := orch.VariantIndex(pageID)
			if err := orch.RequestPreviewWait(context.Background(), pageID); err != nil {
				// Render collaborator unreachable: fall back to the cached
				// preview of this variant, if one exists.
				if cached, cerr := storage.GetPreview(context.Background(), abs, pageID, variant); cerr == nil && cached != nil {
					l.Warn("render unavailable, serving cached preview",
						slog.String("page", pageID), slog.Any("err", err))
					fmt.Println("Preview (cached):", cached.URL)
					return
				}
				l.Error("preview failed", slog.String("page", pageID), slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			url, _ := sess.PreviewURL(pageID)
			if err := storage.PutPreview(context.Background(), abs,
				storage.CachedPreview{PageID: pageID, Variant: variant, URL: url}); err != nil {
				l.Warn("preview cache write failed", slog.Any("err", err))
			}
			h.Project = sess.Project()
			if err := storage.Save(h); err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			fmt.Println("Preview:", url)
			return
		case "generate":
			if len(args) < 3 {
				fmt.Println("generate requires <dir>")
				usage()
				os.Exit(2)
			}
			abs, _ := filepath.Abs(args[2])
			h, pipe, sess, err := openPipeline(abs)
			if err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			wc = h
			if err := runGenerate(pipe); err != nil {
				os.Exit(1)
			}
			h.Project = sess.Project()
			if err := storage.Save(h); err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			fmt.Println("Artifact generated. Run 'invitestudio download' to pay and download.")
			return
		case "download":
			if len(args) < 3 {
				fmt.Println("download requires <dir>")
				usage()
				os.Exit(2)
			}
			abs, _ := filepath.Abs(args[2])
			h, pipe, sess, err := openPipeline(abs)
			if err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			wc = h
			if err := runGenerate(pipe); err != nil {
				os.Exit(1)
			}
			url, err := pipe.Download(context.Background())
			if err != nil {
				if errors.Is(err, flow.ErrPaymentRequired) {
					fmt.Println("Payment was declined. The artifact stays available; run download again to retry.")
				} else {
					fmt.Println("Error:", err)
				}
				os.Exit(1)
			}
			h.Project = sess.Project()
			if err := storage.Save(h); err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			fmt.Println("Download:", url)
			return
		case "serve":
			if err := backend.StartServer(); err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			return
		}
	}

	usage()
}

func readTemplateFile(path string) (domain.Template, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return domain.Template{}, fmt.Errorf("read template file: %w", err)
	}
	var t domain.Template
	if err := json.Unmarshal(b, &t); err != nil {
		return domain.Template{}, fmt.Errorf("parse template file: %w", err)
	}
	if len(t.Pages) == 0 {
		return domain.Template{}, errors.New("template holds no pages")
	}
	return t, nil
}

// openSession opens the working copy at root, resumes an editor session over
// its stored template, and builds a backend client from the user config.
func openSession(root string) (*storage.WorkingCopy, *editor.Session, *backend.Client, error) {
	h, err := storage.Open(root)
	if err != nil {
		return nil, nil, nil, err
	}
	tmpl, err := storage.LoadTemplate(root)
	if err != nil {
		return nil, nil, nil, err
	}
	cfg, tok, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	sess, err := editor.ResumeSession(tmpl, h.Project, imaging.New(), editor.WithOutputWidth(cfg.Render.OutputWidth))
	if err != nil {
		return nil, nil, nil, err
	}
	return h, sess, backend.NewClient(cfg.Backend.BaseURL, tok), nil
}

func openPipeline(root string) (*storage.WorkingCopy, *flow.Pipeline, *editor.Session, error) {
	h, sess, cl, err := openSession(root)
	if err != nil {
		return nil, nil, nil, err
	}
	pipe := flow.New(sess, cl, cl, cl, artifactPriceCents)
	pipe.SetAuthenticated(cl.Authenticated())
	return h, pipe, sess, nil
}

func runGenerate(pipe *flow.Pipeline) error {
	if err := pipe.Generate(context.Background()); err != nil {
		if errors.Is(err, flow.ErrAuthRequired) {
			fmt.Println("Not logged in. Run: invitestudio login <email> <password>")
		} else {
			fmt.Println("Error:", err)
		}
		return err
	}
	return nil
}
