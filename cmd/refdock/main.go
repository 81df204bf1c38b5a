/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"refdock/internal/config"
	"refdock/internal/crash"
	"refdock/internal/export"
	"refdock/internal/imagestore"
	"refdock/internal/library"
	applog "refdock/internal/log"
	"refdock/internal/share"
	"refdock/internal/ui"
	"refdock/internal/version"
)

func usage() {
	fmt.Println("RefDock — floating reference panel")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  refdock version|-v|--version          Show version")
	fmt.Println("  refdock init <dir>                     Create a new library at <dir>")
	fmt.Println("  refdock open <dir>                     Open library at <dir> and print summary")
	fmt.Println("  refdock export <dir> <folder> <out>    Export a folder contact sheet PDF")
	fmt.Println("  refdock publish <dir> <folder>         Publish a folder to the share server")
	fmt.Println("  refdock ui [<dir>]                     Launch the panel (build with -tags fyne for full UI)")
	fmt.Println("  refdock serve                          Run the share server (Postgres-backed)")
}

func main() {
	// initialize structured logging using environment defaults
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("cli")
	var lib *library.Store
	defer func() { crash.Recover(lib) }()

	args := os.Args
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) > 1 {
		switch args[1] {
		case "version", "--version", "-v":
			fmt.Println("RefDock — floating reference panel")
			fmt.Println(version.String())
			return
		case "init":
			if len(args) < 3 {
				fmt.Println("init requires <dir>")
				usage()
				os.Exit(2)
			}
			abs, _ := filepath.Abs(args[2])
			l.Info("init library", slog.String("root", abs))
			s, err := library.Open(abs)
			if err != nil {
				l.Error("init failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			lib = s
			fmt.Println("Created library at", abs)
			return
		case "open":
			if len(args) < 3 {
				fmt.Println("open requires <dir>")
				usage()
				os.Exit(2)
			}
			abs, _ := filepath.Abs(args[2])
			l.Info("open library", slog.String("root", abs))
			s, err := library.Open(abs)
			if err != nil {
				l.Error("open failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			lib = s
			m, err := s.ReadManifest()
			if err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			folders, err := s.ListFolders(context.Background())
			if err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			fmt.Printf("Opened library: %s\n", m.Name)
			fmt.Printf("Folders: %d\n", len(folders))
			fmt.Println("Root:", s.Root)
			return
		case "export":
			if len(args) < 5 {
				fmt.Println("export requires <dir> <folder> <out>")
				usage()
				os.Exit(2)
			}
			abs, _ := filepath.Abs(args[2])
			s, err := library.Open(abs)
			if err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			lib = s
			ctx := context.Background()
			target, err := findFolder(ctx, s, args[3])
			if err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			out, err := export.ExportFolderPDF(ctx, s, imagestore.New(s), target, args[4], export.PDFOptions{})
			if err != nil {
				l.Error("export failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			fmt.Println("Exported", out)
			return
		case "publish":
			if len(args) < 4 {
				fmt.Println("publish requires <dir> <folder>")
				usage()
				os.Exit(2)
			}
			abs, _ := filepath.Abs(args[2])
			s, err := library.Open(abs)
			if err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			lib = s
			if err := publishFolder(s, args[3]); err != nil {
				l.Error("publish failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			return
		case "ui":
			var dir string
			if len(args) >= 3 {
				dir = args[2]
			}
			if err := ui.Run(dir); err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			return
		case "serve":
			l.Info("starting share server")
			if err := share.StartServer(); err != nil {
				l.Error("server failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			return
		}
	}

	usage()
}

// publishFolder uploads a folder snapshot to the configured share
// server, requesting a token and keeping it in the keychain when none
// is stored yet.
func publishFolder(s *library.Store, folderName string) error {
	cfg, token, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Share.BaseURL == "" {
		return fmt.Errorf("no share server configured")
	}
	ctx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Share.TimeoutMs)*time.Millisecond)
	defer cancel()

	id, err := findFolder(ctx, s, folderName)
	if err != nil {
		return err
	}
	folder, err := s.GetFolder(ctx, id)
	if err != nil {
		return err
	}
	imgs, err := s.ListImages(ctx, id)
	if err != nil {
		return err
	}

	c := share.NewClient(cfg.Share.BaseURL, token)
	if c.Token == "" {
		u, _ := user.Current()
		subject := "refdock"
		if u != nil && u.Username != "" {
			subject = u.Username
		}
		tok, err := c.RequestToken(ctx, subject)
		if err != nil {
			return err
		}
		if err := share.StoreToken(tok); err != nil {
			fmt.Println("Warning: token not stored:", err)
		}
	}
	pub, err := c.Publish(ctx, folder.Name, share.SnapshotImages(imgs))
	if err != nil {
		return err
	}
	fmt.Printf("Published %s v%d (%d images)\n", pub.Name, pub.Version, len(imgs))
	return nil
}

// findFolder resolves a folder by exact name.
func findFolder(ctx context.Context, s *library.Store, name string) (library.FolderID, error) {
	folders, err := s.ListFolders(ctx)
	if err != nil {
		return 0, err
	}
	for _, f := range folders {
		if f.Name == name {
			return f.ID, nil
		}
	}
	return 0, fmt.Errorf("no folder named %q", name)
}
