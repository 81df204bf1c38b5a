/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package library persists reference folders and images in an embedded
// SQLite database under the library root. The panel core only consumes
// the opaque FolderID/ImageID identities; everything else here serves the
// content views and ingestion paths.
package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	applog "refdock/internal/log"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	// LibraryDirName holds the embedded database and manifest backups
	// under the library root.
	LibraryDirName = ".refdock"
	DBFileName     = "library.sqlite"

	ManifestFileName = "library.json"
	BackupsDirName   = "backups"
	ImagesDirName    = "images"
	ThumbsDirName    = "thumbs"
	ExportsDirName   = "exports"

	// schemaVersion tracks the embedded SQLite schema. Bump on breaking
	// changes and add a migration in ensureSchema.
	schemaVersion = 1
)

var standardSubDirs = []string{ImagesDirName, ThumbsDirName, ExportsDirName, BackupsDirName}

// FolderID identifies a folder. The panel core compares these for
// equality only.
type FolderID int64

// ImageID identifies a stored image.
type ImageID int64

// Folder is a named, ordered collection of reference images.
type Folder struct {
	ID        FolderID
	Name      string
	SortOrder int
	CreatedAt time.Time
}

// Image is one stored reference image. FileName is relative to the
// library's images directory.
type Image struct {
	ID        ImageID
	FolderID  FolderID
	FileName  string
	Format    string
	Width     int
	Height    int
	SortOrder int
	CreatedAt time.Time
}

// Store is the handle to an open library.
type Store struct {
	Root string
	db   *sql.DB
	log  *slog.Logger
}

// DBPath returns the full path of the library database file.
func DBPath(root string) string {
	return filepath.Join(root, LibraryDirName, DBFileName)
}

// Open creates or opens the library at root: scaffolds the standard
// subfolders, opens the database in WAL mode, applies the schema, and
// writes the manifest when missing.
func Open(root string) (*Store, error) {
	l := applog.WithOperation(applog.WithComponent("library"), "open").With(
		slog.String("root", root),
	)
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("library root is required")
	}
	for _, d := range append([]string{LibraryDirName}, standardSubDirs...) {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			return nil, fmt.Errorf("create subdir %s: %w", d, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(DBPath(root)))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Embedded single-user usage: one connection avoids writer contention.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := ensureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{Root: root, db: db, log: applog.WithComponent("library")}
	if err := s.ensureManifest(); err != nil {
		_ = db.Close()
		return nil, err
	}
	l.Info("library opened")
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// ImagesDir returns the directory holding the original image files.
func (s *Store) ImagesDir() string { return filepath.Join(s.Root, ImagesDirName) }

// ThumbsDir returns the directory holding cached thumbnails.
func (s *Store) ThumbsDir() string { return filepath.Join(s.Root, ThumbsDirName) }

// ExportsDir returns the directory receiving contact-sheet exports.
func (s *Store) ExportsDir() string { return filepath.Join(s.Root, ExportsDirName) }

func ensureSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS folders (
			id         INTEGER PRIMARY KEY,
			name       TEXT    NOT NULL,
			sort_order INTEGER NOT NULL DEFAULT 0,
			created_at TEXT    NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS images (
			id         INTEGER PRIMARY KEY,
			folder_id  INTEGER NOT NULL REFERENCES folders(id) ON DELETE CASCADE,
			file_name  TEXT    NOT NULL,
			format     TEXT    NOT NULL,
			w          INTEGER NOT NULL DEFAULT 0,
			h          INTEGER NOT NULL DEFAULT 0,
			sort_order INTEGER NOT NULL DEFAULT 0,
			created_at TEXT    NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_images_folder ON images(folder_id, sort_order);`,
	}
	for _, q := range stmts {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	// Record the schema version for future migrations.
	_, err := db.ExecContext(ctx,
		`INSERT INTO meta(key, value) VALUES('schema_version', ?)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value`,
		fmt.Sprintf("%d", schemaVersion))
	if err != nil {
		return fmt.Errorf("write schema version: %w", err)
	}
	return nil
}
