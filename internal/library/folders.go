/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned when a folder or image id does not exist.
var ErrNotFound = errors.New("library: not found")

// CreateFolder appends a new folder at the end of the ordering.
func (s *Store) CreateFolder(ctx context.Context, name string) (Folder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Folder{}, errors.New("folder name is required")
	}
	now := time.Now().UTC()
	var next int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sort_order)+1, 0) FROM folders`).Scan(&next); err != nil {
		return Folder{}, fmt.Errorf("next sort order: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO folders(name, sort_order, created_at) VALUES(?, ?, ?)`,
		name, next, now.Format(time.RFC3339Nano))
	if err != nil {
		return Folder{}, fmt.Errorf("insert folder: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Folder{}, fmt.Errorf("folder id: %w", err)
	}
	return Folder{ID: FolderID(id), Name: name, SortOrder: next, CreatedAt: now}, nil
}

// RenameFolder updates the folder's display name.
func (s *Store) RenameFolder(ctx context.Context, id FolderID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("folder name is required")
	}
	res, err := s.db.ExecContext(ctx, `UPDATE folders SET name=? WHERE id=?`, name, int64(id))
	if err != nil {
		return fmt.Errorf("rename folder: %w", err)
	}
	return requireRow(res)
}

// DeleteFolder removes the folder and, via cascade, its image rows. The
// removed image records are returned so the caller can delete the backing
// files. Callers must vacate any panel reference to the folder first.
func (s *Store) DeleteFolder(ctx context.Context, id FolderID) ([]Image, error) {
	removed, err := s.ListImages(ctx, id)
	if err != nil {
		return nil, err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM folders WHERE id=?`, int64(id))
	if err != nil {
		return nil, fmt.Errorf("delete folder: %w", err)
	}
	if err := requireRow(res); err != nil {
		return nil, err
	}
	return removed, nil
}

// ReorderFolder moves the folder to position newIndex (clamped) and
// renumbers the remaining folders densely.
func (s *Store) ReorderFolder(ctx context.Context, id FolderID, newIndex int) error {
	folders, err := s.ListFolders(ctx)
	if err != nil {
		return err
	}
	ids := make([]FolderID, 0, len(folders))
	cur := -1
	for i, f := range folders {
		ids = append(ids, f.ID)
		if f.ID == id {
			cur = i
		}
	}
	if cur < 0 {
		return ErrNotFound
	}
	if newIndex < 0 {
		newIndex = 0
	}
	if newIndex >= len(ids) {
		newIndex = len(ids) - 1
	}
	ids = append(ids[:cur], ids[cur+1:]...)
	ids = append(ids[:newIndex], append([]FolderID{id}, ids[newIndex:]...)...)
	return s.renumber(ctx, "folders", func(i int) int64 { return int64(ids[i]) }, len(ids))
}

// ListFolders returns all folders in display order.
func (s *Store) ListFolders(ctx context.Context) ([]Folder, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, sort_order, created_at FROM folders ORDER BY sort_order, id`)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	defer rows.Close()
	var out []Folder
	for rows.Next() {
		var f Folder
		var created string
		if err := rows.Scan(&f.ID, &f.Name, &f.SortOrder, &created); err != nil {
			return nil, err
		}
		f.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, f)
	}
	return out, rows.Err()
}

// GetFolder loads one folder by id.
func (s *Store) GetFolder(ctx context.Context, id FolderID) (Folder, error) {
	var f Folder
	var created string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, sort_order, created_at FROM folders WHERE id=?`, int64(id)).
		Scan(&f.ID, &f.Name, &f.SortOrder, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Folder{}, ErrNotFound
	}
	if err != nil {
		return Folder{}, fmt.Errorf("get folder: %w", err)
	}
	f.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	return f, nil
}

// renumber writes dense sort_order values 0..n-1 in one transaction.
func (s *Store) renumber(ctx context.Context, table string, idAt func(int) int64, n int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin renumber: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	for i := 0; i < n; i++ {
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf(`UPDATE %s SET sort_order=? WHERE id=?`, table), i, idAt(i)); err != nil {
			return fmt.Errorf("renumber %s: %w", table, err)
		}
	}
	return tx.Commit()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
