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
	"time"
)

// AddImage records a stored image file at the end of the folder's
// ordering. The file itself is written by the imagestore beforehand.
func (s *Store) AddImage(ctx context.Context, folder FolderID, fileName, format string, w, h int) (Image, error) {
	if fileName == "" {
		return Image{}, errors.New("image file name is required")
	}
	if _, err := s.GetFolder(ctx, folder); err != nil {
		return Image{}, err
	}
	now := time.Now().UTC()
	var next int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sort_order)+1, 0) FROM images WHERE folder_id=?`, int64(folder)).Scan(&next); err != nil {
		return Image{}, fmt.Errorf("next sort order: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO images(folder_id, file_name, format, w, h, sort_order, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?)`,
		int64(folder), fileName, format, w, h, next, now.Format(time.RFC3339Nano))
	if err != nil {
		return Image{}, fmt.Errorf("insert image: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Image{}, fmt.Errorf("image id: %w", err)
	}
	return Image{
		ID: ImageID(id), FolderID: folder, FileName: fileName, Format: format,
		Width: w, Height: h, SortOrder: next, CreatedAt: now,
	}, nil
}

// SetImageFileName records the final on-disk name once the file has
// been written by the imagestore.
func (s *Store) SetImageFileName(ctx context.Context, id ImageID, fileName string) error {
	if fileName == "" {
		return errors.New("image file name is required")
	}
	res, err := s.db.ExecContext(ctx, `UPDATE images SET file_name=? WHERE id=?`, fileName, int64(id))
	if err != nil {
		return fmt.Errorf("set image file name: %w", err)
	}
	return requireRow(res)
}

// GetImage loads one image record by id.
func (s *Store) GetImage(ctx context.Context, id ImageID) (Image, error) {
	var img Image
	var created string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, folder_id, file_name, format, w, h, sort_order, created_at
		 FROM images WHERE id=?`, int64(id)).
		Scan(&img.ID, &img.FolderID, &img.FileName, &img.Format, &img.Width, &img.Height, &img.SortOrder, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Image{}, ErrNotFound
	}
	if err != nil {
		return Image{}, fmt.Errorf("get image: %w", err)
	}
	img.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	return img, nil
}

// DeleteImage removes the record and returns it so the caller can delete
// the backing file. Callers must vacate any panel reference first.
func (s *Store) DeleteImage(ctx context.Context, id ImageID) (Image, error) {
	img, err := s.GetImage(ctx, id)
	if err != nil {
		return Image{}, err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM images WHERE id=?`, int64(id)); err != nil {
		return Image{}, fmt.Errorf("delete image: %w", err)
	}
	return img, nil
}

// MoveImage reassigns the image to another folder, appending it at the
// end of the destination's ordering.
func (s *Store) MoveImage(ctx context.Context, id ImageID, dest FolderID) error {
	if _, err := s.GetFolder(ctx, dest); err != nil {
		return err
	}
	var next int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sort_order)+1, 0) FROM images WHERE folder_id=?`, int64(dest)).Scan(&next); err != nil {
		return fmt.Errorf("next sort order: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE images SET folder_id=?, sort_order=? WHERE id=?`, int64(dest), next, int64(id))
	if err != nil {
		return fmt.Errorf("move image: %w", err)
	}
	return requireRow(res)
}

// ReorderImage moves the image to position newIndex within its folder
// (clamped) and renumbers the folder densely.
func (s *Store) ReorderImage(ctx context.Context, id ImageID, newIndex int) error {
	img, err := s.GetImage(ctx, id)
	if err != nil {
		return err
	}
	imgs, err := s.ListImages(ctx, img.FolderID)
	if err != nil {
		return err
	}
	ids := make([]ImageID, 0, len(imgs))
	cur := -1
	for i, im := range imgs {
		ids = append(ids, im.ID)
		if im.ID == id {
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
	ids = append(ids[:newIndex], append([]ImageID{id}, ids[newIndex:]...)...)
	return s.renumber(ctx, "images", func(i int) int64 { return int64(ids[i]) }, len(ids))
}

// ListImages returns the folder's images in display order.
func (s *Store) ListImages(ctx context.Context, folder FolderID) ([]Image, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, folder_id, file_name, format, w, h, sort_order, created_at
		 FROM images WHERE folder_id=? ORDER BY sort_order, id`, int64(folder))
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	defer rows.Close()
	var out []Image
	for rows.Next() {
		var img Image
		var created string
		if err := rows.Scan(&img.ID, &img.FolderID, &img.FileName, &img.Format, &img.Width, &img.Height, &img.SortOrder, &created); err != nil {
			return nil, err
		}
		img.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, img)
	}
	return out, rows.Err()
}
