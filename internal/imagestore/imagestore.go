/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package imagestore writes pasted image bytes into the library's images
// directory and maintains a PNG thumbnail cache for the folder grid.
package imagestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	xdraw "golang.org/x/image/draw"

	"refdock/internal/library"
	applog "refdock/internal/log"
)

// ThumbMaxDim is the bounding box edge for cached thumbnails.
const ThumbMaxDim = 256

// ErrUnsupportedFormat is returned when the pasted bytes are not a
// decodable PNG, JPEG, or GIF.
var ErrUnsupportedFormat = errors.New("imagestore: unsupported image format")

// Store ingests image bytes for one open library.
type Store struct {
	lib *library.Store
	log *slog.Logger

	// CacheBudget caps the thumbnail cache in bytes. Ingest prunes the
	// oldest thumbnails past the cap. Zero leaves the cache unbounded.
	CacheBudget int64
}

// New returns a store writing into the given library.
func New(lib *library.Store) *Store {
	return &Store{lib: lib, log: applog.WithComponent("imagestore")}
}

// Ingest decodes the bytes, writes the original file under the images
// directory, records it in the folder, and caches a thumbnail. The raw
// bytes are stored untouched so nothing is lost to re-encoding.
func (s *Store) Ingest(ctx context.Context, folder library.FolderID, data []byte) (library.Image, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return library.Image{}, ErrUnsupportedFormat
	}
	switch format {
	case "png", "jpeg", "gif":
	default:
		return library.Image{}, ErrUnsupportedFormat
	}

	rec, err := s.lib.AddImage(ctx, folder, "pending", format, cfg.Width, cfg.Height)
	if err != nil {
		return library.Image{}, err
	}
	name := fmt.Sprintf("%d.%s", rec.ID, extFor(format))
	path := filepath.Join(s.lib.ImagesDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		_, _ = s.lib.DeleteImage(ctx, rec.ID)
		return library.Image{}, fmt.Errorf("write image file: %w", err)
	}
	if err := s.lib.SetImageFileName(ctx, rec.ID, name); err != nil {
		_ = os.Remove(path)
		_, _ = s.lib.DeleteImage(ctx, rec.ID)
		return library.Image{}, err
	}
	rec.FileName = name

	if err := s.refreshThumbnail(rec, data); err != nil {
		// Thumbnails are a cache; the grid regenerates on demand.
		s.log.Warn("thumbnail generation failed",
			slog.Int64("image", int64(rec.ID)), slog.Any("err", err))
	}
	if s.CacheBudget > 0 {
		if err := s.PruneThumbs(s.CacheBudget); err != nil {
			s.log.Warn("thumbnail prune failed", slog.Any("err", err))
		}
	}
	s.log.Info("image ingested",
		slog.Int64("image", int64(rec.ID)),
		slog.String("format", format),
		slog.Int("w", cfg.Width), slog.Int("h", cfg.Height))
	return rec, nil
}

// OriginalPath returns the path of the stored original file.
func (s *Store) OriginalPath(img library.Image) string {
	return filepath.Join(s.lib.ImagesDir(), img.FileName)
}

// ThumbPath returns the cached thumbnail path for an image.
func (s *Store) ThumbPath(id library.ImageID) string {
	return filepath.Join(s.lib.ThumbsDir(), fmt.Sprintf("%d.png", id))
}

// Thumbnail returns the thumbnail file path, regenerating the cache
// entry from the original when missing.
func (s *Store) Thumbnail(img library.Image) (string, error) {
	path := s.ThumbPath(img.ID)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	data, err := os.ReadFile(s.OriginalPath(img))
	if err != nil {
		return "", fmt.Errorf("read original: %w", err)
	}
	if err := s.refreshThumbnail(img, data); err != nil {
		return "", err
	}
	return path, nil
}

// Remove deletes the original file and thumbnail for a removed record.
func (s *Store) Remove(img library.Image) {
	if img.FileName != "" {
		if err := os.Remove(s.OriginalPath(img)); err != nil && !os.IsNotExist(err) {
			s.log.Warn("remove image file failed", slog.Any("err", err))
		}
	}
	if err := os.Remove(s.ThumbPath(img.ID)); err != nil && !os.IsNotExist(err) {
		s.log.Warn("remove thumbnail failed", slog.Any("err", err))
	}
}

// PruneThumbs deletes oldest thumbnails until the cache is at most
// maxBytes. A zero or negative limit clears nothing.
func (s *Store) PruneThumbs(maxBytes int64) error {
	if maxBytes <= 0 {
		return nil
	}
	entries, err := os.ReadDir(s.lib.ThumbsDir())
	if err != nil {
		return fmt.Errorf("read thumbs dir: %w", err)
	}
	type thumb struct {
		path  string
		size  int64
		mtime int64
	}
	var thumbs []thumb
	var total int64
	for _, e := range entries {
		info, err := e.Info()
		if err != nil || info.IsDir() {
			continue
		}
		thumbs = append(thumbs, thumb{
			path:  filepath.Join(s.lib.ThumbsDir(), e.Name()),
			size:  info.Size(),
			mtime: info.ModTime().UnixNano(),
		})
		total += info.Size()
	}
	sort.Slice(thumbs, func(i, j int) bool { return thumbs[i].mtime < thumbs[j].mtime })
	for _, th := range thumbs {
		if total <= maxBytes {
			break
		}
		if err := os.Remove(th.path); err != nil {
			s.log.Warn("prune thumbnail failed", slog.Any("err", err))
			continue
		}
		total -= th.size
	}
	return nil
}

func (s *Store) refreshThumbnail(img library.Image, data []byte) error {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decode for thumbnail: %w", err)
	}
	dst := scaleToFit(src, ThumbMaxDim)
	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return fmt.Errorf("encode thumbnail: %w", err)
	}
	if err := os.WriteFile(s.ThumbPath(img.ID), buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write thumbnail: %w", err)
	}
	return nil
}

// scaleToFit shrinks src to fit a maxDim bounding box, preserving aspect
// ratio. Images already within bounds pass through unscaled.
func scaleToFit(src image.Image, maxDim int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxDim && h <= maxDim {
		return src
	}
	var nw, nh int
	if w >= h {
		nw = maxDim
		nh = h * maxDim / w
	} else {
		nh = maxDim
		nw = w * maxDim / h
	}
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Over, nil)
	return dst
}

func extFor(format string) string {
	if format == "jpeg" {
		return "jpg"
	}
	return format
}
