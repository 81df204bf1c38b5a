/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package imagestore

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"testing"
	"time"

	"refdock/internal/library"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func newTestStore(t *testing.T) (*Store, *library.Store, library.FolderID) {
	t.Helper()
	lib, err := library.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = lib.Close() })
	f, err := lib.CreateFolder(context.Background(), "refs")
	if err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}
	return New(lib), lib, f.ID
}

func TestIngestStoresOriginalAndThumbnail(t *testing.T) {
	s, lib, folder := newTestStore(t)
	ctx := context.Background()

	rec, err := s.Ingest(ctx, folder, pngBytes(t, 640, 480))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if rec.Format != "png" || rec.Width != 640 || rec.Height != 480 {
		t.Errorf("record = %+v", rec)
	}

	data, err := os.ReadFile(s.OriginalPath(rec))
	if err != nil {
		t.Fatalf("read original: %v", err)
	}
	if !bytes.Equal(data, pngBytes(t, 640, 480)) {
		t.Error("original bytes were re-encoded")
	}

	thumbPath, err := s.Thumbnail(rec)
	if err != nil {
		t.Fatalf("Thumbnail: %v", err)
	}
	tf, err := os.Open(thumbPath)
	if err != nil {
		t.Fatalf("open thumbnail: %v", err)
	}
	defer tf.Close()
	cfg, err := png.DecodeConfig(tf)
	if err != nil {
		t.Fatalf("decode thumbnail: %v", err)
	}
	if cfg.Width != ThumbMaxDim || cfg.Height != ThumbMaxDim*480/640 {
		t.Errorf("thumbnail = %dx%d", cfg.Width, cfg.Height)
	}

	got, err := lib.GetImage(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetImage: %v", err)
	}
	if got.FileName != rec.FileName {
		t.Errorf("file name = %q, want %q", got.FileName, rec.FileName)
	}
}

func TestIngestRejectsGarbage(t *testing.T) {
	s, lib, folder := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Ingest(ctx, folder, []byte("not an image")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("err = %v, want ErrUnsupportedFormat", err)
	}
	imgs, err := lib.ListImages(ctx, folder)
	if err != nil {
		t.Fatalf("ListImages: %v", err)
	}
	if len(imgs) != 0 {
		t.Errorf("rejected paste left %d records", len(imgs))
	}
}

func TestThumbnailRegeneratesWhenMissing(t *testing.T) {
	s, _, folder := newTestStore(t)
	ctx := context.Background()

	rec, err := s.Ingest(ctx, folder, pngBytes(t, 600, 300))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if err := os.Remove(s.ThumbPath(rec.ID)); err != nil {
		t.Fatalf("remove thumbnail: %v", err)
	}
	path, err := s.Thumbnail(rec)
	if err != nil {
		t.Fatalf("Thumbnail: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("thumbnail not regenerated: %v", err)
	}
}

func TestSmallImageThumbnailKeepsSize(t *testing.T) {
	s, _, folder := newTestStore(t)
	rec, err := s.Ingest(context.Background(), folder, pngBytes(t, 40, 30))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	tf, err := os.Open(s.ThumbPath(rec.ID))
	if err != nil {
		t.Fatalf("open thumbnail: %v", err)
	}
	defer tf.Close()
	cfg, err := png.DecodeConfig(tf)
	if err != nil {
		t.Fatalf("decode thumbnail: %v", err)
	}
	if cfg.Width != 40 || cfg.Height != 30 {
		t.Errorf("thumbnail = %dx%d, want 40x30", cfg.Width, cfg.Height)
	}
}

func TestRemoveDeletesFiles(t *testing.T) {
	s, _, folder := newTestStore(t)
	rec, err := s.Ingest(context.Background(), folder, pngBytes(t, 100, 100))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	s.Remove(rec)
	if _, err := os.Stat(s.OriginalPath(rec)); !os.IsNotExist(err) {
		t.Errorf("original still present: %v", err)
	}
	if _, err := os.Stat(s.ThumbPath(rec.ID)); !os.IsNotExist(err) {
		t.Errorf("thumbnail still present: %v", err)
	}
}

func TestIngestPrunesWhenOverBudget(t *testing.T) {
	s, _, folder := newTestStore(t)
	ctx := context.Background()

	first, err := s.Ingest(ctx, folder, pngBytes(t, 500, 500))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	firstThumb := s.ThumbPath(first.ID)
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(firstThumb, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	info, err := os.Stat(firstThumb)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}

	// Budget holds one thumbnail, so the second ingest evicts the first.
	s.CacheBudget = info.Size()
	second, err := s.Ingest(ctx, folder, pngBytes(t, 500, 500))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if _, err := os.Stat(firstThumb); !os.IsNotExist(err) {
		t.Errorf("oldest thumbnail survived budgeted ingest")
	}
	if _, err := os.Stat(s.ThumbPath(second.ID)); err != nil {
		t.Errorf("fresh thumbnail evicted: %v", err)
	}
}

func TestPruneThumbsEvictsOldest(t *testing.T) {
	s, _, folder := newTestStore(t)
	ctx := context.Background()

	var recs []struct {
		id   int64
		path string
	}
	for i := 0; i < 3; i++ {
		rec, err := s.Ingest(ctx, folder, pngBytes(t, 500, 500))
		if err != nil {
			t.Fatalf("Ingest: %v", err)
		}
		path := s.ThumbPath(rec.ID)
		// Spread modification times so eviction order is stable.
		mt := time.Now().Add(time.Duration(i-3) * time.Hour)
		if err := os.Chtimes(path, mt, mt); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
		recs = append(recs, struct {
			id   int64
			path string
		}{int64(rec.ID), path})
	}

	info, err := os.Stat(recs[2].path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	// Budget for one thumbnail only: the two oldest must go.
	if err := s.PruneThumbs(info.Size()); err != nil {
		t.Fatalf("PruneThumbs: %v", err)
	}
	if _, err := os.Stat(recs[0].path); !os.IsNotExist(err) {
		t.Errorf("oldest thumbnail survived pruning")
	}
	if _, err := os.Stat(recs[1].path); !os.IsNotExist(err) {
		t.Errorf("second-oldest thumbnail survived pruning")
	}
	if _, err := os.Stat(recs[2].path); err != nil {
		t.Errorf("newest thumbnail evicted: %v", err)
	}
}
