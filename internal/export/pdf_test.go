/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"testing"

	"refdock/internal/imagestore"
	"refdock/internal/library"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 7), G: uint8(y * 5), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func newTestLibrary(t *testing.T, imageCount int) (*library.Store, *imagestore.Store, library.FolderID) {
	t.Helper()
	lib, err := library.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = lib.Close() })
	f, err := lib.CreateFolder(context.Background(), "poses")
	if err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}
	store := imagestore.New(lib)
	for i := 0; i < imageCount; i++ {
		if _, err := store.Ingest(context.Background(), f.ID, pngBytes(t, 120+i, 90)); err != nil {
			t.Fatalf("Ingest: %v", err)
		}
	}
	return lib, store, f.ID
}

func checkPDF(t *testing.T, path string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read pdf: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Fatalf("output is not a PDF (starts %q)", data[:min(8, len(data))])
	}
	if len(data) < 500 {
		t.Errorf("suspiciously small PDF: %d bytes", len(data))
	}
}

func TestExportFolderPDF(t *testing.T) {
	lib, store, folder := newTestLibrary(t, 5)

	out, err := ExportFolderPDF(context.Background(), lib, store, folder, "poses.pdf", PDFOptions{})
	if err != nil {
		t.Fatalf("ExportFolderPDF: %v", err)
	}
	if filepath.Dir(out) != lib.ExportsDir() {
		t.Errorf("relative path written to %s, want exports dir", out)
	}
	checkPDF(t, out)
}

func TestExportFolderPDFAbsolutePath(t *testing.T) {
	lib, store, folder := newTestLibrary(t, 1)

	target := filepath.Join(t.TempDir(), "nested", "sheet.pdf")
	out, err := ExportFolderPDF(context.Background(), lib, store, folder, target, PDFOptions{Columns: 2, Title: "Custom"})
	if err != nil {
		t.Fatalf("ExportFolderPDF: %v", err)
	}
	if out != target {
		t.Errorf("out = %s, want %s", out, target)
	}
	checkPDF(t, out)
}

func TestExportEmptyFolder(t *testing.T) {
	lib, store, folder := newTestLibrary(t, 0)

	out, err := ExportFolderPDF(context.Background(), lib, store, folder, "empty.pdf", PDFOptions{})
	if err != nil {
		t.Fatalf("ExportFolderPDF: %v", err)
	}
	checkPDF(t, out)
}

func TestExportMissingFolder(t *testing.T) {
	lib, store, _ := newTestLibrary(t, 0)

	_, err := ExportFolderPDF(context.Background(), lib, store, library.FolderID(999), "x.pdf", PDFOptions{})
	if !errors.Is(err, library.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestManyImagesPaginate(t *testing.T) {
	lib, store, folder := newTestLibrary(t, 14)

	out, err := ExportFolderPDF(context.Background(), lib, store, folder, "many.pdf", PDFOptions{Columns: 3})
	if err != nil {
		t.Fatalf("ExportFolderPDF: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read pdf: %v", err)
	}
	// 14 images at 3 columns per A4 page cannot fit on one page.
	m := regexp.MustCompile(`/Count (\d+)`).FindSubmatch(data)
	if m == nil {
		t.Fatal("no page count in PDF")
	}
	if n, _ := strconv.Atoi(string(m[1])); n < 2 {
		t.Errorf("page count = %d, want at least 2", n)
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
