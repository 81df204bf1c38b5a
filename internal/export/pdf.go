/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package export renders folder contact sheets to PDF so a set of
// references can be printed or shared outside the panel.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"

	"refdock/internal/imagestore"
	"refdock/internal/library"
)

// PDFOptions controls contact-sheet layout. Units are points (pt).
type PDFOptions struct {
	Columns    int     // images per row; 0 means 3
	Margin     float64 // outer page margin; 0 means 36 (half inch)
	Gutter     float64 // spacing between cells; 0 means 12
	CellAspect float64 // cell height/width ratio; 0 means 1 (square cells)
	Title      string  // page header; empty means the folder name
}

// ExportFolderPDF renders the folder's images as a multi-page contact
// sheet. Relative outPath values land in the library's exports folder.
// The written path is returned.
func ExportFolderPDF(ctx context.Context, lib *library.Store, images *imagestore.Store, folder library.FolderID, outPath string, opt PDFOptions) (string, error) {
	f, err := lib.GetFolder(ctx, folder)
	if err != nil {
		return "", err
	}
	imgs, err := lib.ListImages(ctx, folder)
	if err != nil {
		return "", err
	}

	cols := opt.Columns
	if cols <= 0 {
		cols = 3
	}
	margin := opt.Margin
	if margin <= 0 {
		margin = 36
	}
	gutter := opt.Gutter
	if gutter <= 0 {
		gutter = 12
	}
	aspect := opt.CellAspect
	if aspect <= 0 {
		aspect = 1
	}
	title := opt.Title
	if title == "" {
		title = f.Name
	}

	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetAuthor("RefDock", false)
	pdf.SetFont("Helvetica", "", 10)

	pageW, pageH := pdf.GetPageSize()
	headerH := 28.0
	cellW := (pageW - 2*margin - float64(cols-1)*gutter) / float64(cols)
	cellH := cellW * aspect
	rowsPerPage := int((pageH - 2*margin - headerH + gutter) / (cellH + gutter))
	if rowsPerPage < 1 {
		rowsPerPage = 1
	}
	perPage := rowsPerPage * cols

	for i, img := range imgs {
		slot := i % perPage
		if slot == 0 {
			pdf.AddPage()
			pdf.SetFont("Helvetica", "B", 14)
			pdf.Text(margin, margin+12, title)
			pdf.SetFont("Helvetica", "", 10)
		}
		col := slot % cols
		row := slot / cols
		x := margin + float64(col)*(cellW+gutter)
		y := margin + headerH + float64(row)*(cellH+gutter)

		if err := placeImage(pdf, images.OriginalPath(img), img, x, y, cellW, cellH); err != nil {
			return "", fmt.Errorf("place image %d: %w", img.ID, err)
		}
	}
	if len(imgs) == 0 {
		pdf.AddPage()
		pdf.SetFont("Helvetica", "B", 14)
		pdf.Text(margin, margin+12, title)
		pdf.SetFont("Helvetica", "I", 10)
		pdf.Text(margin, margin+headerH+12, "No images in this folder.")
	}

	if !filepath.IsAbs(outPath) {
		outPath = filepath.Join(lib.ExportsDir(), outPath)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", fmt.Errorf("ensure out dir: %w", err)
	}
	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return "", fmt.Errorf("write pdf: %w", err)
	}
	return outPath, nil
}

// placeImage draws the original file letterboxed into the cell, with the
// sort position captioned under it.
func placeImage(pdf *gofpdf.Fpdf, path string, img library.Image, x, y, w, h float64) error {
	imgType := img.Format
	if imgType == "jpeg" {
		imgType = "jpg"
	}
	info := pdf.RegisterImageOptions(path, gofpdf.ImageOptions{ImageType: imgType})
	if pdf.Err() {
		return pdf.Error()
	}

	iw, ih := info.Extent()
	capH := 12.0
	boxH := h - capH
	scale := (w / iw)
	if boxH/ih < scale {
		scale = boxH / ih
	}
	dw, dh := iw*scale, ih*scale
	pdf.ImageOptions(path, x+(w-dw)/2, y+(boxH-dh)/2, dw, dh, false,
		gofpdf.ImageOptions{ImageType: imgType}, 0, "")
	pdf.Text(x, y+h, fmt.Sprintf("#%d  %dx%d", img.SortOrder+1, img.Width, img.Height))
	if pdf.Err() {
		return pdf.Error()
	}
	return nil
}
