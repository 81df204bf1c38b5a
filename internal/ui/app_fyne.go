//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"refdock/internal/clipboard"
	"refdock/internal/config"
	"refdock/internal/crash"
	"refdock/internal/export"
	"refdock/internal/geom"
	"refdock/internal/imagestore"
	"refdock/internal/library"
	applog "refdock/internal/log"
	"refdock/internal/panel"
	"refdock/internal/share"
	"refdock/internal/telemetry"
)

// Run starts the Fyne-based floating panel. libraryPath overrides the
// configured library location when non-empty.
func Run(libraryPath string) error {
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("ui")
	l.Info("starting panel UI")
	telemetry.InitDefault()

	cfg, shareToken, err := config.Load()
	if err != nil {
		return err
	}
	root := libraryPath
	if root == "" {
		root = cfg.General.LibraryPath
	}
	if root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve home dir: %w", err)
		}
		root = filepath.Join(home, "RefDock")
	}
	lib, err := library.Open(root)
	if err != nil {
		return err
	}
	defer func() { crash.Recover(lib) }()
	defer lib.Close()
	images := imagestore.New(lib)
	if cfg.General.ThumbCacheMB > 0 {
		images.CacheBudget = int64(cfg.General.ThumbCacheMB) << 20
		if err := images.PruneThumbs(images.CacheBudget); err != nil {
			l.Warn("thumbnail prune failed", slog.Any("err", err))
		}
	}

	fyneApp := app.NewWithID("refdock")
	w := fyneApp.NewWindow("RefDock")
	w.SetFixedSize(true)

	win := newFyneWindow(w)
	model := panel.NewModel(edgeFromString(cfg.Panel.DockedEdge), float32(cfg.Panel.DockedY))
	metrics := panel.DefaultMetrics()
	ctrl := panel.NewController(model, metrics, win)

	drag := panel.NewDragHandler(model, win, metrics)
	if cfg.Panel.HoldDelayMs > 0 {
		drag.HoldDelay = time.Duration(cfg.Panel.HoldDelayMs) * time.Millisecond
	}
	drag.OnTap = model.Toggle

	ui := &panelUI{
		app:        fyneApp,
		win:        w,
		model:      model,
		ctrl:       ctrl,
		drag:       drag,
		lib:        lib,
		images:     images,
		cfg:        cfg,
		shareToken: shareToken,
		log:        l,
		content:    container.NewStack(),
	}
	w.SetContent(ui.content)

	// Mirror transitions into telemetry and persist the dock position.
	prev := model.State()
	model.Subscribe(func() {
		cur := model.State()
		if cur != prev {
			telemetry.PanelTransition(prev.Tag().String(), cur.Tag().String())
			prev = cur
		}
		ui.refresh()
		ui.persistPosition()
	})

	// Capture images copied while a folder is open. The Fyne clipboard
	// is text-only, so file paths to images are the capture vehicle.
	// The poller runs on its own goroutine; the core assumes a single
	// writer, so reads and handler calls are marshaled via fyne.Do.
	poller := clipboard.NewPoller(clipboard.ReaderFunc(func() ([]byte, bool) {
		return readClipboardImage(w)
	}), clipboard.DefaultInterval, ui.pasteImage)
	poller.Dispatch = fyne.Do
	model.Subscribe(func() {
		_, open := model.State().Folder()
		poller.SetEnabled(open)
	})
	pollCtx, cancelPoll := context.WithCancel(context.Background())
	defer cancelPoll()
	go poller.Run(pollCtx)

	lc := fyneApp.Lifecycle()
	lc.SetOnEnteredForeground(func() { ctrl.SetWindowActive(true) })
	lc.SetOnExitedForeground(func() { ctrl.SetWindowActive(false) })

	if desk, ok := fyneApp.(desktop.App); ok {
		desk.SetSystemTrayMenu(fyne.NewMenu("RefDock",
			fyne.NewMenuItem("Toggle Panel", func() { ctrl.TogglePanel() }),
			fyne.NewMenuItem("Collapse", func() { model.Collapse() }),
			fyne.NewMenuItemSeparator(),
			fyne.NewMenuItem("Switch Edge", func() {
				if model.DockedEdge() == panel.EdgeRight {
					model.SetDockedEdge(panel.EdgeLeft)
				} else {
					model.SetDockedEdge(panel.EdgeRight)
				}
			}),
			fyne.NewMenuItemSeparator(),
			fyne.NewMenuItem("Quit", func() { fyneApp.Quit() }),
		))
	}

	ui.refresh()
	ctrl.ShowPanel()
	w.ShowAndRun()
	ui.persistPosition()
	return nil
}

func edgeFromString(s string) panel.DockedEdge {
	if strings.EqualFold(s, "left") {
		return panel.EdgeLeft
	}
	return panel.EdgeRight
}

func edgeToString(e panel.DockedEdge) string {
	if e == panel.EdgeLeft {
		return "left"
	}
	return "right"
}

// panelUI owns the content swap between panel states.
type panelUI struct {
	app        fyne.App
	win        fyne.Window
	model      *panel.Model
	ctrl       *panel.Controller
	drag       *panel.DragHandler
	lib        *library.Store
	images     *imagestore.Store
	cfg        config.AppConfig
	shareToken string
	log        *slog.Logger
	content    *fyne.Container
}

func (u *panelUI) refresh() {
	st := u.model.State()
	var view fyne.CanvasObject
	switch st.Tag() {
	case panel.TagCollapsed:
		view = u.collapsedView()
	case panel.TagFolderList:
		view = u.folderListView()
	case panel.TagFolderOpen:
		id, _ := st.Folder()
		view = u.folderView(id)
	case panel.TagImageFocused:
		id, _ := st.Image()
		view = u.focusedView(id)
	}
	u.content.Objects = []fyne.CanvasObject{view}
	u.content.Refresh()
}

func (u *panelUI) persistPosition() {
	u.cfg.Panel.DockedEdge = edgeToString(u.model.DockedEdge())
	u.cfg.Panel.DockedY = float64(u.model.YFromTop())
	if err := config.Save(u.cfg, ""); err != nil {
		u.log.Warn("persist panel position failed", slog.Any("err", err))
	}
}

func (u *panelUI) collapsedView() fyne.CanvasObject {
	return newGrip(u.drag)
}

func (u *panelUI) folderListView() fyne.CanvasObject {
	folders, err := u.lib.ListFolders(context.Background())
	if err != nil {
		u.log.Error("list folders failed", slog.Any("err", err))
	}
	list := widget.NewList(
		func() int { return len(folders) },
		func() fyne.CanvasObject { return widget.NewLabel("folder") },
		func(i widget.ListItemID, o fyne.CanvasObject) {
			o.(*widget.Label).SetText(folders[i].Name)
		},
	)
	list.OnSelected = func(i widget.ListItemID) {
		u.model.OpenFolder(folders[i].ID)
	}
	add := widget.NewButton("New Folder", func() {
		entry := widget.NewEntry()
		dialog.ShowForm("New Folder", "Create", "Cancel",
			[]*widget.FormItem{widget.NewFormItem("Name", entry)},
			func(ok bool) {
				if !ok {
					return
				}
				if _, err := u.lib.CreateFolder(context.Background(), entry.Text); err != nil {
					dialog.ShowError(err, u.win)
					return
				}
				u.refresh()
			}, u.win)
	})
	header := container.NewBorder(nil, nil, newGrip(u.drag), widget.NewButton("×", u.model.GoBack))
	return container.NewBorder(header, add, nil, nil, list)
}

func (u *panelUI) folderView(id library.FolderID) fyne.CanvasObject {
	ctx := context.Background()
	folder, err := u.lib.GetFolder(ctx, id)
	if err != nil {
		u.log.Error("get folder failed", slog.Any("err", err))
		u.model.GoBack()
		return widget.NewLabel("folder missing")
	}
	imgs, err := u.lib.ListImages(ctx, id)
	if err != nil {
		u.log.Error("list images failed", slog.Any("err", err))
	}

	cells := make([]fyne.CanvasObject, 0, len(imgs))
	for _, img := range imgs {
		img := img
		path, err := u.images.Thumbnail(img)
		if err != nil {
			u.log.Warn("thumbnail failed", slog.Int64("image", int64(img.ID)), slog.Any("err", err))
			continue
		}
		thumb := canvas.NewImageFromFile(path)
		thumb.FillMode = canvas.ImageFillContain
		thumb.SetMinSize(fyne.NewSize(96, 96))
		btn := widget.NewButton("", func() { u.model.FocusImage(img.ID) })
		btn.Importance = widget.LowImportance
		cells = append(cells, container.NewStack(thumb, btn))
	}
	grid := container.NewVScroll(container.NewGridWrap(fyne.NewSize(100, 100), cells...))

	back := widget.NewButton("‹", u.model.GoBack)
	exportBtn := widget.NewButton("Export PDF", func() {
		name := fmt.Sprintf("%s.pdf", folder.Name)
		out, err := export.ExportFolderPDF(ctx, u.lib, u.images, id, name, export.PDFOptions{})
		if err != nil {
			dialog.ShowError(err, u.win)
			return
		}
		dialog.ShowInformation("Exported", out, u.win)
	})
	actions := container.NewHBox(exportBtn)
	if u.cfg.Share.BaseURL != "" {
		actions.Add(widget.NewButton("Publish", func() {
			u.publishFolder(folder, imgs)
		}))
	}
	header := container.NewBorder(nil, nil,
		container.NewHBox(newGrip(u.drag), back), actions,
		widget.NewLabelWithStyle(folder.Name, fyne.TextAlignCenter, fyne.TextStyle{Bold: true}))
	hint := widget.NewLabelWithStyle("Copy an image file path to add it here",
		fyne.TextAlignCenter, fyne.TextStyle{Italic: true})
	return container.NewBorder(header, hint, nil, nil, grid)
}

func (u *panelUI) focusedView(id library.ImageID) fyne.CanvasObject {
	img, err := u.lib.GetImage(context.Background(), id)
	if err != nil {
		u.log.Error("get image failed", slog.Any("err", err))
		u.model.GoBack()
		return widget.NewLabel("image missing")
	}
	full := canvas.NewImageFromFile(u.images.OriginalPath(img))
	full.FillMode = canvas.ImageFillContain
	back := widget.NewButton("‹ Back", u.model.GoBack)
	header := container.NewBorder(nil, nil, newGrip(u.drag), nil, back)
	return container.NewBorder(header, nil, nil, nil, full)
}

// publishFolder uploads the folder snapshot to the configured share
// server, requesting and storing a token on first use.
func (u *panelUI) publishFolder(folder library.Folder, imgs []library.Image) {
	ctx, cancel := context.WithTimeout(context.Background(),
		time.Duration(u.cfg.Share.TimeoutMs)*time.Millisecond)
	defer cancel()

	c := share.NewClient(u.cfg.Share.BaseURL, u.shareToken)
	if c.Token == "" {
		tok, err := c.RequestToken(ctx, shareSubject())
		if err != nil {
			dialog.ShowError(err, u.win)
			return
		}
		u.shareToken = tok
		if err := share.StoreToken(tok); err != nil {
			u.log.Warn("store share token failed", slog.Any("err", err))
		}
	}
	pub, err := c.Publish(ctx, folder.Name, share.SnapshotImages(imgs))
	if err != nil {
		dialog.ShowError(err, u.win)
		return
	}
	dialog.ShowInformation("Published",
		fmt.Sprintf("%s v%d", pub.Name, pub.Version), u.win)
}

// shareSubject is the token subject sent to the share server.
func shareSubject() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "refdock"
}

// pasteImage ingests freshly copied image bytes into the open folder.
func (u *panelUI) pasteImage(data []byte) {
	folder, ok := u.model.State().Folder()
	if !ok {
		return
	}
	if _, err := u.images.Ingest(context.Background(), folder, data); err != nil {
		u.log.Warn("paste rejected", slog.Any("err", err))
		return
	}
	u.refresh()
}

// readClipboardImage interprets the text clipboard as a path to an
// image file and returns its bytes. It runs on the poller goroutine,
// so the clipboard itself is read on the main thread.
func readClipboardImage(w fyne.Window) ([]byte, bool) {
	var txt string
	fyne.DoAndWait(func() { txt = w.Clipboard().Content() })
	txt = strings.TrimSpace(txt)
	if txt == "" {
		return nil, false
	}
	switch strings.ToLower(filepath.Ext(txt)) {
	case ".png", ".jpg", ".jpeg", ".gif":
	default:
		return nil, false
	}
	data, err := os.ReadFile(txt)
	if err != nil {
		return nil, false
	}
	return data, true
}

// fyneWindow adapts a fyne.Window to the panel's window abstraction.
// The desktop driver exposes no window positioning or display metrics,
// so the frame origin and screen bounds are tracked here and only the
// size reaches the real window.
type fyneWindow struct {
	w        fyne.Window
	frame    geom.Rect
	realized bool
	screen   geom.Rect
}

func newFyneWindow(w fyne.Window) *fyneWindow {
	return &fyneWindow{w: w, screen: geom.Rect{W: 1920, H: 1080}}
}

func (fw *fyneWindow) Frame() (geom.Rect, bool) { return fw.frame, fw.realized }

func (fw *fyneWindow) SetFrame(r geom.Rect, animate bool) {
	fw.frame = r
	fw.realized = true
	fw.w.Resize(fyne.NewSize(r.W, r.H))
}

func (fw *fyneWindow) Show() { fw.w.Show() }
func (fw *fyneWindow) Hide() { fw.w.Hide() }

func (fw *fyneWindow) Screen() (geom.Rect, bool) { return fw.screen, true }

// grip is the drag target: press and hold unlocks vertical dragging,
// a quick tap toggles the panel.
type grip struct {
	widget.BaseWidget
	drag *panel.DragHandler
}

func newGrip(d *panel.DragHandler) *grip {
	g := &grip{drag: d}
	g.ExtendBaseWidget(g)
	return g
}

func (g *grip) CreateRenderer() fyne.WidgetRenderer {
	label := widget.NewLabelWithStyle("⠿", fyne.TextAlignCenter, fyne.TextStyle{Bold: true})
	return widget.NewSimpleRenderer(label)
}

func (g *grip) MinSize() fyne.Size { return fyne.NewSize(32, 32) }

func (g *grip) MouseDown(ev *desktop.MouseEvent) {
	g.drag.Begin(geom.Pt{X: ev.AbsolutePosition.X, Y: ev.AbsolutePosition.Y})
}

func (g *grip) MouseUp(*desktop.MouseEvent) {
	g.drag.End()
}

func (g *grip) MouseMoved(ev *desktop.MouseEvent) {
	g.drag.Move(geom.Pt{X: ev.AbsolutePosition.X, Y: ev.AbsolutePosition.Y})
}

func (g *grip) MouseIn(*desktop.MouseEvent) {}
func (g *grip) MouseOut()                   {}

var (
	_ desktop.Mouseable = (*grip)(nil)
	_ desktop.Hoverable = (*grip)(nil)
)
