/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package clipboard polls the system clipboard for freshly copied image
// data so an open folder can capture it. The Reader is supplied by the
// UI driver; this package only owns the change-detection loop.
package clipboard

import (
	"context"
	"crypto/sha256"
	"log/slog"
	"sync"
	"time"

	applog "refdock/internal/log"
)

// DefaultInterval is the poll cadence. Clipboard reads are cheap; one
// second keeps capture feeling immediate without burning CPU.
const DefaultInterval = time.Second

// Reader reads image bytes from the system clipboard. ok is false when
// the clipboard holds no image data.
type Reader interface {
	ReadImage() (data []byte, ok bool)
}

// ReaderFunc adapts a function to the Reader interface.
type ReaderFunc func() ([]byte, bool)

func (f ReaderFunc) ReadImage() ([]byte, bool) { return f() }

// Poller watches the clipboard and invokes the handler once per new
// image. The same bytes appearing twice in a row fire only once.
type Poller struct {
	reader   Reader
	interval time.Duration
	handler  func(data []byte)
	log      *slog.Logger

	// Dispatch, when set, marshals each handler invocation onto another
	// goroutine, typically the UI main thread. The handler mutates core
	// state, which assumes a single writer. Set before Run.
	Dispatch func(fn func())

	mu       sync.Mutex
	lastHash [sha256.Size]byte
	hasLast  bool
	enabled  bool
}

// NewPoller returns a poller that calls handler for each new clipboard
// image. A non-positive interval falls back to DefaultInterval.
func NewPoller(r Reader, interval time.Duration, handler func(data []byte)) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		reader:   r,
		interval: interval,
		handler:  handler,
		log:      applog.WithComponent("clipboard"),
	}
}

// SetEnabled gates capture. When disabled the poller keeps tracking the
// clipboard hash so re-enabling does not replay stale content.
func (p *Poller) SetEnabled(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enabled = on
}

// Enabled reports whether capture is currently active.
func (p *Poller) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}

// Run polls until ctx is cancelled. It seeds the hash from the current
// clipboard first so content copied before the panel opened is ignored.
func (p *Poller) Run(ctx context.Context) {
	if data, ok := p.reader.ReadImage(); ok {
		p.mu.Lock()
		p.lastHash = sha256.Sum256(data)
		p.hasLast = true
		p.mu.Unlock()
	}

	t := time.NewTicker(p.interval)
	defer t.Stop()
	p.log.Debug("clipboard poller started", slog.Duration("interval", p.interval))
	for {
		select {
		case <-ctx.Done():
			p.log.Debug("clipboard poller stopped")
			return
		case <-t.C:
			p.Poll()
		}
	}
}

// Poll performs one clipboard check. It is exported so UI event hooks
// can force a check outside the ticker cadence.
func (p *Poller) Poll() {
	data, ok := p.reader.ReadImage()
	if !ok {
		return
	}
	sum := sha256.Sum256(data)

	p.mu.Lock()
	changed := !p.hasLast || sum != p.lastHash
	p.lastHash = sum
	p.hasLast = true
	fire := changed && p.enabled
	p.mu.Unlock()

	if fire {
		p.log.Debug("new clipboard image", slog.Int("bytes", len(data)))
		if p.Dispatch != nil {
			p.Dispatch(func() { p.handler(data) })
		} else {
			p.handler(data)
		}
	}
}
