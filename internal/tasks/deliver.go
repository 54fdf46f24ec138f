package tasks

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/desertthunder/musicvid/internal/shared"
)

// Deliverer pushes a playable link to a viewer. Any error is fatal to the poller that owns it.
type Deliverer interface {
	Deliver(ctx context.Context, url string) error
}

// WriterDeliverer writes each link on its own line.
type WriterDeliverer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterDeliverer creates a deliverer that writes to w.
func NewWriterDeliverer(w io.Writer) *WriterDeliverer {
	return &WriterDeliverer{w: w}
}

func (d *WriterDeliverer) Deliver(ctx context.Context, url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := fmt.Fprintln(d.w, url); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrViewerClosed, err)
	}
	return nil
}

// BrowserDeliverer opens each link in the default system browser.
type BrowserDeliverer struct {
	open func(url string) error
}

// NewBrowserDeliverer creates a deliverer that hands each link to open.
// A nil open uses [shared.OpenBrowser].
func NewBrowserDeliverer(open func(url string) error) *BrowserDeliverer {
	if open == nil {
		open = shared.OpenBrowser
	}
	return &BrowserDeliverer{open: open}
}

func (d *BrowserDeliverer) Deliver(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.open(url)
}

// MultiDeliverer delivers to every target in order and stops at the first failure.
type MultiDeliverer []Deliverer

func (m MultiDeliverer) Deliver(ctx context.Context, url string) error {
	for _, d := range m {
		if err := d.Deliver(ctx, url); err != nil {
			return err
		}
	}
	return nil
}
