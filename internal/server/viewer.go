package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/musicvid/internal/shared"
	"github.com/desertthunder/musicvid/internal/tasks"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const defaultWriteTimeout = 10 * time.Second

// SocketDeliverer sends each link as a websocket text frame.
type SocketDeliverer struct {
	mu           sync.Mutex
	conn         *websocket.Conn
	writeTimeout time.Duration
}

// NewSocketDeliverer wraps conn. A non-positive timeout uses 10s.
func NewSocketDeliverer(conn *websocket.Conn, writeTimeout time.Duration) *SocketDeliverer {
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	return &SocketDeliverer{conn: conn, writeTimeout: writeTimeout}
}

func (d *SocketDeliverer) Deliver(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.conn.SetWriteDeadline(time.Now().Add(d.writeTimeout)); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrViewerClosed, err)
	}
	if err := d.conn.WriteMessage(websocket.TextMessage, []byte(url)); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrViewerClosed, err)
	}
	return nil
}

// Close sends a close frame with code and reason.
func (d *SocketDeliverer) Close(code int, reason string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	msg := websocket.FormatCloseMessage(code, reason)
	return d.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(d.writeTimeout))
}

// PollerFactory builds the poller serving one viewer.
type PollerFactory func(viewerID string, d tasks.Deliverer) (*tasks.Poller, error)

// ViewerOptions configures a [ViewerHandler].
type ViewerOptions struct {
	WriteTimeout   time.Duration
	AllowedOrigins []string // see [CheckOrigin]
}

// ViewerHandler upgrades viewers to websockets and runs one poller per connection.
//
// A poller stops when its viewer disconnects, when it fails fatally, or on [ViewerHandler.CloseAll].
type ViewerHandler struct {
	upgrader     websocket.Upgrader
	factory      PollerFactory
	writeTimeout time.Duration
	logger       *log.Logger

	mu      sync.Mutex
	closed  bool
	viewers map[string]context.CancelFunc
	wg      sync.WaitGroup
}

// NewViewerHandler creates a handler that builds pollers with factory.
func NewViewerHandler(factory PollerFactory, opts ViewerOptions, logger *log.Logger) *ViewerHandler {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &ViewerHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     CheckOrigin(opts.AllowedOrigins),
		},
		factory:      factory,
		writeTimeout: opts.WriteTimeout,
		logger:       logger,
		viewers:      make(map[string]context.CancelFunc),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *ViewerHandler) Routes() []string {
	return []string{"GET /ws"}
}

// ServeHTTP upgrades the connection and blocks until the viewer's poller stops.
func (h *ViewerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	defer conn.Close()

	viewerID := uuid.NewString()
	logger := h.logger.With("viewer", viewerID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if !h.add(viewerID, cancel) {
		return
	}
	defer h.remove(viewerID)

	go h.readLoop(conn, cancel)

	deliverer := NewSocketDeliverer(conn, h.writeTimeout)
	poller, err := h.factory(viewerID, deliverer)
	if err != nil {
		logger.Error("failed to start poller", "err", err)
		deliverer.Close(websocket.CloseInternalServerErr, "poller unavailable")
		return
	}

	logger.Info("viewer connected", "remote", r.RemoteAddr)
	err = poller.Run(ctx)

	switch {
	case err == nil, errors.Is(err, context.Canceled):
		logger.Info("viewer disconnected")
	case tasks.IsFatal(err):
		logger.Error("poller stopped", "err", err)
		deliverer.Close(websocket.CloseInternalServerErr, "poller stopped")
	default:
		logger.Warn("poller exited", "err", err)
	}
}

// readLoop discards viewer messages and cancels the poller once the connection closes.
func (h *ViewerHandler) readLoop(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *ViewerHandler) add(id string, cancel context.CancelFunc) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.viewers[id] = cancel
	h.wg.Add(1)
	return true
}

func (h *ViewerHandler) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.viewers[id]; ok {
		delete(h.viewers, id)
		h.wg.Done()
	}
}

// Count returns the number of connected viewers.
func (h *ViewerHandler) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.viewers)
}

// CloseAll stops every poller, refuses new viewers, and waits for the pollers to return.
func (h *ViewerHandler) CloseAll() {
	h.mu.Lock()
	h.closed = true
	for _, cancel := range h.viewers {
		cancel()
	}
	h.mu.Unlock()

	h.wg.Wait()
}
