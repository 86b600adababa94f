// Package stream serves rendered frames to websocket viewers.
package stream

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/zeusync/sophysics/internal/core/observability/log"
	"github.com/zeusync/sophysics/internal/core/render"
	"github.com/zeusync/sophysics/pkg/generic"
)

var ErrHubClosed = errors.New("stream: hub is closed")

var _ render.FrameSink = (*Hub)(nil)

var buffers = generic.NewPool(func() *bytes.Buffer { return new(bytes.Buffer) }, (*bytes.Buffer).Reset)

const (
	defaultBuffer       = 16
	defaultWriteTimeout = 5 * time.Second
)

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub broadcasts frames to every connected websocket client. A client whose
// queue is full when a frame is published is disconnected.
type Hub struct {
	upgrader     websocket.Upgrader
	buffer       int
	writeTimeout time.Duration
	log          log.Log

	mu      sync.RWMutex
	clients map[string]*client
	closed  bool
	wg      sync.WaitGroup
}

type Option func(*Hub)

// WithBuffer sets the number of frames queued per client.
func WithBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

func WithWriteTimeout(d time.Duration) Option {
	return func(h *Hub) { h.writeTimeout = d }
}

func NewHub(logger log.Log, opts ...Option) *Hub {
	if logger == nil {
		logger = log.NewNop()
	}
	h := &Hub{
		buffer:       defaultBuffer,
		writeTimeout: defaultWriteTimeout,
		log:          logger.With(log.String("component", "stream")),
		clients:      make(map[string]*client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// viewers are read-only
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handler returns a mux serving the websocket endpoint at path and a health
// check at /health.
func (h *Hub) Handler(path string) http.Handler {
	mux := http.NewServeMux()
	mux.Handle(path, h)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, `{"status":"healthy","clients":%d}`, h.Clients())
	})
	return mux
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", log.Error(err))
		return
	}
	c := &client{id: uuid.NewString(), conn: conn, send: make(chan []byte, h.buffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "hub closed"), time.Now().Add(time.Second))
		_ = conn.Close()
		return
	}
	h.clients[c.id] = c
	h.wg.Add(2)
	h.mu.Unlock()

	h.log.Info("viewer connected", log.String("client_id", c.id))
	go h.writeLoop(c)
	go h.readLoop(c)
}

// Clients returns the number of connected viewers.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish encodes f as JSON and queues it for every client. Nothing is
// encoded while no client is connected.
func (h *Hub) Publish(f *render.Frame) error {
	h.mu.RLock()
	if h.closed {
		h.mu.RUnlock()
		return ErrHubClosed
	}
	if len(h.clients) == 0 {
		h.mu.RUnlock()
		return nil
	}
	data, err := encode(f)
	if err != nil {
		h.mu.RUnlock()
		return fmt.Errorf("encode frame %d: %w", f.Number, err)
	}
	var slow []*client
	for _, c := range h.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.log.Warn("dropping slow viewer", log.String("client_id", c.id), log.Uint64("frame", f.Number))
		h.drop(c)
	}
	return nil
}

// encode returns a fresh slice; it is shared by every client queue.
func encode(f *render.Frame) ([]byte, error) {
	buf := buffers.Get()
	defer buffers.Put(buf)
	if err := json.NewEncoder(buf).Encode(f); err != nil {
		return nil, err
	}
	return bytes.Clone(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}

// Close disconnects every client and waits for their goroutines to exit.
// Later connections are refused.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	for id, c := range h.clients {
		delete(h.clients, id)
		close(c.send)
	}
	h.mu.Unlock()

	h.wg.Wait()
	return nil
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.id)
	close(c.send)
	h.mu.Unlock()
}

func (h *Hub) writeLoop(c *client) {
	defer h.wg.Done()
	defer func() { _ = c.conn.Close() }()

	for data := range c.send {
		if h.writeTimeout > 0 {
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.log.Debug("viewer write failed", log.String("client_id", c.id), log.Error(err))
			h.drop(c)
			// drain until drop closes the channel
			for range c.send {
			}
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
}

func (h *Hub) readLoop(c *client) {
	defer h.wg.Done()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("viewer read failed", log.String("client_id", c.id), log.Error(err))
			}
			h.drop(c)
			h.log.Info("viewer disconnected", log.String("client_id", c.id))
			return
		}
	}
}
