package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"facematch/internal/logger"

	"github.com/gorilla/websocket"
)

const (
	// writeWait bounds a single write to a viewer.
	writeWait = 10 * time.Second
	// sendQueueSize is the per-viewer message queue.
	sendQueueSize = 32
	// frameQueueLimit keeps the upper half of a queue free for overlay and
	// state messages; frames beyond it are skipped for that viewer.
	frameQueueLimit = sendQueueSize / 2
)

// client is one viewer and the goroutine writing to it.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// HubService fans view messages out to every connected viewer. Each viewer
// has its own queue and writer goroutine; sending never waits on a viewer.
type HubService struct {
	clients map[*websocket.Conn]*client
	stopped bool
	done    chan struct{}
	mutex   sync.RWMutex
	wg      sync.WaitGroup
	logger  *logger.Logger
}

func NewHubService(logger *logger.Logger) *HubService {
	return &HubService{
		clients: make(map[*websocket.Conn]*client),
		done:    make(chan struct{}),
		logger:  logger,
	}
}

// Run waits until ctx ends, then closes every client and waits for their writers.
func (h *HubService) Run(ctx context.Context) {
	<-ctx.Done()

	h.mutex.Lock()
	h.stopped = true
	for conn, c := range h.clients {
		delete(h.clients, conn)
		close(c.send)
		conn.Close()
	}
	h.mutex.Unlock()

	h.wg.Wait()
	close(h.done)
}

// Register adds a client and queues welcome (if not nil) before any broadcast.
func (h *HubService) Register(conn *websocket.Conn, welcome []byte) {
	c := &client{conn: conn, send: make(chan []byte, sendQueueSize)}
	if welcome != nil {
		c.send <- welcome
	}

	h.mutex.Lock()
	if h.stopped {
		h.mutex.Unlock()
		conn.Close()
		return
	}
	h.clients[conn] = c
	count := len(h.clients)
	h.wg.Add(1)
	h.mutex.Unlock()

	go h.writePump(c)
	h.logger.Info("Client connected. Total: %d", count)
}

// Unregister removes a client and closes its connection.
func (h *HubService) Unregister(conn *websocket.Conn) {
	if h.drop(conn) {
		h.logger.Info("Client disconnected. Total: %d", h.GetClientCount())
	}
}

// writePump writes queued messages until the queue is closed or a write fails.
func (h *HubService) writePump(c *client) {
	defer h.wg.Done()
	defer c.conn.Close()

	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			h.logger.Warning("Error sending message, dropping viewer: %v", err)
			h.drop(c.conn)
			// drain until drop closes the queue
			for range c.send {
			}
			return
		}
	}
}

// drop removes conn and closes its queue. It reports whether conn was registered.
func (h *HubService) drop(conn *websocket.Conn) bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	c, ok := h.clients[conn]
	if !ok {
		return false
	}
	delete(h.clients, conn)
	close(c.send)
	conn.Close()
	return true
}

// Broadcast queues message for every client. A client whose queue is full is
// too slow to follow and is dropped. It returns false once the hub stopped.
func (h *HubService) Broadcast(message []byte) bool {
	h.mutex.RLock()
	if h.stopped {
		h.mutex.RUnlock()
		return false
	}
	var slow []*websocket.Conn
	for conn, c := range h.clients {
		select {
		case c.send <- message:
		default:
			slow = append(slow, conn)
		}
	}
	h.mutex.RUnlock()

	for _, conn := range slow {
		if h.drop(conn) {
			h.logger.Warning("Viewer too slow, dropped. Total: %d", h.GetClientCount())
		}
	}
	return true
}

// TryBroadcast queues message for every client with room to spare and skips
// the others, so a slow viewer misses frames instead of state.
func (h *HubService) TryBroadcast(message []byte) bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	if h.stopped {
		return false
	}
	sent := false
	for _, c := range h.clients {
		if len(c.send) >= frameQueueLimit {
			continue
		}
		select {
		case c.send <- message:
			sent = true
		default:
		}
	}
	return sent
}

// BroadcastJSON encodes v and broadcasts it.
func (h *HubService) BroadcastJSON(v interface{}) error {
	message, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(message)
	return nil
}

func (h *HubService) GetClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}
