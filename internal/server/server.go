package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"cannonade/internal/game"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // spectators may watch from any origin
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

const (
	pongWait        = 60 * time.Second
	pingPeriod      = 54 * time.Second
	writeWait       = 10 * time.Second
	clientQueueSize = 256
)

// client is one connected spectator.
type client struct {
	id   uint32
	conn *websocket.Conn
	send chan []byte
}

// Server fans match frames out to websocket spectators. It never feeds
// anything back into the match; the feed is watch-only.
type Server struct {
	http *http.Server

	mu       sync.Mutex
	clients  map[uint32]*client
	nextID   uint32
	match    *game.Match
	draining bool
}

// New builds the spectator server for an address.
func New(addr string) *Server {
	s := &Server{
		clients: make(map[uint32]*client),
		nextID:  1,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	s.http = &http.Server{Addr: addr, Handler: mux}

	return s
}

// Serve blocks on the listener until Shutdown or a listener error.
func (s *Server) Serve() error {
	return s.http.ListenAndServe()
}

// Shutdown stops the listener, bars late spectators and hangs up on the
// connected ones.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)

	s.mu.Lock()
	s.draining = true
	for id, c := range s.clients {
		delete(s.clients, id)
		close(c.send)
	}
	s.mu.Unlock()

	return err
}

// SetMatch points the feed at the match now playing. Spectators already
// connected get the new table hello right away.
func (s *Server) SetMatch(m *game.Match) {
	hello, err := m.HelloFrame()
	if err != nil {
		slog.Error("marshal hello", "match", m.ID(), "err", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.match = m
	if hello == nil {
		return
	}
	for _, c := range s.clients {
		s.queue(c, hello)
	}
}

// Broadcast fans one marshaled frame out to every spectator.
func (s *Server) Broadcast(frame []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.clients {
		s.queue(c, frame)
	}
}

// queue hands a frame to one spectator, dropping it when the client
// cannot keep up. A live feed has no use for backpressure.
func (s *Server) queue(c *client, frame []byte) {
	select {
	case c.send <- frame:
	default:
		slog.Debug("spectator lagging, frame dropped", "client", c.id)
	}
}

// handleWebSocket upgrades a spectator and starts its pumps.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade", "err", err)
		return
	}

	s.mu.Lock()
	if s.draining {
		s.mu.Unlock()
		conn.Close()
		return
	}
	c := &client{
		id:   s.nextID,
		conn: conn,
		send: make(chan []byte, clientQueueSize),
	}
	s.nextID++
	s.clients[c.id] = c
	count := len(s.clients)

	// The hello lands first: the queue is empty and the write pump is
	// not running yet. Queued while still holding the lock, so the
	// shutdown sweep cannot close the channel under the send.
	if s.match != nil {
		if hello, err := s.match.HelloFrame(); err == nil {
			s.queue(c, hello)
		}
	}
	s.mu.Unlock()

	slog.Info("spectator connected", "client", c.id, "watching", count)

	go s.readPump(c)
	go s.writePump(c)
}

// readPump drains the connection. Spectators send nothing meaningful,
// but reading runs the keepalive and surfaces the hangup.
func (s *Server) readPump(c *client) {
	defer func() {
		c.conn.Close()
		s.remove(c.id)
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Debug("spectator read", "client", c.id, "err", err)
			}
			return
		}
	}
}

// writePump pushes queued frames and pings until the spectator goes
// away or the hub closes the queue.
func (s *Server) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// remove unhooks a spectator once. The closed queue makes the write
// pump send the close frame and stop.
func (s *Server) remove(id uint32) {
	s.mu.Lock()
	c, ok := s.clients[id]
	if ok {
		delete(s.clients, id)
	}
	count := len(s.clients)
	s.mu.Unlock()

	if ok {
		close(c.send)
		slog.Info("spectator left", "client", id, "watching", count)
	}
}
