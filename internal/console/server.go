package console

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	log "log/slog"

	"github.com/gorilla/websocket"
)

// Message is one frame sent to a viewer. Type is "log" for a history or
// live log line and "status" for an assistant status change.
type Message struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

const (
	writeWait = 5 * time.Second
	pingEvery = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The viewer runs on the same machine; the socket binds to loopback.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Server serves the log console over websocket. A connecting viewer first
// receives the full ring snapshot, then live lines and status changes as
// they happen.
type Server struct {
	ring *Ring
	srv  *http.Server

	mu     sync.Mutex
	status string
	conns  map[*websocket.Conn]chan Message
}

func NewServer(addr string, ring *Ring) *Server {
	s := &Server{
		ring:  ring,
		conns: make(map[*websocket.Conn]chan Message),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/console", s.handleConsole)
	s.srv = &http.Server{Addr: addr, Handler: mux}
	return s
}

// Start begins serving in the background.
func (s *Server) Start() {
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("console server failed", "err", err)
		}
	}()
}

// Shutdown stops the server and closes all viewer connections.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()
	return s.srv.Shutdown(ctx)
}

// SetStatus broadcasts an assistant status change to all viewers.
func (s *Server) SetStatus(status string) {
	s.mu.Lock()
	s.status = status
	for _, ch := range s.conns {
		select {
		case ch <- Message{Type: "status", Data: status}:
		default:
		}
	}
	s.mu.Unlock()
}

func (s *Server) handleConsole(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("console upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	lines, cancel := s.ring.Subscribe()
	defer cancel()

	out := make(chan Message, 256)
	s.mu.Lock()
	s.conns[conn] = out
	status := s.status
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
	}()

	// Drain the read side so close frames are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for _, line := range s.ring.Snapshot() {
		if err := writeMessage(conn, Message{Type: "log", Data: line}); err != nil {
			return
		}
	}
	if status != "" {
		if err := writeMessage(conn, Message{Type: "status", Data: status}); err != nil {
			return
		}
	}

	ping := time.NewTicker(pingEvery)
	defer ping.Stop()

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				return
			}
			if err := writeMessage(conn, Message{Type: "log", Data: line}); err != nil {
				return
			}
		case msg := <-out:
			if err := writeMessage(conn, msg); err != nil {
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeMessage(conn *websocket.Conn, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}
