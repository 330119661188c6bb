// Package ipc is the local control channel: a unix socket speaking one
// JSON request and one JSON response per connection.
package ipc

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	log "log/slog"
)

const socketName = "milo.sock"

// Commands understood by the daemon.
const (
	CmdStatus   = "status"
	CmdReload   = "reload"
	CmdQuiet    = "quiet"
	CmdShutdown = "shutdown"
)

// Request is one control command.
type Request struct {
	Cmd string `json:"cmd"`
}

// Response is the daemon's answer. The listing fields are only filled for
// CmdStatus; Error is set when the command failed.
type Response struct {
	OK        bool     `json:"ok"`
	Status    string   `json:"status,omitempty"`
	Agent     string   `json:"agent,omitempty"`
	Agents    []string `json:"agents,omitempty"`
	Inputs    []string `json:"inputs,omitempty"`
	Outputs   []string `json:"outputs,omitempty"`
	Voices    []string `json:"voices,omitempty"`
	Languages []string `json:"languages,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// SocketPath returns the socket location inside the data directory.
func SocketPath(dir string) string {
	return filepath.Join(dir, socketName)
}

// Server accepts control connections and dispatches them to a handler.
type Server struct {
	ln      net.Listener
	path    string
	handler func(Request) Response
}

// StartServer listens on the socket, removing a stale one first, and
// serves in the background.
func StartServer(path string, handler func(Request) Response) (*Server, error) {
	os.Remove(path)

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", path, err)
	}

	s := &Server{ln: ln, path: path, handler: handler}
	go s.acceptLoop()
	return s, nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(5 * time.Second))

	var req Request
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		log.Warn("bad control request", "err", err)
		return
	}

	resp := s.handler(req)
	if err := json.NewEncoder(conn).Encode(resp); err != nil {
		log.Warn("could not write control response", "err", err)
	}
}

// Close stops accepting and removes the socket file.
func (s *Server) Close() {
	s.ln.Close()
	os.Remove(s.path)
}

// Send connects to the daemon socket, issues one command, and returns the
// response.
func Send(path, cmd string) (Response, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return Response{}, fmt.Errorf("dial %s: %w", path, err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(5 * time.Second))

	if err := json.NewEncoder(conn).Encode(Request{Cmd: cmd}); err != nil {
		return Response{}, fmt.Errorf("send command: %w", err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return Response{}, fmt.Errorf("read response: %w", err)
	}
	return resp, nil
}
