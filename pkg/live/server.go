// Package live bridges the expansion engine to editor hosts over WebSocket.
// A host connects, expands templates and drives jump, edit and choice-cycle
// operations; the bridge answers with render events. No buffer manipulation
// happens here; the host owns its text.
package live

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/snipkit/snipkit/pkg/registry"
	"github.com/snipkit/snipkit/pkg/snippet/engine"
	"github.com/snipkit/snipkit/pkg/snippet/node"
)

// Server handles WebSocket connections from editor hosts.
type Server struct {
	upgrader websocket.Upgrader
	engine   *engine.Engine
	mu       sync.RWMutex
	registry *registry.Registry
}

// NewServer creates a bridge in front of a registry. All connections share
// one engine, and therefore one restore store.
func NewServer(reg *registry.Registry) *Server {
	return &Server{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// The bridge binds to loopback; cross-origin browser
				// access is not a supported host.
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		engine:   engine.New(),
		registry: reg,
	}
}

// SetRegistry swaps the registry, used when configuration reloads.
func (s *Server) SetRegistry(reg *registry.Registry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registry = reg
}

// Registry returns the current registry.
func (s *Server) Registry() *registry.Registry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry
}

// Engine returns the shared engine.
func (s *Server) Engine() *engine.Engine {
	return s.engine
}

// HandleWebSocket upgrades the connection and serves host requests until the
// peer disconnects. Sessions opened by a connection are aborted when it goes
// away.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Bridge] Failed to upgrade connection: %v", err)
		return
	}
	go s.serveConn(conn)
}

// hostConn is the per-connection state: the sessions this host opened.
type hostConn struct {
	conn     *websocket.Conn
	sessions map[uint32]*engine.Session
}

func (s *Server) serveConn(conn *websocket.Conn) {
	hc := &hostConn{
		conn:     conn,
		sessions: make(map[uint32]*engine.Session),
	}
	defer func() {
		for _, session := range hc.sessions {
			session.Abort()
		}
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[Bridge] Read error: %v", err)
			}
			return
		}

		var req Request
		if err := json.Unmarshal(data, &req); err != nil {
			hc.send(Response{Event: EventError, ActiveIndex: -1, Error: "malformed request: " + err.Error()})
			continue
		}
		hc.send(s.dispatch(hc, req))
	}
}

// dispatch runs one host operation and builds its reply.
func (s *Server) dispatch(hc *hostConn, req Request) Response {
	switch req.Op {
	case OpExpand:
		return s.expand(hc, req)
	case OpCompletions:
		return Response{
			Event:       EventCompletions,
			ActiveIndex: -1,
			Completions: s.Registry().Completions(req.Filetype, req.Line),
		}
	case OpEdit, OpJump, OpCycle, OpAbort:
		return s.sessionOp(hc, req)
	default:
		return Response{Event: EventError, ActiveIndex: -1, Error: "unknown op: " + req.Op}
	}
}

func (s *Server) expand(hc *hostConn, req Request) Response {
	def, _, ok := s.Registry().Lookup(req.Filetype, req.Line)
	if !ok {
		return Response{Event: EventError, ActiveIndex: -1, Error: "no trigger matches"}
	}

	// The indentation of the expansion site carries into continuation
	// lines.
	prefix := req.Line[:len(req.Line)-len(strings.TrimLeft(req.Line, " \t"))]
	session, err := s.engine.Expand(def.Template, engine.ExpandOpts{LinePrefix: prefix})
	if err != nil {
		return Response{Event: EventError, ActiveIndex: -1, Error: err.Error()}
	}
	hc.sessions[session.ID()] = session
	return renderResponse(EventExpanded, session)
}

func (s *Server) sessionOp(hc *hostConn, req Request) Response {
	session, ok := hc.sessions[req.Session]
	if !ok {
		return Response{Event: EventError, Session: req.Session, ActiveIndex: -1, Error: "unknown session"}
	}

	var err error
	switch req.Op {
	case OpEdit:
		err = session.SetText(req.Text)
	case OpJump:
		if req.Dir < 0 {
			_, err = session.JumpBackward()
		} else {
			_, err = session.JumpForward()
		}
	case OpCycle:
		dir := req.Dir
		if dir == 0 {
			dir = 1
		}
		err = session.CycleChoice(dir)
	case OpAbort:
		session.Abort()
	}

	if session.State() == engine.StateExited {
		delete(hc.sessions, req.Session)
		return Response{Event: EventExited, Session: req.Session, ActiveIndex: -1}
	}
	if err != nil {
		return Response{Event: EventError, Session: req.Session, ActiveIndex: -1, Error: err.Error()}
	}
	return renderResponse(EventRender, session)
}

func renderResponse(event string, session *engine.Session) Response {
	resp := Response{
		Event:       event,
		Session:     session.ID(),
		Text:        session.Render(),
		ActiveIndex: -1,
	}
	if active := session.Active(); active != nil {
		resp.ActivePath = node.PathString(node.PathOf(active))
		resp.ActiveIndex = active.Index
	}
	return resp
}

func (hc *hostConn) send(resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		log.Printf("[Bridge] Encode error: %v", err)
		return
	}
	if err := hc.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Printf("[Bridge] Write error: %v", err)
	}
}

// ListenAndServe mounts the bridge at /snipkit/live and blocks serving addr.
func (s *Server) ListenAndServe(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/snipkit/live", s.HandleWebSocket)
	log.Printf("[Bridge] Listening on ws://%s/snipkit/live", addr)
	return http.ListenAndServe(addr, mux)
}
