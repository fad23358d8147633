// Package preview serves a mounted tree over HTTP for development. The
// index page connects back over a websocket and swaps in the re-rendered
// markup after every committed render pass.
package preview

import (
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/veil-ui/veil/pkg/dom"
	"github.com/veil-ui/veil/pkg/runtime"
)

const indexPage = `<!doctype html>
<html>
<head><meta charset="utf-8"><title>veil preview</title></head>
<body>
<div id="veil-root"></div>
<script>
const root = document.getElementById("veil-root");
const ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws");
ws.onmessage = (ev) => { root.innerHTML = ev.data; };
</script>
</body>
</html>`

// Server exposes one mounted container.
type Server struct {
	app       *runtime.App
	container *dom.Node
	router    chi.Router
	upgrader  websocket.Upgrader

	mu    sync.Mutex
	conns map[*websocket.Conn]bool

	off func()
}

// New wires a preview server to app and the container it watches. Call
// Close when done to detach the render observer.
func New(app *runtime.App, container *dom.Node) *Server {
	s := &Server{
		app:       app,
		container: container,
		conns:     make(map[*websocket.Conn]bool),
		upgrader:  websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
	}

	r := chi.NewRouter()
	r.Get("/", s.handleIndex)
	r.Get("/tree", s.handleTree)
	r.Get("/ws", s.handleWS)
	r.Handle("/metrics", promhttp.Handler())
	s.router = r

	s.off = app.OnRender(func(*runtime.Instance) {
		// Runs on the app loop, where reading the tree is safe.
		s.broadcast(container.InnerHTML())
	})
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Close detaches the render observer and drops every websocket client.
func (s *Server) Close() {
	s.off()
	s.mu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.conns = make(map[*websocket.Conn]bool)
	s.mu.Unlock()
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(indexPage))
}

// handleTree returns the current markup. The read goes through the app
// loop so it never observes a half-patched tree.
func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	var markup string
	s.app.Batch(func() {
		markup = s.container.InnerHTML()
	})
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(markup))
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	var markup string
	s.app.Batch(func() {
		markup = s.container.InnerHTML()
	})
	if err := conn.WriteMessage(websocket.TextMessage, []byte(markup)); err != nil {
		conn.Close()
		return
	}

	s.mu.Lock()
	s.conns[conn] = true
	s.mu.Unlock()

	// Reader loop just detects disconnects; the preview never consumes
	// client messages.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.mu.Lock()
				delete(s.conns, conn)
				s.mu.Unlock()
				conn.Close()
				return
			}
		}
	}()
}

func (s *Server) broadcast(markup string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(markup)); err != nil {
			delete(s.conns, conn)
			conn.Close()
		}
	}
}
