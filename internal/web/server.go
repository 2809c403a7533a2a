// Package web exposes controller state over HTTP and streams features to
// websocket clients.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/guidoenr/tonescope/internal/analyzer"
	"github.com/guidoenr/tonescope/internal/app"
	"github.com/guidoenr/tonescope/internal/render"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	clientQueue    = 64
	broadcastQueue = 256
)

// Dispatcher queues controller commands; *app.Controller implements it.
type Dispatcher interface {
	Dispatch(cmd app.Command) bool
}

// Config configures a Server.
type Config struct {
	Addr string
	// PublishInterval throttles feature messages; zero sends every frame.
	PublishInterval time.Duration
	Log             *zap.Logger
}

// Server is an app.Publisher that serves the latest state over HTTP and
// fans every published event out to websocket clients.
type Server struct {
	mu       sync.RWMutex
	ctrl     Dispatcher
	log      *zap.Logger
	addr     string
	interval time.Duration

	status      app.Status
	alert       string
	lastPublish time.Time
	// stopped is set when capture goes idle so the zero baseline that
	// follows bypasses the throttle.
	stopped bool

	clients   map[*websocketClient]bool
	broadcast chan []byte
	upgrader  websocket.Upgrader
}

type websocketClient struct {
	conn   *websocket.Conn
	send   chan []byte
	server *Server
}

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	app.Status
	Alert string `json:"alert,omitempty"`
}

// ViewRequest is the body of POST /api/view.
type ViewRequest struct {
	View *render.ViewMode `json:"view"`
}

// ViewInfo describes one selectable view.
type ViewInfo struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Message is one websocket event.
type Message struct {
	Type     string                  `json:"type"`
	Features *analyzer.FrameFeatures `json:"features,omitempty"`
	Status   *app.Status             `json:"status,omitempty"`
	Message  string                  `json:"message,omitempty"`
}

// NewServer creates a server dispatching commands to ctrl.
func NewServer(ctrl Dispatcher, cfg Config) *Server {
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	return &Server{
		ctrl:      ctrl,
		log:       cfg.Log,
		addr:      cfg.Addr,
		interval:  cfg.PublishInterval,
		clients:   make(map[*websocketClient]bool),
		broadcast: make(chan []byte, broadcastQueue),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/toggle", s.handleToggle)
	mux.HandleFunc("/api/view", s.handleView)
	mux.HandleFunc("/api/views", s.handleViews)
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

// Run serves until ctx is done, then shuts the listener down and closes
// all websocket clients.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go s.broadcastLoop(hubCtx)

	errc := make(chan error, 1)
	go func() {
		s.log.Info("web server listening", zap.String("addr", s.addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.closeClients()
	s.log.Info("web server stopped")
	return err
}

func (s *Server) PublishFeatures(f analyzer.FrameFeatures) {
	now := time.Now()
	s.mu.Lock()
	s.status.Features = f
	throttled := s.interval > 0 && !s.stopped && now.Sub(s.lastPublish) < s.interval
	if !throttled {
		s.lastPublish = now
	}
	s.stopped = false
	s.mu.Unlock()

	if throttled {
		return
	}
	s.send(Message{Type: "features", Features: &f})
}

func (s *Server) PublishState(st app.Status) {
	s.mu.Lock()
	if s.status.Capturing && !st.Capturing {
		s.stopped = true
	}
	s.status = st
	if st.Capturing {
		s.alert = ""
	}
	s.mu.Unlock()

	s.send(Message{Type: "state", Status: &st})
}

func (s *Server) ReportError(err error) {
	msg := app.AlertMessage(err)
	s.mu.Lock()
	s.alert = msg
	s.mu.Unlock()

	s.send(Message{Type: "alert", Message: msg})
}

// send queues a message for the hub and drops it when the hub is behind.
func (s *Server) send(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.log.Warn("encode websocket message", zap.Error(err))
		return
	}
	select {
	case s.broadcast <- data:
	default:
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.mu.RLock()
	resp := StatusResponse{Status: s.status, Alert: s.alert}
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.dispatch(w, app.CommandToggle)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req ViewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.View == nil {
		http.Error(w, "view is required", http.StatusBadRequest)
		return
	}
	cmd := app.CommandViewFrequency
	if *req.View == render.Time {
		cmd = app.CommandViewTime
	}
	s.dispatch(w, cmd)
}

func (s *Server) handleViews(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	views := []ViewInfo{
		{ID: render.Frequency.String(), Label: render.Frequency.Label()},
		{ID: render.Time.String(), Label: render.Time.Label()},
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) dispatch(w http.ResponseWriter, cmd app.Command) {
	if s.ctrl == nil || !s.ctrl.Dispatch(cmd) {
		http.Error(w, "controller busy", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued", "command": cmd.String()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &websocketClient{
		conn:   conn,
		send:   make(chan []byte, clientQueue),
		server: s,
	}

	s.mu.Lock()
	s.clients[client] = true
	total := len(s.clients)
	s.mu.Unlock()
	s.log.Debug("websocket client connected", zap.Int("clients", total))

	go client.writePump()
	go client.readPump()
}

func (s *Server) clientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// removeClient unregisters c and closes its queue once.
func (s *Server) removeClient(c *websocketClient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clients[c] {
		delete(s.clients, c)
		close(c.send)
	}
}

func (s *Server) closeClients() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		delete(s.clients, c)
		close(c.send)
	}
}

// broadcastLoop fans messages out; a client whose queue is full is dropped
// rather than slowing the others.
func (s *Server) broadcastLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case message := <-s.broadcast:
			s.mu.Lock()
			for client := range s.clients {
				select {
				case client.send <- message:
				default:
					delete(s.clients, client)
					close(client.send)
					s.log.Debug("dropped slow websocket client")
				}
			}
			s.mu.Unlock()
		}
	}
}

func (c *websocketClient) readPump() {
	defer func() {
		c.server.removeClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *websocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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

// DispatchFunc adapts a function to Dispatcher.
type DispatchFunc func(cmd app.Command) bool

func (f DispatchFunc) Dispatch(cmd app.Command) bool { return f(cmd) }
