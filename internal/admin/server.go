// Admin HTTP surface for inspecting and steering a running simulation.
package admin

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"swarmcool-sim/internal/logging"
	"swarmcool-sim/internal/swarm"
)

//go:embed templates/index.html
var content embed.FS

// Server exposes engine state and commands over HTTP. One server steers one
// engine.
type Server struct {
	engine   *swarm.Engine
	tpl      *template.Template
	upgrader websocket.Upgrader

	// streamInterval paces the websocket snapshot feed.
	streamInterval time.Duration
}

// NewServer builds a server around the given engine.
func NewServer(engine *swarm.Engine) *Server {
	tpl := template.Must(template.New("index.html").ParseFS(content, "templates/index.html"))
	return &Server{
		engine:         engine,
		tpl:            tpl,
		upgrader:       websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		streamInterval: 500 * time.Millisecond,
	}
}

// Handler returns the server's route table. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/snapshot", s.handleSnapshot)
	mux.HandleFunc("/agents", s.handleAgents)
	mux.HandleFunc("/start", s.handleStart)
	mux.HandleFunc("/stop", s.handleStop)
	mux.HandleFunc("/reset", s.handleReset)
	mux.HandleFunc("/inject-fault", s.handleInjectFault)
	mux.HandleFunc("/repair", s.handleRepair)
	mux.HandleFunc("/can-inject-fault", s.handleCanInjectFault)
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

// Start serves until the context is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap := s.engine.Snapshot()
	data := struct {
		Snapshot  swarm.Snapshot
		CanInject bool
	}{
		Snapshot:  snap,
		CanInject: s.engine.CanInjectFault(),
	}
	_ = s.tpl.Execute(w, data)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.engine.Snapshot())
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.engine.Snapshot().Agents)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	s.engine.Start()
	writeJSON(w, map[string]any{"running": true})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.engine.Stop()
	writeJSON(w, map[string]any{"running": false})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.engine.Reset()
	writeJSON(w, map[string]any{"tick": s.engine.Tick()})
}

// handleInjectFault fails specific agents via ?id=3&id=7, or the configured
// default set with no ids.
func (s *Server) handleInjectFault(w http.ResponseWriter, r *http.Request) {
	var ids []int
	for _, raw := range r.URL.Query()["id"] {
		id, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "invalid agent id", http.StatusBadRequest)
			return
		}
		ids = append(ids, id)
	}
	if err := s.engine.InjectFault(ids...); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, swarm.ErrNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}
	writeJSON(w, map[string]any{"fault_injected": true, "tick": s.engine.Tick()})
}

func (s *Server) handleRepair(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.URL.Query().Get("id"))
	if err != nil {
		http.Error(w, "invalid agent id", http.StatusBadRequest)
		return
	}
	if err := s.engine.Repair(id); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, swarm.ErrNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}
	writeJSON(w, map[string]any{"repaired": id})
}

func (s *Server) handleCanInjectFault(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"can_inject": s.engine.CanInjectFault()})
}

// handleWS streams snapshots over a websocket until the client goes away.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(s.streamInterval)
	defer ticker.Stop()
	for {
		if err := conn.WriteJSON(s.engine.Snapshot()); err != nil {
			return
		}
		select {
		case <-ticker.C:
		case <-r.Context().Done():
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
