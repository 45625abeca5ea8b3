// Package api exposes a running sim.Engine over HTTP: state polling,
// operator commands and a server-sent event stream.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"

	"magnav-sim/internal/sim"
)

// Engine is the part of sim.Engine the server needs.
type Engine interface {
	Submit(cmd sim.Command) bool
	GetState(ctx context.Context) (sim.Snapshot, error)
	Subscribe(ctx context.Context) (<-chan sim.Snapshot, func())
}

// Server routes operator HTTP requests to an Engine.
type Server struct {
	eng Engine
	mux *http.ServeMux
	lg  *slog.Logger
}

// NewServer registers all routes on a fresh mux. A nil logger means
// slog.Default.
func NewServer(eng Engine, lg *slog.Logger) *Server {
	if lg == nil {
		lg = slog.Default()
	}
	s := &Server{eng: eng, mux: http.NewServeMux(), lg: lg}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) routes() {
	s.mux.HandleFunc("/health", s.health)
	s.mux.HandleFunc("/state", s.state)

	s.mux.HandleFunc("/command/gps", s.gpsCmd)
	s.mux.HandleFunc("/command/gps/clear", s.gpsClearCmd)
	s.mux.HandleFunc("/command/pause", s.pauseCmd)
	s.mux.HandleFunc("/command/resume", s.resumeCmd)
	s.mux.HandleFunc("/command/mission/reset", s.resetMissionCmd)

	s.mux.HandleFunc("/stream", s.streamSSE)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) state(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "GET only", http.StatusMethodNotAllowed)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	st, err := s.eng.GetState(ctx)
	if errors.Is(err, sim.ErrStopped) {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	} else if err != nil {
		http.Error(w, err.Error(), http.StatusRequestTimeout)
		return
	}
	writeJSON(w, st)
}

func (s *Server) gpsCmd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		Variance *float64 `json:"variance"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if body.Variance == nil {
		http.Error(w, "variance required", http.StatusBadRequest)
		return
	}
	if v := *body.Variance; v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		http.Error(w, "variance must be a finite value >= 0", http.StatusBadRequest)
		return
	}

	s.submit(w, sim.SetVarianceCommand{At: time.Now(), Variance: *body.Variance},
		map[string]any{"variance": *body.Variance})
}

func (s *Server) gpsClearCmd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	s.submit(w, sim.ClearVarianceCommand{At: time.Now()}, nil)
}

func (s *Server) pauseCmd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	s.submit(w, sim.PauseCommand{At: time.Now()}, nil)
}

func (s *Server) resumeCmd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	s.submit(w, sim.ResumeCommand{At: time.Now()}, nil)
}

func (s *Server) resetMissionCmd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	s.submit(w, sim.ResetMissionCommand{At: time.Now()}, nil)
}

func (s *Server) submit(w http.ResponseWriter, cmd sim.Command, extra map[string]any) {
	if !s.eng.Submit(cmd) {
		http.Error(w, "command queue full", http.StatusServiceUnavailable)
		return
	}
	resp := map[string]any{"status": "accepted", "type": string(cmd.Type())}
	for k, v := range extra {
		resp[k] = v
	}
	s.lg.Info("operator command", slog.String("type", string(cmd.Type())))
	writeJSON(w, resp)
}

func (s *Server) streamSSE(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "GET only", http.StatusMethodNotAllowed)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ctx := r.Context()
	ch, unsub := s.eng.Subscribe(ctx)
	defer unsub()

	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-ch:
			if !ok {
				return
			}
			b, err := json.Marshal(st)
			if err != nil {
				s.lg.Warn("encode snapshot", slog.Any("error", err))
				continue
			}
			fmt.Fprintf(w, "event: state\n")
			fmt.Fprintf(w, "data: %s\n\n", b)
			flusher.Flush()
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
