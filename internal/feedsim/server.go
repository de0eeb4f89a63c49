package feedsim

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"simscope.ai/internal/metrics"
	"simscope.ai/internal/protocol"
)

// Server exposes the generator over the producer surface the dashboard
// expects: REST snapshots per domain, a broadcasting websocket, a health
// probe and Prometheus operational metrics.
type Server struct {
	gen *Generator
	log *log.Logger
	mm  *opMetrics

	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	seq     uint64
}

type client struct {
	out chan []byte
}

func NewServer(gen *Generator, logger *log.Logger) *Server {
	return &Server{
		gen: gen,
		log: logger,
		mm:  newOpMetrics(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev tool
		},
		clients: make(map[*client]struct{}),
	}
}

func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/metrics/network", s.snapshot(metrics.DomainNetwork, func() any { return s.gen.Network() }))
	mux.HandleFunc("GET /api/metrics/timeline", s.snapshot(metrics.DomainTimeline, func() any { return s.gen.Timeline() }))
	mux.HandleFunc("GET /api/metrics/spatial", s.snapshot(metrics.DomainSpatial, func() any { return s.gen.Spatial() }))
	mux.HandleFunc("GET /api/metrics/inequality", s.snapshot(metrics.DomainInequality, func() any { return s.gen.Inequality() }))
	mux.HandleFunc("GET /api/metrics/cultural", s.snapshot(metrics.DomainCultural, func() any { return s.gen.Cultural() }))
	mux.HandleFunc("GET /api/metrics/timeseries", s.snapshot(metrics.DomainTimeSeries, func() any { return s.gen.TimeSeries() }))
	mux.HandleFunc("GET /api/agents/{id}", s.agentDetails)
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", s.mm.handler())
	return mux
}

func (s *Server) snapshot(domain string, fetch func() any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mm.snapshotReqs.WithLabelValues(domain).Inc()
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(fetch()); err != nil {
			s.log.Printf("encode %s snapshot: %v", domain, err)
		}
	}
}

func (s *Server) agentDetails(w http.ResponseWriter, r *http.Request) {
	d, ok := s.gen.AgentDetails(r.PathValue("id"))
	if !ok {
		http.Error(w, "agent not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(d)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	c := &client{out: make(chan []byte, 16)}
	s.mu.Lock()
	s.clients[c] = struct{}{}
	n := len(s.clients)
	s.mu.Unlock()
	s.mm.connectedClients.Set(float64(n))
	s.log.Printf("client connected (%d total)", n)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case b, ok := <-c.out:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	// Consumers never send anything meaningful; the read loop only notices
	// the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.mu.Lock()
	delete(s.clients, c)
	n = len(s.clients)
	s.mu.Unlock()
	s.mm.connectedClients.Set(float64(n))
	s.log.Printf("client disconnected (%d total)", n)
}

// Broadcast steps the generator once and fans a metrics_update frame carrying
// all six domains out to every connected client. Slow clients are dropped
// rather than stalling the loop.
func (s *Server) Broadcast() error {
	start := time.Now()
	s.gen.Step()

	data := map[string]json.RawMessage{}
	for domain, v := range map[string]any{
		metrics.DomainNetwork:    s.gen.Network(),
		metrics.DomainTimeline:   s.gen.Timeline(),
		metrics.DomainSpatial:    s.gen.Spatial(),
		metrics.DomainInequality: s.gen.Inequality(),
		metrics.DomainCultural:   s.gen.Cultural(),
		metrics.DomainTimeSeries: s.gen.TimeSeries(),
	} {
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		data[domain] = b
	}

	s.mu.Lock()
	s.seq++
	msg := protocol.MetricsUpdateMsg{
		Type:    protocol.TypeMetricsUpdate,
		Version: protocol.Version,
		Seq:     s.seq,
		Data:    data,
	}
	b, err := json.Marshal(msg)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	for c := range s.clients {
		select {
		case c.out <- b:
		default:
			delete(s.clients, c)
			close(c.out)
		}
	}
	s.mu.Unlock()

	s.mm.framesTotal.Inc()
	s.mm.buildSeconds.Observe(time.Since(start).Seconds())
	return nil
}

// Run broadcasts on a fixed interval until ctx is done.
func (s *Server) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := s.Broadcast(); err != nil {
				s.log.Printf("broadcast: %v", err)
			}
		}
	}
}
