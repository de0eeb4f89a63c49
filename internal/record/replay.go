package record

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"simscope.ai/internal/metrics"
	"simscope.ai/internal/protocol"
)

// SessionStats summarizes one recorded session archive.
type SessionStats struct {
	Frames    int
	FirstSeq  uint64
	LastSeq   uint64
	First     time.Time
	Last      time.Time
	PerDomain map[string]int
}

// Stats scans a session directory and counts frames per domain.
func Stats(sessionDir string) (SessionStats, error) {
	st := SessionStats{PerDomain: map[string]int{}}
	err := ReadArchive(sessionDir, func(fr Frame) bool {
		if st.Frames == 0 {
			st.FirstSeq = fr.Seq
			st.First = fr.ReceivedAt
		}
		st.Frames++
		st.LastSeq = fr.Seq
		st.Last = fr.ReceivedAt
		for _, d := range metrics.Domains {
			if _, ok := fr.Data[d]; ok {
				st.PerDomain[d]++
			}
		}
		return true
	})
	return st, err
}

func (st SessionStats) String() string {
	domains := make([]string, 0, len(st.PerDomain))
	for d := range st.PerDomain {
		domains = append(domains, d)
	}
	sort.Strings(domains)
	s := fmt.Sprintf("frames=%d seq=%d..%d span=%s",
		st.Frames, st.FirstSeq, st.LastSeq, st.Last.Sub(st.First).Round(time.Millisecond))
	for _, d := range domains {
		s += fmt.Sprintf(" %s=%d", d, st.PerDomain[d])
	}
	return s
}

// Replayer re-broadcasts a recorded session over a local websocket endpoint
// so a dashboard can be pointed at it. Frames are re-enveloped with their
// recorded sequence numbers.
type Replayer struct {
	dir string
	log *log.Logger

	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*replayClient]struct{}
}

type replayClient struct {
	out chan []byte
}

func NewReplayer(sessionDir string, logger *log.Logger) *Replayer {
	return &Replayer{
		dir: sessionDir,
		log: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev tool
		},
		clients: make(map[*replayClient]struct{}),
	}
}

func (rp *Replayer) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", rp.handleWS)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

func (rp *Replayer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := rp.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	c := &replayClient{out: make(chan []byte, 16)}
	rp.mu.Lock()
	rp.clients[c] = struct{}{}
	n := len(rp.clients)
	rp.mu.Unlock()
	rp.log.Printf("replay client connected (%d total)", n)

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

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	rp.mu.Lock()
	delete(rp.clients, c)
	n = len(rp.clients)
	rp.mu.Unlock()
	rp.log.Printf("replay client disconnected (%d total)", n)
}

// Run streams the archive at the given frame interval until the archive is
// exhausted or ctx is done. Returns the number of frames sent.
func (rp *Replayer) Run(ctx context.Context, interval time.Duration) (int, error) {
	t := time.NewTicker(interval)
	defer t.Stop()

	var sent int
	err := ReadArchive(rp.dir, func(fr Frame) bool {
		select {
		case <-ctx.Done():
			return false
		case <-t.C:
		}

		msg := protocol.MetricsUpdateMsg{
			Type:    protocol.TypeMetricsUpdate,
			Version: protocol.Version,
			Seq:     fr.Seq,
			Data:    fr.Data,
		}
		b, err := json.Marshal(msg)
		if err != nil {
			rp.log.Printf("marshal frame seq=%d: %v", fr.Seq, err)
			return true
		}

		rp.mu.Lock()
		for c := range rp.clients {
			select {
			case c.out <- b:
			default:
				delete(rp.clients, c)
				close(c.out)
			}
		}
		rp.mu.Unlock()
		sent++
		return true
	})
	return sent, err
}
