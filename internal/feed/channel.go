// Package feed maintains the persistent realtime connection to the telemetry
// producer. One Channel wraps one websocket: it parses incoming frames, fans
// metrics updates out to subscribers, and owns the reconnection policy (fixed
// delay, bounded attempts, terminal Failed state).
package feed

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"simscope.ai/internal/protocol"
)

// ErrReconnectExhausted is raised once the reconnect budget is spent. It is
// distinct from an ordinary disconnect: the channel will never reconnect on
// its own and callers must treat the feed as permanently offline until the
// next explicit Connect.
var ErrReconnectExhausted = errors.New("feed: reconnect attempts exhausted")

type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateOpen
	StateReconnecting
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Update is one metrics_update frame fanned out to subscribers. Data carries
// the raw per-domain payloads; handlers decide which domain keys they care
// about.
type Update struct {
	Seq  uint64
	Data map[string]json.RawMessage
}

type Handler func(Update)

type Options struct {
	URL            string
	ReconnectDelay time.Duration // fixed, not exponential
	MaxAttempts    int
	Dialer         *websocket.Dialer
	OnStatus       func(connected bool)
	OnError        func(err error)
	Logger         *log.Logger
}

func (o Options) withDefaults() Options {
	if o.ReconnectDelay <= 0 {
		o.ReconnectDelay = 3 * time.Second
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 5
	}
	if o.Dialer == nil {
		o.Dialer = websocket.DefaultDialer
	}
	if o.Logger == nil {
		o.Logger = log.New(os.Stderr, "[feed] ", log.LstdFlags|log.Lmicroseconds)
	}
	return o
}

type Channel struct {
	opts Options

	mu       sync.Mutex
	state    State
	conn     *websocket.Conn
	attempts int
	timer    *time.Timer
	gen      uint64 // bumped on every manual Connect/Disconnect to orphan stale goroutines
	subs     map[int]Handler
	nextSub  int
}

func New(opts Options) *Channel {
	return &Channel{
		opts: opts.withDefaults(),
		subs: make(map[int]Handler),
	}
}

// Connect starts the connection attempt. It is a no-op while already Open or
// Connecting; from Failed it retries from a clean slate (attempt counter
// reset); from Reconnecting it supersedes the pending timer.
func (c *Channel) Connect() {
	c.mu.Lock()
	switch c.state {
	case StateOpen, StateConnecting:
		c.mu.Unlock()
		return
	case StateFailed:
		c.attempts = 0
	case StateReconnecting:
		if c.timer != nil {
			c.timer.Stop()
			c.timer = nil
		}
	}
	c.state = StateConnecting
	c.gen++
	gen := c.gen
	c.mu.Unlock()
	go c.dial(gen)
}

// Disconnect cancels any pending reconnect, closes the active connection and
// notifies status=false. It is the only clean terminal path.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.state = StateDisconnected
	c.attempts = 0
	c.mu.Unlock()
	c.emitStatus(false)
}

// Subscribe registers a handler for metrics updates and returns its
// unsubscribe func.
func (c *Channel) Subscribe(h Handler) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = h
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

func (c *Channel) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateOpen
}

func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Channel) dial(gen uint64) {
	conn, resp, err := c.opts.Dialer.Dial(c.opts.URL, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	c.mu.Lock()
	if c.gen != gen || c.state != StateConnecting {
		c.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	if err != nil {
		c.opts.Logger.Printf("dial %s: %v (attempt %d/%d)", c.opts.URL, err, c.attempts+1, c.opts.MaxAttempts)
		exhausted := c.scheduleReconnectLocked(gen)
		c.mu.Unlock()
		if exhausted != nil {
			c.emitError(exhausted)
		}
		return
	}
	c.conn = conn
	c.state = StateOpen
	c.attempts = 0
	c.mu.Unlock()

	c.emitStatus(true)
	go c.readLoop(conn, gen)
}

func (c *Channel) readLoop(conn *websocket.Conn, gen uint64) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			c.handleClose(gen)
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			// A frame that is not JSON is a protocol violation by the
			// producer; surface it, never swallow it.
			c.emitError(fmt.Errorf("feed: bad frame: %w", err))
			continue
		}
		if base.Type != protocol.TypeMetricsUpdate {
			continue
		}
		upd, err := protocol.DecodeMetricsUpdate(msg)
		if err != nil {
			c.emitError(fmt.Errorf("feed: bad metrics_update: %w", err))
			continue
		}
		for _, h := range c.handlers() {
			h(Update{Seq: upd.Seq, Data: upd.Data})
		}
	}
}

// handleClose runs recovery after the transport closed, whether cleanly or
// due to an error. A stale generation means Connect/Disconnect already moved
// on and this reader's connection no longer matters.
func (c *Channel) handleClose(gen uint64) {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.state = StateDisconnected
	exhausted := c.scheduleReconnectLocked(gen)
	c.mu.Unlock()

	c.emitStatus(false)
	if exhausted != nil {
		c.emitError(exhausted)
	}
}

// scheduleReconnectLocked arms the fixed-delay reconnect timer, or transitions
// to Failed and returns ErrReconnectExhausted once the attempt budget is
// spent. Caller holds c.mu.
func (c *Channel) scheduleReconnectLocked(gen uint64) error {
	c.attempts++
	if c.attempts > c.opts.MaxAttempts {
		c.state = StateFailed
		c.opts.Logger.Printf("giving up after %d attempts", c.opts.MaxAttempts)
		return ErrReconnectExhausted
	}
	c.state = StateReconnecting
	c.timer = time.AfterFunc(c.opts.ReconnectDelay, func() {
		c.mu.Lock()
		if c.gen != gen || c.state != StateReconnecting {
			c.mu.Unlock()
			return
		}
		c.state = StateConnecting
		c.timer = nil
		c.mu.Unlock()
		go c.dial(gen)
	})
	return nil
}

func (c *Channel) handlers() []Handler {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Handler, 0, len(c.subs))
	for _, h := range c.subs {
		out = append(out, h)
	}
	return out
}

func (c *Channel) emitStatus(connected bool) {
	if c.opts.OnStatus != nil {
		c.opts.OnStatus(connected)
	}
}

func (c *Channel) emitError(err error) {
	if c.opts.OnError != nil {
		c.opts.OnError(err)
		return
	}
	c.opts.Logger.Printf("error: %v", err)
}
