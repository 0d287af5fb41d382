package ws

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"venuehubgo/internal/auth"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second // must be < pongWait
)

var (
	ErrConnClosed    = errors.New("connection_closed")
	ErrSendQueueFull = errors.New("send_queue_full")
)

// transport is the write side of the underlying socket.
// *websocket.Conn satisfies it; tests supply fakes.
type transport interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Conn is one live peer session. All writes funnel through a single pump
// goroutine behind a bounded queue, so one slow peer never blocks fan-out
// to the others.
type Conn struct {
	id string
	tr transport

	sendCh    chan []byte
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	lastActivity atomic.Int64 // unix nanos

	mu            sync.RWMutex
	identity      *auth.Identity
	authenticated bool

	// rooms this connection has joined; guarded by the owning Hub's mutex,
	// never touched outside it.
	rooms map[string]struct{}

	// invoked (on its own goroutine) when the pump hits a write error.
	onWriteError func(*Conn)
}

func newConn(id string, tr transport, queueSize int, onWriteError func(*Conn)) *Conn {
	c := &Conn{
		id:           id,
		tr:           tr,
		sendCh:       make(chan []byte, queueSize),
		done:         make(chan struct{}),
		rooms:        make(map[string]struct{}),
		onWriteError: onWriteError,
	}
	c.touch()
	c.wg.Add(1)
	go c.pump()
	return c
}

func (c *Conn) ID() string { return c.id }

// Send enqueues one already-serialised frame. It never blocks: a full queue
// means the peer is not draining and the caller treats it as a dead peer.
func (c *Conn) Send(msg []byte) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}
	select {
	case c.sendCh <- msg:
		return nil
	default:
		return ErrSendQueueFull
	}
}

func (c *Conn) pump() {
	defer c.wg.Done()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg := <-c.sendCh:
			_ = c.tr.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.tr.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.failed()
				return
			}
		case <-ticker.C:
			_ = c.tr.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.tr.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.failed()
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *Conn) failed() {
	if c.onWriteError != nil {
		// Detached: eviction takes the hub lock and closes this conn.
		go c.onWriteError(c)
	}
}

// close tears the transport down. Safe to call more than once and from any
// goroutine, including after a pump write failure. It never blocks the
// caller: the pump may be parked in a slow write for up to writeWait, and
// eviction must not stall behind it.
func (c *Conn) close(reason string) {
	c.closeOnce.Do(func() {
		close(c.done)
		go func() {
			c.wg.Wait()
			// Pump has exited; writing the close frame cannot race it.
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
			_ = c.tr.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.tr.WriteMessage(websocket.CloseMessage, msg)
			_ = c.tr.Close()
		}()
	})
}

// touch records inbound activity for the liveness monitor.
func (c *Conn) touch() {
	c.lastActivity.Store(time.Now().UnixNano())
}

func (c *Conn) idleFor(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, c.lastActivity.Load()))
}

// setIdentity promotes the connection to authenticated.
func (c *Conn) setIdentity(ident auth.Identity) {
	c.mu.Lock()
	c.identity = &ident
	c.authenticated = true
	c.mu.Unlock()
}

func (c *Conn) Authenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.authenticated
}

// Identity returns the claims attached at authentication time.
func (c *Conn) Identity() (auth.Identity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.identity == nil {
		return auth.Identity{}, false
	}
	return *c.identity, true
}
