// Package registry tracks live WebSocket connections and fans reload
// notifications out to them. Broadcasting snapshots the connection set
// under a read lock and performs every send outside it, so one slow or
// dead client can never stall registration, counting, or delivery to
// the others. Failed connections are pruned lazily at their next send.
package registry

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/conneroisu/markd/internal/errors"
	"github.com/conneroisu/markd/internal/logging"
)

// writeTimeout bounds a single outbound frame.
const writeTimeout = 10 * time.Second

// defaultSendBuffer is the per-connection outbound queue length.
const defaultSendBuffer = 64

// Transport is the connection surface the registry drives. It is the
// subset of *websocket.Conn the pumps use, split out so tests can
// substitute in-memory fakes.
type Transport interface {
	Read(ctx context.Context) (websocket.MessageType, []byte, error)
	Write(ctx context.Context, typ websocket.MessageType, data []byte) error
	Ping(ctx context.Context) error
	Close(code websocket.StatusCode, reason string) error
}

// Connection pairs a transport with its outbound queue and liveness
// bookkeeping. Instances are created by Register and owned by the
// registry.
type Connection struct {
	ID        string
	transport Transport
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	lastSeen  atomic.Int64 // unix nanos
}

// LastSeen returns the time of the connection's most recent sign of
// life: registration, an inbound frame, or an answered ping.
func (c *Connection) LastSeen() time.Time {
	return time.Unix(0, c.lastSeen.Load())
}

func (c *Connection) touch() {
	c.lastSeen.Store(time.Now().UnixNano())
}

// shutdown closes the transport with a close frame and releases the
// pumps. Idempotent.
func (c *Connection) shutdown(code websocket.StatusCode, reason string) {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.transport.Close(code, reason)
	})
}

// Options configures a ConnectionRegistry.
type Options struct {
	// PingInterval is how often idle connections are pinged.
	PingInterval time.Duration
	// PongTimeout is the silence budget: a connection that has not
	// answered within it is considered dead.
	PongTimeout time.Duration
	// SendBuffer is the outbound queue length per connection. Zero
	// selects the default.
	SendBuffer int
	Logger     logging.Logger
}

// pingWait is how long one ping may wait for its pong.
func (o Options) pingWait() time.Duration {
	if o.PongTimeout > o.PingInterval {
		return o.PongTimeout - o.PingInterval
	}
	return o.PingInterval
}

// ConnectionRegistry is a thread-safe set of live connections. All
// operations may be called from any goroutine.
type ConnectionRegistry struct {
	opts Options
	log  logging.Logger

	mutex  sync.RWMutex
	conns  map[string]*Connection
	closed bool
}

// NewRegistry creates an empty registry.
func NewRegistry(opts Options) *ConnectionRegistry {
	if opts.PingInterval <= 0 {
		opts.PingInterval = 30 * time.Second
	}
	if opts.PongTimeout <= 0 {
		opts.PongTimeout = 60 * time.Second
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaultSendBuffer
	}
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	return &ConnectionRegistry{
		opts:  opts,
		log:   log.WithComponent("registry"),
		conns: make(map[string]*Connection),
	}
}

// Register adds a transport to the registry and returns its connection.
// The registration is visible to Broadcast and Count as soon as this
// returns. Fails once the registry has been closed.
func (r *ConnectionRegistry) Register(transport Transport) (*Connection, error) {
	conn := &Connection{
		ID:        uuid.New().String(),
		transport: transport,
		send:      make(chan []byte, r.opts.SendBuffer),
		done:      make(chan struct{}),
	}
	conn.touch()

	r.mutex.Lock()
	if r.closed {
		r.mutex.Unlock()
		return nil, errors.NewDeliveryError(errors.ErrCodeRegistryClosed,
			"connection registry is closed", nil)
	}
	r.conns[conn.ID] = conn
	total := len(r.conns)
	r.mutex.Unlock()

	r.log.Debug(context.Background(), "client connected",
		"connection_id", conn.ID, "total", total)
	return conn, nil
}

// Unregister removes a connection, sends its close frame, and releases
// its pumps. Unknown IDs are a no-op, so pruning the same connection
// from several code paths is safe.
func (r *ConnectionRegistry) Unregister(id string) {
	r.mutex.Lock()
	conn, ok := r.conns[id]
	if ok {
		delete(r.conns, id)
	}
	total := len(r.conns)
	r.mutex.Unlock()

	if !ok {
		return
	}
	conn.shutdown(websocket.StatusNormalClosure, "")
	r.log.Debug(context.Background(), "client disconnected",
		"connection_id", id, "total", total)
}

// Count returns the number of registered connections.
func (r *ConnectionRegistry) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.conns)
}

// Broadcast marshals message once and queues it to every connection in
// the current snapshot. Connections whose queue is full are pruned;
// delivery to the rest is unaffected. Returns how many connections the
// message was queued to.
func (r *ConnectionRegistry) Broadcast(message any) (int, error) {
	data, err := json.Marshal(message)
	if err != nil {
		return 0, errors.NewInternalError(errors.ErrCodeInternalError,
			"cannot marshal broadcast message", err)
	}

	queued := 0
	for _, conn := range r.snapshot() {
		if r.enqueue(conn, data) {
			queued++
		}
	}
	return queued, nil
}

// SendTo queues a message to one connection.
func (r *ConnectionRegistry) SendTo(id string, message any) error {
	data, err := json.Marshal(message)
	if err != nil {
		return errors.NewInternalError(errors.ErrCodeInternalError,
			"cannot marshal message", err)
	}

	r.mutex.RLock()
	conn, ok := r.conns[id]
	r.mutex.RUnlock()
	if !ok {
		return errors.NewDeliveryError(errors.ErrCodeDeliveryFailed,
			"unknown connection", nil).WithContext("connection_id", id)
	}

	if !r.enqueue(conn, data) {
		return errors.NewDeliveryError(errors.ErrCodeDeliveryFailed,
			"connection is not draining its queue", nil).WithContext("connection_id", id)
	}
	return nil
}

// snapshot copies the current connection set so sends happen without
// holding the lock.
func (r *ConnectionRegistry) snapshot() []*Connection {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	conns := make([]*Connection, 0, len(r.conns))
	for _, conn := range r.conns {
		conns = append(conns, conn)
	}
	return conns
}

// enqueue puts data on the connection's queue without blocking. A full
// queue means the write pump has stalled; the connection is pruned
// asynchronously and the message dropped for it.
func (r *ConnectionRegistry) enqueue(conn *Connection, data []byte) bool {
	select {
	case <-conn.done:
		return false
	case conn.send <- data:
		return true
	default:
		r.log.Warn(context.Background(), nil, "pruning stalled connection",
			"connection_id", conn.ID)
		go r.Unregister(conn.ID)
		return false
	}
}

// Serve runs the connection's read and write pumps and blocks until
// the connection dies, then unregisters it. The WebSocket handler calls
// this and must not return earlier; the underlying connection closes
// when its handler returns.
func (r *ConnectionRegistry) Serve(ctx context.Context, conn *Connection) {
	defer r.Unregister(conn.ID)

	go r.writePump(ctx, conn)
	r.readPump(ctx, conn)
}

// readPump consumes inbound frames. Clients do not speak a protocol to
// the server; anything received just refreshes liveness. Returns when
// the connection errors or closes.
func (r *ConnectionRegistry) readPump(ctx context.Context, conn *Connection) {
	for {
		select {
		case <-conn.done:
			return
		default:
		}

		_, _, err := conn.transport.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				r.log.Debug(ctx, "client closed connection", "connection_id", conn.ID)
			} else {
				r.log.Debug(ctx, "read ended", "connection_id", conn.ID, "reason", err.Error())
			}
			return
		}
		conn.touch()
	}
}

// writePump drains the outbound queue and pings on an interval. A
// failed write or an unanswered ping closes the transport, which in
// turn ends the read pump and unregisters the connection.
func (r *ConnectionRegistry) writePump(ctx context.Context, conn *Connection) {
	ticker := time.NewTicker(r.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.shutdown(websocket.StatusGoingAway, "server shutting down")
			return
		case <-conn.done:
			return
		case data := <-conn.send:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.transport.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				r.log.Debug(ctx, "write failed, dropping connection",
					"connection_id", conn.ID, "reason", err.Error())
				conn.shutdown(websocket.StatusAbnormalClosure, "write failed")
				return
			}
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, r.opts.pingWait())
			err := conn.transport.Ping(pctx)
			cancel()
			if err != nil {
				r.log.Debug(ctx, "ping unanswered, dropping connection",
					"connection_id", conn.ID, "reason", err.Error())
				conn.shutdown(websocket.StatusAbnormalClosure, "ping timeout")
				return
			}
			conn.touch()
		}
	}
}

// Close shuts the registry down: no further registrations are accepted
// and every connection receives a going-away close frame. Idempotent.
func (r *ConnectionRegistry) Close() {
	r.mutex.Lock()
	if r.closed {
		r.mutex.Unlock()
		return
	}
	r.closed = true
	conns := make([]*Connection, 0, len(r.conns))
	for _, conn := range r.conns {
		conns = append(conns, conn)
	}
	r.conns = make(map[string]*Connection)
	r.mutex.Unlock()

	for _, conn := range conns {
		conn.shutdown(websocket.StatusGoingAway, "server shutting down")
	}
	r.log.Info(context.Background(), "registry closed", "connections_closed", len(conns))
}
