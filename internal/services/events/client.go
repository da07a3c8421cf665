package events

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

// ConnectionState is the lifecycle state of the push connection
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateReconnecting ConnectionState = "reconnecting"
	StateFailed       ConnectionState = "failed" // reconnect attempts exhausted
	StateClosed       ConnectionState = "closed"
)

var (
	// ErrReconnectExhausted is reported once the maximum reconnect attempts were used up
	ErrReconnectExhausted = errors.New("event channel reconnect attempts exhausted")

	// ErrNotConnected indicates a send without an open connection
	ErrNotConnected = errors.New("event channel not connected")
)

// StateObserver is notified about connection state changes
type StateObserver interface {
	ConnectionStateChanged(state ConnectionState, err error)
}

// Config holds push channel settings
type Config struct {
	HeartbeatInterval    time.Duration // Default: 30s
	InitialDelay         time.Duration // Default: 1s
	MaxDelay             time.Duration // Default: 30s
	MaxReconnectAttempts int           // Default: 10
}

// Status is a snapshot of the connection
type Status struct {
	State         ConnectionState `json:"state"`
	Error         string          `json:"error,omitempty"`
	Attempts      int             `json:"attempts"`
	Subscriptions []string        `json:"subscriptions"`
	Acknowledged  []string        `json:"acknowledged"`
	LastPong      *time.Time      `json:"last_pong,omitempty"`
}

// Client decodes frames from a transport, handles heartbeats and connection
// management, and routes everything else to listeners
type Client struct {
	config    Config
	transport Transport
	router    *Router

	mu        sync.Mutex
	conn      Conn
	state     ConnectionState
	lastErr   error
	attempts  int
	subs      map[Channel]bool // channel -> acknowledged
	observers []StateObserver
	lastPong  time.Time

	writeMu sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewClient creates a client over transport. router may be shared with other producers.
func NewClient(cfg Config, transport Transport, router *Router) *Client {
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 30 * time.Second
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = time.Second
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 30 * time.Second
	}
	if cfg.MaxDelay < cfg.InitialDelay {
		cfg.MaxDelay = cfg.InitialDelay
	}
	if cfg.MaxReconnectAttempts <= 0 {
		cfg.MaxReconnectAttempts = 10
	}
	if router == nil {
		router = NewRouter()
	}

	return &Client{
		config:    cfg,
		transport: transport,
		router:    router,
		state:     StateDisconnected,
		subs:      make(map[Channel]bool),
		done:      make(chan struct{}),
	}
}

// Router returns the router events are delivered through
func (c *Client) Router() *Router {
	return c.router
}

// AddObserver registers a connection state observer
func (c *Client) AddObserver(o StateObserver) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, o)
}

// Listen registers a listener on a channel. See Router.Listen.
func (c *Client) Listen(ch Channel, l Listener) func() {
	return c.router.Listen(ch, l)
}

// Start runs the connect/read/reconnect loop in the background
func (c *Client) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()
	go c.run(ctx)
}

// Stop closes the connection and waits for the loop to exit
func (c *Client) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	conn := c.conn
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	if conn != nil {
		_ = conn.Close()
	}
	<-c.done
}

// Done is closed when the loop exits, either stopped or failed
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err returns the terminal error once the client failed
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateFailed {
		return c.lastErr
	}
	return nil
}

// State returns the current connection state
func (c *Client) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Status returns a snapshot of the connection
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Status{
		State:         c.state,
		Attempts:      c.attempts,
		Subscriptions: []string{},
		Acknowledged:  []string{},
	}
	if c.lastErr != nil {
		st.Error = c.lastErr.Error()
	}
	for ch, acked := range c.subs {
		st.Subscriptions = append(st.Subscriptions, ch.String())
		if acked {
			st.Acknowledged = append(st.Acknowledged, ch.String())
		}
	}
	if !c.lastPong.IsZero() {
		t := c.lastPong
		st.LastPong = &t
	}
	return st
}

// Subscribe asks the server for events on ch. Subscribing twice is a no-op.
// Without a connection the subscription is sent once connected.
func (c *Client) Subscribe(ch Channel) error {
	if err := ch.validate(); err != nil {
		return err
	}

	c.mu.Lock()
	if _, exists := c.subs[ch]; exists {
		c.mu.Unlock()
		return nil
	}
	c.subs[ch] = false
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	return c.send(conn, &Subscribe{Channel: ch})
}

// Unsubscribe drops interest in ch. Unsubscribing an unknown channel is a no-op.
func (c *Client) Unsubscribe(ch Channel) error {
	c.mu.Lock()
	if _, exists := c.subs[ch]; !exists {
		c.mu.Unlock()
		return nil
	}
	delete(c.subs, ch)
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	return c.send(conn, &Unsubscribe{Channel: ch})
}

// IsAcknowledged reports whether the server confirmed the subscription
func (c *Client) IsAcknowledged(ch Channel) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subs[ch]
}

// Send writes an event on the current connection
func (c *Client) Send(ev Event) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	return c.send(conn, ev)
}

func (c *Client) send(conn Conn, ev Event) error {
	data, err := Encode(ev)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteMessage(data)
}

func (c *Client) run(ctx context.Context) {
	defer close(c.done)

	failures := 0
	for {
		if failures == 0 {
			c.setState(StateConnecting, nil)
		} else {
			c.setState(StateReconnecting, c.lastError())
		}

		conn, err := c.transport.Dial(ctx)
		if err == nil {
			failures = 0
			c.attach(conn)
			err = c.readLoop(ctx, conn)
			c.detach(conn)
		}

		if ctx.Err() != nil {
			c.setState(StateClosed, nil)
			return
		}

		failures++
		c.mu.Lock()
		c.attempts = failures
		c.lastErr = err
		c.mu.Unlock()

		if failures > c.config.MaxReconnectAttempts {
			failErr := fmt.Errorf("%w after %d attempts: %v", ErrReconnectExhausted, failures-1, err)
			log.Printf("[ERROR] Event channel giving up: %v", failErr)
			c.setState(StateFailed, failErr)
			return
		}

		delay := c.backoff(failures)
		log.Printf("[WARN] Event channel connection lost (%v), retrying in %s (attempt %d/%d)",
			err, delay, failures, c.config.MaxReconnectAttempts)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			c.setState(StateClosed, nil)
			return
		case <-timer.C:
		}
	}
}

// backoff returns the delay before reconnect attempt n (1-based)
func (c *Client) backoff(n int) time.Duration {
	delay := c.config.InitialDelay
	for i := 1; i < n; i++ {
		delay *= 2
		if delay >= c.config.MaxDelay {
			return c.config.MaxDelay
		}
	}
	return delay
}

func (c *Client) attach(conn Conn) {
	c.mu.Lock()
	c.conn = conn
	c.attempts = 0
	c.lastErr = nil
	pending := make([]Channel, 0, len(c.subs))
	for ch := range c.subs {
		c.subs[ch] = false
		pending = append(pending, ch)
	}
	c.mu.Unlock()

	c.setState(StateConnected, nil)
	for _, ch := range pending {
		if err := c.send(conn, &Subscribe{Channel: ch}); err != nil {
			log.Printf("[WARN] Failed to resubscribe to %s: %v", ch, err)
		}
	}
}

func (c *Client) detach(conn Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
	_ = conn.Close()
}

func (c *Client) readLoop(ctx context.Context, conn Conn) error {
	stop := make(chan struct{})
	defer close(stop)

	go func() {
		ticker := time.NewTicker(c.config.HeartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				_ = conn.Close()
				return
			case now := <-ticker.C:
				if err := c.send(conn, &Ping{Timestamp: now.UnixMilli()}); err != nil {
					log.Printf("[DEBUG] Heartbeat ping failed: %v", err)
				}
			}
		}
	}()

	for {
		raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		ev, err := Decode(raw)
		if err != nil {
			log.Printf("[WARN] Dropping event frame: %v", err)
			continue
		}
		if disconnect := c.handle(conn, ev); disconnect != nil {
			return disconnect
		}
	}
}

// handle processes connection management events and routes the rest.
// A non-nil return ends the connection.
func (c *Client) handle(conn Conn, ev Event) error {
	switch e := ev.(type) {
	case *Ping:
		if err := c.send(conn, &Pong{Timestamp: e.Timestamp}); err != nil {
			log.Printf("[DEBUG] Pong failed: %v", err)
		}
	case *Pong:
		c.mu.Lock()
		c.lastPong = time.Now().UTC()
		c.mu.Unlock()
	case *Connected:
		log.Printf("[INFO] Event channel connected (client %s, server %s)", e.ClientID, e.ServerVersion)
	case *Disconnected:
		return fmt.Errorf("server closed event channel: %s", e.Reason)
	case *Error:
		log.Printf("[WARN] Event channel error %s: %s", e.Code, e.Message)
	case *Subscribed:
		c.mu.Lock()
		if _, ok := c.subs[e.Channel]; ok {
			c.subs[e.Channel] = true
		}
		c.mu.Unlock()
	case *Unsubscribed:
		log.Printf("[DEBUG] Unsubscribed from %s", e.Channel)
	case *Subscribe, *Unsubscribe:
		log.Printf("[DEBUG] Ignoring client control frame %s from server", ev.Type())
	default:
		c.router.Dispatch(ev)
	}
	return nil
}

func (c *Client) lastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Client) setState(state ConnectionState, err error) {
	c.mu.Lock()
	if c.state == state && state != StateReconnecting {
		c.mu.Unlock()
		return
	}
	c.state = state
	if err != nil {
		c.lastErr = err
	}
	observers := append([]StateObserver(nil), c.observers...)
	c.mu.Unlock()

	log.Printf("[DEBUG] Event channel state: %s", state)
	for _, o := range observers {
		o.ConnectionStateChanged(state, err)
	}
}
