package mediaws

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/xid"

	"github.com/tiroq/voiceplay/internal/diaglog"
	"github.com/tiroq/voiceplay/internal/player"
)

var _ player.Media = (*Client)(nil)

// ErrNotConnected is returned by requests issued while the host is away.
var ErrNotConnected = errors.New("media host not connected")

// Status is the client's cached view of the host.
type Status struct {
	Connected   bool      `json:"connected"`
	HostVersion string    `json:"host_version,omitempty"`
	RPCVersion  int       `json:"rpc_version,omitempty"`
	LastUpdated time.Time `json:"last_updated"`
}

// Client talks to one media host. It reconnects on its own after the
// connection drops until Disconnect is called.
type Client struct {
	url      string
	password string

	mu         sync.RWMutex
	conn       *websocket.Conn
	identified bool
	status     Status

	writeMu sync.Mutex

	pending   map[string]chan *Response
	pendingMu sync.Mutex

	timeout        time.Duration
	reconnect      bool
	reconnectDelay time.Duration
	stop           chan struct{}
	stopOnce       sync.Once

	handlersMu       sync.RWMutex
	resolver         Resolver
	onTimeUpdate     func(seconds float64)
	onMetadataLoaded func(duration float64)
	onEnded          func()
	onDisconnected   func()
	onReconnected    func()

	logger   *diaglog.Logger
	loggerMu sync.RWMutex
}

// NewClient creates a client for the host at url. password may be empty.
func NewClient(url, password string) *Client {
	return &Client{
		url:            url,
		password:       password,
		pending:        make(map[string]chan *Response),
		timeout:        10 * time.Second,
		reconnect:      true,
		reconnectDelay: 5 * time.Second,
		stop:           make(chan struct{}),
		logger:         diaglog.NewNoOp(),
		status:         Status{LastUpdated: time.Now()},
	}
}

// Connect dials the host and completes the Hello/Identify handshake.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.RLock()
	already := c.conn != nil
	c.mu.RUnlock()
	if already {
		return fmt.Errorf("already connected")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dialing media host: %w", err)
	}
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(dl)
	}

	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		_ = conn.Close()
		return fmt.Errorf("waiting for hello: %w", err)
	}
	if msg.Op != OpHello {
		_ = conn.Close()
		return fmt.Errorf("expected hello, got op %d", msg.Op)
	}
	var hello Hello
	if err := json.Unmarshal(msg.D, &hello); err != nil {
		_ = conn.Close()
		return fmt.Errorf("decoding hello: %w", err)
	}

	id := Identify{RPCVersion: RPCVersion, EventSubscriptions: SubscribePlayback}
	if hello.Authentication != nil {
		if c.password == "" {
			_ = conn.Close()
			return fmt.Errorf("media host requires a password")
		}
		id.Authentication = authResponse(c.password, hello.Authentication.Salt, hello.Authentication.Challenge)
	}
	out, err := envelope(OpIdentify, id)
	if err != nil {
		_ = conn.Close()
		return err
	}
	if err := conn.WriteJSON(out); err != nil {
		_ = conn.Close()
		return fmt.Errorf("sending identify: %w", err)
	}

	if err := conn.ReadJSON(&msg); err != nil {
		_ = conn.Close()
		return fmt.Errorf("waiting for identified: %w", err)
	}
	if msg.Op != OpIdentified {
		_ = conn.Close()
		return fmt.Errorf("expected identified, got op %d", msg.Op)
	}
	_ = conn.SetReadDeadline(time.Time{})

	c.mu.Lock()
	c.conn = conn
	c.identified = true
	c.status = Status{
		Connected:   true,
		HostVersion: hello.HostVersion,
		RPCVersion:  hello.RPCVersion,
		LastUpdated: time.Now(),
	}
	c.mu.Unlock()

	c.log(diaglog.Record{
		Event:   diaglog.EventWSConnect,
		Payload: map[string]interface{}{"host_version": hello.HostVersion, "rpc_version": hello.RPCVersion},
	})

	go c.readLoop(conn)
	return nil
}

// authResponse computes base64(sha256(base64(sha256(password+salt))+challenge)).
func authResponse(password, salt, challenge string) string {
	secret := sha256.Sum256([]byte(password + salt))
	secretB64 := base64.StdEncoding.EncodeToString(secret[:])
	auth := sha256.Sum256([]byte(secretB64 + challenge))
	return base64.StdEncoding.EncodeToString(auth[:])
}

// readLoop reads frames until the connection fails. Events are handed to a
// separate dispatcher so a handler may issue requests of its own.
func (c *Client) readLoop(conn *websocket.Conn) {
	events := make(chan *Event, 256)
	go c.dispatchEvents(events)

	defer func() {
		close(events)
		c.drop(conn)
		c.handlersMu.RLock()
		h := c.onDisconnected
		c.handlersMu.RUnlock()
		if h != nil {
			h()
		}
		if c.shouldReconnect() {
			c.reconnectLoop()
		}
	}()

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Op {
		case OpEvent:
			var ev Event
			if err := json.Unmarshal(msg.D, &ev); err != nil {
				continue
			}
			if ev.EventType == EvTimeUpdate {
				// A newer position supersedes a dropped one.
				select {
				case events <- &ev:
				default:
				}
				continue
			}
			events <- &ev
		case OpRequestResponse:
			var resp Response
			if err := json.Unmarshal(msg.D, &resp); err == nil {
				c.log(diaglog.Record{
					Event:   diaglog.EventWSRecv,
					Payload: map[string]interface{}{"request_type": resp.RequestType, "request_id": resp.RequestID, "code": resp.RequestStatus.Code},
				})
				c.handleResponse(&resp)
			}
		}
	}
}

func (c *Client) dispatchEvents(events <-chan *Event) {
	for ev := range events {
		c.handleEvent(ev)
	}
}

func (c *Client) handleEvent(ev *Event) {
	c.handlersMu.RLock()
	onTime, onMeta, onEnded := c.onTimeUpdate, c.onMetadataLoaded, c.onEnded
	c.handlersMu.RUnlock()

	switch ev.EventType {
	case EvTimeUpdate:
		var d struct {
			CurrentTime float64 `json:"currentTime"`
		}
		if err := json.Unmarshal(ev.EventData, &d); err == nil && onTime != nil {
			onTime(d.CurrentTime)
		}
	case EvLoadedMetadata:
		var d struct {
			Duration float64 `json:"duration"`
		}
		if err := json.Unmarshal(ev.EventData, &d); err == nil && onMeta != nil {
			onMeta(d.Duration)
		}
	case EvEnded:
		if onEnded != nil {
			onEnded()
		}
	}
}

func (c *Client) handleResponse(resp *Response) {
	c.pendingMu.Lock()
	ch, ok := c.pending[resp.RequestID]
	c.pendingMu.Unlock()
	if !ok {
		log.Printf("mediaws: response for unknown request %q", resp.RequestID)
		return
	}
	select {
	case ch <- resp:
	default:
	}
}

// call sends one request and waits for its response.
func (c *Client) call(requestType string, data interface{}) (*Response, error) {
	c.mu.RLock()
	conn, ok := c.conn, c.identified
	c.mu.RUnlock()
	if conn == nil || !ok {
		return nil, fmt.Errorf("%s: %w", requestType, ErrNotConnected)
	}

	id := xid.New().String()
	msg, err := envelope(OpRequest, Request{RequestType: requestType, RequestID: id, RequestData: data})
	if err != nil {
		return nil, err
	}

	ch := make(chan *Response, 1)
	c.pendingMu.Lock()
	c.pending[id] = ch
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
	}()

	c.log(diaglog.Record{
		Event:   diaglog.EventWSSend,
		Payload: map[string]interface{}{"request_type": requestType, "request_id": id},
	})

	c.writeMu.Lock()
	err = conn.WriteJSON(msg)
	c.writeMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", requestType, err)
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()
	select {
	case resp := <-ch:
		if !resp.RequestStatus.Result || resp.RequestStatus.Code != CodeSuccess {
			return nil, &RequestError{RequestType: requestType, Code: resp.RequestStatus.Code, Comment: resp.RequestStatus.Comment}
		}
		return resp, nil
	case <-timer.C:
		return nil, fmt.Errorf("%s: request timeout after %s", requestType, c.timeout)
	case <-c.stop:
		return nil, fmt.Errorf("%s: %w", requestType, ErrNotConnected)
	}
}

func (c *Client) drop(conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != conn {
		return
	}
	_ = conn.Close()
	c.conn = nil
	c.identified = false
	c.status.Connected = false
	c.status.LastUpdated = time.Now()
	c.log(diaglog.Record{
		Event:   diaglog.EventWSDisconnect,
		Payload: map[string]interface{}{"url": c.url},
	})
}

func (c *Client) shouldReconnect() bool {
	select {
	case <-c.stop:
		return false
	default:
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.reconnect
}

// reconnectLoop retries Connect with exponential backoff and jitter until
// it succeeds or the client is stopped.
func (c *Client) reconnectLoop() {
	c.mu.RLock()
	delay := c.reconnectDelay
	c.mu.RUnlock()

	for attempt := 1; ; attempt++ {
		select {
		case <-c.stop:
			return
		case <-time.After(delay):
		}

		c.log(diaglog.Record{
			Event:   diaglog.EventWSReconnectAttempt,
			Payload: map[string]interface{}{"attempt": attempt, "delay_ms": delay.Milliseconds()},
		})
		err := c.Connect(context.Background())
		if err == nil {
			log.Printf("mediaws: reconnected on attempt %d", attempt)
			c.handlersMu.RLock()
			h := c.onReconnected
			c.handlersMu.RUnlock()
			if h != nil {
				h()
			}
			return
		}
		c.log(diaglog.Record{
			Event:   diaglog.EventWSReconnectFailed,
			Payload: map[string]interface{}{"attempt": attempt, "error": err.Error()},
		})

		delay = nextDelay(delay)
	}
}

// nextDelay doubles d up to a minute and adds up to ±10% jitter, never
// going below one second.
func nextDelay(d time.Duration) time.Duration {
	d *= 2
	if d > time.Minute {
		d = time.Minute
	}
	jitter := time.Duration(float64(d) * 0.2 * (rand.Float64() - 0.5))
	d += jitter
	if d < time.Second {
		d = time.Second
	}
	return d
}

// Disconnect closes the connection and stops reconnecting. Pending requests
// fail with ErrNotConnected.
func (c *Client) Disconnect() {
	c.stopOnce.Do(func() { close(c.stop) })
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn != nil {
		c.drop(conn)
	}
}

// SetLogger attaches a diagnostic logger. nil restores the no-op logger.
func (c *Client) SetLogger(l *diaglog.Logger) {
	if l == nil {
		l = diaglog.NewNoOp()
	}
	c.loggerMu.Lock()
	c.logger = l
	c.loggerMu.Unlock()
}

func (c *Client) log(r diaglog.Record) {
	if r.Component == "" {
		r.Component = diaglog.ComponentMediaHost
	}
	c.loggerMu.RLock()
	l := c.logger
	c.loggerMu.RUnlock()
	l.Log(r)
}

// SetReconnect turns automatic reconnection on or off and sets the first
// retry delay.
func (c *Client) SetReconnect(enabled bool, delay time.Duration) {
	c.mu.Lock()
	c.reconnect = enabled
	if delay > 0 {
		c.reconnectDelay = delay
	}
	c.mu.Unlock()
}

// SetRequestTimeout bounds how long a request waits for its response.
func (c *Client) SetRequestTimeout(d time.Duration) {
	if d > 0 {
		c.timeout = d
	}
}

// OnTimeUpdate registers the handler for position reports.
func (c *Client) OnTimeUpdate(h func(seconds float64)) {
	c.handlersMu.Lock()
	c.onTimeUpdate = h
	c.handlersMu.Unlock()
}

// OnMetadataLoaded registers the handler for duration reports.
func (c *Client) OnMetadataLoaded(h func(duration float64)) {
	c.handlersMu.Lock()
	c.onMetadataLoaded = h
	c.handlersMu.Unlock()
}

// OnEnded registers the handler for end of playback.
func (c *Client) OnEnded(h func()) {
	c.handlersMu.Lock()
	c.onEnded = h
	c.handlersMu.Unlock()
}

// OnDisconnected registers the handler called when the connection drops.
func (c *Client) OnDisconnected(h func()) {
	c.handlersMu.Lock()
	c.onDisconnected = h
	c.handlersMu.Unlock()
}

// OnReconnected registers the handler called after an automatic reconnect.
func (c *Client) OnReconnected(h func()) {
	c.handlersMu.Lock()
	c.onReconnected = h
	c.handlersMu.Unlock()
}

// IsConnected reports whether the handshake has completed on a live
// connection.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil && c.identified
}

// Status returns the cached host status.
func (c *Client) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}
