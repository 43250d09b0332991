// Package networktables is a small NT4 client for publishing vision
// results to a roboRIO or simulator.
//
// Control messages are JSON text frames; values are msgpack binary frames
// of [id, timestamp, type, value]. Topics set while disconnected are kept
// and republished with their latest value after each reconnect.
package networktables

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
)

// Sentinel errors.
var (
	// ErrNotConnected is returned by operations that need a live socket.
	ErrNotConnected = errors.New("networktables: not connected")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("networktables: client closed")

	// ErrTypeMismatch is returned when a topic is set with a new type.
	ErrTypeMismatch = errors.New("networktables: topic type mismatch")
)

const writeWait = 5 * time.Second

// FMSInfoPrefix is the table the robot's field management state is
// published under.
const FMSInfoPrefix = "/FMSInfo/"

// Stats reports client activity.
type Stats struct {
	Connected  bool   `json:"connected"`
	Address    string `json:"address"`
	Topics     int    `json:"topics"`
	Sent       uint64 `json:"sent"`
	Received   uint64 `json:"received"`
	Dropped    uint64 `json:"dropped"`
	Reconnects uint64 `json:"reconnects"`
	OffsetUs   int64  `json:"offset_us"`
}

type pubTopic struct {
	name       string
	uid        int
	typeName   string
	properties map[string]interface{}
	value      *Value
}

type outbound struct {
	text bool
	data []byte
}

// Client publishes topic values to an NT4 server. Set is safe for
// concurrent use; the socket is owned by the Run goroutine.
type Client struct {
	cfg    Config
	logger *slog.Logger
	dialer *websocket.Dialer

	mu         sync.Mutex
	connected  bool
	closed     bool
	cancel     context.CancelFunc
	topics     map[string]*pubTopic
	order      []*pubTopic
	nextPubUID int
	nextSubUID int
	subs       map[int][]string
	announced  map[int64]AnnounceParams
	received   map[string]Value

	out chan outbound

	offset     atomic.Int64
	synced     atomic.Bool
	sent       atomic.Uint64
	recv       atomic.Uint64
	dropped    atomic.Uint64
	reconnects atomic.Uint64
}

// New creates a client. Call Run to connect.
func New(cfg Config) (*Client, error) {
	def := DefaultConfig()
	if cfg.Port == 0 {
		cfg.Port = def.Port
	}
	if cfg.ClientName == "" {
		cfg.ClientName = def.ClientName
	}
	if cfg.ReconnectInterval <= 0 {
		cfg.ReconnectInterval = def.ReconnectInterval
	}
	if cfg.MaxReconnectInterval <= 0 {
		cfg.MaxReconnectInterval = def.MaxReconnectInterval
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.TimeSyncInterval <= 0 {
		cfg.TimeSyncInterval = def.TimeSyncInterval
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		cfg:    cfg,
		logger: logger.With("component", "networktables", "server", cfg.Address()),
		dialer: &websocket.Dialer{
			HandshakeTimeout: 5 * time.Second,
			Subprotocols:     []string{Subprotocol, LegacySubprotocol},
		},
		topics:    make(map[string]*pubTopic),
		subs:      make(map[int][]string),
		announced: make(map[int64]AnnounceParams),
		received:  make(map[string]Value),
		out:       make(chan outbound, cfg.QueueSize),
	}, nil
}

// Set publishes v on topic name, announcing the topic on first use.
// While disconnected the value is stored and sent after reconnecting.
func (c *Client) Set(name string, v Value) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	t, ok := c.topics[name]
	if ok && t.typeName != v.TypeName {
		return fmt.Errorf("%w: %s is %s, got %s", ErrTypeMismatch, name, t.typeName, v.TypeName)
	}
	if !ok {
		t = &pubTopic{name: name, uid: c.nextPubUID, typeName: v.TypeName}
		c.nextPubUID++
		c.topics[name] = t
		c.order = append(c.order, t)

		if c.connected {
			msg, err := EncodeControl("publish", t.params())
			if err != nil {
				return err
			}
			c.enqueue(outbound{text: true, data: msg})
		}
	}

	val := v
	t.value = &val

	if c.connected {
		var buf bytes.Buffer
		if err := EncodeFrame(&buf, Frame{ID: int64(t.uid), Timestamp: c.serverTime(), Value: v}); err != nil {
			return err
		}
		c.enqueue(outbound{data: buf.Bytes()})
	}
	return nil
}

// SetProperties merges update into the properties of a topic already
// published with Set. A nil value deletes the property. The properties are
// resent on reconnect as part of the publish message.
func (c *Client) SetProperties(name string, update map[string]interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	t, ok := c.topics[name]
	if !ok {
		return fmt.Errorf("networktables: set properties: unknown topic %s", name)
	}

	if t.properties == nil {
		t.properties = make(map[string]interface{}, len(update))
	}
	for k, v := range update {
		if v == nil {
			delete(t.properties, k)
			continue
		}
		t.properties[k] = v
	}

	if c.connected {
		msg, err := EncodeControl("setproperties", SetPropertiesParams{Name: name, Update: update})
		if err != nil {
			return err
		}
		c.enqueue(outbound{text: true, data: msg})
	}
	return nil
}

// Subscribe asks the server for values of the given topic names or
// prefixes. Received values are available through Values.
func (c *Client) Subscribe(topics ...string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, ErrClosed
	}

	uid := c.nextSubUID
	c.nextSubUID++
	c.subs[uid] = append([]string(nil), topics...)

	if c.connected {
		msg, err := EncodeControl("subscribe", subscribeParams(uid, topics))
		if err != nil {
			return 0, err
		}
		c.enqueue(outbound{text: true, data: msg})
	}
	return uid, nil
}

// Values returns the latest received value of every subscribed topic whose
// name starts with prefix.
func (c *Client) Values(prefix string) map[string]Value {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]Value)
	for name, v := range c.received {
		if strings.HasPrefix(name, prefix) {
			out[name] = v
		}
	}
	return out
}

// Connected reports whether a session is live
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Stats returns a snapshot of client counters.
func (c *Client) Stats() Stats {
	c.mu.Lock()
	connected, topics := c.connected, len(c.topics)
	c.mu.Unlock()

	return Stats{
		Connected:  connected,
		Address:    c.cfg.Address(),
		Topics:     topics,
		Sent:       c.sent.Load(),
		Received:   c.recv.Load(),
		Dropped:    c.dropped.Load(),
		Reconnects: c.reconnects.Load(),
		OffsetUs:   c.offset.Load(),
	}
}

// Run connects and keeps the connection alive until ctx is cancelled or
// Close is called. It returns an error only when MaxAttempts is exhausted.
func (c *Client) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.cancel = cancel
	c.mu.Unlock()

	for {
		conn, err := c.ConnectWithRetry(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		c.logger.Info("connected", "client", c.cfg.ClientName, "subprotocol", conn.Subprotocol())
		err = c.session(ctx, conn)
		if ctx.Err() != nil {
			return nil
		}

		c.reconnects.Add(1)
		c.logger.Warn("connection lost, reconnecting", "error", err)
	}
}

// Connect dials the server once.
func (c *Client) Connect(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := c.dialer.DialContext(ctx, c.cfg.URL(), nil)
	if err != nil {
		return nil, fmt.Errorf("networktables: dial %s: %w", c.cfg.Address(), err)
	}
	return conn, nil
}

// ConnectWithRetry dials with exponential backoff, giving up after
// MaxAttempts when it is set.
func (c *Client) ConnectWithRetry(ctx context.Context) (*websocket.Conn, error) {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.cfg.ReconnectInterval
	exp.MaxInterval = c.cfg.MaxReconnectInterval
	exp.MaxElapsedTime = 0

	var b backoff.BackOff = exp
	if c.cfg.MaxAttempts > 0 {
		b = backoff.WithMaxRetries(b, uint64(c.cfg.MaxAttempts-1))
	}
	b = backoff.WithContext(b, ctx)

	var conn *websocket.Conn
	err := backoff.RetryNotify(func() error {
		var err error
		conn, err = c.Connect(ctx)
		return err
	}, b, func(err error, next time.Duration) {
		c.logger.Debug("connect failed", "error", err, "retry_in", next)
	})
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Close stops Run and rejects further writes.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	if c.cancel != nil {
		c.cancel()
	}
	return nil
}

// session owns conn until it fails or ctx ends.
func (c *Client) session(ctx context.Context, conn *websocket.Conn) error {
	defer conn.Close()

	c.mu.Lock()
	replay, err := c.replayLocked()
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.connected = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.connected = false
		c.announced = make(map[int64]AnnounceParams)
		c.synced.Store(false)
		for len(c.out) > 0 {
			<-c.out
		}
		c.mu.Unlock()
	}()

	readErr := make(chan error, 1)
	go func() {
		readErr <- c.readLoop(conn)
	}()

	for _, m := range replay {
		if err := c.write(conn, m); err != nil {
			return err
		}
	}
	if err := c.sendTimeSync(conn); err != nil {
		return err
	}

	ticker := time.NewTicker(c.cfg.TimeSyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.goodbye(conn)
			return nil
		case err := <-readErr:
			return err
		case m := <-c.out:
			if err := c.write(conn, m); err != nil {
				return err
			}
		case <-ticker.C:
			if err := c.sendTimeSync(conn); err != nil {
				return err
			}
		}
	}
}

// goodbye retracts every publisher and closes the socket cleanly. Errors are
// ignored since the session is ending anyway.
func (c *Client) goodbye(conn *websocket.Conn) {
	c.mu.Lock()
	params := make([]interface{}, len(c.order))
	for i, t := range c.order {
		params[i] = UnpublishParams{PubUID: t.uid}
	}
	c.mu.Unlock()

	if len(params) > 0 {
		if data, err := EncodeControl("unpublish", params...); err == nil {
			c.write(conn, outbound{text: true, data: data})
		}
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// replayLocked builds the messages that restore server state on a new
// connection: publishers, subscriptions and the latest values.
func (c *Client) replayLocked() ([]outbound, error) {
	var msgs []outbound

	if len(c.order) > 0 {
		params := make([]interface{}, len(c.order))
		for i, t := range c.order {
			params[i] = t.params()
		}
		data, err := EncodeControl("publish", params...)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, outbound{text: true, data: data})
	}

	for uid, topics := range c.subs {
		data, err := EncodeControl("subscribe", subscribeParams(uid, topics))
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, outbound{text: true, data: data})
	}

	var buf bytes.Buffer
	for _, t := range c.order {
		if t.value == nil {
			continue
		}
		if err := EncodeFrame(&buf, Frame{ID: int64(t.uid), Value: *t.value}); err != nil {
			return nil, err
		}
	}
	if buf.Len() > 0 {
		msgs = append(msgs, outbound{data: buf.Bytes()})
	}
	return msgs, nil
}

func (c *Client) readLoop(conn *websocket.Conn) error {
	for {
		typ, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		switch typ {
		case websocket.TextMessage:
			c.handleControl(data)
		case websocket.BinaryMessage:
			frames, err := DecodeFrames(data)
			if err != nil {
				c.logger.Warn("bad binary frame", "error", err)
			}
			for _, f := range frames {
				c.handleFrame(f)
			}
		}
	}
}

func (c *Client) handleControl(data []byte) {
	msgs, err := DecodeControl(data)
	if err != nil {
		c.logger.Warn("bad control frame", "error", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range msgs {
		switch m.Method {
		case "announce":
			var p AnnounceParams
			if err := json.Unmarshal(m.Params, &p); err != nil {
				continue
			}
			if _, err := typeFromName(p.Type); err != nil {
				c.logger.Debug("announce with unknown type", "topic", p.Name, "type", p.Type)
			}
			c.announced[p.ID] = p
		case "unannounce":
			var p UnannounceParams
			if err := json.Unmarshal(m.Params, &p); err == nil {
				delete(c.announced, p.ID)
			}
		case "properties":
		default:
			c.logger.Debug("ignoring control message", "method", m.Method)
		}
	}
}

func (c *Client) handleFrame(f Frame) {
	if f.ID == rttTopic {
		clientSent, ok := f.Value.Data.(int64)
		if !ok {
			return
		}
		c.offset.Store(ComputeOffset(clientSent, f.Timestamp, nowMicros()))
		c.synced.Store(true)
		return
	}

	c.recv.Add(1)
	c.mu.Lock()
	if a, ok := c.announced[f.ID]; ok {
		c.received[a.Name] = f.Value
	}
	c.mu.Unlock()
}

func (c *Client) sendTimeSync(conn *websocket.Conn) error {
	var buf bytes.Buffer
	if err := EncodeFrame(&buf, Frame{ID: rttTopic, Value: Int(nowMicros())}); err != nil {
		return err
	}
	return c.write(conn, outbound{data: buf.Bytes()})
}

func (c *Client) write(conn *websocket.Conn, m outbound) error {
	typ := websocket.BinaryMessage
	if m.text {
		typ = websocket.TextMessage
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(typ, m.data); err != nil {
		return err
	}
	c.sent.Add(1)
	return nil
}

// enqueue never blocks the caller; a full queue drops the message.
func (c *Client) enqueue(m outbound) {
	select {
	case c.out <- m:
	default:
		c.dropped.Add(1)
	}
}

// serverTime returns the current server time in microseconds, or 0 before
// the first time sync so the server stamps the value itself.
func (c *Client) serverTime() int64 {
	if !c.synced.Load() {
		return 0
	}
	return nowMicros() + c.offset.Load()
}

func (t *pubTopic) params() PublishParams {
	props := make(map[string]interface{}, len(t.properties))
	for k, v := range t.properties {
		props[k] = v
	}
	return PublishParams{
		Name:       t.name,
		PubUID:     t.uid,
		Type:       t.typeName,
		Properties: props,
	}
}

func subscribeParams(uid int, topics []string) SubscribeParams {
	return SubscribeParams{
		Topics:  topics,
		SubUID:  uid,
		Options: map[string]interface{}{"prefix": true},
	}
}

// ComputeOffset returns the server-minus-client clock offset from a time
// sync reply, assuming a symmetric round trip.
func ComputeOffset(clientSentUs, serverUs, nowUs int64) int64 {
	rtt := nowUs - clientSentUs
	return serverUs + rtt/2 - nowUs
}

func nowMicros() int64 {
	return time.Now().UnixMicro()
}
