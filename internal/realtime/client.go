// Package realtime is a small Pusher protocol client for Laravel Reverb.
// It joins per-device presence and private channels and reports queued work.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/oggyb/sms-forwarder/internal/response"
)

var (
	// ErrNoToken means there is no auth token to build a client with.
	ErrNoToken = errors.New("realtime: no auth token")

	// ErrNotConnected is returned once the connection has been closed.
	ErrNotConnected = errors.New("realtime: not connected")

	// ErrSubscriptionFailed wraps any failure to join a channel.
	ErrSubscriptionFailed = errors.New("realtime: subscription failed")
)

// Authorizer signs private and presence channel subscriptions.
type Authorizer interface {
	BroadcastAuth(ctx context.Context, socketID, channel string) (response.BroadcastAuthResponse, error)
}

// Conn is the part of *websocket.Conn the client uses.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Handlers receive channel callbacks. They run on the read loop and must
// return quickly.
type Handlers struct {
	// Here is called once the presence channel is joined.
	Here func(members []Member)

	// Joining and Leaving report other presence members.
	Joining func(m Member)
	Leaving func(m Member)

	// Listen names the broadcast event delivered to Event.
	Listen string
	Event  func(payload json.RawMessage)
}

type subscription struct {
	channel  string
	handlers Handlers
	ready    chan error
}

// Client is one websocket connection to Reverb.
type Client struct {
	conn     Conn
	auth     Authorizer
	log      zerolog.Logger
	socketID string
	activity time.Duration
	pongWait time.Duration
	ka       keepalive

	writeMu  sync.Mutex
	lastRead atomic.Int64

	mu   sync.Mutex
	subs map[string]*subscription
	err  error

	done      chan struct{}
	closeOnce sync.Once
}

// Dial connects to the server described by cfg and waits for the
// connection to be established.
func Dial(ctx context.Context, cfg Config, auth Authorizer, log zerolog.Logger) (*Client, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: cfg.handshakeTimeout(),
	}

	conn, _, err := dialer.DialContext(ctx, cfg.URL(), nil)
	if err != nil {
		return nil, fmt.Errorf("realtime: dial %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	c, err := newClient(conn, auth, log, cfg.handshakeTimeout(), cfg.pongWait())
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return c, nil
}

func newClient(conn Conn, auth Authorizer, log zerolog.Logger, handshake, pongWait time.Duration) (*Client, error) {
	c := &Client{
		conn:     conn,
		auth:     auth,
		log:      log.With().Str("component", "realtime").Logger(),
		pongWait: pongWait,
		subs:     make(map[string]*subscription),
		done:     make(chan struct{}),
	}

	if err := c.handshake(handshake); err != nil {
		return nil, err
	}

	go c.readLoop()
	go c.pingLoop()

	c.log.Info().
		Str("socket_id", c.socketID).
		Dur("activity_timeout", c.activity).
		Msg("realtime connected")

	return c, nil
}

func (c *Client) handshake(timeout time.Duration) error {
	_ = c.conn.SetReadDeadline(time.Now().Add(timeout))

	_, raw, err := c.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("realtime: handshake: %w", err)
	}

	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("realtime: handshake: %w", err)
	}

	switch f.Event {
	case evConnectionEstablished:
	case evError:
		var se serverError
		_ = decodeData(f.Data, &se)
		return fmt.Errorf("realtime: server refused connection: %s", se)
	default:
		return fmt.Errorf("realtime: unexpected first frame %q", f.Event)
	}

	var est connectionEstablished
	if err := decodeData(f.Data, &est); err != nil || est.SocketID == "" {
		return fmt.Errorf("realtime: malformed connection_established: %s", f.Data)
	}

	c.socketID = est.SocketID
	c.activity = defaultActivityTimeout
	if est.ActivityTimeout > 0 {
		c.activity = time.Duration(est.ActivityTimeout) * time.Second
	}
	c.ka = newKeepalive(c.activity, c.pongWait)
	c.lastRead.Store(time.Now().UnixNano())
	return nil
}

// SocketID is the id the server assigned to this connection.
func (c *Client) SocketID() string { return c.socketID }

// Done is closed when the connection is gone.
func (c *Client) Done() <-chan struct{} { return c.done }

// Err returns why the connection closed, nil while it is open or after Close.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Closed reports whether the connection is gone.
func (c *Client) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Close drops the connection and every subscription.
func (c *Client) Close() error {
	c.shutdown(nil)
	return nil
}

// Join subscribes to the presence and private variants of the channel name.
// Either both are joined or neither is.
func (c *Client) Join(ctx context.Context, name string, h Handlers) error {
	channels := []string{PresencePrefix + name, PrivatePrefix + name}

	joined := make([]string, 0, len(channels))
	for _, ch := range channels {
		if err := c.subscribe(ctx, ch, h); err != nil {
			for _, j := range joined {
				_ = c.unsubscribe(j)
			}
			return err
		}
		joined = append(joined, ch)
	}
	return nil
}

// Leave unsubscribes both variants of the channel name. The connection
// stays open for other channels.
func (c *Client) Leave(name string) error {
	var errs []error
	for _, ch := range []string{PresencePrefix + name, PrivatePrefix + name} {
		if err := c.unsubscribe(ch); err != nil && !errors.Is(err, ErrNotConnected) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// subscribed reports whether channel is currently registered.
func (c *Client) subscribed(channel string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.subs[channel]
	return ok
}

func (c *Client) subscribe(ctx context.Context, channel string, h Handlers) error {
	if c.Closed() {
		return ErrNotConnected
	}

	signed, err := c.auth.BroadcastAuth(ctx, c.socketID, channel)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSubscriptionFailed, channel, err)
	}

	sub := &subscription{channel: channel, handlers: h, ready: make(chan error, 1)}
	c.mu.Lock()
	c.subs[channel] = sub
	c.mu.Unlock()

	data, err := json.Marshal(subscribeData{
		Channel:     channel,
		Auth:        signed.Auth,
		ChannelData: signed.ChannelData,
	})
	if err != nil {
		c.drop(channel)
		return err
	}

	if err := c.send(frame{Event: evSubscribe, Data: data}); err != nil {
		c.drop(channel)
		return fmt.Errorf("%w: %s: %w", ErrSubscriptionFailed, channel, err)
	}

	select {
	case err := <-sub.ready:
		if err != nil {
			c.drop(channel)
			return fmt.Errorf("%w: %s: %w", ErrSubscriptionFailed, channel, err)
		}
		c.log.Debug().Str("channel", channel).Msg("channel joined")
		return nil
	case <-ctx.Done():
		_ = c.unsubscribe(channel)
		return ctx.Err()
	case <-c.done:
		return ErrNotConnected
	}
}

func (c *Client) unsubscribe(channel string) error {
	if !c.drop(channel) {
		return nil
	}

	data, _ := json.Marshal(unsubscribeData{Channel: channel})
	return c.send(frame{Event: evUnsubscribe, Data: data})
}

func (c *Client) drop(channel string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.subs[channel]
	delete(c.subs, channel)
	return ok
}

func (c *Client) lookup(channel string) *subscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subs[channel]
}

func (c *Client) send(f frame) error {
	raw, err := json.Marshal(f)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.Closed() {
		return ErrNotConnected
	}

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		c.shutdown(fmt.Errorf("realtime: write: %w", err))
		return err
	}
	return nil
}

func (c *Client) readLoop() {
	for {
		_ = c.conn.SetReadDeadline(time.Now().Add(c.ka.readWait))

		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.shutdown(fmt.Errorf("realtime: read: %w", err))
			return
		}
		c.lastRead.Store(time.Now().UnixNano())

		var f frame
		if err := json.Unmarshal(raw, &f); err != nil {
			c.log.Debug().Err(err).Msg("dropping malformed frame")
			continue
		}
		c.dispatch(f)
	}
}

// pingLoop pings the server once nothing was read for half an activity
// period. Any frame read, the pong included, pushes the read deadline out.
func (c *Client) pingLoop() {
	ticker := time.NewTicker(c.ka.tick)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			idle := time.Since(time.Unix(0, c.lastRead.Load()))
			if idle < c.ka.pingAfter {
				continue
			}
			if err := c.send(frame{Event: evPing, Data: json.RawMessage(`{}`)}); err != nil {
				return
			}
		}
	}
}

func (c *Client) dispatch(f frame) {
	switch f.Event {
	case evPing:
		_ = c.send(frame{Event: evPong, Data: json.RawMessage(`{}`)})

	case evPong:
		// lastRead was refreshed by the read loop.

	case evError:
		var se serverError
		_ = decodeData(f.Data, &se)
		c.log.Warn().Str("error", se.String()).Msg("server error")

	case evSubscriptionSucceeded:
		sub := c.lookup(f.Channel)
		if sub == nil {
			return
		}
		signal(sub, nil)
		if isPresence(f.Channel) && sub.handlers.Here != nil {
			var pd presenceData
			if err := decodeData(f.Data, &pd); err != nil {
				c.log.Debug().Err(err).Str("channel", f.Channel).Msg("malformed presence data")
			}
			sub.handlers.Here(pd.members())
		}

	case evSubscriptionError:
		sub := c.lookup(f.Channel)
		if sub == nil {
			return
		}
		var se subscriptionError
		_ = decodeData(f.Data, &se)
		signal(sub, fmt.Errorf("status %d: %s", se.Status, se.Error))

	case evMemberAdded, evMemberRemoved:
		sub := c.lookup(f.Channel)
		if sub == nil {
			return
		}
		var md memberData
		if err := decodeData(f.Data, &md); err != nil {
			return
		}
		m := Member{ID: memberID(md.UserID), Info: md.UserInfo}
		if f.Event == evMemberAdded && sub.handlers.Joining != nil {
			sub.handlers.Joining(m)
		}
		if f.Event == evMemberRemoved && sub.handlers.Leaving != nil {
			sub.handlers.Leaving(m)
		}

	default:
		if f.Channel == "" {
			return
		}
		sub := c.lookup(f.Channel)
		if sub == nil || sub.handlers.Event == nil {
			return
		}
		if MatchEvent(f.Event, sub.handlers.Listen) {
			sub.handlers.Event(unwrapData(f.Data))
		}
	}
}

func (c *Client) shutdown(cause error) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.err = cause
		c.subs = make(map[string]*subscription)
		c.mu.Unlock()

		close(c.done)
		_ = c.conn.Close()

		if cause != nil {
			c.log.Warn().Err(cause).Msg("realtime connection lost")
		} else {
			c.log.Info().Msg("realtime disconnected")
		}
	})
}

func signal(sub *subscription, err error) {
	select {
	case sub.ready <- err:
	default:
	}
}

func isPresence(channel string) bool {
	return strings.HasPrefix(channel, PresencePrefix)
}
