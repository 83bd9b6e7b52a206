package client

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	defaultPingInterval = 30 * time.Second
	defaultPongTimeout  = 10 * time.Second
	writeTimeout        = 10 * time.Second
	handshakeTimeout    = 30 * time.Second
)

// WSOptions tunes a WSClient. Zero values fall back to defaults.
type WSOptions struct {
	URL          string
	PingInterval time.Duration
	PongTimeout  time.Duration
	// VerifyTLS enables certificate validation. The service presents a
	// certificate that does not validate, so the default skips it: the
	// socket is encrypted but the peer is not authenticated.
	VerifyTLS bool
}

// WSClient owns the WebSocket to the service. It does not reconnect; a lost
// connection is returned to the caller of Connect.
type WSClient struct {
	url          string
	dialer       *websocket.Dialer
	pingInterval time.Duration
	pongTimeout  time.Duration
	dispatcher   *Dispatcher
	session      *Session
	log          *zap.Logger

	mu    sync.Mutex
	state ConnState
	conn  *websocket.Conn
}

// NewWSClient creates a client that routes frames through dispatcher.
func NewWSClient(session *Session, dispatcher *Dispatcher, opts WSOptions, log *zap.Logger) *WSClient {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = defaultPingInterval
	}
	if opts.PongTimeout <= 0 {
		opts.PongTimeout = defaultPongTimeout
	}
	dialer := &websocket.Dialer{
		HandshakeTimeout: handshakeTimeout,
		TLSClientConfig:  &tls.Config{InsecureSkipVerify: !opts.VerifyTLS}, //nolint:gosec // service uses an unverifiable certificate
	}
	return &WSClient{
		url:          opts.URL,
		dialer:       dialer,
		pingInterval: opts.PingInterval,
		pongTimeout:  opts.PongTimeout,
		dispatcher:   dispatcher,
		session:      session,
		log:          log,
	}
}

// State returns the current connection state.
func (c *WSClient) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect dials the service and runs the receive loop until the socket
// closes, the keepalive times out, login fails or ctx is cancelled. It always
// returns a non-nil error.
func (c *WSClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateDisconnected {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.state = StateConnecting
	c.mu.Unlock()

	c.session.resetForConnect()

	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		c.setState(StateDisconnected, nil)
		return fmt.Errorf("dial %s: %w", c.url, err)
	}
	c.setState(StateConnected, conn)
	c.log.Info("connection established", zap.String("url", c.url))

	loopCtx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		conn.Close()
		c.setState(StateDisconnected, nil)
	}()

	// Unblock ReadMessage when the caller gives up.
	go func() {
		<-loopCtx.Done()
		conn.Close()
	}()
	go c.pingLoop(loopCtx, conn)

	err = c.readLoop(loopCtx, conn)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	c.log.Warn("connection lost", zap.Error(err))
	return err
}

// Close closes the open socket, if any, ending Connect.
func (c *WSClient) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeTimeout))
	return conn.Close()
}

func (c *WSClient) setState(state ConnState, conn *websocket.Conn) {
	c.mu.Lock()
	c.state = state
	c.conn = conn
	c.mu.Unlock()
}

func (c *WSClient) readLoop(ctx context.Context, conn *websocket.Conn) error {
	deadline := c.pingInterval + c.pongTimeout
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(deadline))
	})
	conn.SetReadDeadline(time.Now().Add(deadline))

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("connection lost: %w", err)
		}

		ev, err := DecodeEvent(data)
		if err != nil {
			c.log.Warn("undecodable frame", zap.Error(err), zap.ByteString("frame", data))
			continue
		}

		if err := c.dispatcher.Dispatch(ctx, ev); err != nil {
			if errors.Is(err, ErrListener) {
				c.log.Error("listener failed",
					zap.String("type", string(ev.Type())),
					zap.Error(err))
				continue
			}
			return err
		}
	}
}

// pingLoop sends keepalive pings. A missing pong lets the read deadline
// expire, which ends the read loop.
func (c *WSClient) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
			if err != nil {
				c.log.Debug("ping failed", zap.Error(err))
				return
			}
		}
	}
}
