package client

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// DefaultHost is the hosting service's domain.
const DefaultHost = "factorio.zone"

const defaultSyncPoll = time.Second

// Options configures a Client. Only UserToken is commonly set; the rest
// defaults to the public service.
type Options struct {
	UserToken string

	Host   string // used to derive WSURL and APIURL when they are empty
	WSURL  string
	APIURL string

	RequestTimeout    time.Duration
	StopTimeout       time.Duration
	KeepaliveInterval time.Duration
	KeepaliveTimeout  time.Duration
	SyncPollInterval  time.Duration
	VerifyTLS         bool

	Logger *zap.Logger
}

// Client ties together the session state, the WebSocket receive loop and
// the REST operations. Session accessors and API operations are promoted.
type Client struct {
	*Session
	*API

	ws         *WSClient
	dispatcher *Dispatcher
	syncPoll   time.Duration
}

// New builds a client. Nothing touches the network until Connect.
func New(opts Options) *Client {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Host == "" {
		opts.Host = DefaultHost
	}
	if opts.WSURL == "" {
		opts.WSURL = (&url.URL{Scheme: "wss", Host: opts.Host, Path: "/ws"}).String()
	}
	if opts.APIURL == "" {
		opts.APIURL = (&url.URL{Scheme: "https", Host: opts.Host, Path: "/api"}).String()
	}
	if opts.SyncPollInterval <= 0 {
		opts.SyncPollInterval = defaultSyncPoll
	}

	session := NewSession(opts.UserToken)
	api := NewAPI(session, APIOptions{
		BaseURL:        opts.APIURL,
		RequestTimeout: opts.RequestTimeout,
		StopTimeout:    opts.StopTimeout,
	}, log.Named("api"))
	dispatcher := NewDispatcher(session, api.Login, log.Named("dispatch"))
	ws := NewWSClient(session, dispatcher, WSOptions{
		URL:          opts.WSURL,
		PingInterval: opts.KeepaliveInterval,
		PongTimeout:  opts.KeepaliveTimeout,
		VerifyTLS:    opts.VerifyTLS,
	}, log.Named("ws"))

	return &Client{
		Session:    session,
		API:        api,
		ws:         ws,
		dispatcher: dispatcher,
		syncPoll:   opts.SyncPollInterval,
	}
}

// Connect opens the socket and blocks in the receive loop. See WSClient.Connect.
func (c *Client) Connect(ctx context.Context) error {
	return c.ws.Connect(ctx)
}

// Close ends a running Connect.
func (c *Client) Close() error {
	return c.ws.Close()
}

func (c *Client) ConnState() ConnState {
	return c.ws.State()
}

func (c *Client) AddLogListener(l LogListener) ListenerID {
	return c.dispatcher.AddLogListener(l)
}

func (c *Client) RemoveLogListener(id ListenerID) {
	c.dispatcher.RemoveLogListener(id)
}

func (c *Client) AddMessageListener(l MessageListener) ListenerID {
	return c.dispatcher.AddMessageListener(l)
}

func (c *Client) RemoveMessageListener(id ListenerID) {
	c.dispatcher.RemoveMessageListener(id)
}

// WaitUntilSynced blocks until both mods and saves have been pushed since
// the last connect and no mutating operation is pending. It polls; ctx
// bounds the wait.
func (c *Client) WaitUntilSynced(ctx context.Context) error {
	return waitSynced(ctx, c.Session, c.syncPoll)
}

func waitSynced(ctx context.Context, s *Session, every time.Duration) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		if s.Synced() {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for sync: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}
