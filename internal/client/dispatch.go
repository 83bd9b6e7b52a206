package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// ErrListener marks an error returned by a subscriber. Dispatch still
// delivers to the remaining subscribers before reporting it.
var ErrListener = errors.New("listener failed")

// LogListener receives instance log lines.
type LogListener interface {
	HandleLog(ctx context.Context, line string) error
}

// LogListenerFunc adapts a function to LogListener.
type LogListenerFunc func(ctx context.Context, line string) error

func (f LogListenerFunc) HandleLog(ctx context.Context, line string) error { return f(ctx, line) }

// MessageListener receives every accepted inbound event.
type MessageListener interface {
	HandleMessage(ctx context.Context, ev Event) error
}

// MessageListenerFunc adapts a function to MessageListener.
type MessageListenerFunc func(ctx context.Context, ev Event) error

func (f MessageListenerFunc) HandleMessage(ctx context.Context, ev Event) error { return f(ctx, ev) }

// ListenerID identifies a registration for later removal.
type ListenerID uint64

type logSub struct {
	id ListenerID
	l  LogListener
}

type messageSub struct {
	id ListenerID
	l  MessageListener
}

// Dispatcher applies accepted events to the Session and fans them out to
// subscribers in registration order.
type Dispatcher struct {
	session *Session
	login   func(ctx context.Context) error
	log     *zap.Logger

	mu      sync.Mutex
	nextID  ListenerID
	logSubs []logSub
	msgSubs []messageSub
}

// NewDispatcher creates a dispatcher. login is called synchronously when a
// visit frame arrives.
func NewDispatcher(session *Session, login func(ctx context.Context) error, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{session: session, login: login, log: log}
}

func (d *Dispatcher) AddLogListener(l LogListener) ListenerID {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	d.logSubs = append(d.logSubs, logSub{id: d.nextID, l: l})
	return d.nextID
}

func (d *Dispatcher) RemoveLogListener(id ListenerID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, s := range d.logSubs {
		if s.id == id {
			d.logSubs = append(d.logSubs[:i:i], d.logSubs[i+1:]...)
			return
		}
	}
}

func (d *Dispatcher) AddMessageListener(l MessageListener) ListenerID {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	d.msgSubs = append(d.msgSubs, messageSub{id: d.nextID, l: l})
	return d.nextID
}

func (d *Dispatcher) RemoveMessageListener(id ListenerID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, s := range d.msgSubs {
		if s.id == id {
			d.msgSubs = append(d.msgSubs[:i:i], d.msgSubs[i+1:]...)
			return
		}
	}
}

// Dispatch handles one decoded event. Duplicates are dropped without any
// mutation or notification. A login failure is returned as is and should end
// the session; subscriber failures are joined and wrapped in ErrListener.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) error {
	if !d.session.apply(ev) {
		num, _ := ev.Seq()
		d.log.Debug("dropped duplicate frame",
			zap.String("type", string(ev.Type())),
			zap.Int64("num", num))
		return nil
	}

	if _, ok := ev.(VisitEvent); ok && d.login != nil {
		if err := d.login(ctx); err != nil {
			return fmt.Errorf("login: %w", err)
		}
	}

	d.mu.Lock()
	logSubs := append([]logSub(nil), d.logSubs...)
	msgSubs := append([]messageSub(nil), d.msgSubs...)
	d.mu.Unlock()

	var errs []error
	if le, ok := ev.(LogEvent); ok {
		for _, s := range logSubs {
			if err := s.l.HandleLog(ctx, le.Line); err != nil {
				errs = append(errs, err)
			}
		}
	}
	for _, s := range msgSubs {
		if err := s.l.HandleMessage(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrListener, errors.Join(errs...))
	}
	return nil
}
