package client

import (
	"context"
	"sync"

	"github.com/guseggert/obsws/client/protocol"
	"go.uber.org/zap"
)

// EventClient receives events from the server and dispatches them to the callbacks in Callback.
// It can also send requests.
type EventClient struct {
	// Callback holds the callbacks events are dispatched to. It may be modified at any time.
	Callback *Registry

	log *zap.SugaredLogger
	s   *session

	stopOnce       sync.Once
	stop           chan struct{}
	dispatcherDone chan struct{}
}

// NewEventClient connects, identifies with the event subscriptions in params.Subs and starts dispatching.
// If params.Subs is zero, it subscribes to protocol.SubsLowVolume.
func NewEventClient(ctx context.Context, params ConnectionParameters, opts ...Option) (*EventClient, error) {
	params = params.withDefaults()
	if params.Subs == protocol.SubsNone {
		params.Subs = protocol.SubsLowVolume
	}
	cfg := newConfig(params, opts)
	log := cfg.log.Named("obsws_client")
	log.Debugw("connecting event client", "Params", params.String())

	s, err := openSession(ctx, params, cfg, true)
	if err != nil {
		return nil, err
	}
	c := &EventClient{
		Callback:       &Registry{},
		log:            cfg.log.Named("obsws_dispatcher").With("Session", s.id.String()),
		s:              s,
		stop:           make(chan struct{}),
		dispatcherDone: make(chan struct{}),
	}
	go c.dispatch()
	return c, nil
}

func (c *EventClient) dispatch() {
	defer close(c.dispatcherDone)
	for {
		// a stop request wins over queued events
		select {
		case <-c.stop:
			return
		default:
		}
		if pe, ok := c.s.events.pop(); ok {
			c.handle(pe)
			continue
		}
		select {
		case <-c.stop:
			return
		case <-c.s.done:
			c.drain()
			c.log.Debugw("session ended, stopping dispatcher", "Err", c.s.terminalErr())
			return
		case <-c.s.events.ready:
		}
	}
}

// drain dispatches events that were queued before the server ended the session.
func (c *EventClient) drain() {
	for {
		select {
		case <-c.stop:
			return
		default:
		}
		pe, ok := c.s.events.pop()
		if !ok {
			return
		}
		c.handle(pe)
	}
}

func (c *EventClient) handle(pe protocol.Event) {
	log := c.log.With("EventType", pe.EventType)
	data, err := decodeData(pe.EventData)
	if err != nil {
		log.Errorw("dropping event with undecodable data", "Error", err)
		return
	}
	log.Debugw("dispatching event")
	ev := Event{Type: pe.EventType, Intent: pe.EventIntent, Data: data}
	if err := c.Callback.Dispatch(ev); err != nil {
		log.Errorw("event handler failed", "Error", err)
	}
}

// Unsubscribe stops dispatching and closes the connection.
// No callback is running or will run once it returns. It is safe to call more than once.
// It must not be called from a callback, since it waits for the dispatcher; call it in a new goroutine instead.
func (c *EventClient) Unsubscribe() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
	c.s.close()
	<-c.dispatcherDone
}

// Disconnect is the same as Unsubscribe.
func (c *EventClient) Disconnect() { c.Unsubscribe() }

// Done is closed once the session has ended.
func (c *EventClient) Done() <-chan struct{} { return c.s.done }

// Err returns why the session ended, or nil if it is still open.
func (c *EventClient) Err() error { return c.s.terminalErr() }

func (c *EventClient) Hello() protocol.Hello { return c.s.hello }

func (c *EventClient) Send(ctx context.Context, requestType string, data any) (*Response, error) {
	return send(ctx, c.s, requestType, data)
}

func (c *EventClient) Invoke(ctx context.Context, requestType string, data any) (Data, error) {
	return invoke(ctx, c.s, requestType, data)
}

func (c *EventClient) InvokeInto(ctx context.Context, requestType string, data, out any) error {
	return invokeInto(ctx, c.s, requestType, data, out)
}
