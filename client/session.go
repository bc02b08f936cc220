package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/guseggert/obsws/client/protocol"
	"github.com/guseggert/obsws/client/transport"
	"go.uber.org/zap"
)

var errClosedByClient = fmt.Errorf("disconnected by client: %w", ErrClosed)

// session is one identified connection and the goroutine that reads from it.
type session struct {
	id     uuid.UUID
	log    *zap.SugaredLogger
	params ConnectionParameters
	tr     *transport.Transport

	hello      protocol.Hello
	identified protocol.Identified

	requestTimeout time.Duration
	pending        *pendingTable

	// events is nil unless the session was opened for an event client.
	events *eventQueue

	// closing is closed as soon as the session starts shutting down, done once the reader has exited.
	closing   chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	errMut    sync.Mutex
	err       error
}

// openSession dials, identifies and starts the reader.
// If withEvents is set, received events are queued on s.events for a dispatcher to consume.
// Responses and events whose data cannot be decoded are logged and skipped.
func openSession(ctx context.Context, params ConnectionParameters, cfg *config, withEvents bool) (*session, error) {
	id := uuid.New()
	log := cfg.log.Named("obsws_session").With("Session", id.String())

	dialCtx, cancel := context.WithTimeout(ctx, params.Timeout)
	defer cancel()
	tr, err := transport.Dial(dialCtx, params.URL(), transport.Options{
		Logger:       cfg.log.Named("obsws_transport").With("Session", id.String()),
		TLSConfig:    cfg.tlsConfig,
		ReadLimit:    cfg.readLimit,
		Subprotocols: []string{protocol.Subprotocol},
	})
	if err != nil {
		return nil, err
	}

	hello, identified, err := identify(ctx, log, tr, params)
	if err != nil {
		tr.Close()
		return nil, err
	}

	s := &session{
		id:             id,
		log:            log,
		params:         params,
		tr:             tr,
		hello:          hello,
		identified:     identified,
		requestTimeout: cfg.requestTimeout,
		pending:        newPendingTable(),
		closing:        make(chan struct{}),
		done:           make(chan struct{}),
	}
	if withEvents {
		s.events = newEventQueue(log, cfg.eventBuffer)
	}
	go s.readLoop()
	log.Debugw("session established", "URL", tr.URL(), "Subs", params.Subs)
	return s, nil
}

func (s *session) readLoop() {
	defer close(s.done)
	for {
		b, err := s.tr.Receive(context.Background(), 0)
		if err != nil {
			s.shutdown(fmt.Errorf("reading message: %w", err))
			return
		}
		frame, err := protocol.DecodeFrame(b)
		if err != nil {
			s.shutdown(fmt.Errorf("%w: %s", ErrClosed, err))
			return
		}

		switch frame.Op {
		case protocol.OpRequestResponse:
			var resp protocol.RequestResponse
			if err := frame.Data(&resp); err != nil {
				s.log.Errorw("discarding undecodable response", "Error", err)
				continue
			}
			if !s.pending.deliver(&resp) {
				s.log.Debugw("discarding response with no waiter", "RequestType", resp.RequestType, "RequestID", resp.RequestID)
			}
		case protocol.OpEvent:
			var ev protocol.Event
			if err := frame.Data(&ev); err != nil {
				s.log.Errorw("discarding undecodable event", "Error", err)
				continue
			}
			if s.events == nil {
				s.log.Debugw("discarding event", "EventType", ev.EventType)
				continue
			}
			s.events.push(ev)
		default:
			s.log.Debugw("ignoring message", "Op", frame.Op)
		}
	}
}

// invoke sends a request and waits for the response with the same id.
// ctx bounds only the wait. An interrupted write closes the connection, so the write is detached
// from ctx's cancellation and bounded by the request timeout instead.
func (s *session) invoke(ctx context.Context, requestType string, data any) (*protocol.RequestResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, ctxErr(requestType, err)
	}
	raw, err := encodeRequestData(data)
	if err != nil {
		return nil, fmt.Errorf("encoding %s request data: %w", requestType, err)
	}
	id, ch, err := s.pending.add()
	if err != nil {
		return nil, fmt.Errorf("sending %s: %w", requestType, err)
	}
	log := s.log.With("RequestType", requestType, "RequestID", id)

	timer := time.NewTimer(s.requestTimeout)
	defer timer.Stop()

	frame, err := protocol.NewFrame(protocol.OpRequest, protocol.Request{
		RequestType: requestType,
		RequestID:   id,
		RequestData: raw,
	})
	if err != nil {
		s.pending.remove(id)
		return nil, err
	}
	log.Debugw("sending request")
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.requestTimeout)
	err = s.tr.Send(writeCtx, frame)
	cancel()
	if err != nil {
		s.pending.remove(id)
		return nil, fmt.Errorf("sending %s: %w", requestType, err)
	}

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, fmt.Errorf("waiting for %s response: %w", requestType, res.err)
		}
		log.Debugw("received response", "Code", res.resp.RequestStatus.Code)
		return res.resp, nil
	case <-timer.C:
		s.pending.remove(id)
		log.Debugw("request timed out")
		return nil, fmt.Errorf("no %s response within %s: %w", requestType, s.requestTimeout, ErrTimeout)
	case <-ctx.Done():
		s.pending.remove(id)
		return nil, ctxErr(requestType, ctx.Err())
	}
}

func ctxErr(requestType string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("waiting for %s response: %w: %w", requestType, ErrTimeout, err)
	}
	return fmt.Errorf("waiting for %s response: %w", requestType, err)
}

func encodeRequestData(data any) (json.RawMessage, error) {
	switch d := data.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return d, nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	if string(b) == "null" {
		return nil, nil
	}
	return b, nil
}

// shutdown records cause as the terminal error, fails pending requests and closes the transport.
// Only the first call has any effect.
func (s *session) shutdown(cause error) {
	s.closeOnce.Do(func() {
		s.errMut.Lock()
		s.err = cause
		s.errMut.Unlock()
		close(s.closing)
		s.pending.failAll(cause)
		s.tr.Close()
		s.log.Debugw("session closed", "Cause", cause)
	})
}

// close shuts the session down and waits for the reader to exit.
func (s *session) close() {
	s.shutdown(errClosedByClient)
	<-s.done
}

func (s *session) terminalErr() error {
	s.errMut.Lock()
	defer s.errMut.Unlock()
	return s.err
}
