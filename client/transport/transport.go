// Package transport owns the single WebSocket connection to an obs-websocket server.
package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// DefaultReadLimit is the maximum message size accepted by default.
// Screenshot responses carry base64 images, so this is much larger than the library default.
const DefaultReadLimit = 16 << 20

var (
	// ErrTimeout is returned when no message arrives before the deadline.
	ErrTimeout = errors.New("timed out")
	// ErrClosed is returned when the connection was closed, by either side.
	ErrClosed = errors.New("connection closed")
)

// ConnectionError is returned when the WebSocket connection cannot be established.
type ConnectionError struct {
	URL string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connecting to %s: %s", e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

type Options struct {
	Logger       *zap.SugaredLogger
	TLSConfig    *tls.Config
	ReadLimit    int64
	Subprotocols []string
}

// Transport is a WebSocket connection carrying JSON text messages.
// Send may be called concurrently. Receive must only be called by one goroutine at a time.
type Transport struct {
	log  *zap.SugaredLogger
	conn *websocket.Conn
	url  string

	closeOnce sync.Once
	closedMut sync.Mutex
	closed    bool
}

// Dial opens a connection to url. The dial is bounded by ctx.
func Dial(ctx context.Context, url string, opts Options) (*Transport, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	dialOpts := &websocket.DialOptions{Subprotocols: opts.Subprotocols}
	if opts.TLSConfig != nil {
		dialOpts.HTTPClient = &http.Client{
			Transport: &http.Transport{TLSClientConfig: opts.TLSConfig},
		}
	}

	log.Debugw("dialing WebSocket", "URL", url)
	conn, _, err := websocket.Dial(ctx, url, dialOpts)
	if err != nil {
		log.Debugf("dial error: %s", err)
		return nil, &ConnectionError{URL: url, Err: err}
	}

	readLimit := opts.ReadLimit
	if readLimit <= 0 {
		readLimit = DefaultReadLimit
	}
	conn.SetReadLimit(readLimit)

	return &Transport{
		log:  log,
		conn: conn,
		url:  url,
	}, nil
}

func (t *Transport) URL() string { return t.url }

// Send encodes v as JSON and writes it as a single text message.
func (t *Transport) Send(ctx context.Context, v any) error {
	if t.isClosed() {
		return ErrClosed
	}
	err := wsjson.Write(ctx, t.conn, v)
	if err != nil {
		if websocket.CloseStatus(err) != -1 || t.isClosed() {
			return fmt.Errorf("writing message: %w: %s", ErrClosed, err)
		}
		return fmt.Errorf("writing message: %w", err)
	}
	return nil
}

// Receive blocks until a text message arrives and returns its bytes.
// A timeout of zero waits until ctx is done or the connection closes.
// The underlying library closes the connection when a read times out, so a timeout is terminal for the Transport.
func (t *Transport) Receive(ctx context.Context, timeout time.Duration) ([]byte, error) {
	if t.isClosed() {
		return nil, ErrClosed
	}
	readCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		readCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	typ, b, err := t.conn.Read(readCtx)
	if err != nil {
		if ctx.Err() == nil && errors.Is(readCtx.Err(), context.DeadlineExceeded) {
			t.markClosed()
			return nil, fmt.Errorf("no message within %s: %w", timeout, ErrTimeout)
		}
		if ctx.Err() != nil {
			t.markClosed()
			return nil, ctx.Err()
		}
		t.markClosed()
		if status := websocket.CloseStatus(err); status != -1 {
			var ce websocket.CloseError
			errors.As(err, &ce)
			return nil, &CloseError{Code: int(status), Reason: ce.Reason}
		}
		return nil, fmt.Errorf("%w: %s", ErrClosed, err)
	}
	if typ != websocket.MessageText {
		return nil, fmt.Errorf("unexpected %v message", typ)
	}
	return b, nil
}

// CloseError is returned by Receive when the peer closed the connection with a close frame.
// It matches ErrClosed with errors.Is.
type CloseError struct {
	Code   int
	Reason string
}

func (e *CloseError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("connection closed with status %d", e.Code)
	}
	return fmt.Sprintf("connection closed with status %d: %s", e.Code, e.Reason)
}

func (e *CloseError) Is(target error) bool { return target == ErrClosed }

// Close closes the connection with a normal closure. It is safe to call more than once
// and unblocks a concurrent Receive.
func (t *Transport) Close() error {
	t.closeOnce.Do(func() {
		t.markClosed()
		err := t.conn.Close(websocket.StatusNormalClosure, "")
		if err != nil {
			t.log.Debugf("error closing conn: %s", err)
		}
	})
	return nil
}

func (t *Transport) markClosed() {
	t.closedMut.Lock()
	t.closed = true
	t.closedMut.Unlock()
}

func (t *Transport) isClosed() bool {
	t.closedMut.Lock()
	defer t.closedMut.Unlock()
	return t.closed
}
