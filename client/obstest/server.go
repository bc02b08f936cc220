// Package obstest provides an in-process obs-websocket server for tests.
//
// The server speaks the handshake (with or without a password), answers requests with
// registered handlers and pushes events to identified clients whose subscriptions match.
package obstest

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"

	"github.com/guseggert/obsws/client/protocol"
	"github.com/guseggert/obsws/internal/tlsutil"
	"github.com/julienschmidt/httprouter"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	OBSVersion          = "30.0.0"
	OBSWebSocketVersion = "5.3.0"
)

// Result is what a handler answers a request with.
type Result struct {
	Code    int
	Comment string
	Data    any
}

func OK(data any) Result {
	return Result{Code: protocol.StatusSuccess, Data: data}
}

func Fail(code int, comment string) Result {
	return Result{Code: code, Comment: comment}
}

// HandlerFunc answers a request. ctx is canceled when the server is closed.
type HandlerFunc func(ctx context.Context, req protocol.Request) Result

type Option func(s *Server)

// WithPassword makes the server require authentication.
func WithPassword(password string) Option {
	return func(s *Server) {
		s.password = password
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		s.log = l.Named("obstest_server").Sugar()
	}
}

// WithTLS serves wss:// using the server cert in certs.
func WithTLS(certs *tlsutil.Certs) Option {
	return func(s *Server) {
		s.certs = certs
	}
}

type conn struct {
	ws   *websocket.Conn
	subs protocol.Subs
}

type Server struct {
	log       *zap.SugaredLogger
	password  string
	salt      string
	challenge string
	certs     *tlsutil.Certs

	httpServer *httptest.Server
	ctx        context.Context
	cancel     context.CancelFunc

	mut      sync.Mutex
	handlers map[string]HandlerFunc
	conns    map[*conn]struct{}
	requests []protocol.Request
}

// New starts a server listening on a local port.
func New(opts ...Option) (*Server, error) {
	s := &Server{
		log:      zap.NewNop().Sugar(),
		handlers: map[string]HandlerFunc{},
		conns:    map[*conn]struct{}{},
	}
	for _, o := range opts {
		o(s)
	}
	var err error
	if s.salt, err = randomBase64(); err != nil {
		return nil, err
	}
	if s.challenge, err = randomBase64(); err != nil {
		return nil, err
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.Handle("GetVersion", s.getVersion)

	router := httprouter.New()
	router.GET("/", s.serveWS)
	s.httpServer = httptest.NewUnstartedServer(router)
	if s.certs != nil {
		tlsConfig, err := tlsutil.ServerTLSConfig(s.certs.Server.CertPEMBytes, s.certs.Server.KeyPEMBytes)
		if err != nil {
			return nil, fmt.Errorf("building server TLS config: %w", err)
		}
		s.httpServer.TLS = tlsConfig
		s.httpServer.StartTLS()
	} else {
		s.httpServer.Start()
	}
	s.log.Debugw("listening", "Addr", s.httpServer.Listener.Addr().String(), "TLS", s.certs != nil)
	return s, nil
}

func randomBase64() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating random bytes: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

func (s *Server) addr() *net.TCPAddr {
	return s.httpServer.Listener.Addr().(*net.TCPAddr)
}

func (s *Server) Host() string { return s.addr().IP.String() }

func (s *Server) Port() int { return s.addr().Port }

// Handle registers h for requestType, replacing any existing handler.
func (s *Server) Handle(requestType string, h HandlerFunc) {
	s.mut.Lock()
	s.handlers[requestType] = h
	s.mut.Unlock()
}

// Requests returns the requests received so far, in order of arrival.
func (s *Server) Requests() []protocol.Request {
	s.mut.Lock()
	defer s.mut.Unlock()
	return append([]protocol.Request(nil), s.requests...)
}

// Clients returns the number of identified connections.
func (s *Server) Clients() int {
	s.mut.Lock()
	defer s.mut.Unlock()
	return len(s.conns)
}

func (s *Server) getVersion(ctx context.Context, req protocol.Request) Result {
	s.mut.Lock()
	var available []string
	for name := range s.handlers {
		available = append(available, name)
	}
	s.mut.Unlock()
	sort.Strings(available)
	return OK(map[string]any{
		"obsVersion":          OBSVersion,
		"obsWebSocketVersion": OBSWebSocketVersion,
		"rpcVersion":          protocol.RPCVersion,
		"availableRequests":   available,
	})
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols: []string{protocol.Subprotocol},
	})
	if err != nil {
		s.log.Debugf("WebSocket accept error: %s", err)
		return
	}
	defer ws.Close(websocket.StatusInternalError, "")

	c, err := s.identify(ws)
	if err != nil {
		s.log.Debugf("handshake error: %s", err)
		return
	}
	defer s.forget(c)

	for {
		var f protocol.Frame
		if err := wsjson.Read(s.ctx, ws, &f); err != nil {
			s.log.Debugf("read error: %s", err)
			return
		}
		if f.Op != protocol.OpRequest {
			ws.Close(protocol.CloseUnknownOpCode, fmt.Sprintf("unexpected op %s", f.Op))
			return
		}
		var req protocol.Request
		if err := f.Data(&req); err != nil {
			ws.Close(protocol.CloseInvalidDataFieldType, err.Error())
			return
		}
		s.mut.Lock()
		s.requests = append(s.requests, req)
		s.mut.Unlock()
		go s.respond(ws, req)
	}
}

func (s *Server) identify(ws *websocket.Conn) (*conn, error) {
	hello := protocol.Hello{ObsWebSocketVersion: OBSWebSocketVersion, RPCVersion: protocol.RPCVersion}
	if s.password != "" {
		hello.Authentication = &protocol.AuthChallenge{Challenge: s.challenge, Salt: s.salt}
	}
	if err := s.write(ws, protocol.OpHello, hello); err != nil {
		return nil, err
	}

	var f protocol.Frame
	if err := wsjson.Read(s.ctx, ws, &f); err != nil {
		return nil, fmt.Errorf("reading Identify: %w", err)
	}
	if f.Op != protocol.OpIdentify {
		ws.Close(protocol.CloseNotIdentified, "The session was not identified.")
		return nil, fmt.Errorf("expected Identify, got %s", f.Op)
	}
	var ident protocol.Identify
	if err := f.Data(&ident); err != nil {
		ws.Close(protocol.CloseInvalidDataFieldType, err.Error())
		return nil, err
	}
	if s.password != "" && ident.Authentication != protocol.AuthToken(s.password, s.salt, s.challenge) {
		ws.Close(protocol.CloseAuthenticationFailed, "Authentication failed.")
		return nil, errors.New("authentication failed")
	}

	c := &conn{ws: ws, subs: ident.EventSubscriptions}
	s.mut.Lock()
	s.conns[c] = struct{}{}
	s.mut.Unlock()

	err := s.write(ws, protocol.OpIdentified, protocol.Identified{NegotiatedRPCVersion: protocol.RPCVersion})
	if err != nil {
		s.forget(c)
		return nil, err
	}
	s.log.Debugw("client identified", "Subs", c.subs)
	return c, nil
}

func (s *Server) forget(c *conn) {
	s.mut.Lock()
	delete(s.conns, c)
	s.mut.Unlock()
}

func (s *Server) respond(ws *websocket.Conn, req protocol.Request) {
	s.mut.Lock()
	h, ok := s.handlers[req.RequestType]
	s.mut.Unlock()

	res := Fail(protocol.StatusUnknownRequestType, "Your request type is not valid.")
	if ok {
		res = h(s.ctx, req)
	}
	if s.ctx.Err() != nil {
		return
	}

	resp := protocol.RequestResponse{
		RequestType: req.RequestType,
		RequestID:   req.RequestID,
		RequestStatus: protocol.RequestStatus{
			Result:  res.Code == protocol.StatusSuccess,
			Code:    res.Code,
			Comment: res.Comment,
		},
	}
	if res.Data != nil {
		b, err := json.Marshal(res.Data)
		if err != nil {
			s.log.Debugf("error encoding %s response data: %s", req.RequestType, err)
			return
		}
		resp.ResponseData = b
	}
	if err := s.write(ws, protocol.OpRequestResponse, resp); err != nil {
		s.log.Debugf("error writing %s response: %s", req.RequestType, err)
	}
}

func (s *Server) write(ws *websocket.Conn, op protocol.OpCode, d any) error {
	f, err := protocol.NewFrame(op, d)
	if err != nil {
		return err
	}
	if err := wsjson.Write(s.ctx, ws, f); err != nil {
		return fmt.Errorf("writing %s: %w", op, err)
	}
	return nil
}

func (s *Server) snapshot() []*conn {
	s.mut.Lock()
	defer s.mut.Unlock()
	conns := make([]*conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	return conns
}

// Emit sends an event to every identified client subscribed to intent.
func (s *Server) Emit(eventType string, intent protocol.Subs, data any) error {
	ev := protocol.Event{EventType: eventType, EventIntent: intent}
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("encoding %s event data: %w", eventType, err)
		}
		ev.EventData = b
	}
	var err error
	for _, c := range s.snapshot() {
		if c.subs&intent == 0 {
			continue
		}
		err = multierr.Append(err, s.write(c.ws, protocol.OpEvent, ev))
	}
	return err
}

// SendRaw writes b as a text message to every identified client.
func (s *Server) SendRaw(b []byte) error {
	var err error
	for _, c := range s.snapshot() {
		err = multierr.Append(err, c.ws.Write(s.ctx, websocket.MessageText, b))
	}
	return err
}

// Disconnect closes every client connection with the given close code.
func (s *Server) Disconnect(code int, reason string) {
	for _, c := range s.snapshot() {
		if err := c.ws.Close(websocket.StatusCode(code), reason); err != nil {
			s.log.Debugf("error closing connection: %s", err)
		}
	}
}

// Close disconnects all clients and stops listening.
func (s *Server) Close() {
	s.cancel()
	s.httpServer.Close()
}
