package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/guseggert/obsws/client/protocol"
	"go.uber.org/zap"
)

// Client sends requests to an obs-websocket server. It is safe for concurrent use.
type Client struct {
	log *zap.SugaredLogger
	s   *session
}

// New connects to the server described by params and identifies with it.
// The dial and each handshake step are bounded by params.Timeout.
func New(ctx context.Context, params ConnectionParameters, opts ...Option) (*Client, error) {
	params = params.withDefaults()
	cfg := newConfig(params, opts)
	log := cfg.log.Named("obsws_client")
	log.Debugw("connecting", "Params", params.String())

	s, err := openSession(ctx, params, cfg, false)
	if err != nil {
		return nil, err
	}
	return &Client{log: log, s: s}, nil
}

// Response is a complete request response.
type Response struct {
	Type   string
	ID     string
	Status protocol.RequestStatus
	// Data is the decoded responseData, empty if the server sent none.
	Data Data
	// Raw is responseData exactly as received.
	Raw json.RawMessage
}

// Send issues a request and returns the whole response.
// data may be nil, a json.RawMessage, or anything that encodes to a JSON object.
// If the server reports a failure, both the response and a *RequestError are returned.
func (c *Client) Send(ctx context.Context, requestType string, data any) (*Response, error) {
	return send(ctx, c.s, requestType, data)
}

// Invoke issues a request and returns its responseData.
func (c *Client) Invoke(ctx context.Context, requestType string, data any) (Data, error) {
	return invoke(ctx, c.s, requestType, data)
}

// InvokeInto issues a request and decodes its responseData into out.
func (c *Client) InvokeInto(ctx context.Context, requestType string, data, out any) error {
	return invokeInto(ctx, c.s, requestType, data, out)
}

// Disconnect closes the connection. Requests still waiting fail with ErrClosed.
// It is safe to call more than once.
func (c *Client) Disconnect() {
	c.s.close()
}

// Done is closed once the session has ended, whether by Disconnect or by the server.
func (c *Client) Done() <-chan struct{} { return c.s.done }

// Err returns why the session ended, or nil if it is still open.
func (c *Client) Err() error { return c.s.terminalErr() }

// Hello returns the server's greeting.
func (c *Client) Hello() protocol.Hello { return c.s.hello }

func (c *Client) NegotiatedRPCVersion() int { return c.s.identified.NegotiatedRPCVersion }

func send(ctx context.Context, s *session, requestType string, data any) (*Response, error) {
	resp, err := s.invoke(ctx, requestType, data)
	if err != nil {
		return nil, err
	}
	d, err := decodeData(resp.ResponseData)
	if err != nil {
		return nil, fmt.Errorf("%s response: %w", requestType, err)
	}
	r := &Response{
		Type:   resp.RequestType,
		ID:     resp.RequestID,
		Status: resp.RequestStatus,
		Data:   d,
		Raw:    resp.ResponseData,
	}
	if !resp.RequestStatus.Result {
		return r, &RequestError{
			RequestType: requestType,
			Code:        resp.RequestStatus.Code,
			Comment:     resp.RequestStatus.Comment,
		}
	}
	return r, nil
}

func invoke(ctx context.Context, s *session, requestType string, data any) (Data, error) {
	r, err := send(ctx, s, requestType, data)
	if err != nil {
		return nil, err
	}
	return r.Data, nil
}

func invokeInto(ctx context.Context, s *session, requestType string, data, out any) error {
	d, err := invoke(ctx, s, requestType, data)
	if err != nil {
		return err
	}
	return d.Decode(out)
}
