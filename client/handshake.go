package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/guseggert/obsws/client/protocol"
	"github.com/guseggert/obsws/client/transport"
	"go.uber.org/zap"
)

// identify runs the Hello/Identify/Identified exchange on a freshly dialed transport.
// It must finish before anything else reads from tr.
func identify(ctx context.Context, log *zap.SugaredLogger, tr *transport.Transport, params ConnectionParameters) (protocol.Hello, protocol.Identified, error) {
	var (
		hello      protocol.Hello
		identified protocol.Identified
	)

	b, err := tr.Receive(ctx, params.Timeout)
	if err != nil {
		return hello, identified, fmt.Errorf("waiting for Hello: %w", err)
	}
	frame, err := protocol.DecodeFrame(b)
	if err != nil {
		return hello, identified, &AuthFailedError{Reason: "invalid Hello", Err: err}
	}
	if frame.Op != protocol.OpHello {
		return hello, identified, &AuthFailedError{Reason: fmt.Sprintf("expected Hello, got %s", frame.Op)}
	}
	if err := frame.Data(&hello); err != nil {
		return hello, identified, &AuthFailedError{Reason: "invalid Hello", Err: err}
	}
	log.Debugw("received Hello",
		"OBSWebSocketVersion", hello.ObsWebSocketVersion,
		"RPCVersion", hello.RPCVersion,
		"AuthRequired", hello.Authentication != nil,
	)

	ident := protocol.Identify{
		RPCVersion:         protocol.RPCVersion,
		EventSubscriptions: params.Subs,
	}
	if hello.Authentication != nil {
		if params.Password == "" {
			return hello, identified, ErrAuthConfig
		}
		ident.Authentication = protocol.AuthToken(params.Password, hello.Authentication.Salt, hello.Authentication.Challenge)
	}
	frame, err = protocol.NewFrame(protocol.OpIdentify, ident)
	if err != nil {
		return hello, identified, err
	}
	if err := tr.Send(ctx, frame); err != nil {
		return hello, identified, fmt.Errorf("sending Identify: %w", err)
	}

	b, err = tr.Receive(ctx, params.Timeout)
	if err != nil {
		// the server closes with AuthenticationFailed (4009) rather than replying
		var closeErr *transport.CloseError
		if errors.As(err, &closeErr) && closeErr.Code == protocol.CloseAuthenticationFailed {
			return hello, identified, &AuthFailedError{Reason: "authentication failed", Err: err}
		}
		return hello, identified, &AuthFailedError{Err: err}
	}
	frame, err = protocol.DecodeFrame(b)
	if err != nil {
		return hello, identified, &AuthFailedError{Reason: "invalid Identified", Err: err}
	}
	if frame.Op != protocol.OpIdentified {
		return hello, identified, &AuthFailedError{Reason: fmt.Sprintf("expected Identified, got %s", frame.Op)}
	}
	if err := frame.Data(&identified); err != nil {
		return hello, identified, &AuthFailedError{Reason: "invalid Identified", Err: err}
	}
	log.Debugw("identified", "NegotiatedRPCVersion", identified.NegotiatedRPCVersion)
	return hello, identified, nil
}
