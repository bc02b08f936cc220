package protocol

import (
	"encoding/json"
	"fmt"
)

// RPCVersion is the RPC version this client speaks.
const RPCVersion = 1

// Subprotocol is the WebSocket subprotocol for JSON-encoded messages.
const Subprotocol = "obswebsocket.json"

type OpCode int

const (
	OpHello           OpCode = 0
	OpIdentify        OpCode = 1
	OpIdentified      OpCode = 2
	OpReidentify      OpCode = 3
	OpEvent           OpCode = 5
	OpRequest         OpCode = 6
	OpRequestResponse OpCode = 7
)

func (o OpCode) String() string {
	switch o {
	case OpHello:
		return "Hello"
	case OpIdentify:
		return "Identify"
	case OpIdentified:
		return "Identified"
	case OpReidentify:
		return "Reidentify"
	case OpEvent:
		return "Event"
	case OpRequest:
		return "Request"
	case OpRequestResponse:
		return "RequestResponse"
	default:
		return fmt.Sprintf("OpCode(%d)", int(o))
	}
}

// Frame is the envelope of every message.
// D is left raw so that it can be decoded once the opcode is known.
type Frame struct {
	Op OpCode          `json:"op"`
	D  json.RawMessage `json:"d"`
}

// NewFrame builds a frame with d encoded as its data.
func NewFrame(op OpCode, d any) (Frame, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return Frame{}, fmt.Errorf("encoding %s data: %w", op, err)
	}
	return Frame{Op: op, D: b}, nil
}

// DecodeFrame decodes a raw message into its envelope.
func DecodeFrame(b []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(b, &f); err != nil {
		return Frame{}, fmt.Errorf("decoding frame: %w", err)
	}
	return f, nil
}

// Data decodes the frame data into v.
func (f Frame) Data(v any) error {
	if len(f.D) == 0 {
		return fmt.Errorf("%s frame has no data", f.Op)
	}
	if err := json.Unmarshal(f.D, v); err != nil {
		return fmt.Errorf("decoding %s data: %w", f.Op, err)
	}
	return nil
}

type AuthChallenge struct {
	Challenge string `json:"challenge"`
	Salt      string `json:"salt"`
}

// Hello is the first message sent by the server.
// Authentication is nil when the server does not require a password.
type Hello struct {
	ObsWebSocketVersion string         `json:"obsWebSocketVersion"`
	RPCVersion          int            `json:"rpcVersion"`
	Authentication      *AuthChallenge `json:"authentication,omitempty"`
}

type Identify struct {
	RPCVersion         int    `json:"rpcVersion"`
	Authentication     string `json:"authentication,omitempty"`
	EventSubscriptions Subs   `json:"eventSubscriptions"`
}

type Identified struct {
	NegotiatedRPCVersion int `json:"negotiatedRpcVersion"`
}

type Request struct {
	RequestType string          `json:"requestType"`
	RequestID   string          `json:"requestId"`
	RequestData json.RawMessage `json:"requestData,omitempty"`
}

type RequestStatus struct {
	Result  bool   `json:"result"`
	Code    int    `json:"code"`
	Comment string `json:"comment,omitempty"`
}

type RequestResponse struct {
	RequestType   string          `json:"requestType"`
	RequestID     string          `json:"requestId"`
	RequestStatus RequestStatus   `json:"requestStatus"`
	ResponseData  json.RawMessage `json:"responseData,omitempty"`
}

// UnmarshalJSON accepts requestId as a string or an integer, normalising it to a decimal string.
func (r *RequestResponse) UnmarshalJSON(b []byte) error {
	type plain RequestResponse
	var v struct {
		plain
		RequestID json.RawMessage `json:"requestId"`
	}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	id, err := decodeRequestID(v.RequestID)
	if err != nil {
		return err
	}
	*r = RequestResponse(v.plain)
	r.RequestID = id
	return nil
}

func decodeRequestID(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("requestId must be a string or an integer, got %s", raw)
	}
	if _, err := n.Int64(); err != nil {
		return "", fmt.Errorf("requestId must be a string or an integer, got %s", raw)
	}
	return n.String(), nil
}

type Event struct {
	EventType   string          `json:"eventType"`
	EventIntent Subs            `json:"eventIntent"`
	EventData   json.RawMessage `json:"eventData,omitempty"`
}
