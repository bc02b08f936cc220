/*
Package protocol defines the wire types of the obs-websocket v5 protocol: opcodes, the frame envelope, the handshake messages, requests, responses, events, and the event subscription mask.

Every message is a JSON object sent as a WebSocket text frame, of the form {"op": <opcode>, "d": <data>}.

The protocol proceeds as follows:

1. The client opens a WebSocket connection with the server, using the "obswebsocket.json" subprotocol.
2. The server sends a Hello message (op 0). If authentication is enabled it carries a salt and a challenge.
3. The client sends an Identify message (op 1) with the RPC version, the event subscription mask, and the authentication string if the server asked for one.
4. The server replies with Identified (op 2). If identification failed, the server closes the connection instead, e.g. with code 4009.
5. The client sends Request messages (op 6) with a requestId that the server echoes in the RequestResponse (op 7).
6. At any point after Identified, the server may push Event messages (op 5) matching the subscription mask.

Responses may arrive in any order relative to each other and to events, so the client must match them by requestId.
*/
package protocol
