/*
Package client is a client for the obs-websocket v5 remote-control protocol.

A Client issues synchronous requests with Invoke. An EventClient additionally subscribes to server-pushed events and dispatches them to callbacks registered in its Callback registry.

Each client owns one session: one WebSocket connection, identified once with the server. After the handshake, a single goroutine reads every incoming message and routes it. Request responses are handed to the goroutine blocked in Invoke for that requestId, and events are queued for the event client's dispatcher. Nothing else reads from the connection, so concurrent Invoke calls and event dispatch never steal each other's messages.

Events are dispatched on one goroutine in the order they were received. The event queue is unbounded, so the reader never waits for callbacks and no event is dropped. A warning is logged when the backlog reaches the size set with WithEventBuffer. A callback may call Invoke; its response is read while later events wait in the queue.

Reconnection is not handled here. When a session ends, Done is closed, Err reports why, and the caller may construct a new client.
*/
package client
