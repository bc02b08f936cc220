package client

import (
	"sync"

	"github.com/guseggert/obsws/client/protocol"
	"go.uber.org/zap"
)

// eventQueue is an unbounded FIFO between the reader and the dispatcher.
// push never blocks, so the reader keeps delivering responses while callbacks run.
type eventQueue struct {
	log    *zap.SugaredLogger
	warnAt int

	mut    sync.Mutex
	items  []protocol.Event
	warned bool

	// ready holds a token whenever items may be non-empty.
	ready chan struct{}
}

func newEventQueue(log *zap.SugaredLogger, warnAt int) *eventQueue {
	return &eventQueue{log: log, warnAt: warnAt, ready: make(chan struct{}, 1)}
}

func (q *eventQueue) push(ev protocol.Event) {
	q.mut.Lock()
	q.items = append(q.items, ev)
	n := len(q.items)
	warn := q.warnAt > 0 && n >= q.warnAt && !q.warned
	if warn {
		q.warned = true
	}
	q.mut.Unlock()

	if warn {
		q.log.Warnw("event backlog is growing, callbacks are slower than the event rate", "Queued", n)
	}
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

func (q *eventQueue) pop() (protocol.Event, bool) {
	q.mut.Lock()
	defer q.mut.Unlock()
	if len(q.items) == 0 {
		q.warned = false
		return protocol.Event{}, false
	}
	ev := q.items[0]
	q.items[0] = protocol.Event{}
	q.items = q.items[1:]
	return ev, true
}

func (q *eventQueue) len() int {
	q.mut.Lock()
	defer q.mut.Unlock()
	return len(q.items)
}
