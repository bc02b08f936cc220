package client

import (
	"strconv"
	"sync"

	"github.com/guseggert/obsws/client/protocol"
)

// maxRequestID keeps ids exactly representable as JSON numbers, in case a server echoes them as such.
const maxRequestID = 1<<53 - 1

type result struct {
	resp *protocol.RequestResponse
	err  error
}

// pendingTable maps in-flight request ids to the channel their waiter is blocked on.
type pendingTable struct {
	mut     sync.Mutex
	next    uint64
	waiters map[string]chan result
	// err is set once the session has failed; no new waiters are accepted afterwards.
	err error
}

func newPendingTable() *pendingTable {
	return &pendingTable{waiters: map[string]chan result{}}
}

// add allocates an id that is not currently in flight and registers a waiter for it.
func (p *pendingTable) add() (string, <-chan result, error) {
	p.mut.Lock()
	defer p.mut.Unlock()
	if p.err != nil {
		return "", nil, p.err
	}
	var id string
	for {
		p.next++
		if p.next > maxRequestID {
			p.next = 1
		}
		id = strconv.FormatUint(p.next, 10)
		if _, inFlight := p.waiters[id]; !inFlight {
			break
		}
	}
	ch := make(chan result, 1)
	p.waiters[id] = ch
	return id, ch, nil
}

func (p *pendingTable) remove(id string) {
	p.mut.Lock()
	delete(p.waiters, id)
	p.mut.Unlock()
}

// deliver hands resp to the waiter for its id, reporting false if nobody is waiting.
func (p *pendingTable) deliver(resp *protocol.RequestResponse) bool {
	p.mut.Lock()
	ch, ok := p.waiters[resp.RequestID]
	delete(p.waiters, resp.RequestID)
	p.mut.Unlock()
	if !ok {
		return false
	}
	// buffered with capacity 1 and each id is delivered at most once, so this never blocks
	ch <- result{resp: resp}
	return true
}

// failAll fails every waiter with err and rejects future adds.
func (p *pendingTable) failAll(err error) {
	p.mut.Lock()
	defer p.mut.Unlock()
	if p.err == nil {
		p.err = err
	}
	for id, ch := range p.waiters {
		ch <- result{err: err}
		delete(p.waiters, id)
	}
}

func (p *pendingTable) len() int {
	p.mut.Lock()
	defer p.mut.Unlock()
	return len(p.waiters)
}
