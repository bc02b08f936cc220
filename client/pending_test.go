package client

import (
	"strconv"
	"testing"

	"github.com/guseggert/obsws/client/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingIDs(t *testing.T) {
	p := newPendingTable()
	id1, _, err := p.add()
	require.NoError(t, err)
	id2, _, err := p.add()
	require.NoError(t, err)
	assert.Equal(t, "1", id1)
	assert.Equal(t, "2", id2)

	// wraps and skips ids still in flight
	p.next = maxRequestID - 1
	last, _, err := p.add()
	require.NoError(t, err)
	assert.Equal(t, strconv.FormatUint(maxRequestID, 10), last)
	wrapped, _, err := p.add()
	require.NoError(t, err)
	assert.Equal(t, "3", wrapped)
	assert.Equal(t, 4, p.len())
}

func TestPendingDeliver(t *testing.T) {
	p := newPendingTable()
	id, ch, err := p.add()
	require.NoError(t, err)

	assert.False(t, p.deliver(&protocol.RequestResponse{RequestID: "unknown"}))
	assert.True(t, p.deliver(&protocol.RequestResponse{RequestID: id, RequestType: "GetVersion"}))
	res := <-ch
	require.NoError(t, res.err)
	assert.Equal(t, "GetVersion", res.resp.RequestType)

	// delivered at most once
	assert.False(t, p.deliver(&protocol.RequestResponse{RequestID: id}))
	assert.Equal(t, 0, p.len())

	id, _, err = p.add()
	require.NoError(t, err)
	p.remove(id)
	assert.False(t, p.deliver(&protocol.RequestResponse{RequestID: id}))
}

func TestPendingFailAll(t *testing.T) {
	p := newPendingTable()
	_, ch1, err := p.add()
	require.NoError(t, err)
	_, ch2, err := p.add()
	require.NoError(t, err)

	p.failAll(ErrClosed)
	assert.ErrorIs(t, (<-ch1).err, ErrClosed)
	assert.ErrorIs(t, (<-ch2).err, ErrClosed)
	assert.Equal(t, 0, p.len())

	_, _, err = p.add()
	assert.ErrorIs(t, err, ErrClosed)
}
