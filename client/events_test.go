package client

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/guseggert/obsws/client/obstest"
	"github.com/guseggert/obsws/client/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newTestEventClient(t *testing.T, params ConnectionParameters, opts ...Option) *EventClient {
	opts = append([]Option{WithLogger(testLogger)}, opts...)
	c, err := NewEventClient(context.Background(), params, opts...)
	require.NoError(t, err)
	t.Cleanup(c.Unsubscribe)
	return c
}

func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting on channel")
	}
	var zero T
	return zero
}

func TestEventDispatch(t *testing.T) {
	srv, params := newTestServer(t)
	c := newTestEventClient(t, params)

	created := make(chan Event, 1)
	c.Callback.On("on_scene_created", func(ev Event) error {
		created <- ev
		return nil
	})
	removed := make(chan Event, 1)
	c.Callback.On("SceneRemoved", func(ev Event) error {
		removed <- ev
		return nil
	})
	assert.Equal(t, []string{"SceneCreated", "SceneRemoved"}, c.Callback.Get())

	err := srv.Emit("SceneCreated", protocol.SubsScenes, map[string]any{"sceneName": "foo", "isGroup": false})
	require.NoError(t, err)

	ev := recv(t, created)
	assert.Equal(t, "SceneCreated", ev.Type)
	assert.Equal(t, protocol.SubsScenes, ev.Intent)
	name, _ := ev.Data.Str("sceneName")
	assert.Equal(t, "foo", name)
	isGroup, ok := ev.Data.Bool("isGroup")
	require.True(t, ok)
	assert.False(t, isGroup)

	select {
	case <-removed:
		t.Fatal("SceneRemoved handler called for SceneCreated")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEventClientDefaultsToLowVolume(t *testing.T) {
	srv, params := newTestServer(t)
	c := newTestEventClient(t, params)

	meters := make(chan Event, 1)
	c.Callback.On("InputVolumeMeters", func(ev Event) error {
		meters <- ev
		return nil
	})
	studio := make(chan Event, 1)
	c.Callback.On("StudioModeStateChanged", func(ev Event) error {
		studio <- ev
		return nil
	})

	require.NoError(t, srv.Emit("InputVolumeMeters", protocol.SubsInputVolumeMeters, map[string]any{"inputs": []any{}}))
	require.NoError(t, srv.Emit("StudioModeStateChanged", protocol.SubsUI, map[string]any{"studioModeEnabled": true}))

	recv(t, studio)
	select {
	case <-meters:
		t.Fatal("received a high-volume event without subscribing to it")
	default:
	}
}

func TestEventOrder(t *testing.T) {
	srv, params := newTestServer(t)
	// the backlog goes past the warning threshold
	c := newTestEventClient(t, params, WithEventBuffer(2))

	const n = 50
	var (
		mut sync.Mutex
		got []int64
	)
	all := make(chan struct{})
	c.Callback.On("CustomEvent", func(ev Event) error {
		time.Sleep(time.Millisecond)
		v, _ := ev.Data.Int("n")
		mut.Lock()
		defer mut.Unlock()
		got = append(got, v)
		if len(got) == n {
			close(all)
		}
		return nil
	})

	for i := 0; i < n; i++ {
		require.NoError(t, srv.Emit("CustomEvent", protocol.SubsGeneral, map[string]any{"n": i}))
	}
	recv(t, all)

	mut.Lock()
	defer mut.Unlock()
	for i, v := range got {
		assert.Equal(t, int64(i), v)
	}
}

func TestHandlerFailuresDoNotStopDispatch(t *testing.T) {
	srv, params := newTestServer(t)
	c := newTestEventClient(t, params)

	c.Callback.On("ExitStarted", func(ev Event) error {
		panic("boom")
	})
	c.Callback.On("ExitStarted", func(ev Event) error {
		return errors.New("handler failed")
	})
	called := make(chan string, 2)
	c.Callback.On("ExitStarted", func(ev Event) error {
		called <- ev.Type
		return nil
	})
	c.Callback.On("CurrentSceneCollectionChanging", func(ev Event) error {
		called <- ev.Type
		return nil
	})

	require.NoError(t, srv.Emit("ExitStarted", protocol.SubsGeneral, nil))
	require.NoError(t, srv.Emit("CurrentSceneCollectionChanging", protocol.SubsConfig, map[string]any{"sceneCollectionName": "x"}))

	assert.Equal(t, "ExitStarted", recv(t, called))
	assert.Equal(t, "CurrentSceneCollectionChanging", recv(t, called))
	assert.NoError(t, c.Err())
}

func TestHandlerCanInvoke(t *testing.T) {
	srv, params := newTestServer(t)
	c := newTestEventClient(t, params)

	versions := make(chan string, 1)
	c.Callback.On("scene_created", func(ev Event) error {
		d, err := c.Invoke(context.Background(), "GetVersion", nil)
		if err != nil {
			return err
		}
		v, _ := d.Str("obsVersion")
		versions <- v
		return nil
	})

	require.NoError(t, srv.Emit("SceneCreated", protocol.SubsScenes, map[string]any{"sceneName": "foo"}))
	assert.Equal(t, obstest.OBSVersion, recv(t, versions))
}

func TestHandlerCanInvokeWithEventBacklog(t *testing.T) {
	srv, params := newTestServer(t)
	release := make(chan struct{})
	srv.Handle("Slow", blockUntil(release))
	c := newTestEventClient(t, params, WithEventBuffer(1))

	results := make(chan error, 1)
	seen := make(chan int, 4)
	n := 0
	c.Callback.On("SceneCreated", func(ev Event) error {
		n++
		if n == 1 {
			_, err := c.Invoke(context.Background(), "Slow", nil)
			results <- err
		}
		seen <- n
		return nil
	})

	require.NoError(t, srv.Emit("SceneCreated", protocol.SubsScenes, map[string]any{"n": 0}))
	require.Eventually(t, func() bool { return len(srv.Requests()) == 1 }, 2*time.Second, 10*time.Millisecond)
	for i := 1; i < 4; i++ {
		require.NoError(t, srv.Emit("SceneCreated", protocol.SubsScenes, map[string]any{"n": i}))
	}
	// the reader keeps going while the first callback waits for its response
	require.Eventually(t, func() bool { return c.s.events.len() == 3 }, 2*time.Second, 10*time.Millisecond)
	close(release)

	require.NoError(t, recv(t, results))
	for i := 1; i <= 4; i++ {
		assert.Equal(t, i, recv(t, seen))
	}
	assert.NoError(t, c.Err())
}

func TestUndecodableEventDataIsLogged(t *testing.T) {
	srv, params := newTestServer(t)
	core, logs := observer.New(zap.ErrorLevel)
	c := newTestEventClient(t, params, WithLogger(zap.New(core)))

	got := make(chan Event, 2)
	c.Callback.On("SceneCreated", func(ev Event) error {
		got <- ev
		return nil
	})

	require.NoError(t, srv.SendRaw([]byte(`{"op":5,"d":{"eventType":"SceneCreated","eventIntent":4,"eventData":"oops"}}`)))
	require.NoError(t, srv.Emit("SceneCreated", protocol.SubsScenes, map[string]any{"sceneName": "ok"}))

	ev := recv(t, got)
	name, _ := ev.Data.Str("sceneName")
	assert.Equal(t, "ok", name)
	assert.Len(t, got, 0)

	dropped := logs.FilterMessage("dropping event with undecodable data").All()
	require.Len(t, dropped, 1)
	assert.Equal(t, "SceneCreated", dropped[0].ContextMap()["EventType"])
	assert.NoError(t, c.Err())
}

func TestUnsubscribe(t *testing.T) {
	srv, params := newTestServer(t)
	c, err := NewEventClient(context.Background(), params, WithLogger(testLogger))
	require.NoError(t, err)

	started := make(chan struct{})
	release := make(chan struct{})
	var (
		mut   sync.Mutex
		count int
	)
	c.Callback.On("SceneCreated", func(ev Event) error {
		mut.Lock()
		count++
		first := count == 1
		mut.Unlock()
		if first {
			close(started)
			<-release
		}
		return nil
	})

	for i := 0; i < 5; i++ {
		require.NoError(t, srv.Emit("SceneCreated", protocol.SubsScenes, map[string]any{"n": i}))
	}
	recv(t, started)

	unsubscribed := make(chan struct{})
	go func() {
		c.Unsubscribe()
		close(unsubscribed)
	}()
	recv(t, c.Done())
	close(release)
	recv(t, unsubscribed)

	mut.Lock()
	assert.Equal(t, 1, count)
	mut.Unlock()
	assert.ErrorIs(t, c.Err(), ErrClosed)

	// idempotent
	c.Unsubscribe()
	c.Disconnect()
	_, err = c.Invoke(context.Background(), "GetVersion", nil)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestEventClientServerClose(t *testing.T) {
	srv, params := newTestServer(t)
	c := newTestEventClient(t, params)

	got := make(chan Event, 1)
	c.Callback.On("ExitStarted", func(ev Event) error {
		got <- ev
		return nil
	})
	require.NoError(t, srv.Emit("ExitStarted", protocol.SubsGeneral, nil))
	recv(t, got)

	srv.Disconnect(protocol.CloseSessionInvalidated, "")
	recv(t, c.Done())
	assert.ErrorIs(t, c.Err(), ErrClosed)

	unsubscribed := make(chan struct{})
	go func() {
		c.Unsubscribe()
		close(unsubscribed)
	}()
	recv(t, unsubscribed)
}
