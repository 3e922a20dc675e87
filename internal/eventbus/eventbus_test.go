package eventbus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/annel0/navtiles/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collector struct {
	mu     sync.Mutex
	events []*Envelope
}

func (c *collector) handle(_ context.Context, ev *Envelope) {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
}

func (c *collector) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func (c *collector) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.events))
	for _, ev := range c.events {
		out = append(out, ev.EventType)
	}
	return out
}

func TestMemoryBusDelivery(t *testing.T) {
	bus := NewMemoryBus(16)
	defer bus.Close()

	all := &collector{}
	rebuilt := &collector{}
	_, err := bus.Subscribe(context.Background(), Filter{}, all.handle)
	require.NoError(t, err)
	_, err = bus.Subscribe(context.Background(), Filter{Types: []string{TypeTileRebuilt}}, rebuilt.handle)
	require.NoError(t, err)

	for _, typ := range []string{TypeTilesChanged, TypeTileRebuilt, TypeTileRemoved} {
		ev, err := NewEnvelope("test", typ, 1, TileRef{X: 1, Y: 2})
		require.NoError(t, err)
		require.NoError(t, bus.Publish(context.Background(), ev))
	}

	require.Eventually(t, func() bool { return all.len() == 3 && rebuilt.len() == 1 }, time.Second, time.Millisecond)
	assert.ElementsMatch(t, []string{TypeTilesChanged, TypeTileRebuilt, TypeTileRemoved}, all.types())
	assert.Equal(t, []string{TypeTileRebuilt}, rebuilt.types())

	require.Eventually(t, func() bool { return bus.Metrics().Consumed == 4 }, time.Second, time.Millisecond)
	assert.Equal(t, uint64(3), bus.Metrics().Published)
}

func TestMemoryBusFilterBySource(t *testing.T) {
	bus := NewMemoryBus(4)
	defer bus.Close()

	got := &collector{}
	_, err := bus.Subscribe(context.Background(), Filter{Sources: []string{"updater"}}, got.handle)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), &Envelope{EventType: TypeTileRemoved, Source: "other"}))
	require.NoError(t, bus.Publish(context.Background(), &Envelope{EventType: TypeTileRemoved, Source: "updater"}))

	require.Eventually(t, func() bool { return got.len() == 1 }, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 1, got.len())
}

func TestMemoryBusUnsubscribe(t *testing.T) {
	bus := NewMemoryBus(4)
	defer bus.Close()

	got := &collector{}
	sub, err := bus.Subscribe(context.Background(), Filter{}, got.handle)
	require.NoError(t, err)
	sub.Unsubscribe()
	sub.Unsubscribe()

	require.NoError(t, bus.Publish(context.Background(), &Envelope{EventType: TypeTileRemoved}))
	require.Eventually(t, func() bool { return bus.Metrics().InFlight == 0 }, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	assert.Zero(t, got.len())
}

func TestMemoryBusBackpressure(t *testing.T) {
	// шина без dispatchLoop: буфер никто не разбирает
	mb := newMemoryBus(1)

	require.NoError(t, mb.Publish(context.Background(), &Envelope{EventType: "a"}))
	require.NoError(t, mb.Publish(context.Background(), &Envelope{EventType: "b", Priority: 1}), "низкий приоритет отбрасывается молча")
	assert.Equal(t, uint64(1), mb.Metrics().Dropped)
	assert.Equal(t, 1, mb.Metrics().InFlight)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, mb.Publish(ctx, &Envelope{EventType: "c", Priority: 9}), context.DeadlineExceeded,
		"высокий приоритет ждёт места в буфере")

	blocked := make(chan error, 1)
	go func() {
		blocked <- mb.Publish(context.Background(), &Envelope{EventType: "d", Priority: 9})
	}()
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, mb.Close())
	assert.ErrorIs(t, <-blocked, ErrClosed)
}

func TestMemoryBusPublishFromHandler(t *testing.T) {
	t.Run("полный буфер не блокирует обработчик", func(t *testing.T) {
		mb := newMemoryBus(1)
		require.NoError(t, mb.Publish(context.Background(), &Envelope{EventType: "a"}))

		hctx := context.WithValue(context.Background(), handlerKey{}, mb)
		assert.ErrorIs(t, mb.Publish(hctx, &Envelope{EventType: "b", Priority: PriorityCritical}), ErrWouldBlock)
		assert.Equal(t, uint64(1), mb.Metrics().Dropped)

		other := context.WithValue(context.Background(), handlerKey{}, newMemoryBus(1))
		ctx, cancel := context.WithTimeout(other, 20*time.Millisecond)
		defer cancel()
		assert.ErrorIs(t, mb.Publish(ctx, &Envelope{EventType: "c", Priority: PriorityCritical}), context.DeadlineExceeded,
			"обработчик другой шины ждёт как обычный издатель")
	})

	t.Run("обработчик публикует критичное событие при заполненной шине", func(t *testing.T) {
		mb := NewMemoryBus(1).(*memoryBus)
		defer mb.Close()

		started := make(chan struct{})
		fill := make(chan struct{})
		result := make(chan error, 1)
		_, err := mb.Subscribe(context.Background(), Filter{}, func(ctx context.Context, ev *Envelope) {
			if ev.EventType != "trigger" {
				return
			}
			close(started)
			<-fill
			result <- mb.Publish(ctx, &Envelope{EventType: "echo", Priority: PriorityCritical})
		})
		require.NoError(t, err)

		require.NoError(t, mb.Publish(context.Background(), &Envelope{EventType: "trigger"}))
		<-started
		// очередь подписчика и буфер шины заполнены, dispatchLoop ждёт обработчик
		require.Eventually(t, func() bool {
			_ = mb.Publish(context.Background(), &Envelope{EventType: "filler"})
			mb.mu.RLock()
			defer mb.mu.RUnlock()
			queued := 0
			for _, sub := range mb.subscribers {
				queued += len(sub.queue)
			}
			return queued == 1 && len(mb.buffer) == 1
		}, time.Second, time.Millisecond)
		close(fill)

		select {
		case err := <-result:
			assert.ErrorIs(t, err, ErrWouldBlock)
		case <-time.After(2 * time.Second):
			t.Fatal("обработчик заблокирован публикацией")
		}
	})
}

func TestMemoryBusPreservesOrder(t *testing.T) {
	bus := NewMemoryBus(8)
	defer bus.Close()

	got := &collector{}
	_, err := bus.Subscribe(context.Background(), Filter{}, func(ctx context.Context, ev *Envelope) {
		time.Sleep(time.Millisecond)
		got.handle(ctx, ev)
	})
	require.NoError(t, err)

	want := make([]string, 0, 20)
	for i := 0; i < 20; i++ {
		typ := TypeTileRebuilt
		if i%2 == 1 {
			typ = TypeTileRemoved
		}
		want = append(want, typ)
		require.NoError(t, bus.Publish(context.Background(), &Envelope{EventType: typ, Priority: PriorityCritical}))
	}
	require.Eventually(t, func() bool { return got.len() == 20 }, 2*time.Second, time.Millisecond)
	assert.Equal(t, want, got.types(), "подписчик получает события в порядке публикации")
}

func TestMemoryBusCloseDeliversAccepted(t *testing.T) {
	bus := NewMemoryBus(8)
	got := &collector{}
	_, err := bus.Subscribe(context.Background(), Filter{}, got.handle)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, bus.Publish(context.Background(), &Envelope{EventType: TypeTileRemoved}))
	}
	require.NoError(t, bus.Close())
	require.Eventually(t, func() bool { return got.len() == 5 }, time.Second, time.Millisecond)
}

func TestMemoryBusClose(t *testing.T) {
	bus := NewMemoryBus(4)
	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())

	assert.ErrorIs(t, bus.Publish(context.Background(), &Envelope{EventType: "a"}), ErrClosed)
	_, err := bus.Subscribe(context.Background(), Filter{}, func(context.Context, *Envelope) {})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestEnvelopeRoundTrip(t *testing.T) {
	in := TileRebuilt{Worldspace: "sys::default", Tile: TileRef{X: -1, Y: 3}, Generation: 2, Revision: 7, Triangles: 12}
	ev, err := NewEnvelope("updater", TypeTileRebuilt, 2, in)
	require.NoError(t, err)
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, TypeTileRebuilt, ev.EventType)
	assert.Equal(t, time.UTC, ev.Timestamp.Location())

	var out TileRebuilt
	require.NoError(t, Decode(ev, &out))
	assert.Equal(t, in, out)

	ev.Version = 42
	assert.Error(t, Decode(ev, &out), "неизвестная версия схемы отклоняется")
}

func TestMetricsExporter(t *testing.T) {
	bus := NewMemoryBus(8)
	defer bus.Close()

	reg := prometheus.NewRegistry()
	me, err := NewMetricsExporter(bus, reg, time.Hour)
	require.NoError(t, err)
	_, err = NewMetricsExporter(bus, reg, time.Hour)
	assert.Error(t, err)

	require.NoError(t, bus.Publish(context.Background(), &Envelope{EventType: "a"}))
	require.NoError(t, bus.Publish(context.Background(), &Envelope{EventType: "b"}))
	me.Collect()
	me.Collect()
	assert.Equal(t, float64(2), testutil.ToFloat64(me.published), "счётчик растёт на дельту")

	me.Start()
	me.Stop()
	me.Stop()
}

func TestLoggingListener(t *testing.T) {
	bus := NewMemoryBus(4)
	defer bus.Close()

	sub, err := StartLoggingListener(context.Background(), bus, logging.Nop())
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), &Envelope{EventType: TypeTileRemoved}))
	require.Eventually(t, func() bool { return bus.Metrics().Consumed == 1 }, time.Second, time.Millisecond)
	sub.Unsubscribe()
}

func TestJetStreamSubjects(t *testing.T) {
	assert.Equal(t, "navtiles.tile.rebuilt", subjectFor(TypeTileRebuilt))
	assert.Equal(t, "navtiles.tiles.changed", subjectFor(TypeTilesChanged))
}

func TestJetStreamBusUnreachable(t *testing.T) {
	_, err := NewJetStreamBus("nats://127.0.0.1:1", "", time.Hour, logging.Nop())
	assert.Error(t, err, "без сервера NATS шина не создаётся")
}
