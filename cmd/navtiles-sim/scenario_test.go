package main

import (
	"context"
	"testing"
	"time"

	"github.com/annel0/navtiles/internal/config"
	"github.com/annel0/navtiles/internal/logging"
	"github.com/annel0/navtiles/internal/navmesh"
	"github.com/annel0/navtiles/internal/recastmesh"
	"github.com/annel0/navtiles/internal/tilecache"
	"github.com/annel0/navtiles/internal/updater"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScenario(t *testing.T, seed int64) (*scenario, *tilecache.TileCache, *updater.Updater, *updater.MemorySink) {
	t.Helper()
	cache, err := tilecache.New(navmesh.DefaultSettings(), recastmesh.NewTriangleBuilder(0))
	require.NoError(t, err)
	cache.SetWorldspace("test")
	sink := updater.NewMemorySink()
	upd, err := updater.New(cache, sink, updater.Config{Workers: 4, MaxTiles: 64, PollInterval: time.Millisecond})
	require.NoError(t, err)
	return newScenario(cache, upd, 64, seed, logging.Nop()), cache, upd, sink
}

func TestScenarioIsDeterministic(t *testing.T) {
	a, cacheA, _, _ := newTestScenario(t, 7)
	b, cacheB, _, _ := newTestScenario(t, 7)

	assert.Equal(t, a.populate(50, 5000), b.populate(50, 5000))
	require.Equal(t, len(a.objects), len(b.objects))
	for i := range a.objects {
		assert.Equal(t, a.objects[i].origin, b.objects[i].origin)
	}
	assert.Equal(t, cacheA.LimitedObjectsRange(), cacheB.LimitedObjectsRange())
}

func TestScenarioRun(t *testing.T) {
	sc, cache, upd, sink := newTestScenario(t, 3)

	sc.movePlayer(0)
	assert.Equal(t, updater.Window(upd.PlayerTile(), 64), cache.Range())

	sc.addTerrain(2)
	assert.Equal(t, 4, cache.Stats().Heightfields)
	assert.GreaterOrEqual(t, cache.Stats().Water, 1, "глобальная вода есть всегда")

	added := sc.populate(40, 3000)
	assert.Positive(t, added)
	assert.Equal(t, added, cache.Stats().Objects)

	for i := 1; i <= 5; i++ {
		sc.movePlayer(i)
		sc.moveObjects(0.5)
	}
	assert.Equal(t, 3, sc.removeSome(3))
	assert.Equal(t, added-3, cache.Stats().Objects)

	_, err := upd.Process(context.Background())
	require.NoError(t, err)
	assert.Positive(t, sink.Len())
	for _, tile := range sink.Tiles("test") {
		assert.True(t, cache.Range().Contains(tile), "тайл %v вне окна", tile)
	}
}

func TestLoggingOptions(t *testing.T) {
	opts := loggingOptions(config.LoggingConfig{Dir: "", ConsoleLevel: "WARN", FileLevel: "bogus", MaxSizeMB: 7})
	assert.Equal(t, logging.WARN, opts.ConsoleLevel)
	assert.Equal(t, logging.DefaultOptions().FileLevel, opts.FileLevel)
	assert.Equal(t, 7, opts.MaxSizeMB)
	assert.Empty(t, opts.Dir)
}
