package tilecache

import (
	"testing"

	"github.com/annel0/navtiles/internal/navmesh"
	"github.com/annel0/navtiles/internal/recastmesh"
	"github.com/annel0/navtiles/internal/vec"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoalesce(t *testing.T) {
	cases := []struct {
		prev, next, want ChangeType
	}{
		{0, ChangeAdd, ChangeAdd},
		{0, ChangeUpdate, ChangeUpdate},
		{0, ChangeRemove, ChangeRemove},
		{ChangeAdd, ChangeAdd, ChangeAdd},
		{ChangeAdd, ChangeUpdate, ChangeAdd},
		{ChangeAdd, ChangeRemove, ChangeRemove},
		{ChangeUpdate, ChangeAdd, ChangeUpdate},
		{ChangeUpdate, ChangeUpdate, ChangeUpdate},
		{ChangeUpdate, ChangeRemove, ChangeRemove},
		{ChangeRemove, ChangeAdd, ChangeUpdate},
		{ChangeRemove, ChangeUpdate, ChangeUpdate},
		{ChangeRemove, ChangeRemove, ChangeRemove},
	}
	for _, tt := range cases {
		t.Run(tt.prev.String()+"+"+tt.next.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, coalesce(tt.prev, tt.next))
		})
	}
}

func TestChangeLog(t *testing.T) {
	t.Run("commit только после изменений", func(t *testing.T) {
		l := newChangeLog()
		assert.False(t, l.commit())
		assert.Zero(t, l.revision)

		l.record(navmesh.TilePosition{}, ChangeAdd)
		l.record(navmesh.TilePosition{X: 1}, ChangeAdd)
		assert.True(t, l.commit())
		assert.False(t, l.commit(), "ревизия растёт один раз на вызов")
		assert.Equal(t, uint64(1), l.revision)

		l.markDirty()
		assert.True(t, l.commit())
		assert.Equal(t, uint64(2), l.revision)
	})

	t.Run("drain сортирует и очищает", func(t *testing.T) {
		l := newChangeLog()
		l.record(navmesh.TilePosition{X: 1, Y: 0}, ChangeAdd)
		l.record(navmesh.TilePosition{X: 0, Y: 5}, ChangeRemove)
		l.record(navmesh.TilePosition{X: 0, Y: -2}, ChangeUpdate)

		assert.Equal(t, []TileChange{
			{Tile: navmesh.TilePosition{X: 0, Y: -2}, Type: ChangeUpdate},
			{Tile: navmesh.TilePosition{X: 0, Y: 5}, Type: ChangeRemove},
			{Tile: navmesh.TilePosition{X: 1, Y: 0}, Type: ChangeAdd},
		}, l.drain())
		assert.Zero(t, l.len())
		assert.Empty(t, l.drain())
	})

	t.Run("reset сохраняет ревизию", func(t *testing.T) {
		l := newChangeLog()
		l.record(navmesh.TilePosition{}, ChangeAdd)
		l.commit()
		l.record(navmesh.TilePosition{}, ChangeRemove)
		l.reset()

		assert.Zero(t, l.len())
		assert.False(t, l.commit())
		assert.Equal(t, uint64(1), l.revision)
	})
}

func TestChangeTypeString(t *testing.T) {
	assert.Equal(t, "add", ChangeAdd.String())
	assert.Equal(t, "update", ChangeUpdate.String())
	assert.Equal(t, "remove", ChangeRemove.String())
	assert.Equal(t, "change(9)", ChangeType(9).String())
	assert.Equal(t, "(1, 2):remove", TileChange{Tile: navmesh.TilePosition{X: 1, Y: 2}, Type: ChangeRemove}.String())
}

func TestFootprintDiff(t *testing.T) {
	d := footprintDiff{Old: rng(0, 0, 2, 1), New: rng(-1, 0, 1, 1)}

	t.Run("без ограничения окна", func(t *testing.T) {
		assert.Equal(t, []TileChange{
			tc(-1, 0, ChangeAdd),
			tc(0, 0, ChangeUpdate),
			tc(1, 0, ChangeRemove),
		}, d.Changes(navmesh.InfiniteRange()))
	})

	t.Run("окно отсекает тайлы", func(t *testing.T) {
		assert.Equal(t, []TileChange{tc(1, 0, ChangeRemove)}, d.Changes(tr(1, 0)))
		assert.Empty(t, d.Changes(tr(7, 7)))
	})

	t.Run("тот же footprint", func(t *testing.T) {
		same := footprintDiff{Old: rng(0, 0, 1, 2), New: rng(0, 0, 1, 2)}
		assert.Equal(t, []TileChange{tc(0, 0, ChangeUpdate), tc(0, 1, ChangeUpdate)}, same.Changes(navmesh.InfiniteRange()))
	})
}

func TestTileStore(t *testing.T) {
	s := newTileStore()
	tile := navmesh.TilePosition{X: 3, Y: 4}
	obj := objectOccupant(uuid.New())
	water := waterOccupant(vec.Vec2{})

	require.True(t, s.occupy(tile, obj), "первая запись создаёт строку")
	assert.False(t, s.occupy(tile, water))
	row := s.row(tile)
	require.NotNil(t, row)

	mesh := &recastmesh.Mesh{Tile: tile}
	assert.True(t, s.put(tile, row, row.version, mesh))
	assert.Same(t, mesh, s.cached(tile))
	assert.Equal(t, 1, s.cachedCount())

	version := row.version
	assert.True(t, s.invalidate(tile))
	assert.Nil(t, s.cached(tile))
	assert.False(t, s.put(tile, row, version, mesh), "устаревшая версия не записывается")

	deleted, changed := s.vacate(tile, obj)
	assert.False(t, deleted)
	assert.True(t, changed)
	deleted, changed = s.vacate(tile, obj)
	assert.False(t, deleted)
	assert.False(t, changed, "повторное удаление ничего не меняет")

	deleted, _ = s.vacate(tile, water)
	assert.True(t, deleted)
	assert.Nil(t, s.row(tile))
	assert.False(t, s.put(tile, row, row.version, mesh), "удалённая строка не принимает меш")

	s.occupy(navmesh.TilePosition{X: 0, Y: 0}, obj)
	s.occupy(navmesh.TilePosition{X: 9, Y: 9}, obj)
	assert.Equal(t, 1, s.evictOutOfRange(tr(0, 0)))
	assert.Equal(t, 1, s.len())
}
