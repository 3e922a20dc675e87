package tilecache

import (
	"github.com/annel0/navtiles/internal/navmesh"
	"github.com/annel0/navtiles/internal/recastmesh"
	"github.com/annel0/navtiles/internal/vec"
)

type occupantKind uint8

const (
	occupantObject occupantKind = iota + 1
	occupantWater
	occupantHeightfield
)

// occupant ссылается на содержимое, занимающее тайл
type occupant struct {
	kind   occupantKind
	object ObjectID
	cell   vec.Vec2
}

func objectOccupant(id ObjectID) occupant {
	return occupant{kind: occupantObject, object: id}
}

func waterOccupant(cell vec.Vec2) occupant {
	return occupant{kind: occupantWater, cell: cell}
}

func heightfieldOccupant(cell vec.Vec2) occupant {
	return occupant{kind: occupantHeightfield, cell: cell}
}

// tileRow хранит, кто занимает тайл, и построенный по нему меш
type tileRow struct {
	occupants map[occupant]struct{}
	mesh      *recastmesh.Mesh
	// version меняется при каждом изменении содержимого; берётся из общего счётчика хранилища,
	// поэтому пересозданная строка никогда не совпадёт по версии со старой
	version uint64
}

// tileStore хранит строки только для занятых тайлов внутри активного окна
type tileStore struct {
	rows        map[navmesh.TilePosition]*tileRow
	nextVersion uint64
}

func newTileStore() *tileStore {
	return &tileStore{rows: make(map[navmesh.TilePosition]*tileRow)}
}

func (s *tileStore) touch(row *tileRow) {
	s.nextVersion++
	row.version = s.nextVersion
	row.mesh = nil
}

// occupy добавляет occupant в тайл и сбрасывает меш. Возвращает true, если строка создана.
func (s *tileStore) occupy(tile navmesh.TilePosition, occ occupant) bool {
	row, ok := s.rows[tile]
	if !ok {
		row = &tileRow{occupants: make(map[occupant]struct{}, 1)}
		s.rows[tile] = row
	}
	row.occupants[occ] = struct{}{}
	s.touch(row)
	return !ok
}

// vacate убирает occupant из тайла. deleted означает, что строка удалена; changed, что строка изменена.
func (s *tileStore) vacate(tile navmesh.TilePosition, occ occupant) (deleted, changed bool) {
	row, ok := s.rows[tile]
	if !ok {
		return false, false
	}
	if _, ok := row.occupants[occ]; !ok {
		return false, false
	}
	delete(row.occupants, occ)
	if len(row.occupants) == 0 {
		delete(s.rows, tile)
		return true, true
	}
	s.touch(row)
	return false, true
}

// invalidate сбрасывает меш существующей строки
func (s *tileStore) invalidate(tile navmesh.TilePosition) bool {
	row, ok := s.rows[tile]
	if !ok {
		return false
	}
	s.touch(row)
	return true
}

func (s *tileStore) row(tile navmesh.TilePosition) *tileRow {
	return s.rows[tile]
}

func (s *tileStore) cached(tile navmesh.TilePosition) *recastmesh.Mesh {
	if row, ok := s.rows[tile]; ok {
		return row.mesh
	}
	return nil
}

// put сохраняет построенный меш, только если строка та же и с момента снятия входа не менялась
func (s *tileStore) put(tile navmesh.TilePosition, row *tileRow, version uint64, mesh *recastmesh.Mesh) bool {
	current, ok := s.rows[tile]
	if !ok || current != row || current.version != version {
		return false
	}
	current.mesh = mesh
	return true
}

// evictOutOfRange удаляет строки вне окна вместе с мешами
func (s *tileStore) evictOutOfRange(window navmesh.TilesRange) int {
	evicted := 0
	for tile := range s.rows {
		if !window.Contains(tile) {
			delete(s.rows, tile)
			evicted++
		}
	}
	return evicted
}

func (s *tileStore) forEach(fn func(navmesh.TilePosition, *tileRow)) {
	for tile, row := range s.rows {
		fn(tile, row)
	}
}

func (s *tileStore) reset() {
	clear(s.rows)
}

func (s *tileStore) len() int {
	return len(s.rows)
}

func (s *tileStore) cachedCount() int {
	n := 0
	for _, row := range s.rows {
		if row.mesh != nil {
			n++
		}
	}
	return n
}
