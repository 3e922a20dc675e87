package tilecache

import (
	"slices"

	"github.com/annel0/navtiles/internal/navmesh"
	"github.com/annel0/navtiles/internal/vec"
)

// cellEntry хранит содержимое одной ячейки мира (вода или рельеф)
type cellEntry[T any] struct {
	cell     vec.Vec2
	cellSize int
	value    T
	// bounded == false для ячеек бесконечного размера: у них нет footprint,
	// они участвуют в построении каждого занятого тайла
	bounded   bool
	footprint navmesh.TilesRange
	oversized bool
}

// cellTracker владеет footprint содержимого, привязанного к сетке ячеек мира.
// Ячейки и тайлы: разные системы координат, связанные только через navmesh.MakeCellTilesRange.
type cellTracker[T any] struct {
	settings navmesh.Settings
	height   func(T) float32
	cells    map[vec.Vec2]*cellEntry[T]
}

func newCellTracker[T any](settings navmesh.Settings, height func(T) float32) *cellTracker[T] {
	return &cellTracker[T]{
		settings: settings,
		height:   height,
		cells:    make(map[vec.Vec2]*cellEntry[T]),
	}
}

// add начинает отслеживать ячейку. false, если в ячейке уже есть содержимое этого вида.
func (t *cellTracker[T]) add(cell vec.Vec2, cellSize int, value T) (*cellEntry[T], bool) {
	if _, exists := t.cells[cell]; exists {
		return nil, false
	}
	entry := &cellEntry[T]{
		cell:     cell,
		cellSize: cellSize,
		value:    value,
	}
	if !navmesh.IsInfiniteCellSize(cellSize) {
		shift := navmesh.CellShift(cell, cellSize, t.height(value))
		entry.footprint = navmesh.MakeCellTilesRange(cellSize, shift, t.settings)
		entry.bounded = true
	}
	t.cells[cell] = entry
	return entry, true
}

func (t *cellTracker[T]) remove(cell vec.Vec2) (*cellEntry[T], bool) {
	entry, exists := t.cells[cell]
	if !exists {
		return nil, false
	}
	delete(t.cells, cell)
	return entry, true
}

func (t *cellTracker[T]) get(cell vec.Vec2) (*cellEntry[T], bool) {
	entry, ok := t.cells[cell]
	return entry, ok
}

func (t *cellTracker[T]) forEach(fn func(*cellEntry[T])) {
	for _, entry := range t.cells {
		fn(entry)
	}
}

// global возвращает ячейки бесконечного размера, отсортированные по координате
func (t *cellTracker[T]) global() []*cellEntry[T] {
	var out []*cellEntry[T]
	for _, entry := range t.cells {
		if !entry.bounded {
			out = append(out, entry)
		}
	}
	slices.SortFunc(out, func(a, b *cellEntry[T]) int {
		return a.cell.Compare(b.cell)
	})
	return out
}

func (t *cellTracker[T]) len() int {
	return len(t.cells)
}

func (t *cellTracker[T]) reset() {
	clear(t.cells)
}
