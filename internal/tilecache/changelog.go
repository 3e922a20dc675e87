package tilecache

import (
	"fmt"
	"slices"

	"github.com/annel0/navtiles/internal/navmesh"
)

// ChangeType — вид изменения тайла с момента последнего TakeChangedTiles
type ChangeType uint8

const (
	// Тайл появился (строка создана)
	ChangeAdd ChangeType = iota + 1
	// Содержимое существующего тайла изменилось
	ChangeUpdate
	// Тайл исчез (строка удалена)
	ChangeRemove
)

func (c ChangeType) String() string {
	switch c {
	case ChangeAdd:
		return "add"
	case ChangeUpdate:
		return "update"
	case ChangeRemove:
		return "remove"
	default:
		return fmt.Sprintf("change(%d)", uint8(c))
	}
}

// TileChange представляет собой накопленное изменение одного тайла
type TileChange struct {
	Tile navmesh.TilePosition
	Type ChangeType
}

func (c TileChange) String() string {
	return fmt.Sprintf("%v:%v", c.Tile, c.Type)
}

// coalesce сворачивает ожидающее изменение prev и новое next в итог относительно прошлой выборки.
// Remove всегда побеждает; после Remove любое появление тайла: это Update,
// потому что потребитель уже знал о тайле до выборки.
func coalesce(prev, next ChangeType) ChangeType {
	switch {
	case next == ChangeRemove:
		return ChangeRemove
	case prev == 0:
		return next
	case prev == ChangeRemove:
		return ChangeUpdate
	default:
		return prev
	}
}

// changeLog хранит не более одного изменения на тайл и счётчик ревизий
type changeLog struct {
	pending  map[navmesh.TilePosition]ChangeType
	revision uint64
	dirty    bool
}

func newChangeLog() *changeLog {
	return &changeLog{pending: make(map[navmesh.TilePosition]ChangeType)}
}

func (l *changeLog) record(tile navmesh.TilePosition, t ChangeType) {
	l.pending[tile] = coalesce(l.pending[tile], t)
	l.dirty = true
}

// markDirty отмечает изменение отслеживаемого содержимого, даже если ни один тайл окна не затронут
func (l *changeLog) markDirty() {
	l.dirty = true
}

// commit увеличивает ревизию ровно один раз, если с прошлого commit было хоть одно изменение
func (l *changeLog) commit() bool {
	if !l.dirty {
		return false
	}
	l.dirty = false
	l.revision++
	return true
}

// drain возвращает изменения по возрастанию позиции и очищает журнал
func (l *changeLog) drain() []TileChange {
	out := make([]TileChange, 0, len(l.pending))
	for tile, t := range l.pending {
		out = append(out, TileChange{Tile: tile, Type: t})
	}
	slices.SortFunc(out, func(a, b TileChange) int {
		return a.Tile.Compare(b.Tile)
	})
	clear(l.pending)
	return out
}

// reset отбрасывает ожидающие изменения; ревизия продолжается
func (l *changeLog) reset() {
	clear(l.pending)
	l.dirty = false
}

func (l *changeLog) len() int {
	return len(l.pending)
}
