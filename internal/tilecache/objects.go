package tilecache

import (
	"slices"

	"github.com/annel0/navtiles/internal/navmesh"
	"github.com/annel0/navtiles/internal/shape"
	"github.com/google/uuid"
)

// ObjectID: идентификатор объекта, выданный вызывающей стороной
type ObjectID = uuid.UUID

// trackedObject хранит объект и его footprint
type trackedObject struct {
	id        ObjectID
	shape     shape.Shape
	transform shape.Transform
	areaType  navmesh.AreaType
	footprint navmesh.TilesRange
	// oversized: footprint в окне больше предела, строк объект не занимает
	oversized bool
}

// footprintDiff описывает смену footprint объекта
type footprintDiff struct {
	Old navmesh.TilesRange
	New navmesh.TilesRange
}

// Changes возвращает изменения тайлов внутри окна. Только в New даёт Add, только в Old даёт Remove,
// в обоих даёт Update. Результат отсортирован по позиции.
func (d footprintDiff) Changes(window navmesh.TilesRange) []TileChange {
	oldIn := d.Old.Intersect(window)
	newIn := d.New.Intersect(window)

	var out []TileChange
	newIn.ForEach(func(tile navmesh.TilePosition) {
		if oldIn.Contains(tile) {
			out = append(out, TileChange{Tile: tile, Type: ChangeUpdate})
		} else {
			out = append(out, TileChange{Tile: tile, Type: ChangeAdd})
		}
	})
	oldIn.ForEach(func(tile navmesh.TilePosition) {
		if !newIn.Contains(tile) {
			out = append(out, TileChange{Tile: tile, Type: ChangeRemove})
		}
	})
	slices.SortFunc(out, func(a, b TileChange) int {
		return a.Tile.Compare(b.Tile)
	})
	return out
}

// objectTracker владеет footprint каждого объекта
type objectTracker struct {
	settings navmesh.Settings
	objects  map[ObjectID]*trackedObject
}

func newObjectTracker(settings navmesh.Settings) *objectTracker {
	return &objectTracker{
		settings: settings,
		objects:  make(map[ObjectID]*trackedObject),
	}
}

// add начинает отслеживать объект. false, если id уже известен.
func (t *objectTracker) add(id ObjectID, shp shape.Shape, tr shape.Transform, area navmesh.AreaType) (*trackedObject, bool) {
	if _, exists := t.objects[id]; exists {
		return nil, false
	}
	obj := &trackedObject{
		id:        id,
		shape:     shp,
		transform: tr,
		areaType:  area,
		footprint: navmesh.Footprint(shp.AABB(tr), t.settings),
	}
	t.objects[id] = obj
	return obj, true
}

// update меняет преобразование и тип поверхности объекта.
// false, если объект неизвестен или ничего не изменилось.
func (t *objectTracker) update(id ObjectID, tr shape.Transform, area navmesh.AreaType) (*trackedObject, footprintDiff, bool) {
	obj, exists := t.objects[id]
	if !exists {
		return nil, footprintDiff{}, false
	}
	if obj.transform.Equal(tr) && obj.areaType == area {
		return nil, footprintDiff{}, false
	}
	diff := footprintDiff{
		Old: obj.footprint,
		New: navmesh.Footprint(obj.shape.AABB(tr), t.settings),
	}
	obj.transform = tr
	obj.areaType = area
	obj.footprint = diff.New
	return obj, diff, true
}

// remove прекращает отслеживание и возвращает удалённый объект
func (t *objectTracker) remove(id ObjectID) (*trackedObject, bool) {
	obj, exists := t.objects[id]
	if !exists {
		return nil, false
	}
	delete(t.objects, id)
	return obj, true
}

func (t *objectTracker) get(id ObjectID) (*trackedObject, bool) {
	obj, ok := t.objects[id]
	return obj, ok
}

func (t *objectTracker) forEach(fn func(*trackedObject)) {
	for _, obj := range t.objects {
		fn(obj)
	}
}

func (t *objectTracker) len() int {
	return len(t.objects)
}

func (t *objectTracker) reset() {
	clear(t.objects)
}
