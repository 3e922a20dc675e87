package recastmesh

import (
	"github.com/annel0/navtiles/internal/navmesh"
	"github.com/annel0/navtiles/internal/shape"
	"github.com/annel0/navtiles/internal/vec"
	"github.com/go-gl/mathgl/mgl32"
)

// Bounds: прямоугольник в мировых координатах XY
type Bounds struct {
	Min mgl32.Vec2
	Max mgl32.Vec2
}

// Empty сообщает, что прямоугольник вырожден
func (b Bounds) Empty() bool {
	return b.Min[0] >= b.Max[0] || b.Min[1] >= b.Max[1]
}

// Overlaps проверяет пересечение с прямоугольником [minXY, maxXY]
func (b Bounds) Overlaps(minXY, maxXY mgl32.Vec2) bool {
	return minXY[0] <= b.Max[0] && maxXY[0] >= b.Min[0] &&
		minXY[1] <= b.Max[1] && maxXY[1] >= b.Min[1]
}

// Clip обрезает прямоугольник [minXY, maxXY] по границам b
func (b Bounds) Clip(minXY, maxXY mgl32.Vec2) (Bounds, bool) {
	out := Bounds{
		Min: mgl32.Vec2{max(b.Min[0], minXY[0]), max(b.Min[1], minXY[1])},
		Max: mgl32.Vec2{min(b.Max[0], maxXY[0]), min(b.Max[1], maxXY[1])},
	}
	return out, !out.Empty()
}

// Object описывает объект, попавший в тайл
type Object struct {
	ID        string
	Shape     shape.Shape
	Transform shape.Transform
	AreaType  navmesh.AreaType
}

// Water описывает водную плоскость ячейки
type Water struct {
	Cell     vec.Vec2
	CellSize int
	Level    float32
}

// Global сообщает, что вода покрывает весь мир
func (w Water) Global() bool {
	return navmesh.IsInfiniteCellSize(w.CellSize)
}

// Heightfield описывает рельеф ячейки
type Heightfield struct {
	Cell     vec.Vec2
	CellSize int
	Shape    shape.Heightfield
}

// Global сообщает, что рельеф покрывает весь мир
func (h Heightfield) Global() bool {
	return navmesh.IsInfiniteCellSize(h.CellSize)
}

// Input содержит снимок содержимого тайла на момент запроса меша
type Input struct {
	Tile    navmesh.TilePosition
	Version navmesh.Version
	// Мировые границы тайла вместе с полем
	Bounds       Bounds
	Objects      []Object
	Water        []Water
	Heightfields []Heightfield
}

// Empty сообщает, что во входе нет ни объектов, ни воды, ни рельефа
func (in Input) Empty() bool {
	return len(in.Objects) == 0 && len(in.Water) == 0 && len(in.Heightfields) == 0
}
