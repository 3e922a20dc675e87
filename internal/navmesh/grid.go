package navmesh

import (
	"math"

	"github.com/annel0/navtiles/internal/shape"
	"github.com/annel0/navtiles/internal/vec"
	"github.com/go-gl/mathgl/mgl32"
)

// TileIndex возвращает индекс тайла, содержащего координату навмеша v.
// Координата на границе относится к тайлу [k, k+1). Результат насыщается
// до [MinTileIndex, MaxTileIndex], NaN даёт 0.
func TileIndex(s Settings, v float32) int {
	f := math.Floor(float64(v / s.TileWorldSize()))
	switch {
	case math.IsNaN(f):
		return 0
	case f < MinTileIndex:
		return MinTileIndex
	case f > MaxTileIndex:
		return MaxTileIndex
	}
	return int(f)
}

// TileAt возвращает тайл, содержащий мировую точку (x, y)
func TileAt(s Settings, x, y float32) TilePosition {
	return TilePosition{
		X: TileIndex(s, s.ToNavMesh(x)),
		Y: TileIndex(s, s.ToNavMesh(y)),
	}
}

// MakeTilesRange возвращает тайлы, которые покрывает мировой прямоугольник [minXY, maxXY]
// вместе с полем BorderSize. Вся арифметика индексов насыщается, поэтому
// сколь угодно большие входные значения дают крайние тайлы, а не переполнение.
func MakeTilesRange(minXY, maxXY mgl32.Vec2, s Settings) TilesRange {
	border := s.BorderWorldSize()
	begin := TilePosition{
		X: TileIndex(s, s.ToNavMesh(minXY[0])-border),
		Y: TileIndex(s, s.ToNavMesh(minXY[1])-border),
	}
	last := TilePosition{
		X: TileIndex(s, s.ToNavMesh(maxXY[0])+border),
		Y: TileIndex(s, s.ToNavMesh(maxXY[1])+border),
	}
	if begin.X > last.X {
		begin.X, last.X = last.X, begin.X
	}
	if begin.Y > last.Y {
		begin.Y, last.Y = last.Y, begin.Y
	}
	return TilesRange{
		Begin: begin,
		End:   TilePosition{X: last.X + 1, Y: last.Y + 1},
	}
}

// Footprint возвращает тайлы, которые покрывает мировой AABB
func Footprint(box shape.AABB, s Settings) TilesRange {
	return MakeTilesRange(box.Min.Vec2(), box.Max.Vec2(), s)
}

// IsInfiniteCellSize сообщает, что ячейка такого размера покрывает весь мир.
// Такое содержимое не имеет footprint и участвует в построении каждого занятого тайла.
func IsInfiniteCellSize(cellSize int) bool {
	return cellSize >= math.MaxInt32
}

// CellShift возвращает мировой центр ячейки cell со стороной cellSize на высоте height
func CellShift(cell vec.Vec2, cellSize int, height float32) mgl32.Vec3 {
	size := float32(cellSize)
	return mgl32.Vec3{
		(float32(cell.X) + 0.5) * size,
		(float32(cell.Y) + 0.5) * size,
		height,
	}
}

// MakeCellTilesRange возвращает тайлы квадрата со стороной cellSize с центром в shift
func MakeCellTilesRange(cellSize int, shift mgl32.Vec3, s Settings) TilesRange {
	half := float32(cellSize / 2)
	return MakeTilesRange(
		mgl32.Vec2{shift[0] - half, shift[1] - half},
		mgl32.Vec2{shift[0] + half, shift[1] + half},
		s,
	)
}

// CellBounds возвращает мировые границы ячейки по XY
func CellBounds(cell vec.Vec2, cellSize int) (minXY, maxXY mgl32.Vec2) {
	shift := CellShift(cell, cellSize, 0)
	half := float32(cellSize / 2)
	return mgl32.Vec2{shift[0] - half, shift[1] - half}, mgl32.Vec2{shift[0] + half, shift[1] + half}
}

// TileBounds возвращает мировые границы тайла вместе с полем BorderSize
func TileBounds(s Settings, tile TilePosition) (minXY, maxXY mgl32.Vec2) {
	tw := s.TileWorldSize()
	border := s.BorderWorldSize()
	minXY = mgl32.Vec2{
		s.FromNavMesh(float32(tile.X)*tw - border),
		s.FromNavMesh(float32(tile.Y)*tw - border),
	}
	maxXY = mgl32.Vec2{
		s.FromNavMesh(float32(tile.X+1)*tw + border),
		s.FromNavMesh(float32(tile.Y+1)*tw + border),
	}
	return minXY, maxXY
}
