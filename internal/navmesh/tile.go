package navmesh

import (
	"cmp"
	"fmt"
	"math"
)

const (
	// Наименьший допустимый индекс тайла по оси
	MinTileIndex = math.MinInt32
	// Наибольший допустимый индекс тайла; End диапазона не превышает MaxInt32
	MaxTileIndex = math.MaxInt32 - 1
)

// TilePosition — координаты тайла в бесконечной сетке навмеша.
// Упорядочены лексикографически: сначала X, затем Y.
type TilePosition struct {
	X, Y int
}

// Compare возвращает -1, 0 или 1
func (p TilePosition) Compare(other TilePosition) int {
	if c := cmp.Compare(p.X, other.X); c != 0 {
		return c
	}
	return cmp.Compare(p.Y, other.Y)
}

// Less сообщает, идёт ли p раньше other
func (p TilePosition) Less(other TilePosition) bool {
	return p.Compare(other) < 0
}

// ManhattanDistance возвращает манхэттенское расстояние между тайлами
func (p TilePosition) ManhattanDistance(other TilePosition) int {
	return absInt(p.X-other.X) + absInt(p.Y-other.Y)
}

func (p TilePosition) String() string {
	return fmt.Sprintf("(%d, %d)", p.X, p.Y)
}

// TilesRange — полуоткрытый прямоугольник [Begin.X, End.X) x [Begin.Y, End.Y)
type TilesRange struct {
	Begin TilePosition
	End   TilePosition
}

// InfiniteRange возвращает неограниченное окно, покрывающее все допустимые тайлы
func InfiniteRange() TilesRange {
	return TilesRange{
		Begin: TilePosition{X: math.MinInt32, Y: math.MinInt32},
		End:   TilePosition{X: math.MaxInt32, Y: math.MaxInt32},
	}
}

// IsInfinite сообщает, совпадает ли диапазон с InfiniteRange
func (r TilesRange) IsInfinite() bool {
	return r == InfiniteRange()
}

// Empty сообщает, что диапазон не содержит ни одного тайла
func (r TilesRange) Empty() bool {
	return r.Begin.X >= r.End.X || r.Begin.Y >= r.End.Y
}

// Contains проверяет попадание тайла в диапазон
func (r TilesRange) Contains(p TilePosition) bool {
	return r.Begin.X <= p.X && p.X < r.End.X &&
		r.Begin.Y <= p.Y && p.Y < r.End.Y
}

// Intersect возвращает пересечение диапазонов; пустое пересечение: нулевой TilesRange
func (r TilesRange) Intersect(other TilesRange) TilesRange {
	out := TilesRange{
		Begin: TilePosition{X: max(r.Begin.X, other.Begin.X), Y: max(r.Begin.Y, other.Begin.Y)},
		End:   TilePosition{X: min(r.End.X, other.End.X), Y: min(r.End.Y, other.End.Y)},
	}
	if out.Empty() {
		return TilesRange{}
	}
	return out
}

// Union возвращает наименьший диапазон, содержащий оба
func (r TilesRange) Union(other TilesRange) TilesRange {
	if r.Empty() {
		return other
	}
	if other.Empty() {
		return r
	}
	return TilesRange{
		Begin: TilePosition{X: min(r.Begin.X, other.Begin.X), Y: min(r.Begin.Y, other.Begin.Y)},
		End:   TilePosition{X: max(r.End.X, other.End.X), Y: max(r.End.Y, other.End.Y)},
	}
}

// Width возвращает число тайлов по X
func (r TilesRange) Width() int {
	if r.Empty() {
		return 0
	}
	return r.End.X - r.Begin.X
}

// Height возвращает число тайлов по Y
func (r TilesRange) Height() int {
	if r.Empty() {
		return 0
	}
	return r.End.Y - r.Begin.Y
}

// Count возвращает число тайлов в диапазоне
func (r TilesRange) Count() uint64 {
	return uint64(r.Width()) * uint64(r.Height())
}

// ForEach обходит тайлы по возрастанию: сначала X, затем Y
func (r TilesRange) ForEach(fn func(TilePosition)) {
	if r.Empty() {
		return
	}
	for x := r.Begin.X; x < r.End.X; x++ {
		for y := r.Begin.Y; y < r.End.Y; y++ {
			fn(TilePosition{X: x, Y: y})
		}
	}
}

// Positions возвращает все тайлы диапазона в порядке ForEach
func (r TilesRange) Positions() []TilePosition {
	out := make([]TilePosition, 0, r.Count())
	r.ForEach(func(p TilePosition) {
		out = append(out, p)
	})
	return out
}

func (r TilesRange) String() string {
	return fmt.Sprintf("[%v, %v)", r.Begin, r.End)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
