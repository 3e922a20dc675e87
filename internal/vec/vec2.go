package vec

import (
	"cmp"
	"fmt"
	"math"
)

// Vec2 представляет целочисленные координаты ячейки мира.
// Сетка ячеек крупнее сетки тайлов навмеша и с ней не совпадает.
type Vec2 struct {
	X, Y int
}

// Add складывает координаты
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{X: v.X + other.X, Y: v.Y + other.Y}
}

// Compare упорядочивает ячейки сначала по X, затем по Y
func (v Vec2) Compare(other Vec2) int {
	if c := cmp.Compare(v.X, other.X); c != 0 {
		return c
	}
	return cmp.Compare(v.Y, other.Y)
}

// Less сообщает, идёт ли v раньше other в порядке Compare
func (v Vec2) Less(other Vec2) bool {
	return v.Compare(other) < 0
}

// DistanceTo вычисляет расстояние до другой ячейки
func (v Vec2) DistanceTo(other Vec2) float64 {
	dx := float64(v.X - other.X)
	dy := float64(v.Y - other.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

func (v Vec2) String() string {
	return fmt.Sprintf("(%d, %d)", v.X, v.Y)
}
