package shape

import "github.com/go-gl/mathgl/mgl32"

// AABB представляет выровненный по осям параллелепипед в мировых координатах
type AABB struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// NewAABB создаёт AABB по двум произвольным углам
func NewAABB(a, b mgl32.Vec3) AABB {
	var box AABB
	for i := 0; i < 3; i++ {
		box.Min[i] = min(a[i], b[i])
		box.Max[i] = max(a[i], b[i])
	}
	return box
}

// Center возвращает центр параллелепипеда
func (b AABB) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// HalfExtents возвращает половины размеров по осям
func (b AABB) HalfExtents() mgl32.Vec3 {
	return b.Max.Sub(b.Min).Mul(0.5)
}

// Union возвращает наименьший AABB, содержащий оба
func (b AABB) Union(other AABB) AABB {
	var out AABB
	for i := 0; i < 3; i++ {
		out.Min[i] = min(b.Min[i], other.Min[i])
		out.Max[i] = max(b.Max[i], other.Max[i])
	}
	return out
}

// OverlapsXY проверяет пересечение проекции на плоскость XY с прямоугольником [min, max]
func (b AABB) OverlapsXY(minXY, maxXY mgl32.Vec2) bool {
	return b.Min[0] <= maxXY[0] && b.Max[0] >= minXY[0] &&
		b.Min[1] <= maxXY[1] && b.Max[1] >= minXY[1]
}
