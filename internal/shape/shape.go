// Package shape содержит минимальное описание коллизионной геометрии,
// которое нужно кешу тайлов: AABB под преобразованием и, если форма умеет,
// треугольники для построения меша тайла.
package shape

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Shape — коллизионная форма объекта.
// Реализации должны быть неизменяемыми: кеш хранит их и читает из нескольких горутин.
type Shape interface {
	AABB(t Transform) AABB
}

// Triangulator реализуется формами, которые умеют отдавать треугольники в мировых координатах
type Triangulator interface {
	Triangles(t Transform) (vertices []mgl32.Vec3, indices []int)
}

// Box представляет собой прямоугольный параллелепипед, заданный половинами размеров
type Box struct {
	HalfExtents mgl32.Vec3
}

// NewBox создаёт Box по половинам размеров
func NewBox(hx, hy, hz float32) Box {
	return Box{HalfExtents: mgl32.Vec3{hx, hy, hz}}
}

// AABB возвращает мировой AABB повёрнутого и сдвинутого параллелепипеда
func (b Box) AABB(t Transform) AABB {
	basis := t.Basis()
	var ext mgl32.Vec3
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			ext[row] += float32(math.Abs(float64(basis.At(row, col)))) * b.HalfExtents[col]
		}
	}
	return AABB{Min: t.Origin.Sub(ext), Max: t.Origin.Add(ext)}
}

var boxIndices = []int{
	0, 2, 1, 1, 2, 3, // -Z
	4, 5, 6, 5, 7, 6, // +Z
	0, 1, 4, 1, 5, 4, // -Y
	2, 6, 3, 3, 6, 7, // +Y
	0, 4, 2, 2, 4, 6, // -X
	1, 3, 5, 3, 7, 5, // +X
}

// Triangles возвращает 8 вершин и 12 треугольников параллелепипеда
func (b Box) Triangles(t Transform) ([]mgl32.Vec3, []int) {
	h := b.HalfExtents
	vertices := make([]mgl32.Vec3, 0, 8)
	for i := 0; i < 8; i++ {
		local := mgl32.Vec3{-h[0], -h[1], -h[2]}
		if i&1 != 0 {
			local[0] = h[0]
		}
		if i&2 != 0 {
			local[1] = h[1]
		}
		if i&4 != 0 {
			local[2] = h[2]
		}
		vertices = append(vertices, t.Apply(local))
	}
	indices := make([]int, len(boxIndices))
	copy(indices, boxIndices)
	return vertices, indices
}
