package recastmesh

import (
	"github.com/annel0/navtiles/internal/navmesh"
	"github.com/annel0/navtiles/internal/vec"
	"github.com/go-gl/mathgl/mgl32"
)

// WaterPatch: часть водной плоскости внутри границ тайла
type WaterPatch struct {
	Bounds Bounds
	Level  float32
}

// HeightfieldPatch: часть рельефа внутри границ тайла
type HeightfieldPatch struct {
	Cell      vec.Vec2
	Bounds    Bounds
	MinHeight float32
	MaxHeight float32
}

// Mesh — построенный меш тайла. После возврата из кеша не изменяется,
// поэтому его можно читать из нескольких горутин без синхронизации.
type Mesh struct {
	Tile    navmesh.TilePosition
	Version navmesh.Version
	Bounds  Bounds

	Vertices []mgl32.Vec3
	// По три индекса вершин на треугольник
	Indices []int
	// Тип поверхности для каждого треугольника
	AreaTypes []navmesh.AreaType

	Water        []WaterPatch
	Heightfields []HeightfieldPatch
}

// TriangleCount возвращает число треугольников
func (m *Mesh) TriangleCount() int {
	if m == nil {
		return 0
	}
	return len(m.Indices) / 3
}

// Empty сообщает, что в меше нет ни треугольников, ни воды
func (m *Mesh) Empty() bool {
	return m == nil || (len(m.Indices) == 0 && len(m.Water) == 0 && len(m.Heightfields) == 0)
}
