package recastmesh

import (
	"context"
	"fmt"

	"github.com/annel0/navtiles/internal/navmesh"
	"github.com/annel0/navtiles/internal/shape"
	"github.com/go-gl/mathgl/mgl32"
)

// TriangleBuilder, построитель по умолчанию, собирает треугольники объектов и рельефа,
// пересекающие границы тайла, и обрезает по ним воду.
type TriangleBuilder struct {
	// MaxTriangles ограничивает размер меша; 0: без ограничения
	MaxTriangles int
}

// NewTriangleBuilder создаёт построитель с ограничением на число треугольников
func NewTriangleBuilder(maxTriangles int) *TriangleBuilder {
	return &TriangleBuilder{MaxTriangles: maxTriangles}
}

// Build реализует Builder
func (b *TriangleBuilder) Build(ctx context.Context, in Input) (*Mesh, error) {
	if in.Empty() {
		return nil, fmt.Errorf("%w: tile %v", ErrEmptyInput, in.Tile)
	}

	w := &meshWriter{
		mesh: &Mesh{
			Tile:    in.Tile,
			Version: in.Version,
			Bounds:  in.Bounds,
		},
	}

	for _, obj := range in.Objects {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: tile %v: %w", ErrBuildFailed, in.Tile, err)
		}
		if obj.Shape == nil {
			continue
		}
		vertices, indices := objectTriangles(obj)
		w.addTriangles(vertices, indices, obj.AreaType)
	}

	for _, water := range in.Water {
		minXY, maxXY := in.Bounds.Min, in.Bounds.Max
		if !water.Global() {
			minXY, maxXY = navmesh.CellBounds(water.Cell, water.CellSize)
		}
		if clipped, ok := in.Bounds.Clip(minXY, maxXY); ok {
			w.mesh.Water = append(w.mesh.Water, WaterPatch{Bounds: clipped, Level: water.Level})
		}
	}

	for _, hf := range in.Heightfields {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: tile %v: %w", ErrBuildFailed, in.Tile, err)
		}
		if hf.Shape == nil {
			continue
		}
		minXY, maxXY := in.Bounds.Min, in.Bounds.Max
		if !hf.Global() {
			minXY, maxXY = navmesh.CellBounds(hf.Cell, hf.CellSize)
		}
		clipped, ok := in.Bounds.Clip(minXY, maxXY)
		if !ok {
			continue
		}
		lo, hi := hf.Shape.HeightRange()
		w.mesh.Heightfields = append(w.mesh.Heightfields, HeightfieldPatch{
			Cell:      hf.Cell,
			Bounds:    clipped,
			MinHeight: lo,
			MaxHeight: hi,
		})
		vertices, indices := heightfieldTriangles(hf, minXY, maxXY)
		w.addTriangles(vertices, indices, navmesh.AreaGround)
	}

	if b.MaxTriangles > 0 && w.mesh.TriangleCount() > b.MaxTriangles {
		return nil, fmt.Errorf("%w: tile %v has %d triangles, limit %d",
			ErrBuildFailed, in.Tile, w.mesh.TriangleCount(), b.MaxTriangles)
	}
	return w.mesh, nil
}

// objectTriangles возвращает треугольники формы; формы без триангуляции заменяются своим AABB
func objectTriangles(obj Object) ([]mgl32.Vec3, []int) {
	if tr, ok := obj.Shape.(shape.Triangulator); ok {
		return tr.Triangles(obj.Transform)
	}
	box := obj.Shape.AABB(obj.Transform)
	center := box.Center()
	ext := box.HalfExtents()
	return shape.NewBox(ext[0], ext[1], ext[2]).Triangles(shape.Translation(center[0], center[1], center[2]))
}

// heightfieldTriangles раскладывает рельеф по прямоугольнику [minXY, maxXY]
func heightfieldTriangles(hf Heightfield, minXY, maxXY mgl32.Vec2) ([]mgl32.Vec3, []int) {
	surface, ok := hf.Shape.(shape.HeightfieldSurface)
	if !ok || hf.Global() {
		h := shape.MidHeight(hf.Shape)
		vertices := []mgl32.Vec3{
			{minXY[0], minXY[1], h},
			{maxXY[0], minXY[1], h},
			{minXY[0], maxXY[1], h},
			{maxXY[0], maxXY[1], h},
		}
		return vertices, []int{0, 1, 2, 1, 3, 2}
	}

	n := surface.Size
	stepX := (maxXY[0] - minXY[0]) / float32(n-1)
	stepY := (maxXY[1] - minXY[1]) / float32(n-1)
	vertices := make([]mgl32.Vec3, 0, n*n)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			vertices = append(vertices, mgl32.Vec3{
				minXY[0] + float32(x)*stepX,
				minXY[1] + float32(y)*stepY,
				surface.HeightAt(x, y),
			})
		}
	}
	indices := make([]int, 0, (n-1)*(n-1)*6)
	for y := 0; y < n-1; y++ {
		for x := 0; x < n-1; x++ {
			i := y*n + x
			indices = append(indices, i, i+1, i+n, i+1, i+n+1, i+n)
		}
	}
	return vertices, indices
}

type meshWriter struct {
	mesh *Mesh
}

// addTriangles добавляет треугольники, пересекающие границы тайла, и только используемые ими вершины
func (w *meshWriter) addTriangles(vertices []mgl32.Vec3, indices []int, area navmesh.AreaType) {
	remap := make(map[int]int)
	for i := 0; i+2 < len(indices); i += 3 {
		a, b, c := vertices[indices[i]], vertices[indices[i+1]], vertices[indices[i+2]]
		minXY := mgl32.Vec2{min(a[0], b[0], c[0]), min(a[1], b[1], c[1])}
		maxXY := mgl32.Vec2{max(a[0], b[0], c[0]), max(a[1], b[1], c[1])}
		if !w.mesh.Bounds.Overlaps(minXY, maxXY) {
			continue
		}
		for k := 0; k < 3; k++ {
			src := indices[i+k]
			dst, ok := remap[src]
			if !ok {
				dst = len(w.mesh.Vertices)
				w.mesh.Vertices = append(w.mesh.Vertices, vertices[src])
				remap[src] = dst
			}
			w.mesh.Indices = append(w.mesh.Indices, dst)
		}
		w.mesh.AreaTypes = append(w.mesh.AreaTypes, area)
	}
}
