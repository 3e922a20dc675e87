package recastmesh

import (
	"context"
	"math"
	"testing"

	"github.com/annel0/navtiles/internal/navmesh"
	"github.com/annel0/navtiles/internal/shape"
	"github.com/annel0/navtiles/internal/vec"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tileInput(tile navmesh.TilePosition) Input {
	minXY, maxXY := navmesh.TileBounds(navmesh.DefaultSettings(), tile)
	return Input{
		Tile:    tile,
		Version: navmesh.Version{Generation: 1, Revision: 3},
		Bounds:  Bounds{Min: minXY, Max: maxXY},
	}
}

func TestTriangleBuilder_Box(t *testing.T) {
	in := tileInput(navmesh.TilePosition{})
	in.Objects = []Object{{
		ID:        "box",
		Shape:     shape.NewBox(20, 20, 100),
		Transform: shape.Identity(),
		AreaType:  navmesh.AreaGround,
	}}

	mesh, err := NewTriangleBuilder(0).Build(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, in.Tile, mesh.Tile)
	assert.Equal(t, in.Version, mesh.Version)
	assert.Equal(t, 12, mesh.TriangleCount())
	assert.Len(t, mesh.Vertices, 8)
	assert.Len(t, mesh.AreaTypes, 12)
	for _, a := range mesh.AreaTypes {
		assert.Equal(t, navmesh.AreaGround, a)
	}
	assert.False(t, mesh.Empty())
}

func TestTriangleBuilder_DropsTrianglesOutsideTile(t *testing.T) {
	in := tileInput(navmesh.TilePosition{})
	in.Objects = []Object{{ID: "far", Shape: shape.NewBox(1, 1, 1), Transform: shape.Translation(1e5, 1e5, 0)}}

	mesh, err := NewTriangleBuilder(0).Build(context.Background(), in)
	require.NoError(t, err)

	assert.Zero(t, mesh.TriangleCount())
	assert.Empty(t, mesh.Vertices)
	assert.True(t, mesh.Empty())
}

type sphere struct{ radius float32 }

func (s sphere) AABB(t shape.Transform) shape.AABB {
	r := mgl32.Vec3{s.radius, s.radius, s.radius}
	return shape.AABB{Min: t.Origin.Sub(r), Max: t.Origin.Add(r)}
}

func TestTriangleBuilder_FallsBackToAABB(t *testing.T) {
	in := tileInput(navmesh.TilePosition{})
	in.Objects = []Object{{ID: "sphere", Shape: sphere{radius: 5}, Transform: shape.Translation(10, 10, 0)}}

	mesh, err := NewTriangleBuilder(0).Build(context.Background(), in)
	require.NoError(t, err)

	require.Equal(t, 12, mesh.TriangleCount())
	for _, v := range mesh.Vertices {
		assert.InDelta(t, 10, v.X(), 5.0001)
		assert.InDelta(t, 10, v.Y(), 5.0001)
	}
}

func TestTriangleBuilder_Water(t *testing.T) {
	in := tileInput(navmesh.TilePosition{})
	in.Water = []Water{
		{Cell: vec.Vec2{}, CellSize: 8192, Level: -5},
		{Cell: vec.Vec2{X: 100, Y: 100}, CellSize: 8192, Level: 1},
		{CellSize: math.MaxInt32, Level: 2},
	}

	mesh, err := NewTriangleBuilder(0).Build(context.Background(), in)
	require.NoError(t, err)

	require.Len(t, mesh.Water, 2, "вода за пределами тайла не должна попадать в меш")
	assert.Equal(t, mgl32.Vec2{0, 0}, mesh.Water[0].Bounds.Min)
	assert.Equal(t, in.Bounds.Max, mesh.Water[0].Bounds.Max)
	assert.Equal(t, float32(-5), mesh.Water[0].Level)
	assert.Equal(t, in.Bounds, mesh.Water[1].Bounds, "глобальная вода покрывает весь тайл")
	assert.Zero(t, mesh.TriangleCount())
}

func TestTriangleBuilder_Heightfields(t *testing.T) {
	surface, err := shape.NewHeightfieldSurface([]float32{0, 1, 2, 3}, 2)
	require.NoError(t, err)

	in := tileInput(navmesh.TilePosition{})
	in.Heightfields = []Heightfield{
		{Cell: vec.Vec2{}, CellSize: 100, Shape: surface},
		{CellSize: math.MaxInt32, Shape: shape.HeightfieldPlane{Height: -10}},
	}

	mesh, err := NewTriangleBuilder(0).Build(context.Background(), in)
	require.NoError(t, err)

	require.Len(t, mesh.Heightfields, 2)
	assert.Equal(t, Bounds{Min: mgl32.Vec2{0, 0}, Max: mgl32.Vec2{100, 100}}, mesh.Heightfields[0].Bounds)
	assert.Equal(t, float32(3), mesh.Heightfields[0].MaxHeight)
	assert.Equal(t, 4, mesh.TriangleCount(), "по два треугольника на сетку и на плоскость")
	assert.Equal(t, navmesh.AreaGround, mesh.AreaTypes[0])
}

func TestTriangleBuilder_Errors(t *testing.T) {
	t.Run("пустой вход", func(t *testing.T) {
		_, err := NewTriangleBuilder(0).Build(context.Background(), tileInput(navmesh.TilePosition{}))
		assert.ErrorIs(t, err, ErrEmptyInput)
	})

	t.Run("лимит треугольников", func(t *testing.T) {
		in := tileInput(navmesh.TilePosition{})
		in.Objects = []Object{{ID: "box", Shape: shape.NewBox(1, 1, 1)}}

		_, err := NewTriangleBuilder(5).Build(context.Background(), in)
		assert.ErrorIs(t, err, ErrBuildFailed)
	})

	t.Run("отмена контекста", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		in := tileInput(navmesh.TilePosition{})
		in.Objects = []Object{{ID: "box", Shape: shape.NewBox(1, 1, 1)}}

		_, err := NewTriangleBuilder(0).Build(ctx, in)
		assert.ErrorIs(t, err, ErrBuildFailed)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestBuilderFunc(t *testing.T) {
	var got Input
	b := BuilderFunc(func(_ context.Context, in Input) (*Mesh, error) {
		got = in
		return &Mesh{Tile: in.Tile}, nil
	})

	mesh, err := b.Build(context.Background(), Input{Tile: navmesh.TilePosition{X: 2, Y: 3}})
	require.NoError(t, err)
	assert.Equal(t, navmesh.TilePosition{X: 2, Y: 3}, got.Tile)
	assert.Equal(t, got.Tile, mesh.Tile)
}
