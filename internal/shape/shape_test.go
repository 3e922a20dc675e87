package shape

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBox_AABBIdentity(t *testing.T) {
	box := NewBox(20, 20, 100)

	aabb := box.AABB(Identity())

	assert.Equal(t, mgl32.Vec3{-20, -20, -100}, aabb.Min)
	assert.Equal(t, mgl32.Vec3{20, 20, 100}, aabb.Max)
}

func TestBox_AABBZeroTransformIsIdentity(t *testing.T) {
	box := NewBox(1, 2, 3)

	assert.Equal(t, box.AABB(Identity()), box.AABB(Transform{}))
	assert.True(t, Transform{}.Equal(Identity()))
}

func TestBox_AABBTranslated(t *testing.T) {
	box := NewBox(1, 2, 3)

	aabb := box.AABB(Translation(10, -5, 1))

	assert.Equal(t, mgl32.Vec3{9, -7, -2}, aabb.Min)
	assert.Equal(t, mgl32.Vec3{11, -3, 4}, aabb.Max)
}

func TestBox_AABBRotatedSwapsExtents(t *testing.T) {
	box := NewBox(10, 1, 1)

	aabb := box.AABB(RotationZ(mgl32.Vec3{}, math.Pi/2))

	assert.InDelta(t, 1, aabb.Max.X(), 1e-4, "после поворота на 90° длинная сторона должна лечь вдоль Y")
	assert.InDelta(t, 10, aabb.Max.Y(), 1e-4)
	assert.InDelta(t, 1, aabb.Max.Z(), 1e-4)
}

func TestBox_TrianglesStayInsideAABB(t *testing.T) {
	box := NewBox(2, 3, 4)
	tr := RotationZ(mgl32.Vec3{5, 5, 0}, 0.3)

	vertices, indices := box.Triangles(tr)
	aabb := box.AABB(tr)

	require.Len(t, vertices, 8)
	require.Len(t, indices, 36)
	for _, v := range vertices {
		for i := 0; i < 3; i++ {
			assert.GreaterOrEqual(t, v[i], aabb.Min[i]-1e-4)
			assert.LessOrEqual(t, v[i], aabb.Max[i]+1e-4)
		}
	}
	for _, idx := range indices {
		assert.Less(t, idx, len(vertices))
	}
}

func TestAABB_UnionAndOverlap(t *testing.T) {
	a := NewAABB(mgl32.Vec3{1, 1, 1}, mgl32.Vec3{0, 0, 0})
	b := NewAABB(mgl32.Vec3{2, 2, 2}, mgl32.Vec3{3, 3, 3})

	assert.Equal(t, mgl32.Vec3{0, 0, 0}, a.Min, "NewAABB должен упорядочивать углы")
	u := a.Union(b)
	assert.Equal(t, mgl32.Vec3{0, 0, 0}, u.Min)
	assert.Equal(t, mgl32.Vec3{3, 3, 3}, u.Max)

	assert.True(t, a.OverlapsXY(mgl32.Vec2{0.5, 0.5}, mgl32.Vec2{5, 5}))
	assert.False(t, a.OverlapsXY(mgl32.Vec2{1.5, 0}, mgl32.Vec2{5, 5}))
}

func TestHeightfieldSurface(t *testing.T) {
	_, err := NewHeightfieldSurface([]float32{1, 2, 3}, 2)
	assert.ErrorIs(t, err, ErrInvalidHeightfield)

	s, err := NewHeightfieldSurface([]float32{1, -2, 3, 0}, 2)
	require.NoError(t, err)

	lo, hi := s.HeightRange()
	assert.Equal(t, float32(-2), lo)
	assert.Equal(t, float32(3), hi)
	assert.Equal(t, float32(3), s.HeightAt(0, 1))
	assert.Equal(t, float32(0.5), MidHeight(s))
	assert.Equal(t, float32(7), MidHeight(HeightfieldPlane{Height: 7}))
}
