package shape

import "github.com/go-gl/mathgl/mgl32"

// Transform описывает положение и поворот объекта в мире.
// Нулевое значение эквивалентно Identity().
type Transform struct {
	Origin   mgl32.Vec3
	Rotation mgl32.Quat
}

// Identity возвращает тождественное преобразование
func Identity() Transform {
	return Transform{Rotation: mgl32.QuatIdent()}
}

// Translation возвращает преобразование-сдвиг
func Translation(x, y, z float32) Transform {
	return Transform{Origin: mgl32.Vec3{x, y, z}, Rotation: mgl32.QuatIdent()}
}

// RotationZ возвращает поворот на angle радиан вокруг вертикальной оси со сдвигом origin
func RotationZ(origin mgl32.Vec3, angle float32) Transform {
	return Transform{Origin: origin, Rotation: mgl32.QuatRotate(angle, mgl32.Vec3{0, 0, 1})}
}

func (t Transform) rotation() mgl32.Quat {
	if t.Rotation == (mgl32.Quat{}) {
		return mgl32.QuatIdent()
	}
	return t.Rotation
}

// Apply переводит точку из локальных координат объекта в мировые
func (t Transform) Apply(p mgl32.Vec3) mgl32.Vec3 {
	return t.rotation().Rotate(p).Add(t.Origin)
}

// Basis возвращает матрицу поворота
func (t Transform) Basis() mgl32.Mat3 {
	return t.rotation().Mat4().Mat3()
}

// Equal сравнивает преобразования с учётом того, что нулевой поворот означает отсутствие поворота
func (t Transform) Equal(other Transform) bool {
	return t.Origin == other.Origin && t.rotation() == other.rotation()
}
