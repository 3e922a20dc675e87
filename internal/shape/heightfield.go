package shape

import (
	"errors"
	"fmt"
)

// Heightfield описывает рельеф одной ячейки мира
type Heightfield interface {
	// HeightRange возвращает минимальную и максимальную высоту рельефа
	HeightRange() (minHeight, maxHeight float32)
}

// HeightfieldPlane задаёт плоский рельеф на фиксированной высоте
type HeightfieldPlane struct {
	Height float32
}

// HeightRange реализует Heightfield
func (p HeightfieldPlane) HeightRange() (float32, float32) {
	return p.Height, p.Height
}

// HeightfieldSurface хранит квадратную сетку высот Size x Size, растянутая на ячейку
type HeightfieldSurface struct {
	Heights   []float32
	Size      int
	MinHeight float32
	MaxHeight float32
}

// ErrInvalidHeightfield возвращается для сетки высот с несогласованным размером
var ErrInvalidHeightfield = errors.New("invalid heightfield")

// NewHeightfieldSurface копирует сетку высот и вычисляет её диапазон
func NewHeightfieldSurface(heights []float32, size int) (HeightfieldSurface, error) {
	if size < 2 || len(heights) != size*size {
		return HeightfieldSurface{}, fmt.Errorf("%w: %d heights for size %d", ErrInvalidHeightfield, len(heights), size)
	}
	s := HeightfieldSurface{
		Heights:   make([]float32, len(heights)),
		Size:      size,
		MinHeight: heights[0],
		MaxHeight: heights[0],
	}
	copy(s.Heights, heights)
	for _, h := range heights {
		s.MinHeight = min(s.MinHeight, h)
		s.MaxHeight = max(s.MaxHeight, h)
	}
	return s, nil
}

// HeightRange реализует Heightfield
func (s HeightfieldSurface) HeightRange() (float32, float32) {
	return s.MinHeight, s.MaxHeight
}

// HeightAt возвращает высоту узла сетки (x, y)
func (s HeightfieldSurface) HeightAt(x, y int) float32 {
	return s.Heights[y*s.Size+x]
}

// MidHeight возвращает середину диапазона высот рельефа
func MidHeight(h Heightfield) float32 {
	lo, hi := h.HeightRange()
	return (lo + hi) / 2
}
