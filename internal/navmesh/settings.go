package navmesh

import (
	"errors"
	"fmt"
)

// Settings задаёт параметры разбиения мира на тайлы навмеша
type Settings struct {
	// Поле вокруг каждого тайла в ячейках recast
	BorderSize int `yaml:"border_size"`
	// Размер ячейки recast в единицах навмеша
	CellSize float32 `yaml:"cell_size"`
	// RecastScaleFactor переводит мировые единицы в единицы навмеша
	RecastScaleFactor float32 `yaml:"recast_scale_factor"`
	// Сторона тайла в ячейках recast
	TileSize int `yaml:"tile_size"`
}

// ErrInvalidSettings возвращается Validate для неположительных параметров сетки
var ErrInvalidSettings = errors.New("invalid navmesh settings")

// DefaultSettings возвращает параметры по умолчанию
func DefaultSettings() Settings {
	return Settings{
		BorderSize:        16,
		CellSize:          0.2,
		RecastScaleFactor: 0.017647058823529415,
		TileSize:          64,
	}
}

// Validate проверяет, что сетка невырождена
func (s Settings) Validate() error {
	switch {
	case s.CellSize <= 0:
		return fmt.Errorf("%w: cell_size must be positive, got %v", ErrInvalidSettings, s.CellSize)
	case s.RecastScaleFactor <= 0:
		return fmt.Errorf("%w: recast_scale_factor must be positive, got %v", ErrInvalidSettings, s.RecastScaleFactor)
	case s.TileSize <= 0:
		return fmt.Errorf("%w: tile_size must be positive, got %d", ErrInvalidSettings, s.TileSize)
	case s.BorderSize < 0:
		return fmt.Errorf("%w: border_size must not be negative, got %d", ErrInvalidSettings, s.BorderSize)
	}
	return nil
}

// TileWorldSize возвращает сторону тайла в единицах навмеша
func (s Settings) TileWorldSize() float32 {
	return float32(s.TileSize) * s.CellSize
}

// BorderWorldSize возвращает ширину поля в единицах навмеша
func (s Settings) BorderWorldSize() float32 {
	return float32(s.BorderSize) * s.CellSize
}

// ToNavMesh переводит мировую координату в единицы навмеша
func (s Settings) ToNavMesh(v float32) float32 {
	return v * s.RecastScaleFactor
}

// FromNavMesh переводит координату навмеша в мировую
func (s Settings) FromNavMesh(v float32) float32 {
	return v / s.RecastScaleFactor
}
