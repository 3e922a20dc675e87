// Package recastmesh описывает входные данные для построения меша одного тайла,
// сам меш и построителя, которого вызывает кеш тайлов.
package recastmesh

import (
	"context"
	"errors"
)

var (
	// ErrBuildFailed оборачивает любую ошибку построения меша
	ErrBuildFailed = errors.New("tile mesh build failed")
	// ErrEmptyInput возвращается, если в тайле нечего строить
	ErrEmptyInput = errors.New("tile mesh input is empty")
)

// Builder строит меш тайла по снимку его содержимого.
// Вызывается без удержания блокировок кеша и может выполняться параллельно для разных тайлов.
type Builder interface {
	Build(ctx context.Context, in Input) (*Mesh, error)
}

// BuilderFunc позволяет использовать функцию как Builder
type BuilderFunc func(ctx context.Context, in Input) (*Mesh, error)

// Build реализует Builder
func (f BuilderFunc) Build(ctx context.Context, in Input) (*Mesh, error) {
	return f(ctx, in)
}
