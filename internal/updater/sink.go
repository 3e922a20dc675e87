package updater

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/annel0/navtiles/internal/navmesh"
	"github.com/annel0/navtiles/internal/recastmesh"
	"github.com/annel0/navtiles/internal/tilecache"
)

// Sink получает готовые меши тайлов: навмеш, сетевой канал или хранилище
type Sink interface {
	UpdateTile(ctx context.Context, ws tilecache.WorldspaceID, tile navmesh.TilePosition, mesh *recastmesh.Mesh) error
	RemoveTile(ctx context.Context, ws tilecache.WorldspaceID, tile navmesh.TilePosition) error
}

type sinkKey struct {
	ws   tilecache.WorldspaceID
	tile navmesh.TilePosition
}

// MemorySink хранит последние меши в памяти
type MemorySink struct {
	mu      sync.RWMutex
	tiles   map[sinkKey]*recastmesh.Mesh
	updates int
	removes int
}

func NewMemorySink() *MemorySink {
	return &MemorySink{tiles: make(map[sinkKey]*recastmesh.Mesh)}
}

func (s *MemorySink) UpdateTile(_ context.Context, ws tilecache.WorldspaceID, tile navmesh.TilePosition, mesh *recastmesh.Mesh) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tiles[sinkKey{ws: ws, tile: tile}] = mesh
	s.updates++
	return nil
}

func (s *MemorySink) RemoveTile(_ context.Context, ws tilecache.WorldspaceID, tile navmesh.TilePosition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tiles, sinkKey{ws: ws, tile: tile})
	s.removes++
	return nil
}

// Mesh возвращает последний доставленный меш тайла
func (s *MemorySink) Mesh(ws tilecache.WorldspaceID, tile navmesh.TilePosition) *recastmesh.Mesh {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tiles[sinkKey{ws: ws, tile: tile}]
}

// Tiles возвращает тайлы мира по возрастанию позиции
func (s *MemorySink) Tiles(ws tilecache.WorldspaceID) []navmesh.TilePosition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []navmesh.TilePosition
	for key := range s.tiles {
		if key.ws == ws {
			out = append(out, key.tile)
		}
	}
	slices.SortFunc(out, navmesh.TilePosition.Compare)
	return out
}

func (s *MemorySink) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tiles)
}

// Calls возвращает число вызовов UpdateTile и RemoveTile
func (s *MemorySink) Calls() (updates, removes int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updates, s.removes
}

// multiSink раздаёт меши нескольким потребителям по очереди
type multiSink []Sink

// MultiSink объединяет потребителей. Ошибки всех потребителей собираются в одну,
// тайл с ошибкой обновлятель повторит со следующей пачкой.
func MultiSink(sinks ...Sink) Sink {
	if len(sinks) == 1 {
		return sinks[0]
	}
	return multiSink(sinks)
}

func (m multiSink) UpdateTile(ctx context.Context, ws tilecache.WorldspaceID, tile navmesh.TilePosition, mesh *recastmesh.Mesh) error {
	var errs []error
	for _, s := range m {
		if err := s.UpdateTile(ctx, ws, tile, mesh); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m multiSink) RemoveTile(ctx context.Context, ws tilecache.WorldspaceID, tile navmesh.TilePosition) error {
	var errs []error
	for _, s := range m {
		if err := s.RemoveTile(ctx, ws, tile); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
