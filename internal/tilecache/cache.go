// Package tilecache отслеживает, какие объекты, вода и рельеф попадают в какие тайлы
// бесконечной сетки навмеша, лениво строит и кеширует меш каждого тайла
// и копит журнал тайлов, изменившихся с последней выборки.
package tilecache

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/annel0/navtiles/internal/logging"
	"github.com/annel0/navtiles/internal/navmesh"
	"github.com/annel0/navtiles/internal/recastmesh"
	"github.com/annel0/navtiles/internal/shape"
	"github.com/annel0/navtiles/internal/vec"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

const (
	tracerName = "github.com/annel0/navtiles/internal/tilecache"
	// maxBuildAttempts ограничивает повторные ожидания, когда вызывающий присоединился к построению по устаревшему снимку
	maxBuildAttempts = 4
	// DefaultMaxFootprintTiles: предел тайлов окна, которые одно содержимое занимает строками
	DefaultMaxFootprintTiles = 1 << 16
)

// ErrNilBuilder возвращается New без построителя мешей
var ErrNilBuilder = errors.New("nil mesh builder")

// WorldspaceID идентифицирует мир верхнего уровня
type WorldspaceID string

// Stats содержит снимок размеров кеша
type Stats struct {
	Tiles          int
	CachedMeshes   int
	Objects        int
	Water          int
	Heightfields   int
	PendingChanges int
	Revision       uint64
	Generation     uint64
}

// TileCache — кеш тайлов навмеша.
//
// Все изменения, выборка журнала и чтение ревизии сериализуются одной RWMutex.
// GetMesh и GetCachedMesh берут блокировку на чтение и выполняются параллельно;
// построение меша идёт без блокировок, не более одного на тайл одновременно.
// Возвращаемые меши неизменяемы.
type TileCache struct {
	settings navmesh.Settings
	builder  recastmesh.Builder
	logger   *logging.Logger
	metrics  *Metrics
	tracer   trace.Tracer
	// maxFootprint: содержимое с большим числом тайлов в окне строк не занимает
	maxFootprint uint64

	mu           sync.RWMutex
	worldspace   WorldspaceID
	active       bool
	generation   uint64
	window       navmesh.TilesRange
	objects      *objectTracker
	water        *cellTracker[float32]
	heightfields *cellTracker[shape.Heightfield]
	store        *tileStore
	changes      *changeLog
	oversized    int

	builds singleflight.Group
}

// New создаёт пустой кеш. Активное окно изначально не ограничено, мир не выбран.
func New(settings navmesh.Settings, builder recastmesh.Builder, opts ...Option) (*TileCache, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("tilecache: %w", err)
	}
	if builder == nil {
		return nil, fmt.Errorf("tilecache: %w", ErrNilBuilder)
	}

	c := &TileCache{
		settings:     settings,
		builder:      builder,
		logger:       logging.Nop(),
		tracer:       otel.Tracer(tracerName),
		maxFootprint: DefaultMaxFootprintTiles,
		window:       navmesh.InfiniteRange(),
		objects:      newObjectTracker(settings),
		water:        newCellTracker(settings, func(level float32) float32 { return level }),
		heightfields: newCellTracker(settings, shape.MidHeight),
		store:        newTileStore(),
		changes:      newChangeLog(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Settings возвращает параметры сетки
func (c *TileCache) Settings() navmesh.Settings {
	return c.settings
}

// SetWorldspace делает мир активным. Смена мира сбрасывает всё содержимое и журнал,
// увеличивает поколение; ревизия и активное окно сохраняются.
func (c *TileCache) SetWorldspace(id WorldspaceID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active && c.worldspace == id {
		return
	}
	c.worldspace = id
	c.active = true
	c.generation++
	c.objects.reset()
	c.water.reset()
	c.heightfields.reset()
	c.store.reset()
	c.changes.reset()
	c.oversized = 0

	c.logger.Info("🌍 Активный мир %q, поколение %d", id, c.generation)
	c.metrics.setState(c.statsLocked())
}

// Worldspace возвращает активный мир
func (c *TileCache) Worldspace() (WorldspaceID, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.worldspace, c.active
}

// SetRange задаёт активное окно. Занятые тайлы, покинувшие окно, удаляются вместе с мешами
// и попадают в журнал как Remove; вошедшие в окно создаются и попадают как Add.
func (c *TileCache) SetRange(r navmesh.TilesRange) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if r == c.window {
		return
	}
	old := c.window
	c.window = r

	// move переносит строки содержимого в новое окно и возвращает новый признак oversized
	move := func(fp navmesh.TilesRange, occ occupant, oversized bool) bool {
		now := c.oversizedLocked(fp)
		switch {
		case oversized && now:
		case oversized:
			c.oversized--
			fp.Intersect(r).ForEach(func(tile navmesh.TilePosition) {
				c.occupyTile(tile, occ)
			})
		case now:
			fp.Intersect(old).ForEach(func(tile navmesh.TilePosition) {
				c.vacateTile(tile, occ)
			})
			c.oversized++
		default:
			fp.Intersect(old).ForEach(func(tile navmesh.TilePosition) {
				if !r.Contains(tile) {
					c.vacateTile(tile, occ)
				}
			})
			fp.Intersect(r).ForEach(func(tile navmesh.TilePosition) {
				if !old.Contains(tile) {
					c.occupyTile(tile, occ)
				}
			})
		}
		return now
	}
	c.objects.forEach(func(obj *trackedObject) {
		obj.oversized = move(obj.footprint, objectOccupant(obj.id), obj.oversized)
	})
	c.water.forEach(func(e *cellEntry[float32]) {
		if e.bounded {
			e.oversized = move(e.footprint, waterOccupant(e.cell), e.oversized)
		}
	})
	c.heightfields.forEach(func(e *cellEntry[shape.Heightfield]) {
		if e.bounded {
			e.oversized = move(e.footprint, heightfieldOccupant(e.cell), e.oversized)
		}
	})

	evicted := c.store.evictOutOfRange(r)
	c.metrics.evict(evicted)
	c.logger.Debug("Активное окно %v -> %v, вытеснено строк: %d", old, r, evicted)
	c.commit()
}

// Range возвращает активное окно
func (c *TileCache) Range() navmesh.TilesRange {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.window
}

// AddObject начинает отслеживать объект. false, если id уже отслеживается.
func (c *TileCache) AddObject(id ObjectID, shp shape.Shape, tr shape.Transform, area navmesh.AreaType) bool {
	if shp == nil {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	obj, ok := c.objects.add(id, shp, tr, area)
	if !ok {
		return false
	}
	obj.oversized = c.place(obj.footprint, objectOccupant(id))
	c.changes.markDirty()
	c.commit()
	return true
}

// UpdateObject меняет положение или тип поверхности объекта.
// false, если объект неизвестен или ни преобразование, ни тип не изменились.
func (c *TileCache) UpdateObject(id ObjectID, tr shape.Transform, area navmesh.AreaType) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	obj, diff, ok := c.objects.update(id, tr, area)
	if !ok {
		return false
	}
	occ := objectOccupant(id)
	if obj.oversized || c.oversizedLocked(diff.New) {
		c.unplace(diff.Old, occ, obj.oversized)
		obj.oversized = c.place(diff.New, occ)
		c.changes.markDirty()
		c.commit()
		return true
	}
	for _, change := range diff.Changes(c.window) {
		switch change.Type {
		case ChangeAdd:
			c.occupyTile(change.Tile, occ)
		case ChangeRemove:
			c.vacateTile(change.Tile, occ)
		default:
			c.touchTile(change.Tile)
		}
	}
	c.changes.markDirty()
	c.commit()
	return true
}

// RemoveObject прекращает отслеживание объекта. Неизвестный id игнорируется.
func (c *TileCache) RemoveObject(id ObjectID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	obj, ok := c.objects.remove(id)
	if !ok {
		return
	}
	c.unplace(obj.footprint, objectOccupant(id), obj.oversized)
	c.changes.markDirty()
	c.commit()
}

// AddWater добавляет водную плоскость ячейки. cellSize >= math.MaxInt32 означает воду,
// покрывающую весь мир. false, если в ячейке уже есть вода.
func (c *TileCache) AddWater(cell vec.Vec2, cellSize int, level float32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.water.add(cell, cellSize, level)
	if !ok {
		return false
	}
	entry.oversized = c.addCellContent(entry.bounded, entry.footprint, waterOccupant(cell))
	c.commit()
	return true
}

// RemoveWater удаляет воду ячейки. Неизвестная ячейка игнорируется.
func (c *TileCache) RemoveWater(cell vec.Vec2) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.water.remove(cell)
	if !ok {
		return
	}
	c.removeCellContent(entry.bounded, entry.oversized, entry.footprint, waterOccupant(cell))
	c.commit()
}

// AddHeightfield добавляет рельеф ячейки. false, если в ячейке уже есть рельеф.
func (c *TileCache) AddHeightfield(cell vec.Vec2, cellSize int, hf shape.Heightfield) bool {
	if hf == nil {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.heightfields.add(cell, cellSize, hf)
	if !ok {
		return false
	}
	entry.oversized = c.addCellContent(entry.bounded, entry.footprint, heightfieldOccupant(cell))
	c.commit()
	return true
}

// RemoveHeightfield удаляет рельеф ячейки. Неизвестная ячейка игнорируется.
func (c *TileCache) RemoveHeightfield(cell vec.Vec2) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.heightfields.remove(cell)
	if !ok {
		return
	}
	c.removeCellContent(entry.bounded, entry.oversized, entry.footprint, heightfieldOccupant(cell))
	c.commit()
}

// GetMesh возвращает меш тайла, строя его при необходимости.
// nil, если мир не активен или другой, тайл вне окна или пуст, либо построение не удалось.
// Построение выполняется в ctx первого запросившего; ошибка не кешируется.
func (c *TileCache) GetMesh(ctx context.Context, ws WorldspaceID, tile navmesh.TilePosition) *recastmesh.Mesh {
	type buildResult struct {
		mesh    *recastmesh.Mesh
		row     *tileRow
		version uint64
	}

	for attempt := 1; ; attempt++ {
		c.mu.RLock()
		if !c.visibleLocked(ws, tile) {
			c.mu.RUnlock()
			return nil
		}
		row := c.store.row(tile)
		if row == nil {
			c.mu.RUnlock()
			return nil
		}
		if row.mesh != nil {
			mesh := row.mesh
			c.mu.RUnlock()
			c.metrics.hit()
			return mesh
		}
		version := row.version
		generation := c.generation
		in := c.inputLocked(tile, c.occupantsAtLocked(tile))
		c.mu.RUnlock()

		if attempt == 1 {
			c.metrics.miss()
		}

		key := fmt.Sprintf("%d/%d/%d", generation, tile.X, tile.Y)
		v, err, _ := c.builds.Do(key, func() (interface{}, error) {
			// предыдущее построение могло закешировать меш уже после нашего снимка
			c.mu.RLock()
			if c.store.row(tile) == row && row.version == version && row.mesh != nil {
				mesh := row.mesh
				c.mu.RUnlock()
				return buildResult{mesh: mesh, row: row, version: version}, nil
			}
			c.mu.RUnlock()

			mesh, err := c.build(ctx, in)
			if err != nil {
				return nil, err
			}

			c.mu.Lock()
			if c.generation == generation && !c.store.put(tile, row, version, mesh) {
				c.metrics.stale()
				c.logger.Debug("Меш тайла %v устарел во время построения и не закеширован", tile)
			}
			c.mu.Unlock()
			return buildResult{mesh: mesh, row: row, version: version}, nil
		})
		if err != nil {
			return nil
		}
		res := v.(buildResult)

		// присоединились к построению по более старому снимку тайла
		if res.version < version && attempt < maxBuildAttempts && ctx.Err() == nil {
			continue
		}

		c.mu.RLock()
		sameWorld := c.generation == generation
		c.mu.RUnlock()
		if !sameWorld {
			return nil
		}
		return res.mesh
	}
}

// GetCachedMesh возвращает закешированный меш тайла, никогда не строя его
func (c *TileCache) GetCachedMesh(ws WorldspaceID, tile navmesh.TilePosition) *recastmesh.Mesh {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.visibleLocked(ws, tile) {
		return nil
	}
	return c.store.cached(tile)
}

// GetNewMesh строит меш тайла по текущему содержимому, не читая и не изменяя кеш.
// Работает и для тайлов вне активного окна.
func (c *TileCache) GetNewMesh(ctx context.Context, ws WorldspaceID, tile navmesh.TilePosition) *recastmesh.Mesh {
	c.mu.RLock()
	if !c.active || c.worldspace != ws {
		c.mu.RUnlock()
		return nil
	}
	in := c.inputLocked(tile, c.occupantsAtLocked(tile))
	c.mu.RUnlock()

	if in.Empty() {
		return nil
	}
	mesh, err := c.build(ctx, in)
	if err != nil {
		return nil
	}
	return mesh
}

// Revision возвращает текущую ревизию
func (c *TileCache) Revision() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.changes.revision
}

// Version возвращает поколение мира и ревизию
func (c *TileCache) Version() navmesh.Version {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return navmesh.Version{Generation: c.generation, Revision: c.changes.revision}
}

// TakeChangedTiles возвращает изменения тайлов с прошлого вызова по возрастанию позиции и очищает журнал
func (c *TileCache) TakeChangedTiles() []TileChange {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := c.changes.drain()
	c.metrics.setState(c.statsLocked())
	return out
}

// ChangeSet: согласованный снимок мира, версии и выбранного журнала
type ChangeSet struct {
	Worldspace WorldspaceID
	Active     bool
	Version    navmesh.Version
	Changes    []TileChange
}

// TakeChanges выбирает журнал вместе с активным миром и версией под одной блокировкой.
// Изменения в снимке всегда относятся к миру и поколению из того же снимка.
func (c *TileCache) TakeChanges() ChangeSet {
	c.mu.Lock()
	defer c.mu.Unlock()

	set := ChangeSet{
		Worldspace: c.worldspace,
		Active:     c.active,
		Version:    navmesh.Version{Generation: c.generation, Revision: c.changes.revision},
		Changes:    c.changes.drain(),
	}
	c.metrics.setState(c.statsLocked())
	return set
}

// Stats возвращает снимок размеров кеша
func (c *TileCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.statsLocked()
}

// LimitedObjectsRange возвращает пересечение активного окна с объединением footprint
// всего ограниченного содержимого; пустой диапазон, если отслеживать нечего.
func (c *TileCache) LimitedObjectsRange() navmesh.TilesRange {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var r navmesh.TilesRange
	c.objects.forEach(func(obj *trackedObject) {
		r = r.Union(obj.footprint)
	})
	c.water.forEach(func(e *cellEntry[float32]) {
		if e.bounded {
			r = r.Union(e.footprint)
		}
	})
	c.heightfields.forEach(func(e *cellEntry[shape.Heightfield]) {
		if e.bounded {
			r = r.Union(e.footprint)
		}
	})
	if r.Empty() {
		return navmesh.TilesRange{}
	}
	return r.Intersect(c.window)
}

func (c *TileCache) visibleLocked(ws WorldspaceID, tile navmesh.TilePosition) bool {
	return c.active && c.worldspace == ws && c.window.Contains(tile)
}

func (c *TileCache) occupyTile(tile navmesh.TilePosition, occ occupant) {
	if c.store.occupy(tile, occ) {
		c.changes.record(tile, ChangeAdd)
		return
	}
	c.changes.record(tile, ChangeUpdate)
}

func (c *TileCache) vacateTile(tile navmesh.TilePosition, occ occupant) {
	deleted, changed := c.store.vacate(tile, occ)
	switch {
	case deleted:
		c.changes.record(tile, ChangeRemove)
	case changed:
		c.changes.record(tile, ChangeUpdate)
	}
}

func (c *TileCache) touchTile(tile navmesh.TilePosition) {
	if c.store.invalidate(tile) {
		c.changes.record(tile, ChangeUpdate)
	}
}

// touchAll помечает изменёнными все существующие строки: так меняется глобальное содержимое
func (c *TileCache) touchAll() {
	c.store.forEach(func(tile navmesh.TilePosition, _ *tileRow) {
		c.touchTile(tile)
	})
}

// touchRange помечает изменёнными существующие строки внутри fp.
// Строк не больше, чем тайлов в окне, поэтому обход идёт по хранилищу, а не по fp.
func (c *TileCache) touchRange(fp navmesh.TilesRange) {
	c.store.forEach(func(tile navmesh.TilePosition, _ *tileRow) {
		if fp.Contains(tile) {
			c.touchTile(tile)
		}
	})
}

func (c *TileCache) oversizedLocked(fp navmesh.TilesRange) bool {
	return fp.Intersect(c.window).Count() > c.maxFootprint
}

// place занимает тайлы footprint в окне. Для слишком большого footprint строки не создаются,
// а уже существующие строки внутри него помечаются изменёнными; тогда возвращается true.
func (c *TileCache) place(fp navmesh.TilesRange, occ occupant) bool {
	if c.oversizedLocked(fp) {
		c.oversized++
		c.touchRange(fp)
		c.logger.Debug("Footprint %v больше %d тайлов окна, строки не создаются", fp, c.maxFootprint)
		return true
	}
	fp.Intersect(c.window).ForEach(func(tile navmesh.TilePosition) {
		c.occupyTile(tile, occ)
	})
	return false
}

func (c *TileCache) unplace(fp navmesh.TilesRange, occ occupant, oversized bool) {
	if oversized {
		c.oversized--
		c.touchRange(fp)
		return
	}
	fp.Intersect(c.window).ForEach(func(tile navmesh.TilePosition) {
		c.vacateTile(tile, occ)
	})
}

func (c *TileCache) addCellContent(bounded bool, fp navmesh.TilesRange, occ occupant) (oversized bool) {
	if bounded {
		oversized = c.place(fp, occ)
	} else {
		c.touchAll()
	}
	c.changes.markDirty()
	return oversized
}

func (c *TileCache) removeCellContent(bounded, oversized bool, fp navmesh.TilesRange, occ occupant) {
	if bounded {
		c.unplace(fp, occ, oversized)
	} else {
		c.touchAll()
	}
	c.changes.markDirty()
}

func (c *TileCache) commit() {
	if c.changes.commit() {
		c.metrics.setState(c.statsLocked())
	}
}

func (c *TileCache) statsLocked() Stats {
	return Stats{
		Tiles:          c.store.len(),
		CachedMeshes:   c.store.cachedCount(),
		Objects:        c.objects.len(),
		Water:          c.water.len(),
		Heightfields:   c.heightfields.len(),
		PendingChanges: c.changes.len(),
		Revision:       c.changes.revision,
		Generation:     c.generation,
	}
}

// occupantsAtLocked возвращает содержимое тайла: занятых строк плюс слишком крупное,
// строк не создающее. Для тайлов без строки ищет по footprint.
func (c *TileCache) occupantsAtLocked(tile navmesh.TilePosition) []occupant {
	if row := c.store.row(tile); row != nil {
		out := slices.Collect(maps.Keys(row.occupants))
		if c.oversized > 0 {
			out = append(out, c.scanOccupantsLocked(tile, true)...)
		}
		return out
	}
	return c.scanOccupantsLocked(tile, false)
}

// scanOccupantsLocked ищет содержимое, чей footprint покрывает тайл
func (c *TileCache) scanOccupantsLocked(tile navmesh.TilePosition, oversizedOnly bool) []occupant {
	var out []occupant
	c.objects.forEach(func(obj *trackedObject) {
		if (obj.oversized || !oversizedOnly) && obj.footprint.Contains(tile) {
			out = append(out, objectOccupant(obj.id))
		}
	})
	c.water.forEach(func(e *cellEntry[float32]) {
		if e.bounded && (e.oversized || !oversizedOnly) && e.footprint.Contains(tile) {
			out = append(out, waterOccupant(e.cell))
		}
	})
	c.heightfields.forEach(func(e *cellEntry[shape.Heightfield]) {
		if e.bounded && (e.oversized || !oversizedOnly) && e.footprint.Contains(tile) {
			out = append(out, heightfieldOccupant(e.cell))
		}
	})
	return out
}

// inputLocked снимает копию содержимого тайла для построителя.
// Глобальная вода и рельеф добавляются, только если в тайле есть что-то ещё.
func (c *TileCache) inputLocked(tile navmesh.TilePosition, occupants []occupant) recastmesh.Input {
	minXY, maxXY := navmesh.TileBounds(c.settings, tile)
	in := recastmesh.Input{
		Tile:    tile,
		Version: navmesh.Version{Generation: c.generation, Revision: c.changes.revision},
		Bounds:  recastmesh.Bounds{Min: minXY, Max: maxXY},
	}

	for _, occ := range occupants {
		switch occ.kind {
		case occupantObject:
			if obj, ok := c.objects.get(occ.object); ok {
				in.Objects = append(in.Objects, recastmesh.Object{
					ID:        obj.id.String(),
					Shape:     obj.shape,
					Transform: obj.transform,
					AreaType:  obj.areaType,
				})
			}
		case occupantWater:
			if e, ok := c.water.get(occ.cell); ok {
				in.Water = append(in.Water, recastmesh.Water{Cell: e.cell, CellSize: e.cellSize, Level: e.value})
			}
		case occupantHeightfield:
			if e, ok := c.heightfields.get(occ.cell); ok {
				in.Heightfields = append(in.Heightfields, recastmesh.Heightfield{Cell: e.cell, CellSize: e.cellSize, Shape: e.value})
			}
		}
	}
	if in.Empty() {
		return in
	}

	for _, e := range c.water.global() {
		in.Water = append(in.Water, recastmesh.Water{Cell: e.cell, CellSize: e.cellSize, Level: e.value})
	}
	for _, e := range c.heightfields.global() {
		in.Heightfields = append(in.Heightfields, recastmesh.Heightfield{Cell: e.cell, CellSize: e.cellSize, Shape: e.value})
	}

	slices.SortFunc(in.Objects, func(a, b recastmesh.Object) int {
		return cmp.Compare(a.ID, b.ID)
	})
	slices.SortStableFunc(in.Water, func(a, b recastmesh.Water) int {
		return a.Cell.Compare(b.Cell)
	})
	slices.SortStableFunc(in.Heightfields, func(a, b recastmesh.Heightfield) int {
		return a.Cell.Compare(b.Cell)
	})
	return in
}

// build вызывает построитель без блокировок кеша
func (c *TileCache) build(ctx context.Context, in recastmesh.Input) (*recastmesh.Mesh, error) {
	ctx, span := c.tracer.Start(ctx, "tilecache.build", trace.WithAttributes(
		attribute.Int("tile.x", in.Tile.X),
		attribute.Int("tile.y", in.Tile.Y),
		attribute.Int("tile.objects", len(in.Objects)),
		attribute.Int64("tile.revision", int64(in.Version.Revision)),
	))
	defer span.End()

	start := time.Now()
	mesh, err := c.builder.Build(ctx, in)
	if err == nil && mesh == nil {
		err = fmt.Errorf("%w: builder returned nil mesh", recastmesh.ErrBuildFailed)
	}
	c.metrics.observeBuild(time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Debug("Не удалось построить меш тайла %v: %v", in.Tile, err)
		return nil, err
	}
	return mesh, nil
}
