package main

import (
	"math"
	"math/rand/v2"

	"github.com/annel0/navtiles/internal/logging"
	"github.com/annel0/navtiles/internal/navmesh"
	"github.com/annel0/navtiles/internal/shape"
	"github.com/annel0/navtiles/internal/tilecache"
	"github.com/annel0/navtiles/internal/updater"
	"github.com/annel0/navtiles/internal/vec"
	"github.com/aquilax/go-perlin"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

const (
	// Сторона ячейки мира с водой и рельефом
	cellSize = 8192
	// noiseScale переводит мировые координаты в координаты шума
	noiseScale = 4096.0
	// Минимальная плотность шума, при которой ставится объект
	densityThreshold = 0.5
	heightfieldSize  = 17
)

type simObject struct {
	id     tilecache.ObjectID
	origin mgl32.Vec3
	angle  float32
	area   navmesh.AreaType
}

// scenario описывает синтетический мир: объекты по шуму Перлина, вода, рельеф и движущийся игрок
type scenario struct {
	cache    *tilecache.TileCache
	upd      *updater.Updater
	logger   *logging.Logger
	settings navmesh.Settings
	rng      *rand.Rand
	noise    *perlin.Perlin
	maxTiles int

	objects []simObject
	player  mgl32.Vec2
	speed   float32
}

func newScenario(cache *tilecache.TileCache, upd *updater.Updater, maxTiles int, seed int64, logger *logging.Logger) *scenario {
	return &scenario{
		cache:    cache,
		upd:      upd,
		logger:   logger,
		settings: cache.Settings(),
		rng:      rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15)),
		noise:    perlin.NewPerlin(2, 2, 3, seed),
		maxTiles: maxTiles,
		speed:    cache.Settings().FromNavMesh(cache.Settings().TileWorldSize()) / 4,
	}
}

// density возвращает значение шума в точке, от 0 до 1
func (s *scenario) density(x, y float32) float64 {
	return (s.noise.Noise2D(float64(x)/noiseScale, float64(y)/noiseScale) + 1) / 2
}

// populate расставляет до n объектов в квадрате [-extent, extent] там, где шум плотнее порога
func (s *scenario) populate(n int, extent float32) int {
	added := 0
	for tries := 0; added < n && tries < n*20; tries++ {
		x := (s.rng.Float32()*2 - 1) * extent
		y := (s.rng.Float32()*2 - 1) * extent
		if s.density(x, y) < densityThreshold {
			continue
		}
		obj := simObject{
			id:     uuid.New(),
			origin: mgl32.Vec3{x, y, 0},
			angle:  s.rng.Float32() * 2 * math.Pi,
			area:   navmesh.AreaGround,
		}
		if s.rng.IntN(10) == 0 {
			obj.area = navmesh.AreaDoor
		}
		box := shape.NewBox(10+s.rng.Float32()*90, 10+s.rng.Float32()*90, 20+s.rng.Float32()*200)
		if s.cache.AddObject(obj.id, box, shape.RotationZ(obj.origin, obj.angle), obj.area) {
			s.objects = append(s.objects, obj)
			added++
		}
	}
	return added
}

// addTerrain покрывает cells x cells ячеек рельефом по шуму и добавляет воду:
// глобальный уровень моря и озёра в ячейках с низким рельефом
func (s *scenario) addTerrain(cells int) {
	s.cache.AddWater(vec.Vec2{}, math.MaxInt32, -50)

	half := cells / 2
	for cx := -half; cx < cells-half; cx++ {
		for cy := -half; cy < cells-half; cy++ {
			cell := vec.Vec2{X: cx, Y: cy}
			heights := make([]float32, heightfieldSize*heightfieldSize)
			for i := range heights {
				px := float32(cx*cellSize) + float32(i%heightfieldSize)*cellSize/(heightfieldSize-1)
				py := float32(cy*cellSize) + float32(i/heightfieldSize)*cellSize/(heightfieldSize-1)
				heights[i] = float32(s.density(px, py)*400 - 200)
			}
			hf, err := shape.NewHeightfieldSurface(heights, heightfieldSize)
			if err != nil {
				s.logger.Warn("Рельеф ячейки %v пропущен: %v", cell, err)
				continue
			}
			s.cache.AddHeightfield(cell, cellSize, hf)
			if shape.MidHeight(hf) < 0 {
				s.cache.AddWater(cell, cellSize, 0)
			}
		}
	}
}

// movePlayer сдвигает игрока и окно кеша вокруг него
func (s *scenario) movePlayer(step int) {
	angle := float64(step) * 0.05
	s.player = s.player.Add(mgl32.Vec2{
		float32(math.Cos(angle)) * s.speed,
		float32(math.Sin(angle)) * s.speed,
	})
	tile := navmesh.TileAt(s.settings, s.player[0], s.player[1])
	s.upd.SetPlayerTile(tile)
	s.cache.SetRange(updater.Window(tile, s.maxTiles))
}

// moveObjects поворачивает и сдвигает часть объектов; fraction: доля от 0 до 1
func (s *scenario) moveObjects(fraction float64) int {
	moved := 0
	for i := range s.objects {
		if s.rng.Float64() >= fraction {
			continue
		}
		obj := &s.objects[i]
		obj.angle += 0.1
		obj.origin = obj.origin.Add(mgl32.Vec3{s.rng.Float32()*20 - 10, s.rng.Float32()*20 - 10, 0})
		if s.cache.UpdateObject(obj.id, shape.RotationZ(obj.origin, obj.angle), obj.area) {
			moved++
		}
	}
	return moved
}

// removeSome удаляет n случайных объектов
func (s *scenario) removeSome(n int) int {
	removed := 0
	for ; removed < n && len(s.objects) > 0; removed++ {
		i := s.rng.IntN(len(s.objects))
		s.cache.RemoveObject(s.objects[i].id)
		s.objects[i] = s.objects[len(s.objects)-1]
		s.objects = s.objects[:len(s.objects)-1]
	}
	return removed
}
