package updater

import (
	"math"
	"slices"

	"github.com/annel0/navtiles/internal/navmesh"
	"github.com/annel0/navtiles/internal/tilecache"
)

// Job описывает работу над одним тайлом
type Job struct {
	Tile     navmesh.TilePosition
	Change   tilecache.ChangeType
	Distance int
}

// changeOrder ставит удаления первыми, затем новые тайлы и обновления
func changeOrder(t tilecache.ChangeType) int {
	switch t {
	case tilecache.ChangeRemove:
		return 0
	case tilecache.ChangeAdd:
		return 1
	default:
		return 2
	}
}

// ShouldAddTile сообщает, помещается ли тайл в круг из maxTiles тайлов вокруг игрока
func ShouldAddTile(tile, player navmesh.TilePosition, maxTiles int) bool {
	dx := float64(tile.X - player.X)
	dy := float64(tile.Y - player.Y)
	expected := math.Ceil(math.Pi * (dx*dx + dy*dy))
	return expected <= float64(maxTiles)
}

// Window возвращает квадрат тайлов, описанный вокруг круга из maxTiles тайлов с центром в игроке
func Window(player navmesh.TilePosition, maxTiles int) navmesh.TilesRange {
	if maxTiles <= 0 {
		return navmesh.TilesRange{}
	}
	r := int(math.Sqrt(float64(maxTiles) / math.Pi))
	return navmesh.TilesRange{
		Begin: navmesh.TilePosition{X: player.X - r, Y: player.Y - r},
		End:   navmesh.TilePosition{X: player.X + r + 1, Y: player.Y + r + 1},
	}
}

// PlanJobs превращает изменения тайлов в упорядоченные работы: ближние к игроку раньше,
// при равном расстоянии Remove, Add, Update. Тайлы вне лимита становятся Remove.
func PlanJobs(changes []tilecache.TileChange, player navmesh.TilePosition, maxTiles int) []Job {
	jobs := make([]Job, 0, len(changes))
	for _, ch := range changes {
		job := Job{
			Tile:     ch.Tile,
			Change:   ch.Type,
			Distance: ch.Tile.ManhattanDistance(player),
		}
		if job.Change != tilecache.ChangeRemove && !ShouldAddTile(ch.Tile, player, maxTiles) {
			job.Change = tilecache.ChangeRemove
		}
		jobs = append(jobs, job)
	}
	slices.SortFunc(jobs, func(a, b Job) int {
		if a.Distance != b.Distance {
			return a.Distance - b.Distance
		}
		if d := changeOrder(a.Change) - changeOrder(b.Change); d != 0 {
			return d
		}
		return a.Tile.Compare(b.Tile)
	})
	return jobs
}
