package navmesh

import "fmt"

// AreaType классифицирует стоимость прохождения поверхности.
// Кешу тайлов значение безразлично, он лишь передаёт его построителю меша.
type AreaType uint8

const (
	AreaNull     AreaType = 0
	AreaWater    AreaType = 1
	AreaDoor     AreaType = 2
	AreaPathgrid AreaType = 3
	AreaGround   AreaType = 63
)

func (a AreaType) String() string {
	switch a {
	case AreaNull:
		return "null"
	case AreaWater:
		return "water"
	case AreaDoor:
		return "door"
	case AreaPathgrid:
		return "pathgrid"
	case AreaGround:
		return "ground"
	default:
		return fmt.Sprintf("area(%d)", uint8(a))
	}
}

// Version идентифицирует состояние кеша, из которого построен меш тайла
type Version struct {
	// Generation меняется при смене мира
	Generation uint64
	// Ревизия кеша на момент снятия входных данных
	Revision uint64
}

// Less упорядочивает версии сначала по поколению, затем по ревизии
func (v Version) Less(other Version) bool {
	if v.Generation != other.Generation {
		return v.Generation < other.Generation
	}
	return v.Revision < other.Revision
}
