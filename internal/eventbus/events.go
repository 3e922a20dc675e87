package eventbus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Типы событий навмеша
const (
	TypeTilesChanged = "tiles.changed"
	TypeTileRebuilt  = "tile.rebuilt"
	TypeTileRemoved  = "tile.removed"
)

// payloadVersion: версия схемы полезной нагрузки событий тайлов
const payloadVersion = 1

// TileRef описывает тайл в полезной нагрузке события
type TileRef struct {
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Change string `json:"change,omitempty"`
}

// TilesChanged публикуется для пачки изменений, забранной из кеша
type TilesChanged struct {
	Worldspace string    `json:"worldspace"`
	Generation uint64    `json:"generation"`
	Revision   uint64    `json:"revision"`
	Tiles      []TileRef `json:"tiles"`
}

// TileRebuilt публикуется, когда меш тайла построен и отдан потребителю
type TileRebuilt struct {
	Worldspace string  `json:"worldspace"`
	Tile       TileRef `json:"tile"`
	Generation uint64  `json:"generation"`
	Revision   uint64  `json:"revision"`
	Triangles  int     `json:"triangles"`
}

// TileRemoved публикуется, когда тайл убран у потребителя
type TileRemoved struct {
	Worldspace string  `json:"worldspace"`
	Tile       TileRef `json:"tile"`
}

// NewEnvelope упаковывает полезную нагрузку в Envelope с новым ID
func NewEnvelope(source, eventType string, priority int, payload any) (*Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return &Envelope{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Source:    source,
		EventType: eventType,
		Version:   payloadVersion,
		Priority:  priority,
		Payload:   data,
	}, nil
}

// Decode распаковывает полезную нагрузку события в v
func Decode(ev *Envelope, v any) error {
	if ev.Version != payloadVersion {
		return fmt.Errorf("%s: unsupported payload version %d", ev.EventType, ev.Version)
	}
	if err := json.Unmarshal(ev.Payload, v); err != nil {
		return fmt.Errorf("unmarshal %s payload: %w", ev.EventType, err)
	}
	return nil
}
