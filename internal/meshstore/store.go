// Package meshstore хранит доставленные меши тайлов в BadgerDB.
//
// Хранилище реализует updater.Sink и отражает состояние потребителя на диске:
// после перезапуска меши можно отдать навмешу без перестройки.
// Значение записи: 16 байт эпохи записавшего процесса, 16 байт версии
// (поколение и ревизия, big-endian) и JSON меша, сжатый zstd.
//
// Версии кеша начинаются заново при каждом запуске, поэтому сравниваются
// только версии одной эпохи; запись из прошлого запуска всегда перезаписывается.
package meshstore

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/annel0/navtiles/internal/logging"
	"github.com/annel0/navtiles/internal/navmesh"
	"github.com/annel0/navtiles/internal/recastmesh"
	"github.com/annel0/navtiles/internal/tilecache"
	"github.com/dgraph-io/badger/v3"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
)

const (
	keyPrefix  = "mesh:"
	epochSize  = 16
	headerSize = epochSize + 16
)

var (
	ErrNotFound = errors.New("meshstore: tile not found")
	ErrClosed   = errors.New("meshstore: closed")
	ErrCorrupt  = errors.New("meshstore: corrupt record")
)

// Store — хранилище мешей. Безопасно для конкурентного использования.
type Store struct {
	db     *badger.DB
	logger *logging.Logger
	// epoch отличает записи этого открытия от записей прошлых запусков
	epoch uuid.UUID

	encoder *zstd.Encoder
	decoder *zstd.Decoder

	mu     sync.RWMutex
	closed bool
}

// Open открывает хранилище в каталоге dir. Пустой dir: хранилище в памяти.
func Open(dir string, logger *logging.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		db.Close()
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}

	where := dir
	if where == "" {
		where = "память"
	}
	epoch := uuid.New()
	logger.Info("💾 Хранилище мешей открыто: %s, эпоха %s", where, epoch)
	return &Store{db: db, logger: logger, epoch: epoch, encoder: enc, decoder: dec}, nil
}

// Close закрывает хранилище. Повторный вызов безопасен.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.encoder.Close()
	s.decoder.Close()
	return s.db.Close()
}

// worldPrefix возвращает префикс ключей мира; ноль отделяет id мира от координат
func worldPrefix(ws tilecache.WorldspaceID) []byte {
	return []byte(keyPrefix + string(ws) + "\x00")
}

func tileKey(ws tilecache.WorldspaceID, tile navmesh.TilePosition) []byte {
	return append(worldPrefix(ws), strconv.Itoa(tile.X)+":"+strconv.Itoa(tile.Y)...)
}

func parseTile(key, prefix []byte) (navmesh.TilePosition, error) {
	xs, ys, ok := strings.Cut(string(key[len(prefix):]), ":")
	if !ok {
		return navmesh.TilePosition{}, fmt.Errorf("%w: key %q", ErrCorrupt, key)
	}
	x, err := strconv.Atoi(xs)
	if err != nil {
		return navmesh.TilePosition{}, fmt.Errorf("%w: key %q", ErrCorrupt, key)
	}
	y, err := strconv.Atoi(ys)
	if err != nil {
		return navmesh.TilePosition{}, fmt.Errorf("%w: key %q", ErrCorrupt, key)
	}
	return navmesh.TilePosition{X: x, Y: y}, nil
}

func (s *Store) encode(mesh *recastmesh.Mesh) ([]byte, error) {
	data, err := json.Marshal(mesh)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации меша: %w", err)
	}
	out := make([]byte, headerSize, headerSize+len(data)/2)
	copy(out[:epochSize], s.epoch[:])
	binary.BigEndian.PutUint64(out[epochSize:epochSize+8], mesh.Version.Generation)
	binary.BigEndian.PutUint64(out[epochSize+8:headerSize], mesh.Version.Revision)
	return s.encoder.EncodeAll(data, out), nil
}

func readHeader(value []byte) (uuid.UUID, navmesh.Version, error) {
	if len(value) < headerSize {
		return uuid.Nil, navmesh.Version{}, ErrCorrupt
	}
	epoch, err := uuid.FromBytes(value[:epochSize])
	if err != nil {
		return uuid.Nil, navmesh.Version{}, ErrCorrupt
	}
	return epoch, navmesh.Version{
		Generation: binary.BigEndian.Uint64(value[epochSize : epochSize+8]),
		Revision:   binary.BigEndian.Uint64(value[epochSize+8 : headerSize]),
	}, nil
}

func (s *Store) decode(value []byte) (*recastmesh.Mesh, error) {
	if len(value) < headerSize {
		return nil, ErrCorrupt
	}
	data, err := s.decoder.DecodeAll(value[headerSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	var mesh recastmesh.Mesh
	if err := json.Unmarshal(data, &mesh); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return &mesh, nil
}

// UpdateTile сохраняет меш тайла. Меш старше сохранённого в эту же эпоху не записывается.
func (s *Store) UpdateTile(ctx context.Context, ws tilecache.WorldspaceID, tile navmesh.TilePosition, mesh *recastmesh.Mesh) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if mesh == nil {
		return s.RemoveTile(ctx, ws, tile)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	value, err := s.encode(mesh)
	if err != nil {
		return err
	}
	key := tileKey(ws, tile)
	stale := false
	err = s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		switch {
		case err == nil:
			var (
				epoch   uuid.UUID
				current navmesh.Version
			)
			verr := item.Value(func(v []byte) error {
				var err error
				epoch, current, err = readHeader(v)
				return err
			})
			if verr == nil && epoch == s.epoch && mesh.Version.Less(current) {
				stale = true
				return nil
			}
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		return txn.Set(key, value)
	})
	if err != nil {
		return fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
	}
	if stale {
		s.logger.Debug("Меш тайла %v мира %q устарел (%+v), запись пропущена", tile, ws, mesh.Version)
	}
	return nil
}

// RemoveTile удаляет меш тайла; отсутствие записи не ошибка
func (s *Store) RemoveTile(ctx context.Context, ws tilecache.WorldspaceID, tile navmesh.TilePosition) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(tileKey(ws, tile))
	})
	if err != nil {
		return fmt.Errorf("ошибка удаления из BadgerDB: %w", err)
	}
	return nil
}

// Load читает меш тайла. Возвращает ErrNotFound, если записи нет.
func (s *Store) Load(ctx context.Context, ws tilecache.WorldspaceID, tile navmesh.TilePosition) (*recastmesh.Mesh, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(tileKey(ws, tile))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}
	return s.decode(value)
}

// Tiles возвращает сохранённые тайлы мира в порядке ключей
func (s *Store) Tiles(ctx context.Context, ws tilecache.WorldspaceID) ([]navmesh.TilePosition, error) {
	var out []navmesh.TilePosition
	err := s.scan(ctx, ws, func(key []byte) error {
		tile, err := parseTile(key, worldPrefix(ws))
		if err != nil {
			return err
		}
		out = append(out, tile)
		return nil
	})
	return out, err
}

// DropWorld удаляет все меши мира и возвращает их число
func (s *Store) DropWorld(ctx context.Context, ws tilecache.WorldspaceID) (int, error) {
	var keys [][]byte
	if err := s.scan(ctx, ws, func(key []byte) error {
		keys = append(keys, key)
		return nil
	}); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ErrClosed
	}
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range keys {
		if err := wb.Delete(key); err != nil {
			return 0, fmt.Errorf("ошибка удаления из BadgerDB: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("ошибка удаления из BadgerDB: %w", err)
	}
	s.logger.Info("🗑️ Удалено мешей мира %q: %d", ws, len(keys))
	return len(keys), nil
}

// scan обходит ключи мира; fn получает копию ключа
func (s *Store) scan(ctx context.Context, ws tilecache.WorldspaceID, fn func(key []byte) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	prefix := worldPrefix(ws)
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(it.Item().KeyCopy(nil)); err != nil {
				return err
			}
		}
		return nil
	})
}
