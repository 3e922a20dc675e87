package logging

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
)

// Компоненты navtiles со своими файлами логов
const (
	ComponentCache    = "tilecache"
	ComponentUpdater  = "updater"
	ComponentEventBus = "eventbus"
	ComponentStore    = "meshstore"
)

type levels struct {
	console, file LogLevel
}

// LoggerManager выдаёт логгеры компонентов и хранит переопределения уровней.
// Переопределение, заданное до создания логгера, применяется при создании.
type LoggerManager struct {
	mu        sync.Mutex
	loggers   map[string]*Logger
	overrides map[string]levels
}

var (
	globalManager *LoggerManager
	managerOnce   sync.Once
)

// GetLoggerManager возвращает глобальный менеджер логгеров
func GetLoggerManager() *LoggerManager {
	managerOnce.Do(func() {
		globalManager = NewLoggerManager()
	})
	return globalManager
}

func NewLoggerManager() *LoggerManager {
	return &LoggerManager{
		loggers:   make(map[string]*Logger),
		overrides: make(map[string]levels),
	}
}

// GetLogger возвращает логгер компонента, создавая его при первом запросе
func (lm *LoggerManager) GetLogger(component string) (*Logger, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if logger, ok := lm.loggers[component]; ok {
		return logger, nil
	}
	logger, err := NewLogger(component)
	if err != nil {
		return nil, fmt.Errorf("logger %s: %w", component, err)
	}
	if lv, ok := lm.overrides[component]; ok {
		logger.SetLevels(lv.console, lv.file)
	}
	lm.loggers[component] = logger
	return logger, nil
}

// MustGetLogger возвращает логгер компонента или глобальный логгер при ошибке
func (lm *LoggerManager) MustGetLogger(component string) *Logger {
	logger, err := lm.GetLogger(component)
	if err != nil {
		Default().Warn("⚠️ логгер %s недоступен, используется глобальный: %v", component, err)
		return Default()
	}
	return logger
}

// SetLogLevel задаёт уровни компонента, в том числе ещё не созданного
func (lm *LoggerManager) SetLogLevel(component string, consoleLevel, fileLevel LogLevel) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	lm.overrides[component] = levels{console: consoleLevel, file: fileLevel}
	if logger, ok := lm.loggers[component]; ok {
		logger.SetLevels(consoleLevel, fileLevel)
	}
}

// ListComponents возвращает созданные логгеры по алфавиту
func (lm *LoggerManager) ListComponents() []string {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return slices.Sorted(maps.Keys(lm.loggers))
}

// CloseAll закрывает все логгеры; переопределения уровней сохраняются
func (lm *LoggerManager) CloseAll() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	var errs []error
	for component, logger := range lm.loggers {
		if err := logger.Close(); err != nil {
			errs = append(errs, fmt.Errorf("logger %s: %w", component, err))
		}
	}
	clear(lm.loggers)
	return errors.Join(errs...)
}

// GetComponentLogger возвращает логгер компонента из глобального менеджера
func GetComponentLogger(component string) *Logger {
	return GetLoggerManager().MustGetLogger(component)
}

func GetCacheLogger() *Logger    { return GetComponentLogger(ComponentCache) }
func GetUpdaterLogger() *Logger  { return GetComponentLogger(ComponentUpdater) }
func GetEventBusLogger() *Logger { return GetComponentLogger(ComponentEventBus) }
func GetStoreLogger() *Logger    { return GetComponentLogger(ComponentStore) }
