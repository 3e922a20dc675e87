package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("warning")
	require.NoError(t, err)
	assert.Equal(t, WARN, lvl)

	lvl, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, INFO, lvl)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestNilAndNopLoggersAreSafe(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() {
		l.Info("ничего не происходит %d", 1)
		l.SetLevels(DEBUG, DEBUG)
		assert.NoError(t, l.Close())
		assert.Nil(t, l.With("k", "v"))
	})

	assert.NotPanics(t, func() {
		Nop().Error("тоже ничего")
		Info("глобальный логгер не инициализирован")
	})
}

func TestLoggerWritesRotatedFile(t *testing.T) {
	dir := t.TempDir()
	opts := DefaultOptions()
	opts.Dir = dir
	opts.ConsoleLevel = ERROR

	l, err := NewLoggerWithOptions("tilecache", opts)
	require.NoError(t, err)
	l.Info("тайл %v перестроен", "(0, 0)")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(filepath.Join(dir, "tilecache.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "тайл (0, 0) перестроен")
	assert.Contains(t, string(data), `"logger":"tilecache"`)
}

func TestLoggerManager(t *testing.T) {
	Configure(Options{ConsoleLevel: ERROR, FileLevel: ERROR})
	t.Cleanup(func() { Configure(DefaultOptions()) })

	lm := NewLoggerManager()
	a, err := lm.GetLogger(ComponentUpdater)
	require.NoError(t, err)
	b := lm.MustGetLogger(ComponentUpdater)
	assert.Same(t, a, b, "повторный запрос должен возвращать тот же логгер")

	lm.MustGetLogger(ComponentEventBus)
	assert.Equal(t, []string{"eventbus", "updater"}, lm.ListComponents())

	t.Run("уровень до создания логгера", func(t *testing.T) {
		lm.SetLogLevel(ComponentStore, DEBUG, WARN)
		lm.MustGetLogger(ComponentStore)
		assert.Equal(t, []string{"eventbus", "meshstore", "updater"}, lm.ListComponents())
	})

	assert.NoError(t, lm.CloseAll())
	assert.Empty(t, lm.ListComponents())
}
