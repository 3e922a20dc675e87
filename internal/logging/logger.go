package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogLevel определяет уровни логирования
type LogLevel int

const (
	TRACE LogLevel = iota
	DEBUG
	INFO
	WARN
	ERROR
)

// String возвращает строковое представление уровня логирования
func (l LogLevel) String() string {
	switch l {
	case TRACE:
		return "TRACE"
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel разбирает имя уровня без учёта регистра
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return TRACE, nil
	case "DEBUG":
		return DEBUG, nil
	case "INFO", "":
		return INFO, nil
	case "WARN", "WARNING":
		return WARN, nil
	case "ERROR":
		return ERROR, nil
	}
	return INFO, fmt.Errorf("unknown log level %q", s)
}

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case TRACE, DEBUG:
		return zapcore.DebugLevel
	case WARN:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Options задаёт, куда и с какой детализацией пишут логгеры компонентов
type Options struct {
	// Каталог для файлов логов; пустая строка отключает запись в файл
	Dir          string
	ConsoleLevel LogLevel
	FileLevel    LogLevel
	// Параметры ротации lumberjack
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// DefaultOptions возвращает настройки по умолчанию: INFO в консоль, DEBUG в logs/<component>.log
func DefaultOptions() Options {
	return Options{
		Dir:          "logs",
		ConsoleLevel: INFO,
		FileLevel:    DEBUG,
		MaxSizeMB:    50,
		MaxBackups:   5,
		MaxAgeDays:   7,
	}
}

var (
	optionsMu      sync.RWMutex
	currentOptions = DefaultOptions()
)

// Configure задаёт настройки для логгеров, создаваемых после вызова
func Configure(opts Options) {
	optionsMu.Lock()
	currentOptions = opts
	optionsMu.Unlock()
}

func loadOptions() Options {
	optionsMu.RLock()
	defer optionsMu.RUnlock()
	return currentOptions
}

// Logger — логгер компонента. Пишет в консоль и, если задан каталог, в ротируемый файл.
// Нулевой указатель безопасен: все методы становятся no-op.
type Logger struct {
	component    string
	sugar        *zap.SugaredLogger
	file         *lumberjack.Logger
	consoleLevel zap.AtomicLevel
	fileLevel    zap.AtomicLevel
}

// NewLogger создаёт логгер компонента с текущими настройками пакета
func NewLogger(component string) (*Logger, error) {
	return NewLoggerWithOptions(component, loadOptions())
}

// NewLoggerWithOptions создаёт логгер компонента с явными настройками
func NewLoggerWithOptions(component string, opts Options) (*Logger, error) {
	l := &Logger{
		component:    component,
		consoleLevel: zap.NewAtomicLevelAt(opts.ConsoleLevel.zapLevel()),
		fileLevel:    zap.NewAtomicLevelAt(opts.FileLevel.zapLevel()),
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stdout), l.consoleLevel),
	}

	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("ошибка создания директории %s: %w", opts.Dir, err)
		}
		l.file = &lumberjack.Logger{
			Filename:   filepath.Join(opts.Dir, component+".log"),
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   opts.Compress,
		}
		fileCfg := zap.NewProductionEncoderConfig()
		fileCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileCfg), zapcore.AddSync(l.file), l.fileLevel))
	}

	l.sugar = zap.New(zapcore.NewTee(cores...)).Named(component).Sugar()
	return l, nil
}

// Nop возвращает логгер, который ничего не пишет
func Nop() *Logger {
	return &Logger{
		sugar:        zap.NewNop().Sugar(),
		consoleLevel: zap.NewAtomicLevel(),
		fileLevel:    zap.NewAtomicLevel(),
	}
}

// Component возвращает имя компонента
func (l *Logger) Component() string {
	if l == nil {
		return ""
	}
	return l.component
}

// With возвращает логгер с дополнительными структурированными полями
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	if l == nil {
		return nil
	}
	cp := *l
	cp.sugar = l.sugar.With(keysAndValues...)
	return &cp
}

// SetLevels меняет уровни вывода на лету
func (l *Logger) SetLevels(consoleLevel, fileLevel LogLevel) {
	if l == nil {
		return
	}
	l.consoleLevel.SetLevel(consoleLevel.zapLevel())
	l.fileLevel.SetLevel(fileLevel.zapLevel())
}

// Trace логирует сообщение уровня TRACE (пишется как DEBUG)
func (l *Logger) Trace(format string, args ...interface{}) {
	if l == nil {
		return
	}
	l.sugar.Debugf(format, args...)
}

// Debug логирует сообщение уровня DEBUG
func (l *Logger) Debug(format string, args ...interface{}) {
	if l == nil {
		return
	}
	l.sugar.Debugf(format, args...)
}

// Info логирует сообщение уровня INFO
func (l *Logger) Info(format string, args ...interface{}) {
	if l == nil {
		return
	}
	l.sugar.Infof(format, args...)
}

// Warn логирует сообщение уровня WARN
func (l *Logger) Warn(format string, args ...interface{}) {
	if l == nil {
		return
	}
	l.sugar.Warnf(format, args...)
}

// Error логирует сообщение уровня ERROR
func (l *Logger) Error(format string, args ...interface{}) {
	if l == nil {
		return
	}
	l.sugar.Errorf(format, args...)
}

// Close сбрасывает буферы и закрывает файл логов
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	_ = l.sugar.Sync()
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

//================ Логгер по умолчанию =================//

var (
	defaultMu     sync.RWMutex
	defaultLogger *Logger
)

// InitDefaultLogger создаёт глобальный логгер для пакетных функций Info/Debug/...
func InitDefaultLogger(component string) error {
	logger, err := NewLogger(component)
	if err != nil {
		return err
	}
	defaultMu.Lock()
	old := defaultLogger
	defaultLogger = logger
	defaultMu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	return nil
}

// CloseDefaultLogger закрывает глобальный логгер
func CloseDefaultLogger() {
	defaultMu.Lock()
	logger := defaultLogger
	defaultLogger = nil
	defaultMu.Unlock()
	_ = logger.Close()
}

// Default возвращает глобальный логгер или Nop, если он не инициализирован
func Default() *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	if defaultLogger == nil {
		return Nop()
	}
	return defaultLogger
}

// Trace логирует через глобальный логгер
func Trace(format string, args ...interface{}) { Default().Trace(format, args...) }

// Debug логирует через глобальный логгер
func Debug(format string, args ...interface{}) { Default().Debug(format, args...) }

// Info логирует через глобальный логгер
func Info(format string, args ...interface{}) { Default().Info(format, args...) }

// Warn логирует через глобальный логгер
func Warn(format string, args ...interface{}) { Default().Warn(format, args...) }

// Error логирует через глобальный логгер
func Error(format string, args ...interface{}) { Default().Error(format, args...) }
