package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

var levelStrings = map[LogLevel]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
}

func (l LogLevel) String() string {
	if s, ok := levelStrings[l]; ok {
		return s
	}
	return "UNKNOWN"
}

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case DEBUG:
		return zapcore.DebugLevel
	case WARN:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// ParseLevel converts DEBUG/INFO/WARN/ERROR (any case) to a LogLevel
func ParseLevel(level string) (LogLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return DEBUG, nil
	case "INFO", "":
		return INFO, nil
	case "WARN":
		return WARN, nil
	case "ERROR":
		return ERROR, nil
	default:
		return INFO, fmt.Errorf("unknown log level %q", level)
	}
}

// Fields carries the structured context of a log line
type Fields map[string]interface{}

// Config controls where log lines go. FilePath is optional; when set, lines are also
// written to a size-rotated file.
type Config struct {
	Level      string
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Logger provides structured JSON logging with timestamp, PID and caller
type Logger struct {
	level  zap.AtomicLevel
	zl     *zap.Logger
	closer func() error
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return cfg
}

func build(level zap.AtomicLevel, cores []zapcore.Core, closer func() error) *Logger {
	// skip log() and the exported wrapper so the caller field points at user code
	zl := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(2)).
		With(zap.Int("pid", os.Getpid()))
	return &Logger{
		level:  level,
		zl:     zl,
		closer: closer,
	}
}

// stdCores splits output like a terminal expects: errors on stderr, the rest on stdout
func stdCores(level zap.AtomicLevel) []zapcore.Core {
	encoder := zapcore.NewJSONEncoder(encoderConfig())
	low := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return level.Enabled(l) && l < zapcore.ErrorLevel
	})
	high := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return level.Enabled(l) && l >= zapcore.ErrorLevel
	})
	return []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), low),
		zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), high),
	}
}

// NewLogger creates a console logger
func NewLogger(minLevel LogLevel) *Logger {
	level := zap.NewAtomicLevelAt(minLevel.zapLevel())
	return build(level, stdCores(level), nil)
}

// New creates a logger from configuration
func New(cfg Config) (*Logger, error) {
	minLevel, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	level := zap.NewAtomicLevelAt(minLevel.zapLevel())
	cores := stdCores(level)

	var closer func() error
	if cfg.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		file := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), zapcore.AddSync(file), level))
		closer = file.Close
	}

	return build(level, cores, closer), nil
}

// NewNop returns a logger that discards everything
func NewNop() *Logger {
	nop := zap.NewNop()
	return &Logger{level: zap.NewAtomicLevel(), zl: nop}
}

func toZapFields(context []Fields) []zap.Field {
	if len(context) == 0 || len(context[0]) == 0 {
		return nil
	}
	ctx := context[0]
	keys := make([]string, 0, len(ctx))
	for k := range ctx {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		if err, ok := ctx[k].(error); ok {
			fields = append(fields, zap.String(k, err.Error()))
			continue
		}
		fields = append(fields, zap.Any(k, ctx[k]))
	}
	return fields
}

func (l *Logger) log(level LogLevel, message string, context []Fields) {
	if ce := l.zl.Check(level.zapLevel(), message); ce != nil {
		ce.Write(toZapFields(context)...)
	}
}

// Debug logs a debug message
func (l *Logger) Debug(message string, context ...Fields) {
	l.log(DEBUG, message, context)
}

// Info logs an info message
func (l *Logger) Info(message string, context ...Fields) {
	l.log(INFO, message, context)
}

// Warn logs a warning message
func (l *Logger) Warn(message string, context ...Fields) {
	l.log(WARN, message, context)
}

// Error logs an error message
func (l *Logger) Error(message string, context ...Fields) {
	l.log(ERROR, message, context)
}

// SetMinLevel changes the minimum level at runtime
func (l *Logger) SetMinLevel(level LogLevel) {
	l.level.SetLevel(level.zapLevel())
}

// Sync flushes buffered entries and closes the rotated file, if any
func (l *Logger) Sync() error {
	_ = l.zl.Sync()
	if l.closer != nil {
		return l.closer()
	}
	return nil
}

// Default logger instance (INFO level)
var defaultLogger = NewLogger(INFO)

// Init replaces the default logger
func Init(cfg Config) error {
	l, err := New(cfg)
	if err != nil {
		return err
	}
	defaultLogger = l
	return nil
}

// SetDefault replaces the default logger with l
func SetDefault(l *Logger) {
	defaultLogger = l
}

// Default returns the logger used by the package-level functions
func Default() *Logger {
	return defaultLogger
}

// Debug logs a debug message using the default logger
func Debug(message string, context ...Fields) {
	defaultLogger.log(DEBUG, message, context)
}

// Info logs an info message using the default logger
func Info(message string, context ...Fields) {
	defaultLogger.log(INFO, message, context)
}

// Warn logs a warning message using the default logger
func Warn(message string, context ...Fields) {
	defaultLogger.log(WARN, message, context)
}

// Error logs an error message using the default logger
func Error(message string, context ...Fields) {
	defaultLogger.log(ERROR, message, context)
}

// SetMinLevel sets the minimum log level for the default logger
func SetMinLevel(level LogLevel) {
	defaultLogger.SetMinLevel(level)
}

// Sync flushes the default logger
func Sync() error {
	return defaultLogger.Sync()
}
