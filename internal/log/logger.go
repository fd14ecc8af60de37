// Package log is the process-wide leveled logger.
//
// Call sites pass a message followed by alternating key/value pairs:
//
//	log.Info("admin registered", "id", a.ID, "email", a.Email)
//
// Pairs are attached as logrus fields. A trailing key without a value is
// recorded under "extra".
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Options configures the global logger at startup.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // text or json
	File   string // optional; rotated with lumberjack
	Stdout bool   // also write to stdout when File is set
}

// Logger wraps a logrus logger with the level gate used by this package.
type Logger struct {
	mu     sync.Mutex
	level  Level
	writer io.Writer
	entry  *logrus.Logger
}

var globalLogger = newLogger(os.Stdout, LevelInfo)

func newLogger(w io.Writer, level Level) *Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(logrus.TraceLevel)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return &Logger{level: level, writer: w, entry: l}
}

// Setup applies opts to the global logger.
func Setup(opts Options) {
	globalLogger.mu.Lock()
	defer globalLogger.mu.Unlock()

	globalLogger.level = ParseLevel(opts.Level)

	if strings.EqualFold(opts.Format, "json") {
		globalLogger.entry.SetFormatter(&logrus.JSONFormatter{})
	}

	if opts.File == "" {
		return
	}

	rotated := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    50, // megabytes
		MaxBackups: 10,
		Compress:   true,
	}
	var w io.Writer = rotated
	if opts.Stdout {
		w = io.MultiWriter(os.Stdout, rotated)
	}
	globalLogger.writer = w
	globalLogger.entry.SetOutput(w)
}

// ParseLevel maps a level name to a Level. Unknown names mean info.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func Debug(msg string, args ...interface{}) {
	globalLogger.log(LevelDebug, msg, args...)
}

func Info(msg string, args ...interface{}) {
	globalLogger.log(LevelInfo, msg, args...)
}

func Warn(msg string, args ...interface{}) {
	globalLogger.log(LevelWarn, msg, args...)
}

func Error(msg string, args ...interface{}) {
	globalLogger.log(LevelError, msg, args...)
}

func SetLevel(level Level) {
	globalLogger.SetLevel(level)
}

func SetWriter(w io.Writer) {
	globalLogger.SetWriter(w)
}

func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *Logger) SetWriter(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writer = w
	l.entry.SetOutput(w)
}

func (l *Logger) log(level Level, msg string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}

	entry := logrus.NewEntry(l.entry)
	if len(args) > 0 {
		entry = entry.WithFields(fields(args))
	}

	switch level {
	case LevelDebug:
		entry.Debug(msg)
	case LevelInfo:
		entry.Info(msg)
	case LevelWarn:
		entry.Warn(msg)
	case LevelError:
		entry.Error(msg)
	}
}

func fields(args []interface{}) logrus.Fields {
	f := make(logrus.Fields, len(args)/2+1)
	for i := 0; i < len(args); i += 2 {
		if i+1 >= len(args) {
			f["extra"] = args[i]
			break
		}
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprint(args[i])
		}
		f[key] = args[i+1]
	}
	return f
}
