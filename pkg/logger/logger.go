package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

// EnvLogFile overrides the JSON log file location.
const EnvLogFile = "HESTIA_LOG_FILE"

// Config selects where log entries go.
type Config struct {
	// Level is a LOG_LEVEL style string; empty means info.
	Level string
	// FilePath receives JSON entries in addition to the console. Empty
	// means the first writable platform default.
	FilePath string
	// DisableFile turns the JSON file core off entirely.
	DisableFile bool
	// Console receives human readable entries. Defaults to stderr.
	Console io.Writer
	// Terminal receives "terminal prompt:" messages as plain text. Defaults to stdout.
	Terminal io.Writer
}

var (
	mu  sync.Mutex
	log *zap.Logger
)

// Initialize builds the process logger and installs it as the zap and
// otelzap globals.
func Initialize(cfg Config) *zap.Logger {
	mu.Lock()
	defer mu.Unlock()

	level := ParseLogLevel(cfg.Level)
	console := cfg.Console
	if console == nil {
		console = os.Stderr
	}
	terminal := cfg.Terminal
	if terminal == nil {
		terminal = os.Stdout
	}

	encCfg := DefaultConsoleEncoderConfig(isTerminal(console))
	cores := []zapcore.Core{
		newTerminalConsoleCore(
			zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(zapcore.AddSync(console)), level),
			terminal,
		),
	}

	path := cfg.FilePath
	if path == "" && !cfg.DisableFile {
		path = ResolveLogPath()
	}
	if cfg.DisableFile {
		path = ""
	}
	if path != "" {
		writer, err := GetLogFileWriter(path)
		if err != nil {
			_, _ = fmt.Fprintln(os.Stderr, "⚠️  Could not write to log file, logging to console only:", err)
		} else {
			jsonCfg := zap.NewProductionEncoderConfig()
			jsonCfg.EncodeTime = zapcore.ISO8601TimeEncoder
			jsonCfg.EncodeLevel = zapcore.CapitalLevelEncoder
			cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(jsonCfg), writer, level))
		}
	}

	log = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	zap.ReplaceGlobals(log)
	otelzap.ReplaceGlobals(otelzap.New(log))

	log.Debug("Logger initialized",
		zap.String("log_level", level.String()),
		zap.String("log_path", path))
	return log
}

// L returns the process logger, initializing a console-only logger on first use.
func L() *zap.Logger {
	mu.Lock()
	l := log
	mu.Unlock()
	if l == nil {
		return Initialize(Config{Level: os.Getenv("LOG_LEVEL"), FilePath: os.Getenv(EnvLogFile)})
	}
	return l
}

// Sync flushes any buffered log entries. Should be called before the application exits.
func Sync() error {
	mu.Lock()
	defer mu.Unlock()
	if log == nil {
		return nil
	}
	return log.Sync()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
