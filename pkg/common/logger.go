package common

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogFileOptions controls the rotated JSON log file. Zero values fall back
// to the defaults below.
type LogFileOptions struct {
	Dir        string
	FileName   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

var (
	logger      *zap.Logger
	once        sync.Once
	fileOptions = LogFileOptions{
		FileName:   "sos-agent.log",
		MaxSizeMB:  10,
		MaxBackups: 5,
		MaxAgeDays: 28,
	}
)

// SetLogFileOptions must be called before the first GetLogger call to take
// effect.
func SetLogFileOptions(opts LogFileOptions) {
	if opts.Dir != "" {
		fileOptions.Dir = opts.Dir
	}
	if opts.FileName != "" {
		fileOptions.FileName = opts.FileName
	}
	if opts.MaxSizeMB > 0 {
		fileOptions.MaxSizeMB = opts.MaxSizeMB
	}
	if opts.MaxBackups > 0 {
		fileOptions.MaxBackups = opts.MaxBackups
	}
	if opts.MaxAgeDays > 0 {
		fileOptions.MaxAgeDays = opts.MaxAgeDays
	}
}

func getLogger() *zap.Logger {
	if logger == nil {
		initLogger()
	}
	return logger
}

func GetLogger() *zap.Logger {
	logger = getLogger()
	return logger.Named("default")
}

func GetLoggerWith(name string, fields ...zap.Field) *zap.Logger {
	logger = getLogger()
	return logger.Named(name).With(fields...)
}

// GetCategoryLogger is the common shape used across the core: a named
// logger tagged with a category field.
func GetCategoryLogger(name string, category string) *zap.Logger {
	return GetLoggerWith(name, zap.String(LoggerFieldSosCategory, category))
}

func initLogger() {
	once.Do(func() {
		logsDir := fileOptions.Dir
		if logsDir == "" {
			dir, err := os.Getwd()
			if err != nil {
				log.Fatalf("Error getting current directory: %v", err)
			}
			logsDir = fmt.Sprintf("%s/logs", dir)
		}

		if err := os.MkdirAll(logsDir, os.ModePerm); err != nil {
			log.Fatalf("Error find/create logs directory: %v", err)
		}

		logFile := &lumberjack.Logger{
			Filename:   fmt.Sprintf("%s/%s", logsDir, fileOptions.FileName),
			MaxSize:    fileOptions.MaxSizeMB,
			MaxBackups: fileOptions.MaxBackups,
			MaxAge:     fileOptions.MaxAgeDays,
			Compress:   true,
		}

		encoderCfg := zap.NewProductionEncoderConfig()
		encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

		fileCore := zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderCfg),
			zapcore.AddSync(logFile),
			zap.InfoLevel,
		)

		if IsProduction() {
			logger = zap.New(fileCore, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
			return
		}

		consoleEncoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		consoleCore := zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stdout), zap.DebugLevel)
		logger = zap.New(zapcore.NewTee(fileCore, consoleCore), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	})
}

// SetTestCaptureLogger swaps the root logger for one writing JSON lines
// into buf.
func SetTestCaptureLogger(buf *bytes.Buffer, level zapcore.Level) {
	_ = GetLogger()

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(&lockedBuffer{buf: buf}), level)
	logger = zap.New(core)
}

func SetTestLoggerNop() {
	_ = GetLogger()

	logger = zap.NewNop()
}

// lockedBuffer lets worker goroutines log into a test buffer safely.
type lockedBuffer struct {
	mu  sync.Mutex
	buf *bytes.Buffer
}

func (l *lockedBuffer) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.Write(p)
}
