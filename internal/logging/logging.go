package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps a config string to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

type Logger struct {
	LogToFile bool
	LogFile   *os.File // set when LogToFile is true
	Level     Level
	Out       io.Writer // console output, stdout when nil

	mu sync.Mutex
}

func NewLogger() *Logger {
	logFile := os.Getenv("KEK_LOG")
	if logFile != "" {
		dir := filepath.Dir(logFile)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			panic(err)
		}

		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			panic(err)
		}
		return &Logger{
			LogToFile: true,
			LogFile:   file,
			Level:     LevelInfo,
		}
	}

	return &Logger{Level: LevelInfo}
}

func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	l.Level = level
	l.mu.Unlock()
}

func (l *Logger) HandleMessage(message string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.LogToFile {
		stamped := time.Now().Format(time.RFC3339) + " " + message + "\n"
		if _, err := l.LogFile.WriteString(stamped); err != nil {
			panic(err)
		}
		return
	}
	out := l.Out
	if out == nil {
		out = os.Stdout
	}
	fmt.Fprintln(out, message)
}

func (l *Logger) log(level Level, prefix, color, message string) {
	l.mu.Lock()
	threshold := l.Level
	l.mu.Unlock()
	if level < threshold {
		return
	}
	if l.LogToFile {
		l.HandleMessage(prefix + message)
		return
	}
	l.HandleMessage(color + prefix + message + "\033[0m")
}

func (l *Logger) Debug(message string) {
	l.log(LevelDebug, "[DEBUG] ", "\033[34m", message)
}

func (l *Logger) Info(message string) {
	l.log(LevelInfo, "[INFO] ", "\033[32m", message)
}

func (l *Logger) Warn(message string) {
	l.log(LevelWarn, "[WARN] ", "\033[33m", message)
}

func (l *Logger) Error(message string) {
	l.log(LevelError, "[ERROR] ", "\033[31m", message)
}

// Fatal logs and exits. Only main-level code calls it.
func (l *Logger) Fatal(message string) {
	if l.LogToFile {
		l.HandleMessage("[FATAL] " + message)
	} else {
		l.HandleMessage("\033[35m[FATAL] " + message + "\033[0m")
	}

	os.Exit(1)
}

var GlobalLogger = NewLogger()
