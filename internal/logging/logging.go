// Package logging configures the process-wide standard logger.
//
// Call sites use log.Printf with a bracketed level tag, for example
// log.Printf("[DEBUG] Task %s progress: %.0f%%", id, p*100). Init installs a
// writer that drops lines tagged below the configured level.
package logging

import (
	"bytes"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// Level is a log severity
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	initOnce sync.Once
	active   *levelWriter
)

// ParseLevel converts a level name into a Level, defaulting to info
func ParseLevel(name string) Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
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

// Init configures the standard logger once. Later calls are no-ops.
func Init(level string) {
	InitWithWriter(level, os.Stderr)
}

// InitWithWriter is Init with an explicit destination
func InitWithWriter(level string, out io.Writer) {
	initOnce.Do(func() {
		active = &levelWriter{out: out, min: ParseLevel(level)}
		log.SetOutput(active)
		log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	})
}

// Enabled reports whether a level would currently be written
func Enabled(level Level) bool {
	if active == nil {
		return true
	}
	active.mu.Lock()
	defer active.mu.Unlock()
	return level >= active.min
}

// levelWriter filters formatted log lines by their [LEVEL] tag
type levelWriter struct {
	mu  sync.Mutex
	out io.Writer
	min Level
}

func (w *levelWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if lineLevel(p) < w.min {
		return len(p), nil
	}
	return w.out.Write(p)
}

// lineLevel finds the first bracketed level tag in a log line. Untagged lines count as info.
func lineLevel(p []byte) Level {
	start := bytes.IndexByte(p, '[')
	if start < 0 {
		return LevelInfo
	}
	end := bytes.IndexByte(p[start:], ']')
	if end < 0 {
		return LevelInfo
	}
	switch string(p[start+1 : start+end]) {
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}
