package batch

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ProgressCallback receives per-image progress during a run.
type ProgressCallback interface {
	// OnStart is called once with the number of images found.
	OnStart(total int)

	// OnImage is called before image current (1-based) is processed.
	OnImage(current, total int, path string)

	// OnError is called for a non-fatal per-image failure.
	OnError(current int, path string, err error)

	// OnComplete is called when the run is finished.
	OnComplete()
}

// NoOpProgressCallback implements ProgressCallback but does nothing.
type NoOpProgressCallback struct{}

func (NoOpProgressCallback) OnStart(int)                {}
func (NoOpProgressCallback) OnImage(int, int, string)   {}
func (NoOpProgressCallback) OnError(int, string, error) {}
func (NoOpProgressCallback) OnComplete()                {}

// ConsoleProgressCallback prints one line per image.
type ConsoleProgressCallback struct {
	writer    io.Writer
	mutex     sync.Mutex
	startTime time.Time
}

// NewConsoleProgressCallback creates a console reporter writing to writer
// (stdout when nil).
func NewConsoleProgressCallback(writer io.Writer) *ConsoleProgressCallback {
	if writer == nil {
		writer = os.Stdout
	}
	return &ConsoleProgressCallback{writer: writer}
}

func (c *ConsoleProgressCallback) OnStart(int) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.startTime = time.Now()
}

func (c *ConsoleProgressCallback) OnImage(current, total int, path string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	_, _ = fmt.Fprintf(c.writer, "Processing image %d/%d: %s\n", current, total, filepath.Base(path))
}

func (c *ConsoleProgressCallback) OnError(int, string, error) {}

func (c *ConsoleProgressCallback) OnComplete() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	elapsed := time.Since(c.startTime)
	_, _ = fmt.Fprintf(c.writer, "Completed in %v\n", elapsed.Round(time.Millisecond))
}

// LogProgressCallback logs progress with slog.
type LogProgressCallback struct {
	logger    *slog.Logger
	startTime time.Time
}

// NewLogProgressCallback creates a log-based reporter.
func NewLogProgressCallback(logger *slog.Logger) *LogProgressCallback {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogProgressCallback{logger: logger}
}

func (l *LogProgressCallback) OnStart(total int) {
	l.startTime = time.Now()
	l.logger.Info("starting batch", "images", total)
}

func (l *LogProgressCallback) OnImage(current, total int, path string) {
	l.logger.Debug("processing image", "current", current, "total", total, "file", path)
}

func (l *LogProgressCallback) OnError(current int, path string, err error) {
	l.logger.Warn("image processing problem", "current", current, "file", path, "error", err)
}

func (l *LogProgressCallback) OnComplete() {
	l.logger.Info("batch completed", "elapsed", time.Since(l.startTime).Round(time.Millisecond))
}

// MultiProgressCallback fans out to several callbacks.
type MultiProgressCallback struct {
	callbacks []ProgressCallback
}

// NewMultiProgressCallback combines callbacks.
func NewMultiProgressCallback(callbacks ...ProgressCallback) *MultiProgressCallback {
	return &MultiProgressCallback{callbacks: callbacks}
}

func (m *MultiProgressCallback) OnStart(total int) {
	for _, cb := range m.callbacks {
		cb.OnStart(total)
	}
}

func (m *MultiProgressCallback) OnImage(current, total int, path string) {
	for _, cb := range m.callbacks {
		cb.OnImage(current, total, path)
	}
}

func (m *MultiProgressCallback) OnError(current int, path string, err error) {
	for _, cb := range m.callbacks {
		cb.OnError(current, path, err)
	}
}

func (m *MultiProgressCallback) OnComplete() {
	for _, cb := range m.callbacks {
		cb.OnComplete()
	}
}
