package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// ProgressCallback reports progress across a batch of images.
type ProgressCallback interface {
	// OnStart is called when processing begins with the total number of items.
	OnStart(total int)

	// OnProgress is called after each item with current progress.
	OnProgress(current, total int)

	// OnComplete is called when processing is finished.
	OnComplete()

	// OnError is called when an item fails.
	OnError(current int, err error)
}

// ConsoleProgressCallback draws a one-line progress bar.
type ConsoleProgressCallback struct {
	writer    io.Writer
	prefix    string
	width     int
	mutex     sync.Mutex
	startTime time.Time
}

// NewConsoleProgressCallback creates a new console progress reporter.
func NewConsoleProgressCallback(writer io.Writer, prefix string) *ConsoleProgressCallback {
	if writer == nil {
		writer = os.Stderr
	}
	return &ConsoleProgressCallback{writer: writer, prefix: prefix, width: 30}
}

func (c *ConsoleProgressCallback) OnStart(total int) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.startTime = time.Now()
	_, _ = fmt.Fprintf(c.writer, "%s0/%d\n", c.prefix, total)
}

func (c *ConsoleProgressCallback) OnProgress(current, total int) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if total <= 0 {
		return
	}
	filled := c.width * current / total
	bar := strings.Repeat("#", filled) + strings.Repeat(".", c.width-filled)
	_, _ = fmt.Fprintf(c.writer, "\r%s[%s] %d/%d", c.prefix, bar, current, total)
}

func (c *ConsoleProgressCallback) OnComplete() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	elapsed := time.Since(c.startTime)
	_, _ = fmt.Fprintf(c.writer, "\n%sCompleted in %v\n", c.prefix, elapsed.Round(time.Millisecond))
}

func (c *ConsoleProgressCallback) OnError(current int, err error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	_, _ = fmt.Fprintf(c.writer, "\n%sError at item %d: %v\n", c.prefix, current, err)
}

// PassPrinter is an Observer that writes one line per pass.
type PassPrinter struct {
	W io.Writer
}

// OnPass implements Observer.
func (p PassPrinter) OnPass(ev PassEvent) {
	_, _ = fmt.Fprintf(p.W, "pass %d: moved %d, corners %s, %v\n",
		ev.Pass, ev.Changed, formatInts(ev.Corners), ev.Duration.Round(time.Microsecond))
}

// LogObserver logs every pass at the given level.
type LogObserver struct {
	Logger *slog.Logger
	Level  slog.Level
}

// OnPass implements Observer.
func (l LogObserver) OnPass(ev PassEvent) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Log(context.Background(), l.Level, "pass completed",
		"pass", ev.Pass,
		"changed", ev.Changed,
		"corners", len(ev.Corners),
		"duration", ev.Duration,
	)
}

// MultiObserver fans one event out to several observers in order.
type MultiObserver []Observer

// OnPass implements Observer.
func (m MultiObserver) OnPass(ev PassEvent) {
	for _, o := range m {
		if o != nil {
			o.OnPass(ev)
		}
	}
}
