package runlog

import (
	"fmt"
	"strings"
	"time"
)

// Log is the append-only record of one run. It is owned exclusively by
// the in-flight run and flushed to the settings store at run end.
type Log struct {
	lines []string
	now   func() time.Time
}

func New() *Log {
	return &Log{now: time.Now}
}

// Append adds one timestamped line.
func (l *Log) Append(msg string) {
	l.lines = append(l.lines, fmt.Sprintf("[%s] %s", l.now().Format("2006-01-02 15:04:05"), msg))
}

// Appendf is Append with formatting.
func (l *Log) Appendf(format string, args ...any) {
	l.Append(fmt.Sprintf(format, args...))
}

// Len returns the number of appended lines.
func (l *Log) Len() int {
	return len(l.lines)
}

// String renders the log as the blob persisted at run end.
func (l *Log) String() string {
	return strings.Join(l.lines, "\n")
}
