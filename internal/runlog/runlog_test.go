package runlog

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAppendOrderAndFormat(t *testing.T) {
	l := New()
	l.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	l.Append("Sync started")
	l.Appendf("Imported: '%s'", "Hello")

	require.Equal(t, 2, l.Len())
	lines := strings.Split(l.String(), "\n")
	require.Equal(t, "[2026-03-01 12:00:00] Sync started", lines[0])
	require.Equal(t, "[2026-03-01 12:00:00] Imported: 'Hello'", lines[1])
}

func TestEmptyLog(t *testing.T) {
	l := New()
	require.Zero(t, l.Len())
	require.Empty(t, l.String())
}
