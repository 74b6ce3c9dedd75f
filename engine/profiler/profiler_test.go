package profiler

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func TestProfilerSamplesAfterInterval(t *testing.T) {
	clock := &fakeClock{t: time.Unix(100, 0)}
	p := NewProfiler(withClock(clock.now), WithInterval(time.Second))

	for range 59 {
		clock.t = clock.t.Add(10 * time.Millisecond)
		assert.False(t, p.Tick())
	}
	assert.Zero(t, p.Stats().FPS)

	clock.t = time.Unix(102, 0)
	require.True(t, p.Tick())
	assert.InDelta(t, 30.0, p.Stats().FPS, 1e-9)
	assert.Positive(t, p.Stats().SysMB)
}

func TestProfilerLogsWhenEnabled(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	clock := &fakeClock{t: time.Unix(0, 0)}

	quiet := NewProfiler(withClock(clock.now), WithLogger(logger))
	loud := NewProfiler(withClock(clock.now), WithLogger(logger), WithLogging(true))
	clock.t = clock.t.Add(2 * time.Second)

	require.True(t, quiet.Tick())
	assert.Empty(t, buf.String())

	require.True(t, loud.Tick())
	assert.Contains(t, buf.String(), "msg=profiler")
	assert.Contains(t, buf.String(), "fps=0.5")
}

func TestProfilerIntervalDefault(t *testing.T) {
	p := NewProfiler(WithInterval(0), WithLogger(nil))
	assert.Equal(t, time.Second, p.updateInterval)
	assert.NotNil(t, p.logger)
}
