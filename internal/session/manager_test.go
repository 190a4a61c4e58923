package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"parking-garage/internal/garage"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestManager(t *testing.T, maxSessions int) (*Manager, *fakeClock) {
	t.Helper()
	m, clock, _ := newMeteredTestManager(t, maxSessions)
	return m, clock
}

func newMeteredTestManager(t *testing.T, maxSessions int) (*Manager, *fakeClock, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	tp := sdktrace.NewTracerProvider()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	telemetry := garage.NewTelemetryProviderFrom("session-test", tp, mp, nil)
	t.Cleanup(func() { _ = telemetry.Shutdown(context.Background()) })

	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	m := NewManager(telemetry, maxSessions)
	m.now = clock.Now
	return m, clock, reader
}

func occupancy(t *testing.T, reader *sdkmetric.ManualReader) int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if data, ok := m.Data.(metricdata.Sum[int64]); ok && m.Name == "garage_occupancy" {
				for _, dp := range data.DataPoints {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func TestManager_Create(t *testing.T) {
	m, clock := newTestManager(t, 10)

	s, err := m.Create(context.Background(), 4)
	require.NoError(t, err)

	assert.NotEmpty(t, s.ID)
	assert.Equal(t, clock.Now(), s.CreatedAt)
	assert.Equal(t, 1, m.Count())

	info := s.Info()
	assert.Equal(t, s.ID, info.ID)
	assert.Equal(t, 4, info.Capacity)
	assert.Equal(t, 0, info.Occupied)
}

func TestManager_CreateUniqueIDs(t *testing.T) {
	m, _ := newTestManager(t, 10)

	a, err := m.Create(context.Background(), 2)
	require.NoError(t, err)
	b, err := m.Create(context.Background(), 2)
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
}

func TestManager_CreateLimit(t *testing.T) {
	m, _ := newTestManager(t, 1)

	_, err := m.Create(context.Background(), 2)
	require.NoError(t, err)

	_, err = m.Create(context.Background(), 2)
	assert.ErrorIs(t, err, ErrTooManySessions)
	assert.Equal(t, 1, m.Count())
}

func TestManager_Get(t *testing.T) {
	m, _ := newTestManager(t, 10)
	s, err := m.Create(context.Background(), 2)
	require.NoError(t, err)

	got, err := m.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)

	_, err = m.Get("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManager_Delete(t *testing.T) {
	m, _ := newTestManager(t, 10)
	ctx := context.Background()
	s, err := m.Create(ctx, 2)
	require.NoError(t, err)

	require.NoError(t, m.Delete(ctx, s.ID))
	assert.Zero(t, m.Count())

	assert.ErrorIs(t, m.Delete(ctx, s.ID), ErrSessionNotFound)
}

func TestSession_DoFailsAfterDelete(t *testing.T) {
	m, _, reader := newMeteredTestManager(t, 10)
	ctx := context.Background()
	s, err := m.Create(ctx, 3)
	require.NoError(t, err)
	require.NoError(t, s.Do(func(g *garage.InstrumentedGarage) { g.Arrive(ctx, "A") }))

	held, err := m.Get(s.ID)
	require.NoError(t, err)
	require.NoError(t, m.Delete(ctx, s.ID))
	assert.Zero(t, occupancy(t, reader))

	called := false
	err = held.Do(func(g *garage.InstrumentedGarage) {
		called = true
		g.Arrive(ctx, "B")
	})

	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.False(t, called)
	assert.Zero(t, occupancy(t, reader))
}

func TestManager_ListOrderedByCreation(t *testing.T) {
	m, clock := newTestManager(t, 10)
	ctx := context.Background()

	var ids []string
	for range 3 {
		s, err := m.Create(ctx, 2)
		require.NoError(t, err)
		ids = append(ids, s.ID)
		clock.Advance(time.Second)
	}

	var listed []string
	for _, s := range m.List() {
		listed = append(listed, s.ID)
	}
	assert.Equal(t, ids, listed)
}

func TestSession_DoKeepsGaragesSeparate(t *testing.T) {
	m, _ := newTestManager(t, 10)
	ctx := context.Background()

	a, err := m.Create(ctx, 2)
	require.NoError(t, err)
	b, err := m.Create(ctx, 2)
	require.NoError(t, err)

	require.NoError(t, a.Do(func(g *garage.InstrumentedGarage) {
		require.True(t, g.Arrive(ctx, "ABC 123").Success)
	}))

	assert.Equal(t, 1, a.Info().Occupied)
	assert.Equal(t, 0, b.Info().Occupied)
}

func TestSession_DoSerialisesConcurrentCallers(t *testing.T) {
	m, _ := newTestManager(t, 10)
	ctx := context.Background()
	s, err := m.Create(ctx, 50)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Do(func(g *garage.InstrumentedGarage) {
				g.Arrive(ctx, garage.RandomPlate())
				if i%2 == 0 {
					snap := g.Status(ctx)
					g.Depart(ctx, snap.ParkedCars[0])
				}
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	var snap garage.Snapshot
	require.NoError(t, s.Do(func(g *garage.InstrumentedGarage) { snap = g.Status(ctx) }))
	assert.Len(t, snap.ParkedCars, 25)
}

func TestManager_EvictIdle(t *testing.T) {
	m, clock := newTestManager(t, 10)
	ctx := context.Background()

	stale, err := m.Create(ctx, 2)
	require.NoError(t, err)
	fresh, err := m.Create(ctx, 2)
	require.NoError(t, err)

	clock.Advance(20 * time.Minute)
	require.NoError(t, fresh.Do(func(*garage.InstrumentedGarage) {}))
	clock.Advance(15 * time.Minute)

	assert.Equal(t, 1, m.EvictIdle(ctx, 30*time.Minute))

	_, err = m.Get(stale.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = m.Get(fresh.ID)
	assert.NoError(t, err)
}

func TestManager_EvictIdleSkipsSessionUsedAfterCutoff(t *testing.T) {
	m, clock := newTestManager(t, 10)
	ctx := context.Background()

	s, err := m.Create(ctx, 2)
	require.NoError(t, err)

	clock.Advance(time.Hour)
	cutoff := clock.Now().Add(-30 * time.Minute)
	require.NoError(t, s.Do(func(*garage.InstrumentedGarage) {}))

	assert.False(t, s.close(ctx, cutoff))
	assert.Zero(t, m.EvictIdle(ctx, 30*time.Minute))
	_, err = m.Get(s.ID)
	assert.NoError(t, err)
}

func TestManager_EvictIdleClosesSession(t *testing.T) {
	m, clock := newTestManager(t, 10)
	ctx := context.Background()

	s, err := m.Create(ctx, 2)
	require.NoError(t, err)
	clock.Advance(time.Hour)

	assert.Equal(t, 1, m.EvictIdle(ctx, 30*time.Minute))
	assert.ErrorIs(t, s.Do(func(*garage.InstrumentedGarage) {}), ErrSessionNotFound)
	assert.ErrorIs(t, m.Delete(ctx, s.ID), ErrSessionNotFound)
}

func TestManager_RunStopsWithContext(t *testing.T) {
	m, _ := newTestManager(t, 10)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		m.Run(ctx, time.Millisecond, time.Hour)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
