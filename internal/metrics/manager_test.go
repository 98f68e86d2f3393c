package metrics

import (
	"context"
	"log/slog"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, nil))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestFuncCollector_AdaptsPlainFunction(t *testing.T) {
	var c Collector = FuncCollector(func() []Point {
		return []Point{{Name: "idle_agents", Value: 3}}
	})
	pts := c.Collect()
	if len(pts) != 1 || pts[0].Name != "idle_agents" || pts[0].Value != 3 {
		t.Errorf("unexpected points: %+v", pts)
	}
}

func TestManager_CollectsImmediatelyOnRun(t *testing.T) {
	called := make(chan struct{}, 1)
	collector := FuncCollector(func() []Point {
		select {
		case called <- struct{}{}:
		default:
		}
		return []Point{{Name: "x", Value: 1}}
	})

	m := NewManager(time.Hour, []Collector{collector}, discardLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_ = m.Run(ctx)

	select {
	case <-called:
	default:
		t.Fatal("expected Run to collect immediately before waiting for the first tick")
	}
	if len(m.Latest()) != 1 {
		t.Errorf("expected 1 latest point, got %d", len(m.Latest()))
	}
}

func TestManager_MergesMultipleCollectors(t *testing.T) {
	a := FuncCollector(func() []Point { return []Point{{Name: "a", Value: 1}} })
	b := FuncCollector(func() []Point { return []Point{{Name: "b", Value: 2}} })

	m := NewManager(time.Hour, []Collector{a, b}, discardLogger())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_ = m.Run(ctx)

	if len(m.Latest()) != 2 {
		t.Errorf("expected points from both collectors, got %+v", m.Latest())
	}
}
