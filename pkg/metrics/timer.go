package metrics

import (
	"context"
	"time"

	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
)

// Float64Timer records durations in milliseconds.
type Float64Timer struct {
	measureMs *stats.Float64Measure
	view      *view.View
}

// NewTimerMs creates a timer whose view is a millisecond distribution.
func NewTimerMs(name, desc string) *Float64Timer {
	fMeasure := stats.Float64(name, desc, stats.UnitMilliseconds)
	fView := &view.View{
		Name:        name,
		Measure:     fMeasure,
		Description: desc,
		Aggregation: view.Distribution(0, 1, 2, 5, 10, 20, 50, 100, 200, 500, 1000, 2000, 5000),
	}
	if err := view.Register(fView); err != nil {
		panic(err)
	}
	return &Float64Timer{measureMs: fMeasure, view: fView}
}

// Start starts a stopwatch for one observation.
func (t *Float64Timer) Start(_ context.Context) *Stopwatch {
	return &Stopwatch{start: time.Now(), recorder: t.measureMs}
}

// Stopwatch is one running observation of a Float64Timer.
type Stopwatch struct {
	start    time.Time
	recorder *stats.Float64Measure
}

// Stop records the elapsed time and returns it.
func (sw *Stopwatch) Stop(ctx context.Context) time.Duration {
	d := time.Since(sw.start)
	stats.Record(ctx, sw.recorder.M(float64(d)/float64(time.Millisecond)))
	return d
}
