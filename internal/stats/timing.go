// Package stats collects duration statistics of import phases.
package stats

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/DataDog/sketches-go/ddsketch"

	"github.com/xtxerr/volimport/config"
)

// Phase names observed by the importer.
const (
	PhaseLevel  = "level"
	PhaseMosaic = "mosaic"
)

// Summary is the aggregate of all durations observed for one phase.
type Summary struct {
	Phase string
	Count int64
	Sum   time.Duration
	Min   time.Duration
	Max   time.Duration
	Avg   time.Duration

	// Percentiles are zero when the sketch could not be created.
	P50 time.Duration
	P90 time.Duration
	P99 time.Duration
}

// series maintains running statistics of one phase. Values are seconds.
type series struct {
	count  int64
	sum    float64
	min    float64
	max    float64
	sketch *ddsketch.DDSketch
}

func newSeries(accuracy float64) *series {
	s := &series{
		min: math.MaxFloat64,
		max: -math.MaxFloat64,
	}
	if sketch, err := ddsketch.NewDefaultDDSketch(accuracy); err == nil {
		s.sketch = sketch
	}
	return s
}

func (s *series) add(v float64) {
	s.count++
	s.sum += v
	if v < s.min {
		s.min = v
	}
	if v > s.max {
		s.max = v
	}
	if s.sketch != nil {
		_ = s.sketch.Add(v)
	}
}

// Timings aggregates durations per phase. It is safe for concurrent use.
type Timings struct {
	mu       sync.Mutex
	accuracy float64
	series   map[string]*series
}

// NewTimings creates a collector with the given relative percentile
// accuracy. A non-positive accuracy uses config.DefaultSketchAccuracy.
func NewTimings(accuracy float64) *Timings {
	if accuracy <= 0 || accuracy >= 1 {
		accuracy = config.DefaultSketchAccuracy
	}
	return &Timings{
		accuracy: accuracy,
		series:   make(map[string]*series),
	}
}

// Observe records one duration for phase.
func (t *Timings) Observe(phase string, d time.Duration) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.series[phase]
	if !ok {
		s = newSeries(t.accuracy)
		t.series[phase] = s
	}
	s.add(d.Seconds())
}

// Time returns a function that records the time elapsed since Time was
// called.
//
//	defer timings.Time(stats.PhaseMosaic)()
func (t *Timings) Time(phase string) func() {
	start := time.Now()
	return func() { t.Observe(phase, time.Since(start)) }
}

// Merge folds other into t.
func (t *Timings) Merge(other *Timings) {
	if other == nil || other == t {
		return
	}
	other.mu.Lock()
	defer other.mu.Unlock()
	t.mu.Lock()
	defer t.mu.Unlock()

	for phase, o := range other.series {
		s, ok := t.series[phase]
		if !ok {
			s = newSeries(t.accuracy)
			t.series[phase] = s
		}
		s.count += o.count
		s.sum += o.sum
		s.min = math.Min(s.min, o.min)
		s.max = math.Max(s.max, o.max)
		if s.sketch != nil && o.sketch != nil {
			_ = s.sketch.MergeWith(o.sketch)
		}
	}
}

// Summaries returns one summary per observed phase, sorted by phase name.
func (t *Timings) Summaries() []Summary {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Summary, 0, len(t.series))
	for phase, s := range t.series {
		if s.count == 0 {
			continue
		}
		sum := Summary{
			Phase: phase,
			Count: s.count,
			Sum:   seconds(s.sum),
			Min:   seconds(s.min),
			Max:   seconds(s.max),
			Avg:   seconds(s.sum / float64(s.count)),
		}
		if s.sketch != nil {
			sum.P50 = quantile(s.sketch, 0.50)
			sum.P90 = quantile(s.sketch, 0.90)
			sum.P99 = quantile(s.sketch, 0.99)
		}
		out = append(out, sum)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Phase < out[j].Phase })
	return out
}

func quantile(sketch *ddsketch.DDSketch, q float64) time.Duration {
	v, err := sketch.GetValueAtQuantile(q)
	if err != nil {
		return 0
	}
	return seconds(v)
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}
