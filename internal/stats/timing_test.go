package stats

import (
	"sync"
	"testing"
	"time"
)

func TestTimings_Summary(t *testing.T) {
	tm := NewTimings(0.01)
	for i := 1; i <= 100; i++ {
		tm.Observe(PhaseLevel, time.Duration(i)*time.Millisecond)
	}

	got := tm.Summaries()
	if len(got) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(got))
	}
	s := got[0]

	if s.Phase != PhaseLevel || s.Count != 100 {
		t.Errorf("summary = %+v", s)
	}
	if s.Min != time.Millisecond || s.Max != 100*time.Millisecond {
		t.Errorf("min/max = %v/%v", s.Min, s.Max)
	}
	if diff := s.Avg - 50500*time.Microsecond; diff < -time.Microsecond || diff > time.Microsecond {
		t.Errorf("avg = %v, want 50.5ms", s.Avg)
	}

	tests := []struct {
		name string
		got  time.Duration
		want time.Duration
	}{
		{"p50", s.P50, 50 * time.Millisecond},
		{"p90", s.P90, 90 * time.Millisecond},
		{"p99", s.P99, 99 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// 1% relative accuracy plus one rank of slack.
			tolerance := tt.want/50 + time.Millisecond
			if d := tt.got - tt.want; d < -tolerance || d > tolerance {
				t.Errorf("%s = %v, want %v ± %v", tt.name, tt.got, tt.want, tolerance)
			}
		})
	}
}

func TestTimings_SortedPhases(t *testing.T) {
	tm := NewTimings(0)
	tm.Observe(PhaseMosaic, time.Second)
	tm.Observe(PhaseLevel, time.Second)

	got := tm.Summaries()
	if len(got) != 2 || got[0].Phase != PhaseLevel || got[1].Phase != PhaseMosaic {
		t.Errorf("phases = %+v", got)
	}
}

func TestTimings_Merge(t *testing.T) {
	a := NewTimings(0.01)
	b := NewTimings(0.01)
	a.Observe(PhaseMosaic, 10*time.Millisecond)
	b.Observe(PhaseMosaic, 30*time.Millisecond)
	b.Observe(PhaseLevel, 5*time.Millisecond)

	a.Merge(b)
	a.Merge(a)
	a.Merge(nil)

	got := a.Summaries()
	if len(got) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(got))
	}
	mosaic := got[1]
	if mosaic.Count != 2 || mosaic.Min != 10*time.Millisecond || mosaic.Max != 30*time.Millisecond {
		t.Errorf("merged mosaic = %+v", mosaic)
	}
}

func TestTimings_Concurrent(t *testing.T) {
	tm := NewTimings(0.01)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tm.Time(PhaseLevel)()
			}
		}()
	}
	wg.Wait()

	if got := tm.Summaries()[0].Count; got != 800 {
		t.Errorf("count = %d, want 800", got)
	}
}

func TestTimings_Nil(t *testing.T) {
	var tm *Timings
	tm.Observe(PhaseLevel, time.Second)
	if tm.Summaries() != nil {
		t.Error("nil Timings should have no summaries")
	}
}
