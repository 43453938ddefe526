package pipeline

import (
	"slices"
	"sync"
	"time"
)

// ParseSample is one finished parse.
type ParseSample struct {
	Duration time.Duration
	Pages    int
	Issues   int
	Failed   bool
}

type timedSample struct {
	at time.Time
	ParseSample
}

// StatsSnapshot aggregates the parses inside the window. Latency figures
// cover successful parses only.
type StatsSnapshot struct {
	Count    int     `json:"count"`
	Failures int     `json:"failures"`
	Pages    int     `json:"pages"`
	Issues   int     `json:"issues"`
	MinMs    int64   `json:"min_ms"`
	MaxMs    int64   `json:"max_ms"`
	AvgMs    float64 `json:"avg_ms"`
	P50Ms    float64 `json:"p50_ms"`
	P95Ms    float64 `json:"p95_ms"`
	P99Ms    float64 `json:"p99_ms"`
}

// Stats keeps parse samples for a rolling window.
type Stats struct {
	window time.Duration

	mu      sync.Mutex
	samples []timedSample
}

func NewStats(window time.Duration) *Stats {
	if window <= 0 {
		window = time.Hour
	}
	return &Stats{window: window}
}

func (s *Stats) Record(sm ParseSample) {
	now := time.Now()
	sm.Duration = max(sm.Duration, 0)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.prune(now)
	s.samples = append(s.samples, timedSample{at: now, ParseSample: sm})
}

func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	s.prune(time.Now())
	samples := slices.Clone(s.samples)
	s.mu.Unlock()

	var snap StatsSnapshot
	var ms []int64
	for _, sm := range samples {
		if sm.Failed {
			snap.Failures++
			continue
		}
		snap.Pages += sm.Pages
		snap.Issues += sm.Issues
		ms = append(ms, sm.Duration.Milliseconds())
	}
	snap.Count = len(ms)
	if snap.Count == 0 {
		return snap
	}

	slices.Sort(ms)
	var sum int64
	for _, v := range ms {
		sum += v
	}
	snap.MinMs = ms[0]
	snap.MaxMs = ms[len(ms)-1]
	snap.AvgMs = float64(sum) / float64(len(ms))
	snap.P50Ms = percentile(ms, 50)
	snap.P95Ms = percentile(ms, 95)
	snap.P99Ms = percentile(ms, 99)
	return snap
}

func (s *Stats) prune(now time.Time) {
	cutoff := now.Add(-s.window)
	i, _ := slices.BinarySearchFunc(s.samples, cutoff, func(sm timedSample, t time.Time) int {
		return sm.at.Compare(t)
	})
	s.samples = slices.Delete(s.samples, 0, i)
}

// percentile interpolates linearly between the two nearest ranks of sorted.
func percentile(sorted []int64, pct float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := float64(len(sorted)-1) * min(max(pct, 0), 100) / 100
	lo := int(rank)
	if lo >= len(sorted)-1 {
		return float64(sorted[len(sorted)-1])
	}
	frac := rank - float64(lo)
	return float64(sorted[lo]) + float64(sorted[lo+1]-sorted[lo])*frac
}
