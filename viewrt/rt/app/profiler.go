package app

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// smoothing weight of the newest sample in Profiler averages
const profileAlpha = 0.1

// Profiler records per-frame CPU timings of named scopes and a set of
// counters. Each scope keeps its last duration and a moving average.
type Profiler struct {
	Scopes  map[string]time.Duration
	Average map[string]time.Duration
	Counts  map[string]int
	Order   []string
	started map[string]time.Time

	now func() time.Time
}

func NewProfiler() *Profiler {
	return &Profiler{
		Scopes:  make(map[string]time.Duration),
		Average: make(map[string]time.Duration),
		Counts:  make(map[string]int),
		started: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (p *Profiler) BeginScope(name string) {
	if _, seen := p.Scopes[name]; !seen && !slices.Contains(p.Order, name) {
		p.Order = append(p.Order, name)
	}
	p.started[name] = p.now()
}

// EndScope closes a scope opened with BeginScope. Unmatched calls are ignored.
func (p *Profiler) EndScope(name string) {
	start, ok := p.started[name]
	if !ok {
		return
	}
	delete(p.started, name)
	d := p.now().Sub(start)
	p.Scopes[name] = d
	if avg, seen := p.Average[name]; seen {
		p.Average[name] = avg + time.Duration(profileAlpha*float64(d-avg))
	} else {
		p.Average[name] = d
	}
}

func (p *Profiler) SetCount(name string, count int) { p.Counts[name] = count }

func (p *Profiler) AddCount(name string, delta int) { p.Counts[name] += delta }

// GetStatsString formats timings in first-seen order, then counters by name.
func (p *Profiler) GetStatsString() string {
	var sb strings.Builder
	sb.WriteString("frame timings (last / avg):\n")
	for _, name := range p.Order {
		fmt.Fprintf(&sb, "  %-12s %7.2f ms %7.2f ms\n", name, millis(p.Scopes[name]), millis(p.Average[name]))
	}
	sb.WriteString("counters:\n")
	for _, k := range slices.Sorted(maps.Keys(p.Counts)) {
		fmt.Fprintf(&sb, "  %-12s %d\n", k, p.Counts[k])
	}
	return sb.String()
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
