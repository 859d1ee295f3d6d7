package monitor

import (
	"sync"
	"time"
)

type MetricsCollector interface {
	Record(metrics RequestMetrics)
	Summary() Summary
}

type aggregate struct {
	requests  int
	errors    int
	tokensIn  int
	tokensOut int
	results   int
	duration  time.Duration
}

// InMemoryCollector keeps running totals per operation. It is safe for
// concurrent use.
type InMemoryCollector struct {
	mu        sync.RWMutex
	ops       map[string]*aggregate
	startTime time.Time
}

func NewInMemoryCollector() *InMemoryCollector {
	return &InMemoryCollector{
		ops:       make(map[string]*aggregate),
		startTime: time.Now(),
	}
}

func (c *InMemoryCollector) Record(m RequestMetrics) {
	c.mu.Lock()
	defer c.mu.Unlock()

	agg, ok := c.ops[m.Operation]
	if !ok {
		agg = &aggregate{}
		c.ops[m.Operation] = agg
	}
	agg.requests++
	if !m.Success {
		agg.errors++
	}
	agg.tokensIn += m.TokensIn
	agg.tokensOut += m.TokensOut
	agg.results += m.Results
	agg.duration += m.Duration
}

func (c *InMemoryCollector) Summary() Summary {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Summary{
		Operations: make(map[string]OperationSummary, len(c.ops)),
		StartTime:  c.startTime,
		EndTime:    time.Now(),
	}

	var total time.Duration
	for name, agg := range c.ops {
		s.TotalRequests += agg.requests
		s.TotalErrors += agg.errors
		s.TotalTokens += agg.tokensIn + agg.tokensOut
		total += agg.duration

		s.Operations[name] = OperationSummary{
			Requests:     agg.requests,
			Errors:       agg.errors,
			TokensIn:     agg.tokensIn,
			TokensOut:    agg.tokensOut,
			AvgLatencyMs: avgMs(agg.duration, agg.requests),
			AvgResults:   float64(agg.results) / float64(agg.requests),
		}
	}
	s.AvgLatencyMs = avgMs(total, s.TotalRequests)
	return s
}

func (c *InMemoryCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ops = make(map[string]*aggregate)
	c.startTime = time.Now()
}

func avgMs(d time.Duration, n int) float64 {
	if n == 0 {
		return 0
	}
	return float64(d.Milliseconds()) / float64(n)
}

type NoOpCollector struct{}

func NewNoOpCollector() *NoOpCollector {
	return &NoOpCollector{}
}

func (c *NoOpCollector) Record(metrics RequestMetrics) {}

func (c *NoOpCollector) Summary() Summary {
	return Summary{Operations: map[string]OperationSummary{}}
}
