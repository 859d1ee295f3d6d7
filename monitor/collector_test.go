package monitor

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryCollector_Summary(t *testing.T) {
	c := NewInMemoryCollector()
	c.Record(RequestMetrics{Operation: "ask", TokensIn: 100, TokensOut: 20, Results: 3, Duration: 200 * time.Millisecond, Success: true})
	c.Record(RequestMetrics{Operation: "ask", TokensIn: 50, TokensOut: 10, Results: 1, Duration: 400 * time.Millisecond, Success: true})
	c.Record(RequestMetrics{Operation: "search", Duration: 30 * time.Millisecond, Error: "storage down"})

	s := c.Summary()
	assert.Equal(t, 3, s.TotalRequests)
	assert.Equal(t, 1, s.TotalErrors)
	assert.Equal(t, 180, s.TotalTokens)
	assert.InDelta(t, 210.0, s.AvgLatencyMs, 0.001)

	ask := s.Operations["ask"]
	assert.Equal(t, 2, ask.Requests)
	assert.Zero(t, ask.Errors)
	assert.InDelta(t, 300.0, ask.AvgLatencyMs, 0.001)
	assert.InDelta(t, 2.0, ask.AvgResults, 0.001)

	assert.Equal(t, 1, s.Operations["search"].Errors)
}

func TestInMemoryCollector_Empty(t *testing.T) {
	s := NewInMemoryCollector().Summary()
	assert.Zero(t, s.TotalRequests)
	assert.Zero(t, s.AvgLatencyMs)
	assert.NotNil(t, s.Operations)
}

func TestInMemoryCollector_Concurrent(t *testing.T) {
	c := NewInMemoryCollector()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Record(RequestMetrics{Operation: "ask", Success: true})
		}()
	}
	wg.Wait()

	require.Equal(t, 50, c.Summary().TotalRequests)

	c.Reset()
	assert.Zero(t, c.Summary().TotalRequests)
}
