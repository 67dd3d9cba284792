package metrics

import (
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/saiset-co/sai-freshness/types"
)

// MemoryMetrics is a dependency-free recorder for hosts without a metrics
// pipeline and for tests that assert on recorded values.
type MemoryMetrics struct {
	logger     types.Logger
	counters   sync.Map
	gauges     sync.Map
	histograms sync.Map
	running    int32
}

func NewMemoryMetrics(logger types.Logger) types.MetricsManager {
	return &MemoryMetrics{logger: logger}
}

func (m *MemoryMetrics) Start() error {
	if !atomic.CompareAndSwapInt32(&m.running, 0, 1) {
		return types.ErrServiceAlreadyRunning
	}
	return nil
}

func (m *MemoryMetrics) Stop() error {
	if !atomic.CompareAndSwapInt32(&m.running, 1, 0) {
		return types.ErrServiceNotRunning
	}
	return nil
}

func (m *MemoryMetrics) IsRunning() bool {
	return atomic.LoadInt32(&m.running) == 1
}

func (m *MemoryMetrics) Counter(name string, labels map[string]string) types.Counter {
	value, _ := m.counters.LoadOrStore(seriesKey(name, labels), &MemoryCounter{})
	return value.(*MemoryCounter)
}

func (m *MemoryMetrics) Gauge(name string, labels map[string]string) types.Gauge {
	value, _ := m.gauges.LoadOrStore(seriesKey(name, labels), &MemoryGauge{})
	return value.(*MemoryGauge)
}

func (m *MemoryMetrics) Histogram(name string, buckets []float64, labels map[string]string) types.Histogram {
	value, _ := m.histograms.LoadOrStore(seriesKey(name, labels), &MemoryHistogram{})
	return value.(*MemoryHistogram)
}

// CounterValue returns the current value of a counter series, zero when the
// series was never touched.
func (m *MemoryMetrics) CounterValue(name string, labels map[string]string) float64 {
	if value, exists := m.counters.Load(seriesKey(name, labels)); exists {
		return value.(*MemoryCounter).Value()
	}
	return 0
}

func seriesKey(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}

	keys := make([]string, 0, len(labels))
	for key := range labels {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var builder strings.Builder
	builder.WriteString(name)
	for _, key := range keys {
		builder.WriteByte('|')
		builder.WriteString(key)
		builder.WriteByte('=')
		builder.WriteString(labels[key])
	}
	return builder.String()
}

type MemoryCounter struct {
	mu    sync.Mutex
	value float64
}

func (c *MemoryCounter) Inc() {
	c.Add(1)
}

func (c *MemoryCounter) Add(value float64) {
	c.mu.Lock()
	c.value += value
	c.mu.Unlock()
}

func (c *MemoryCounter) Value() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

type MemoryGauge struct {
	mu    sync.Mutex
	value float64
}

func (g *MemoryGauge) Set(value float64) {
	g.mu.Lock()
	g.value = value
	g.mu.Unlock()
}

func (g *MemoryGauge) Inc() {
	g.mu.Lock()
	g.value++
	g.mu.Unlock()
}

func (g *MemoryGauge) Dec() {
	g.mu.Lock()
	g.value--
	g.mu.Unlock()
}

type MemoryHistogram struct {
	mu      sync.Mutex
	samples []float64
}

func (h *MemoryHistogram) Observe(value float64) {
	h.mu.Lock()
	h.samples = append(h.samples, value)
	h.mu.Unlock()
}
