package otel

import (
	"context"
	"errors"
	"sync"
	"testing"

	goAuthen "github.com/MrEthical07/goAuthen"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type fakeSource struct {
	mu       sync.RWMutex
	snapshot goAuthen.MetricsSnapshot
	dropped  uint64
}

func (f *fakeSource) MetricsSnapshot() goAuthen.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := goAuthen.MetricsSnapshot{
		Counters:   make(map[goAuthen.MetricID]uint64, len(f.snapshot.Counters)),
		Histograms: make(map[goAuthen.MetricID][]uint64, len(f.snapshot.Histograms)),
	}
	for k, v := range f.snapshot.Counters {
		out.Counters[k] = v
	}
	for k, b := range f.snapshot.Histograms {
		out.Histograms[k] = append([]uint64(nil), b...)
	}
	return out
}

func (f *fakeSource) AuditDropped() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dropped
}

func newReader() (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	reader := sdkmetric.NewManualReader()
	return reader, sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
}

func sumValue(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			switch d := m.Data.(type) {
			case metricdata.Sum[int64]:
				return d.DataPoints[0].Value
			case metricdata.Gauge[int64]:
				return d.DataPoints[0].Value
			}
		}
	}
	t.Fatalf("metric %s not collected", name)
	return 0
}

func TestExporterCollectsValues(t *testing.T) {
	reader, provider := newReader()
	src := &fakeSource{
		snapshot: goAuthen.MetricsSnapshot{
			Counters: map[goAuthen.MetricID]uint64{goAuthen.MetricLoginSuccess: 3},
			Histograms: map[goAuthen.MetricID][]uint64{
				goAuthen.MetricInitializeLatency: {1, 1, 1, 1, 1, 1, 1, 1},
			},
		},
		dropped: 1,
	}

	exp, err := NewExporterFromSource(provider.Meter("authen-test"), src)
	if err != nil {
		t.Fatalf("NewExporterFromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if got := sumValue(t, rm, "authen_login_success_total"); got != 3 {
		t.Fatalf("login success = %d, want 3", got)
	}
	if got := sumValue(t, rm, "authen_audit_dropped_total"); got != 1 {
		t.Fatalf("audit dropped = %d, want 1", got)
	}
	if got := sumValue(t, rm, "authen_initialize_latency_seconds_bucket_le_0_025"); got != 3 {
		t.Fatalf("third bucket = %d, want 3", got)
	}
	if got := sumValue(t, rm, "authen_initialize_latency_seconds_count"); got != 8 {
		t.Fatalf("count = %d, want 8", got)
	}
}

func TestExporterRejectsNilInputs(t *testing.T) {
	_, provider := newReader()
	if _, err := NewExporterFromSource(provider.Meter("authen-test"), nil); !errors.Is(err, ErrNilSource) {
		t.Fatalf("nil source error = %v", err)
	}
	if _, err := NewExporterFromSource(nil, &fakeSource{}); !errors.Is(err, ErrNilMeter) {
		t.Fatalf("nil meter error = %v", err)
	}
	if _, err := NewExporter(provider.Meter("authen-test"), nil); !errors.Is(err, ErrNilSource) {
		t.Fatalf("nil engine error = %v", err)
	}
}

func TestBoundSuffix(t *testing.T) {
	if got := boundSuffix(0); got != "0_005" {
		t.Fatalf("boundSuffix(0) = %q", got)
	}
	if got := boundSuffix(7); got != "inf" {
		t.Fatalf("boundSuffix(7) = %q", got)
	}
}

func TestExporterConcurrentCollectNoPanic(t *testing.T) {
	reader, provider := newReader()
	src := &fakeSource{snapshot: goAuthen.MetricsSnapshot{
		Counters:   map[goAuthen.MetricID]uint64{goAuthen.MetricLoginSuccess: 1},
		Histograms: map[goAuthen.MetricID][]uint64{},
	}}

	exp, err := NewExporterFromSource(provider.Meter("authen-test"), src)
	if err != nil {
		t.Fatalf("NewExporterFromSource failed: %v", err)
	}
	defer exp.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			src.mu.Lock()
			src.snapshot.Counters[goAuthen.MetricLoginSuccess] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}
