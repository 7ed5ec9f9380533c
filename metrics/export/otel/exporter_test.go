package otel

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/session"
)

type fakeSource struct {
	mu       sync.RWMutex
	counters map[goSession.MetricID]uint64
	dropped  uint64
}

func (f *fakeSource) MetricsSnapshot() goSession.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := goSession.MetricsSnapshot{
		Counters:   make(map[goSession.MetricID]uint64, len(f.counters)),
		Histograms: map[goSession.MetricID][]uint64{},
	}
	for k, v := range f.counters {
		out.Counters[k] = v
	}
	return out
}

func (f *fakeSource) AuditDropped() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dropped
}

type nopStore struct{}

func (nopStore) Get(context.Context, string) (*session.Record, error) {
	return nil, session.ErrNotFound
}
func (nopStore) Save(context.Context, *session.Record, time.Duration) error   { return nil }
func (nopStore) Update(context.Context, *session.Record, time.Duration) error { return nil }
func (nopStore) Delete(context.Context, string, string) error                 { return nil }
func (nopStore) DeleteUser(context.Context, string) (int, error)              { return 0, nil }

func newTestExporter(t *testing.T) (*OTelExporter, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	exp, err := NewOTelExporter(provider.Meter("gosession-test"))
	if err != nil {
		t.Fatalf("NewOTelExporter failed: %v", err)
	}
	t.Cleanup(func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	})
	return exp, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) (metricdata.Metrics, bool) {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m, true
			}
		}
	}
	return metricdata.Metrics{}, false
}

// sumPoint returns the value of the sum data point carrying every kv.
func sumPoint(t *testing.T, rm metricdata.ResourceMetrics, name string, kv ...attribute.KeyValue) int64 {
	t.Helper()
	m, ok := findMetric(rm, name)
	if !ok {
		t.Fatalf("metric %s not collected", name)
	}
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %s is %T, want Sum[int64]", name, m.Data)
	}
	want := attribute.NewSet(kv...)
	for _, dp := range sum.DataPoints {
		if dp.Attributes.Equals(&want) {
			return dp.Value
		}
	}
	t.Fatalf("metric %s has no point with %v", name, kv)
	return 0
}

func TestExporterObservesSnapshotTotals(t *testing.T) {
	exp, reader := newTestExporter(t)
	src := &fakeSource{
		counters: map[goSession.MetricID]uint64{
			goSession.MetricLoginSuccess:      3,
			goSession.MetricLoginRateLimited:  2,
			goSession.MetricSessionRead:       10,
			goSession.MetricSessionReadShared: 4,
			goSession.MetricLogoutAll:         1,
		},
		dropped: 5,
	}
	if err := exp.Watch(src); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	rm := collect(t, reader)
	if got := sumPoint(t, rm, LoginName, attribute.String("outcome", "success")); got != 3 {
		t.Fatalf("expected 3 successful logins, got %d", got)
	}
	if got := sumPoint(t, rm, LoginName, attribute.String("outcome", "rate_limited")); got != 2 {
		t.Fatalf("expected 2 throttled logins, got %d", got)
	}
	if got := sumPoint(t, rm, SessionReadName, attribute.Bool("shared", true)); got != 4 {
		t.Fatalf("expected 4 shared reads, got %d", got)
	}
	if got := sumPoint(t, rm, SessionReadName, attribute.Bool("shared", false)); got != 6 {
		t.Fatalf("expected 6 own reads, got %d", got)
	}
	if got := sumPoint(t, rm, SessionEventName, attribute.String("event", "logout_all")); got != 1 {
		t.Fatalf("expected 1 logout-all, got %d", got)
	}
	if got := sumPoint(t, rm, AuditDroppedName); got != 5 {
		t.Fatalf("expected 5 dropped audit events, got %d", got)
	}
}

func TestExporterSharedReadsNeverExceedTotal(t *testing.T) {
	exp, reader := newTestExporter(t)
	src := &fakeSource{counters: map[goSession.MetricID]uint64{
		goSession.MetricSessionRead:       2,
		goSession.MetricSessionReadShared: 3,
	}}
	if err := exp.Watch(src); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	rm := collect(t, reader)
	if got := sumPoint(t, rm, SessionReadName, attribute.Bool("shared", true)); got != 2 {
		t.Fatalf("expected shared reads clamped to 2, got %d", got)
	}
	if got := sumPoint(t, rm, SessionReadName, attribute.Bool("shared", false)); got != 0 {
		t.Fatalf("expected 0 own reads, got %d", got)
	}
}

func TestExporterRecordsRefreshReasons(t *testing.T) {
	exp, reader := newTestExporter(t)
	ctx := context.Background()
	exp.ObserveRefresh(ctx, "")
	exp.ObserveRefresh(ctx, "rejected")
	exp.ObserveRefresh(ctx, "rejected")
	exp.ObserveRefresh(ctx, "transport")

	rm := collect(t, reader)
	if got := sumPoint(t, rm, RefreshName, attribute.String("outcome", "success")); got != 1 {
		t.Fatalf("expected 1 successful refresh, got %d", got)
	}
	rejected := sumPoint(t, rm, RefreshName,
		attribute.String("outcome", "failure"), attribute.String("reason", "rejected"))
	if rejected != 2 {
		t.Fatalf("expected 2 rejected refreshes, got %d", rejected)
	}
	transport := sumPoint(t, rm, RefreshName,
		attribute.String("outcome", "failure"), attribute.String("reason", "transport"))
	if transport != 1 {
		t.Fatalf("expected 1 transport failure, got %d", transport)
	}
}

func TestExporterReadDurationIsHistogram(t *testing.T) {
	exp, reader := newTestExporter(t)
	ctx := context.Background()
	exp.ObserveRead(ctx, 3*time.Millisecond, goSession.ReadResultOK)
	exp.ObserveRead(ctx, 40*time.Millisecond, goSession.ReadResultOK)
	exp.ObserveRead(ctx, time.Second, goSession.ReadResultError)

	rm := collect(t, reader)
	m, ok := findMetric(rm, ReadDurationName)
	if !ok {
		t.Fatalf("metric %s not collected", ReadDurationName)
	}
	if m.Unit != "s" {
		t.Fatalf("expected unit s, got %q", m.Unit)
	}
	hist, ok := m.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("metric %s is %T, want Histogram[float64]", ReadDurationName, m.Data)
	}

	okSet := attribute.NewSet(attribute.String("result", goSession.ReadResultOK))
	var found bool
	for _, dp := range hist.DataPoints {
		if !dp.Attributes.Equals(&okSet) {
			continue
		}
		found = true
		if dp.Count != 2 {
			t.Fatalf("expected 2 ok reads, got %d", dp.Count)
		}
		if len(dp.Bounds) != 7 || dp.Bounds[0] != 0.005 {
			t.Fatalf("unexpected bucket bounds %v", dp.Bounds)
		}
		if dp.BucketCounts[0] != 1 || dp.BucketCounts[3] != 1 {
			t.Fatalf("unexpected bucket counts %v", dp.BucketCounts)
		}
	}
	if !found {
		t.Fatal("expected a data point for ok reads")
	}
}

func TestExporterWiredAsEngineObserver(t *testing.T) {
	exp, reader := newTestExporter(t)
	cfg := goSession.DefaultConfig()
	cfg.Secret = "otel-test-secret-0123456789abcdef"
	cfg.Backend.BaseURL = "http://identity.test"

	engine, err := goSession.New().
		WithConfig(cfg).
		WithSessionStore(nopStore{}).
		WithMetricsEnabled(true).
		WithObserver(exp).
		Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	defer engine.Close()
	if err := exp.Watch(engine); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	if _, err := engine.Session(context.Background(), "missing"); !errors.Is(err, goSession.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}

	rm := collect(t, reader)
	m, ok := findMetric(rm, ReadDurationName)
	if !ok {
		t.Fatalf("metric %s not collected", ReadDurationName)
	}
	hist := m.Data.(metricdata.Histogram[float64])
	notFound := attribute.NewSet(attribute.String("result", goSession.ReadResultNotFound))
	if len(hist.DataPoints) != 1 || !hist.DataPoints[0].Attributes.Equals(&notFound) {
		t.Fatalf("expected one not_found read point, got %+v", hist.DataPoints)
	}
	if got := sumPoint(t, rm, SessionEventName, attribute.String("event", "not_found")); got != 1 {
		t.Fatalf("expected 1 not_found event, got %d", got)
	}
}

func TestExporterRejectsNilInputs(t *testing.T) {
	if _, err := NewOTelExporter(nil); err != ErrNilMeter {
		t.Fatalf("expected ErrNilMeter, got %v", err)
	}
	exp, _ := newTestExporter(t)
	if err := exp.Watch(nil); err != ErrNilSource {
		t.Fatalf("expected ErrNilSource, got %v", err)
	}
}

func TestExporterWatchesOneSource(t *testing.T) {
	exp, _ := newTestExporter(t)
	if err := exp.Watch(&fakeSource{}); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	if err := exp.Watch(&fakeSource{}); err != ErrAlreadyWatched {
		t.Fatalf("expected ErrAlreadyWatched, got %v", err)
	}
	if err := exp.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := exp.Watch(&fakeSource{}); err != nil {
		t.Fatalf("Watch after Close failed: %v", err)
	}
}

func TestExporterConcurrentCollectNoPanic(t *testing.T) {
	exp, reader := newTestExporter(t)
	src := &fakeSource{counters: map[goSession.MetricID]uint64{goSession.MetricSessionRead: 1}}
	if err := exp.Watch(src); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			src.mu.Lock()
			src.counters[goSession.MetricSessionRead] = v
			src.mu.Unlock()
			exp.ObserveRead(context.Background(), time.Millisecond, goSession.ReadResultOK)

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}
