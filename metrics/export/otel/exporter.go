package otel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/metrics/export/internaldefs"
)

var (
	ErrNilMeter       = errors.New("nil meter")
	ErrNilSource      = errors.New("nil metrics source")
	ErrAlreadyWatched = errors.New("exporter already watches a source")
)

// Instrument names. Attribute keys are documented on each instrument.
const (
	ReadDurationName = "gosession.session.read.duration"
	RefreshName      = "gosession.refresh.exchanges"
	LoginName        = "gosession.logins"
	SessionReadName  = "gosession.session.reads"
	SessionEventName = "gosession.session.events"
	AuditDroppedName = "gosession.audit.dropped"
)

var (
	attrResult  = attribute.Key("result")
	attrOutcome = attribute.Key("outcome")
	attrReason  = attribute.Key("reason")
	attrShared  = attribute.Key("shared")
	attrEvent   = attribute.Key("event")
)

type metricsSource interface {
	MetricsSnapshot() goSession.MetricsSnapshot
	AuditDropped() uint64
}

// series maps one snapshot counter to one attribute set of an instrument.
type series struct {
	id    goSession.MetricID
	attrs metric.ObserveOption
}

func seriesOf(id goSession.MetricID, kv ...attribute.KeyValue) series {
	return series{id: id, attrs: metric.WithAttributes(kv...)}
}

var loginSeries = []series{
	seriesOf(goSession.MetricLoginSuccess, attrOutcome.String("success")),
	seriesOf(goSession.MetricLoginFailure, attrOutcome.String("failure")),
	seriesOf(goSession.MetricLoginRateLimited, attrOutcome.String("rate_limited")),
}

var sessionEventSeries = []series{
	seriesOf(goSession.MetricSessionCreated, attrEvent.String("created")),
	seriesOf(goSession.MetricSessionNotFound, attrEvent.String("not_found")),
	seriesOf(goSession.MetricRefreshTokenExpired, attrEvent.String("refresh_token_expired")),
	seriesOf(goSession.MetricLogout, attrEvent.String("logout")),
	seriesOf(goSession.MetricLogoutAll, attrEvent.String("logout_all")),
}

// OTelExporter publishes session activity through an OpenTelemetry Meter.
//
// It is a [goSession.Observer]: read latency lands in a real histogram
// tagged by read result, and every refresh exchange increments a counter
// tagged by outcome and failure reason. Totals that only the Engine keeps
// (logins, session lifecycle, shared reads, dropped audit events) are
// observed from [goSession.Engine.MetricsSnapshot] once [OTelExporter.Watch]
// binds an Engine.
type OTelExporter struct {
	meter        metric.Meter
	readDuration metric.Float64Histogram
	refreshes    metric.Int64Counter

	mu           sync.Mutex
	registration metric.Registration
}

// NewOTelExporter creates the synchronous instruments on meter. Pass the
// exporter to [goSession.Builder.WithObserver] before Build, then call
// [OTelExporter.Watch] with the built Engine.
func NewOTelExporter(meter metric.Meter) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}

	bounds := append([]float64(nil), internaldefs.HistogramBounds...)
	readDuration, err := meter.Float64Histogram(ReadDurationName,
		metric.WithDescription("Session read latency, including any refresh exchange and write-back."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(bounds...),
	)
	if err != nil {
		return nil, fmt.Errorf("create histogram %s: %w", ReadDurationName, err)
	}

	refreshes, err := meter.Int64Counter(RefreshName,
		metric.WithDescription("Refresh exchanges by outcome and failure reason."),
		metric.WithUnit("{exchange}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create counter %s: %w", RefreshName, err)
	}

	return &OTelExporter{
		meter:        meter,
		readDuration: readDuration,
		refreshes:    refreshes,
	}, nil
}

// ObserveRead records one session read.
func (e *OTelExporter) ObserveRead(ctx context.Context, d time.Duration, result string) {
	e.readDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attrResult.String(result)))
}

// ObserveRefresh records one refresh exchange. An empty reason is a success.
func (e *OTelExporter) ObserveRefresh(ctx context.Context, reason string) {
	if reason == "" {
		e.refreshes.Add(ctx, 1, metric.WithAttributes(attrOutcome.String("success")))
		return
	}
	e.refreshes.Add(ctx, 1, metric.WithAttributes(
		attrOutcome.String("failure"),
		attrReason.String(reason),
	))
}

// Watch registers observable counters fed from source. An exporter watches
// at most one source; Close releases it.
func (e *OTelExporter) Watch(source metricsSource) error {
	if source == nil {
		return ErrNilSource
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.registration != nil {
		return ErrAlreadyWatched
	}

	logins, err := e.meter.Int64ObservableCounter(LoginName,
		metric.WithDescription("Login attempts by outcome."),
		metric.WithUnit("{login}"),
	)
	if err != nil {
		return fmt.Errorf("create observable counter %s: %w", LoginName, err)
	}
	reads, err := e.meter.Int64ObservableCounter(SessionReadName,
		metric.WithDescription("Session reads, split by whether another in-flight read served them."),
		metric.WithUnit("{read}"),
	)
	if err != nil {
		return fmt.Errorf("create observable counter %s: %w", SessionReadName, err)
	}
	events, err := e.meter.Int64ObservableCounter(SessionEventName,
		metric.WithDescription("Session lifecycle events."),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return fmt.Errorf("create observable counter %s: %w", SessionEventName, err)
	}
	dropped, err := e.meter.Int64ObservableCounter(AuditDroppedName,
		metric.WithDescription("Audit events dropped because the dispatcher buffer was full."),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return fmt.Errorf("create observable counter %s: %w", AuditDroppedName, err)
	}

	sharedAttr := metric.WithAttributes(attrShared.Bool(true))
	ownAttr := metric.WithAttributes(attrShared.Bool(false))

	registration, err := e.meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		snap := source.MetricsSnapshot()
		for _, s := range loginSeries {
			o.ObserveInt64(logins, int64(snap.Counters[s.id]), s.attrs)
		}
		for _, s := range sessionEventSeries {
			o.ObserveInt64(events, int64(snap.Counters[s.id]), s.attrs)
		}

		total := snap.Counters[goSession.MetricSessionRead]
		shared := snap.Counters[goSession.MetricSessionReadShared]
		// The two counters are loaded separately and may race by a few reads.
		shared = min(shared, total)
		o.ObserveInt64(reads, int64(shared), sharedAttr)
		o.ObserveInt64(reads, int64(total-shared), ownAttr)

		o.ObserveInt64(dropped, int64(source.AuditDropped()))
		return nil
	}, logins, reads, events, dropped)
	if err != nil {
		return fmt.Errorf("register callback: %w", err)
	}

	e.registration = registration
	return nil
}

// Close unregisters the snapshot callback. Observed reads and refreshes
// keep flowing to the synchronous instruments.
func (e *OTelExporter) Close() error {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.registration == nil {
		return nil
	}
	err := e.registration.Unregister()
	e.registration = nil
	return err
}

var _ goSession.Observer = (*OTelExporter)(nil)
