// Package otel publishes goSession activity through an OpenTelemetry Meter.
//
// [OTelExporter] plugs into the Engine as a [goSession.Observer], so read
// latency is a real histogram and refresh exchanges carry their failure
// reason as an attribute. Engine-only totals are observed from the metrics
// snapshot after [OTelExporter.Watch]:
//
//	exp, err := otel.NewOTelExporter(provider.Meter("gosession"))
//	engine, err := goSession.New().WithObserver(exp).WithRedis(rdb).Build()
//	err = exp.Watch(engine)
//	defer exp.Close()
//
// # What this package must NOT do
//
//   - Own the MeterProvider; callers supply the Meter.
//   - Mutate engine state.
package otel
