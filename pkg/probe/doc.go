// Package probe provides cells.Probe implementations that export runtime
// activity to Prometheus and OpenTelemetry.
//
// Install one or both on a runtime:
//
//	rt := cells.NewRuntime(cells.WithProbe(cells.Probes(
//	    probe.NewMetrics(probe.WithNamespace("sheet")),
//	    probe.NewTracer(probe.WithTracerName("sheet")),
//	)))
//
// Probes are called synchronously from the runtime and so share its
// single-goroutine discipline. Metrics itself is safe for concurrent use;
// Tracer is not.
package probe
