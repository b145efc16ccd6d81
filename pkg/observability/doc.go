/*
Package observability provides the metrics and tracing used across the agent core.

Metrics are plain Prometheus collectors registered on a caller-provided registry, so tests
and embedders can keep them isolated from the global default registry. A nil *Metrics is
valid and records nothing.

Spans are created through the global OpenTelemetry tracer provider. Without a configured
provider they are no-ops.
*/
package observability
