// Package metrics defines the record types and sink interfaces used to
// observe assignment runs. Sinks like PromSink and InfluxSink live under
// infra/metrics and can be combined with NewMultiSink; NopSink stands in
// when nothing is configured. Optional capabilities such as degradation
// and roster recording are discovered by type assertion.
package metrics
