// Package metric provides Prometheus metrics for redikv.
//
// It exposes command throughput, command latency, connection counts and
// store size in Prometheus format, served on a dedicated HTTP listener
// when metrics are enabled in the server configuration.
package metric
