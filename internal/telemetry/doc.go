// Package telemetry — structured logging и метрики Prometheus.
package telemetry
