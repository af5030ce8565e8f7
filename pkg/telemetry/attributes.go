package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Standard attribute keys shared across spans in the probe pipeline.
const (
	AttrModule     = "hosh.module"
	AttrHostname   = "hosh.hostname"
	AttrPort       = "hosh.port"
	AttrStatus     = "hosh.status"
	AttrHeight     = "hosh.height"
	AttrPingMs     = "hosh.ping_ms"
	AttrErrorType  = "hosh.error_type"
	AttrCacheKey   = "hosh.cache_key"
	AttrWindowDays = "hosh.window_days"
)

// TargetAttributes returns attributes identifying a probe target.
func TargetAttributes(module, hostname string, port int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrModule, module),
		attribute.String(AttrHostname, hostname),
		attribute.Int(AttrPort, port),
	}
}

// ProbeResultAttributes returns attributes summarizing a probe outcome.
func ProbeResultAttributes(status string, height uint64, pingMs float64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrStatus, status),
		attribute.Int64(AttrHeight, int64(height)),
		attribute.Float64(AttrPingMs, pingMs),
	}
}
