package domain

import "time"

// Status is the outcome of a single probe.
type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

// ErrorType classifies why a probe came back offline. These values are
// the ones stored on a ProbeResult's response data and surfaced in the
// JSON API; they mirror the transport/protocol/parse error kinds.
const (
	ErrorTypeConnectionError = "connection_error"
	ErrorTypeTorError        = "tor_error"
	ErrorTypeHostUnreachable = "host_unreachable"
	ErrorTypeTimeoutError    = "timeout_error"
	ErrorTypeProtocolError   = "protocol_error"
	ErrorTypeParseError      = "parse_error"
)

// ProbeResult is a single append-only observation. Never mutated after
// insert; checked_at is assigned by the Result Store on ingest.
type ProbeResult struct {
	Hostname      string
	Port          int
	CheckerModule Module
	CheckedAt     time.Time
	Status        Status
	PingMs        *float64
	ResponseData  []byte // opaque JSON blob; see ResponseData for the decoded shape
}

// IsValid reports whether the result satisfies the data model's core
// invariant: status=online iff response_data.height > 0 and no error
// field is set.
func (r ProbeResult) IsValid(height uint64, hasError bool) bool {
	online := r.Status == StatusOnline
	wellFormed := height > 0 && !hasError
	return online == wellFormed
}

// UptimeBucket is one row of the uptime_stats_by_port materialized
// view: a fixed-granularity time bucket's check tally for one endpoint.
type UptimeBucket struct {
	Hostname      string
	Port          int
	CheckerModule Module
	TimeBucket    time.Time
	OnlineCount   int64
	TotalChecks   int64
}

// UptimeMode selects how a window's uptime percentage is computed.
type UptimeMode int

const (
	// UptimeModeCheckBased divides online checks by total checks for
	// the endpoint itself. This is the default for every module.
	UptimeModeCheckBased UptimeMode = iota
	// UptimeModeCalendar divides online checks by the fleet-wide
	// maximum total_checks in the window, so an endpoint with sparse
	// data (because it was unreachable) doesn't appear falsely healthy.
	// Reserved for network-B per spec.
	UptimeModeCalendar
)

// ModeFor returns the uptime mode a module uses by default.
func ModeFor(module Module) UptimeMode {
	if module == ModuleZEC {
		return UptimeModeCalendar
	}
	return UptimeModeCheckBased
}
