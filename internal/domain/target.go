// Package domain holds the core entities shared across the dispatch,
// discovery, probe, and query layers: Target, ProbeResult, the
// protocol-specific response payloads, and uptime bucket rows.
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Module identifies which protocol family a Target or ProbeResult
// belongs to.
type Module string

const (
	ModuleBTC      Module = "network-A"
	ModuleZEC      Module = "network-B"
	ModuleExplorer Module = "http-explorer"
)

// String returns the module's wire value.
func (m Module) String() string {
	return string(m)
}

// targetNamespace is the fixed UUIDv5 namespace used to derive stable
// target IDs from (module, hostname, port) identity.
var targetNamespace = uuid.MustParse("6f6e6973-6f68-4c68-9f01-68736f686e73")

// TargetID derives a stable UUIDv5 identifier from a Target's identity
// triple. Any unique token would satisfy the data model's invariant;
// UUIDv5 makes the ID reproducible from identity alone, so Discovery
// re-runs never mint a second ID for the same endpoint.
func TargetID(module Module, hostname string, port int) uuid.UUID {
	name := fmt.Sprintf("%s|%s|%d", module, hostname, port)
	return uuid.NewSHA1(targetNamespace, []byte(name))
}

// Target is an endpoint the system is responsible for monitoring.
// (Module, Hostname, Port) is unique; rows are never deleted.
type Target struct {
	TargetID      uuid.UUID
	Module        Module
	Hostname      string
	Port          int
	Community     bool
	UserSubmitted bool
	CheckID       *string // set when a user-submitted check carries a correlation id
	LastQueuedAt  *time.Time
	LastCheckedAt *time.Time
}

// DefaultPort returns the port Dispatch normalizes a Target's port 0
// to before comparison and emission (spec.md §4.3).
func DefaultPort(module Module) int {
	switch module {
	case ModuleBTC:
		return 50001
	case ModuleZEC:
		return 443
	case ModuleExplorer:
		return 80
	default:
		return 0
	}
}

// NewTarget builds a Target with a derived TargetID.
func NewTarget(module Module, hostname string, port int, community, userSubmitted bool) Target {
	return Target{
		TargetID:      TargetID(module, hostname, port),
		Module:        module,
		Hostname:      hostname,
		Port:          port,
		Community:     community,
		UserSubmitted: userSubmitted,
	}
}

// Key returns the (module, hostname, port) identity tuple as a
// comparable value, useful as a map key during reconciliation.
func (t Target) Key() TargetKey {
	return TargetKey{Module: t.Module, Hostname: t.Hostname, Port: t.Port}
}

// TargetKey is the comparable identity of a Target.
type TargetKey struct {
	Module   Module
	Hostname string
	Port     int
}
