// Package query builds the dashboard, detail, and explorer views the
// web role renders: latest-per-endpoint status, the two uptime modes,
// and the percentile-of-heights behind/ahead badge.
package query

import (
	"context"
	"encoding/json"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"hosh/internal/domain"
	"hosh/internal/jsonhard"
	"hosh/internal/store"
)

// storeReader is the subset of *store.Store the query layer reads
// from. Declaring it here (rather than depending on the concrete type
// directly) lets tests exercise the uptime/percentile math against a
// fake without a ClickHouse connection.
type storeReader interface {
	LatestPerEndpoint(ctx context.Context, module domain.Module, hideCommunity bool) ([]store.LatestResult, error)
	HeightsAt(ctx context.Context, module domain.Module) ([]uint64, error)
	FleetMaxTotalChecks(ctx context.Context, module domain.Module, since time.Time) (uint64, error)
	UptimeCalendar(ctx context.Context, targetID uuid.UUID, since time.Time) (uint64, error)
	UptimeCheckBased(ctx context.Context, targetID uuid.UUID, since time.Time) (store.CheckCounts, error)
	HistoryWindow(ctx context.Context, targetID uuid.UUID, since time.Time) ([]domain.ProbeResult, error)
}

// Service answers read queries against the result store.
type Service struct {
	store storeReader
}

// New builds a query Service over st.
func New(st *store.Store) *Service {
	return &Service{store: st}
}

// EndpointView is one row of the dashboard: an endpoint's latest status
// plus its rolling uptime and height-relative badge.
type EndpointView struct {
	TargetID        uuid.UUID
	Hostname        string
	Port            int
	Module          domain.Module
	Protocol        string
	Community       bool
	CheckedAt       time.Time
	FirstSeen       time.Time
	Status          domain.Status
	PingMs          *float64
	Height          uint64
	Uptime30d       float64
	Behind          bool
	Ahead           bool
	ServerVersion   string
	DonationAddress string
	ErrorMessage    string
}

// Protocol maps a module to the wire protocol name the JSON API's
// ApiServer.protocol field reports (spec.md §6).
func Protocol(module domain.Module) string {
	switch module {
	case domain.ModuleBTC:
		return "ssl"
	case domain.ModuleZEC:
		return "grpc"
	default:
		return "http"
	}
}

// maxDisplayErrorLen is the truncation length the query layer's input
// hardening applies to error messages surfaced in the dashboard and
// JSON API (spec.md §4.6/§7).
const maxDisplayErrorLen = 200

// httpStatusPattern matches the Debug-formatted gRPC/HTTP response
// struct a network-B adapter reports verbatim on a protocol error
// (spec.md §8 scenario 4: `Response { status: 400, ..., body:
// UnsyncBoxBody }` collapses to "Server returned HTTP status 400").
var httpStatusPattern = regexp.MustCompile(`status:\s*(\d{3})`)

// collapsePatterns maps a recognizable substring of a verbose,
// Debug-formatted transport error to the short phrase the dashboard
// shows instead.
var collapsePatterns = []struct {
	match       string
	replacement string
}{
	{"handshake failure", "TLS handshake failed — server may be offline"},
	{"certificate", "TLS handshake failed — server may be offline"},
	{"connection refused", "Connection refused"},
	{"i/o timeout", "Connection timed out"},
	{"context deadline exceeded", "Connection timed out"},
	{"no such host", "Host unreachable"},
}

// collapseVerboseError recognizes a handful of verbose,
// Debug-formatted transport/protocol error shapes and reduces them to
// the short phrase spec.md §7 names, leaving anything unrecognized
// untouched for the quote/brace replacement pass.
func collapseVerboseError(msg string) string {
	if m := httpStatusPattern.FindStringSubmatch(msg); m != nil {
		return "Server returned HTTP status " + m[1]
	}
	lower := strings.ToLower(msg)
	for _, p := range collapsePatterns {
		if strings.Contains(lower, p.match) {
			return p.replacement
		}
	}
	return msg
}

// sanitizeDisplayError collapses a worker-sourced error string into a
// short, display-safe phrase: recognized verbose transport/protocol
// errors are reduced to a short phrase, quotes and braces that would
// break a naive re-embedding into JSON text are replaced, and the
// result is truncated to maxDisplayErrorLen runes (spec.md §7).
func sanitizeDisplayError(msg string) string {
	if msg == "" {
		return ""
	}
	clean := collapseVerboseError(msg)

	replacer := strings.NewReplacer(
		`"`, "'",
		"{", "(",
		"}", ")",
	)
	clean = replacer.Replace(clean)

	runes := []rune(clean)
	if len(runes) > maxDisplayErrorLen {
		clean = string(runes[:maxDisplayErrorLen-1]) + "…"
	}
	return clean
}

// heightBadgeSlack is the number of blocks of tolerance before an
// endpoint is flagged behind or ahead of the fleet's p90 height
// (spec.md §4.6: behind if height+3<p90, ahead if height>p90+3).
const heightBadgeSlack = 3

// Dashboard returns the latest-per-endpoint view for module, annotated
// with 30-day uptime and height badges, honoring hideCommunity.
func (s *Service) Dashboard(ctx context.Context, module domain.Module, hideCommunity bool) ([]EndpointView, error) {
	latest, err := s.store.LatestPerEndpoint(ctx, module, hideCommunity)
	if err != nil {
		return nil, err
	}

	heights, err := s.store.HeightsAt(ctx, module)
	if err != nil {
		return nil, err
	}
	p90 := PercentileUint64(heights, 90)

	since := time.Now().UTC().AddDate(0, 0, -30)
	mode := domain.ModeFor(module)

	var fleetMaxChecks uint64
	if mode == domain.UptimeModeCalendar {
		fleetMaxChecks, err = s.store.FleetMaxTotalChecks(ctx, module, since)
		if err != nil {
			return nil, err
		}
	}

	out := make([]EndpointView, 0, len(latest))
	for _, lr := range latest {
		ev := EndpointView{
			TargetID:  lr.TargetID,
			Hostname:  lr.Hostname,
			Port:      lr.Port,
			Module:    lr.Module,
			Protocol:  Protocol(lr.Module),
			Community: lr.Community,
			CheckedAt: lr.CheckedAt,
			FirstSeen: lr.FirstSeen,
			Status:    lr.Status,
			PingMs:    lr.PingMs,
			Height:    lr.Height,
		}

		if len(lr.ResponseData) > 0 {
			var rd domain.ResponseData
			if err := json.Unmarshal(jsonhard.Repair(lr.ResponseData), &rd); err == nil {
				ev.ServerVersion = rd.ServerVersion
				ev.DonationAddress = rd.DonationAddress
				if rd.HasError() {
					msg := rd.ErrorMessage
					if msg == "" {
						msg = rd.Error
					}
					ev.ErrorMessage = sanitizeDisplayError(msg)
				}
			}
		}

		uptime, err := s.uptimeFor(ctx, lr.TargetID, mode, since, fleetMaxChecks)
		if err != nil {
			return nil, err
		}
		ev.Uptime30d = uptime

		if p90 > 0 && lr.Height > 0 {
			ev.Behind = lr.Height+heightBadgeSlack < p90
			ev.Ahead = lr.Height > p90+heightBadgeSlack
		}

		out = append(out, ev)
	}
	return out, nil
}

func (s *Service) uptimeFor(ctx context.Context, targetID uuid.UUID, mode domain.UptimeMode, since time.Time, fleetMaxChecks uint64) (float64, error) {
	switch mode {
	case domain.UptimeModeCalendar:
		online, err := s.store.UptimeCalendar(ctx, targetID, since)
		if err != nil {
			return 0, err
		}
		if fleetMaxChecks == 0 {
			return 0, nil
		}
		return float64(online) / float64(fleetMaxChecks) * 100, nil
	default:
		cc, err := s.store.UptimeCheckBased(ctx, targetID, since)
		if err != nil {
			return 0, err
		}
		if cc.Total == 0 {
			return 0, nil
		}
		return float64(cc.Online) / float64(cc.Total) * 100, nil
	}
}

// DetailWindow names one of the four lookback windows the detail view
// offers.
type DetailWindow string

const (
	Window1Day    DetailWindow = "1d"
	Window7Day    DetailWindow = "7d"
	Window30Day   DetailWindow = "30d"
	WindowAllTime DetailWindow = "lifetime"
)

// since converts a DetailWindow to its start time, relative to now.
// WindowAllTime returns the zero time, meaning "no lower bound".
func (w DetailWindow) since(now time.Time) time.Time {
	switch w {
	case Window1Day:
		return now.AddDate(0, 0, -1)
	case Window7Day:
		return now.AddDate(0, 0, -7)
	case Window30Day:
		return now.AddDate(0, 0, -30)
	default:
		return time.Time{}
	}
}

// Detail returns the full history for one endpoint over window.
func (s *Service) Detail(ctx context.Context, targetID uuid.UUID, window DetailWindow) ([]domain.ProbeResult, error) {
	since := window.since(time.Now().UTC())
	return s.store.HistoryWindow(ctx, targetID, since)
}

// PercentileUint64 returns the p-th percentile (0-100) of a slice of
// heights using nearest-rank interpolation. Returns 0 for an empty
// input.
func PercentileUint64(values []uint64, p int) uint64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]uint64(nil), values...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	rank := (p*len(sorted)+99)/100 - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}
