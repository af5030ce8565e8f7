// Package alert is the reference Admin Alerting consumer (spec.md
// §4.7): an external poller of the Query/Render layer's public HTML
// and JSON surface that derives a coarse health state and fires
// exactly one notification per state transition.
//
// Admin Alerting is spec'd only to pin down the public contract the
// web role must keep stable — it is its own client, not a dependency
// of anything else in the tree.
package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"hosh/pkg/logger"
)

// State is one of the four health states spec.md §4.7's table names.
type State string

const (
	StateEmpty       State = "empty"
	StateStaleChecks State = "stale_checks"
	StateHealthy     State = "healthy"
	StateError       State = "error"
)

// lastCheckedPattern extracts (count, unit) pairs out of a "last
// checked" relative-time string such as "4m 21s", "1h 30m", "2d 5h" —
// the same shape the dashboard template's relativeTime helper
// produces and the original nostr-alert daemon parsed with an
// identical regex.
var lastCheckedPattern = regexp.MustCompile(`(\d+)([dhms])`)

// parseAge converts a relative-time string to a duration. An
// unparseable or empty string returns (0, false) so the caller treats
// it as "unknown", not "just now".
func parseAge(s string) (time.Duration, bool) {
	if s == "Just now" {
		return 0, true
	}
	matches := lastCheckedPattern.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return 0, false
	}
	var total time.Duration
	for _, m := range matches {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		switch m[2] {
		case "d":
			total += time.Duration(n) * 24 * time.Hour
		case "h":
			total += time.Duration(n) * time.Hour
		case "m":
			total += time.Duration(n) * time.Minute
		case "s":
			total += time.Duration(n) * time.Second
		}
	}
	return total, true
}

// lastCheckedCellPattern pulls the relative-age text out of the
// dashboard's dedicated "last-checked" table cell, mirroring the
// original nostr-alert daemon's row regex but anchored on hosh's own
// generated markup (a <td class="last-checked"> marker) rather than
// column position, so it can't be fooled by a digit sequence in an
// adjacent ping/height cell.
var lastCheckedCellPattern = regexp.MustCompile(`<td class="last-checked">([^<]+)</td>`)

// youngestCheckAge scans dashboard HTML for every row's relative "last
// checked" text and returns the smallest (most recent) parsed age.
// Returns (0, false) if no row's age could be parsed.
func youngestCheckAge(html string) (time.Duration, bool) {
	matches := lastCheckedCellPattern.FindAllStringSubmatch(html, -1)
	if len(matches) == 0 {
		return 0, false
	}
	var youngest time.Duration
	found := false
	for _, m := range matches {
		age, ok := parseAge(m[1])
		if !ok {
			continue
		}
		if !found || age < youngest {
			youngest = age
			found = true
		}
	}
	return youngest, found
}

// apiServersEmpty reports whether the JSON API's "servers" array is
// empty, tolerating any unparseable detail beyond that one field.
func apiServersEmpty(body []byte) (bool, error) {
	var payload struct {
		Servers []struct {
			Online bool `json:"online"`
		} `json:"servers"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return false, err
	}
	return len(payload.Servers) == 0, nil
}

// Notifier delivers exactly one message per state transition. The
// reference implementation posts to a generic webhook URL; no Nostr
// (or any other messaging) client library appears anywhere in the
// retrieval pack, so the outbound half of the admin-alert contract is
// expressed as this narrow interface instead of a fabricated
// dependency (see DESIGN.md).
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// Monitor polls one (HTML, JSON) pair for a single network and tracks
// its health state across polls.
type Monitor struct {
	Name         string
	HTMLURL      string
	APIURL       string
	MaxCheckAge  time.Duration
	client       *http.Client
	notifier     Notifier
	previous     State
	havePrevious bool
}

// NewMonitor builds a Monitor for one network's dashboard/API pair.
func NewMonitor(name, htmlURL, apiURL string, maxCheckAge time.Duration, notifier Notifier) *Monitor {
	return &Monitor{
		Name:        name,
		HTMLURL:     htmlURL,
		APIURL:      apiURL,
		MaxCheckAge: maxCheckAge,
		client:      &http.Client{Timeout: 10 * time.Second},
		notifier:    notifier,
	}
}

// fetch retrieves a URL's body, treating any non-200 status as a
// fetch failure (spec.md §4.7's "fetch failed" row).
func (m *Monitor) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}
	return io.ReadAll(resp.Body)
}

// computeState polls both surfaces once and derives the health state
// from the pair, per spec.md §4.7's table.
func (m *Monitor) computeState(ctx context.Context) State {
	htmlBody, htmlErr := m.fetch(ctx, m.HTMLURL)
	apiBody, apiErr := m.fetch(ctx, m.APIURL)

	switch {
	case apiErr == nil:
		empty, err := apiServersEmpty(apiBody)
		if err == nil && empty {
			return StateEmpty
		}
		if htmlErr == nil {
			if age, ok := youngestCheckAge(string(htmlBody)); ok && age > m.MaxCheckAge {
				return StateStaleChecks
			}
			return StateHealthy
		}
		if err == nil && !empty {
			return StateHealthy
		}
		return StateError
	case htmlErr == nil:
		if age, ok := youngestCheckAge(string(htmlBody)); ok && age > m.MaxCheckAge {
			return StateStaleChecks
		}
		return StateHealthy
	default:
		return StateError
	}
}

// stateMessages is the human-readable notification body for a
// transition into each state.
var stateMessages = map[State]string{
	StateEmpty:       "%s: server list is empty",
	StateStaleChecks: "%s: checks have gone stale",
	StateHealthy:     "%s: recovered, checks are healthy",
	StateError:       "%s: both HTML and JSON endpoints are unreachable",
}

// Poll runs one check cycle, notifying exactly once if the health
// state changed since the last poll (spec.md §4.7: "State transitions
// trigger exactly one outbound message. Persisting in a bad state
// triggers no further messages.").
func (m *Monitor) Poll(ctx context.Context) {
	current := m.computeState(ctx)

	if m.havePrevious && current == m.previous {
		return
	}
	m.previous = current
	m.havePrevious = true

	msg := fmt.Sprintf(stateMessages[current], m.Name)
	logger.Log.Info("alert state transition", "network", m.Name, "state", current)
	if err := m.notifier.Notify(ctx, msg); err != nil {
		logger.Log.Warn("failed to send alert notification", "network", m.Name, "error", err)
	}
}

// Run polls every interval until ctx is canceled.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.Poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Poll(ctx)
		}
	}
}
