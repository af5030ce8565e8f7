// Package web implements the public Dispatch HTTP API's read surface:
// the HTML dashboard, per-endpoint detail view, cross-explorer height
// table, and the /api/v0 JSON feed (spec.md §4.6/§6).
package web

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"hosh/internal/domain"
	"hosh/internal/query"
	"hosh/pkg/apperror"
	"hosh/pkg/logger"
)

// dashboardSource is the subset of *rendercache.Cache the web role
// reads dashboard rows from, narrowed to an interface so handler tests
// can run against an in-memory fake instead of the real cache/store
// stack.
type dashboardSource interface {
	Dashboard(ctx context.Context, module domain.Module, hideCommunity bool) ([]query.EndpointView, error)
}

// detailSource is the subset of *query.Service the detail view reads
// history from.
type detailSource interface {
	Detail(ctx context.Context, targetID uuid.UUID, window query.DetailWindow) ([]domain.ProbeResult, error)
}

// explorerSource is the subset of *store.Store the /explorers view
// reads from.
type explorerSource interface {
	LatestExplorerHeights(ctx context.Context) ([]domain.BlockExplorerHeight, error)
}

// Handler serves the dashboard/detail/explorer/API routes.
type Handler struct {
	dashboard dashboardSource
	detail    detailSource
	explorers explorerSource
	templates *templates
}

// NewHandler builds a web Handler over the given read surfaces.
func NewHandler(dashboard dashboardSource, detail detailSource, explorers explorerSource) *Handler {
	return &Handler{
		dashboard: dashboard,
		detail:    detail,
		explorers: explorers,
		templates: mustParseTemplates(),
	}
}

// RegisterRoutes mounts every route spec.md §6 names under mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.Index)
	mux.HandleFunc("GET /explorers", h.Explorers)
	mux.HandleFunc("GET /api/v0/{network}", h.APIServers)
	mux.HandleFunc("GET /{network}/{host}", h.Detail)
	mux.HandleFunc("GET /{network}", h.Dashboard)
}

// networkSlugs maps the URL path segment spec.md §6 names
// (network ∈ {zec, btc}) to the internal Module value.
var networkSlugs = map[string]domain.Module{
	"btc": domain.ModuleBTC,
	"zec": domain.ModuleZEC,
}

func moduleForSlug(slug string) (domain.Module, bool) {
	m, ok := networkSlugs[strings.ToLower(slug)]
	return m, ok
}

// Index redirects GET / to the default network dashboard (spec.md §6).
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/zec", http.StatusFound)
}

// Dashboard serves GET /{network}: the HTML table of every endpoint's
// latest status, uptime, and height badge.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	module, ok := moduleForSlug(r.PathValue("network"))
	if !ok {
		writeHTMLError(w, apperror.NewWithField(apperror.CodeInvalidArgument, "unknown network", "network"))
		return
	}

	hideCommunity, err := parseBoolQuery(r, "hide_community")
	if err != nil {
		writeHTMLError(w, apperror.NewWithField(apperror.CodeInvalidArgument, "hide_community must be true or false", "hide_community"))
		return
	}

	views, err := h.dashboard.Dashboard(r.Context(), module, hideCommunity)
	if err != nil {
		logger.Log.Error("dashboard query failed", "module", module, "error", err)
		writeHTMLError(w, apperror.Wrap(err, apperror.CodeStoreUnreachable, "failed to load dashboard"))
		return
	}

	h.templates.renderDashboard(w, dashboardPage{
		Network:       r.PathValue("network"),
		HideCommunity: hideCommunity,
		Endpoints:     views,
	})
}

// Detail serves GET /{network}/{host[:port]}: the per-endpoint history
// across the four lookback windows.
func (h *Handler) Detail(w http.ResponseWriter, r *http.Request) {
	module, ok := moduleForSlug(r.PathValue("network"))
	if !ok {
		writeHTMLError(w, apperror.NewWithField(apperror.CodeInvalidArgument, "unknown network", "network"))
		return
	}

	hostname, port, err := splitHostPort(r.PathValue("host"), domain.DefaultPort(module))
	if err != nil {
		writeHTMLError(w, apperror.NewWithField(apperror.CodeInvalidArgument, "invalid host[:port]", "host"))
		return
	}

	window := query.DetailWindow(r.URL.Query().Get("window"))
	switch window {
	case query.Window1Day, query.Window7Day, query.Window30Day, query.WindowAllTime:
	case "":
		window = query.Window7Day
	default:
		writeHTMLError(w, apperror.NewWithField(apperror.CodeInvalidArgument, "unknown window", "window"))
		return
	}

	targetID := domain.TargetID(module, hostname, port)
	history, err := h.detail.Detail(r.Context(), targetID, window)
	if err != nil {
		logger.Log.Error("detail query failed", "hostname", hostname, "port", port, "error", err)
		writeHTMLError(w, apperror.Wrap(err, apperror.CodeStoreUnreachable, "failed to load detail"))
		return
	}

	h.templates.renderDetail(w, detailPage{
		Network:  r.PathValue("network"),
		Hostname: hostname,
		Port:     port,
		Window:   window,
		History:  history,
	})
}

// Explorers serves GET /explorers: the cross-explorer block-height
// comparison table.
func (h *Handler) Explorers(w http.ResponseWriter, r *http.Request) {
	heights, err := h.explorers.LatestExplorerHeights(r.Context())
	if err != nil {
		logger.Log.Error("explorer heights query failed", "error", err)
		writeHTMLError(w, apperror.Wrap(err, apperror.CodeStoreUnreachable, "failed to load explorer heights"))
		return
	}
	h.templates.renderExplorers(w, heights)
}

// ApiServer is one element of the /api/v0/{network}.json response's
// "servers" array (spec.md §6).
type ApiServer struct {
	Hostname                 string   `json:"hostname"`
	Port                     int      `json:"port"`
	Protocol                 string   `json:"protocol"`
	PingMs                   *float64 `json:"ping,omitempty"`
	Online                   bool     `json:"online"`
	Community                bool     `json:"community"`
	Height                   uint64   `json:"height"`
	Uptime30d                *float64 `json:"uptime_30d,omitempty"`
	FirstSeen                *string  `json:"first_seen,omitempty"`
	LightwalletServerVersion string   `json:"lightwallet_server_version,omitempty"`
	NodeVersion              string   `json:"node_version,omitempty"`
	DonationAddress          string   `json:"donation_address,omitempty"`
}

// APIServers serves GET /api/v0/{network}.json.
func (h *Handler) APIServers(w http.ResponseWriter, r *http.Request) {
	slug := strings.TrimSuffix(r.PathValue("network"), ".json")
	module, ok := moduleForSlug(slug)
	if !ok {
		writeJSONError(w, apperror.NewWithField(apperror.CodeInvalidArgument, "unknown network", "network"))
		return
	}

	hideCommunity, err := parseBoolQuery(r, "hide_community")
	if err != nil {
		writeJSONError(w, apperror.NewWithField(apperror.CodeInvalidArgument, "hide_community must be true or false", "hide_community"))
		return
	}

	views, err := h.dashboard.Dashboard(r.Context(), module, hideCommunity)
	if err != nil {
		logger.Log.Error("api dashboard query failed", "module", module, "error", err)
		writeJSONError(w, apperror.Wrap(err, apperror.CodeStoreUnreachable, "failed to load servers"))
		return
	}

	servers := make([]ApiServer, 0, len(views))
	for _, v := range views {
		servers = append(servers, toApiServer(v))
	}

	writeJSON(w, http.StatusOK, map[string]any{"servers": servers})
}

func toApiServer(v query.EndpointView) ApiServer {
	s := ApiServer{
		Hostname:        v.Hostname,
		Port:            v.Port,
		Protocol:        v.Protocol,
		PingMs:          v.PingMs,
		Online:          v.Status == domain.StatusOnline,
		Community:       v.Community,
		Height:          v.Height,
		DonationAddress: v.DonationAddress,
	}
	if v.Uptime30d > 0 || v.Status == domain.StatusOnline {
		uptime := v.Uptime30d
		s.Uptime30d = &uptime
	}
	if !v.FirstSeen.IsZero() {
		seen := v.FirstSeen.UTC().Format("2006-01-02T15:04:05Z")
		s.FirstSeen = &seen
	}
	switch v.Module {
	case domain.ModuleZEC:
		s.LightwalletServerVersion = v.ServerVersion
	default:
		s.NodeVersion = v.ServerVersion
	}
	return s
}

func parseBoolQuery(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	return strconv.ParseBool(raw)
}

// splitHostPort parses a "{host[:port]}" path segment, defaulting the
// port to defaultPort when absent.
func splitHostPort(hostPort string, defaultPort int) (string, int, error) {
	if !strings.Contains(hostPort, ":") {
		return hostPort, defaultPort, nil
	}
	host, portStr, err := net.SplitHostPort(hostPort)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, err
	}
	return host, port, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, err error) {
	writeJSON(w, apperror.ToHTTP(err), map[string]string{"error": err.Error()})
}

func writeHTMLError(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), apperror.ToHTTP(err))
}
