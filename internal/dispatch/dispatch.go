// Package dispatch implements the Dispatch API: the HTTP surface probe
// workers poll for work and post results to (spec.md §4.3/§6).
package dispatch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"hosh/internal/domain"
	"hosh/internal/jsonhard"
	"hosh/pkg/apperror"
	"hosh/pkg/httpserver"
	"hosh/pkg/logger"
)

// recencyWindow is how far back GET /jobs looks for an already-fresh
// result before handing a target out again (spec.md §4.3/§8).
const recencyWindow = 5 * time.Minute

// defaultJobLimit is used when a GET /jobs request omits limit.
const defaultJobLimit = 10

// store is the persistence surface Dispatch needs, narrowed to an
// interface so handler tests can supply an in-memory fake instead of a
// live ClickHouse connection.
type store interface {
	JobsNotRecentlyChecked(ctx context.Context, module domain.Module, window time.Duration, limit int) ([]domain.Target, error)
	InsertResult(ctx context.Context, targetID uuid.UUID, r domain.ProbeResult) error
}

// Handler serves the Dispatch API's two endpoints.
type Handler struct {
	store store
}

// NewHandler builds a Dispatch Handler backed by st.
func NewHandler(st store) *Handler {
	return &Handler{store: st}
}

// RegisterRoutes mounts the Dispatch API under mux, gating both routes
// behind the shared api_key secret.
func (h *Handler) RegisterRoutes(mux *http.ServeMux, apiKey string) {
	mux.Handle("/api/v1/jobs", httpserver.RequireAPIKey(apiKey, http.HandlerFunc(h.ListJobs)))
	mux.Handle("/api/v1/results", httpserver.RequireAPIKey(apiKey, http.HandlerFunc(h.PostResult)))
}

// Job is one unit of work handed to a probe worker by GET /jobs.
type Job struct {
	Host          string  `json:"host"`
	Port          int     `json:"port"`
	CheckID       *string `json:"check_id,omitempty"`
	UserSubmitted bool    `json:"user_submitted,omitempty"`
}

// ListJobs serves GET /api/v1/jobs?checker_module=&limit=. The api_key
// check is applied by the caller via httpserver.RequireAPIKey; this
// handler assumes it has already passed.
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	module := domain.Module(r.URL.Query().Get("checker_module"))
	if module == "" {
		writeError(w, apperror.NewWithField(apperror.CodeDispatchRejected, "checker_module is required", "checker_module"))
		return
	}

	limit := defaultJobLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, apperror.NewWithField(apperror.CodeDispatchRejected, "limit must be a positive integer", "limit"))
			return
		}
		limit = n
	}

	targets, err := h.store.JobsNotRecentlyChecked(r.Context(), module, recencyWindow, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	jobs := make([]Job, 0, len(targets))
	for _, t := range targets {
		port := t.Port
		if port == 0 {
			port = domain.DefaultPort(module)
		}
		jobs = append(jobs, Job{
			Host:          t.Hostname,
			Port:          port,
			CheckID:       t.CheckID,
			UserSubmitted: t.UserSubmitted,
		})
	}

	writeJSON(w, http.StatusOK, jobs)
}

// resultPayload is the body POST /api/v1/results accepts. hostname and
// ping_ms carry the canonical names; host and ping are the aliases
// worker clients are also allowed to send (spec.md §4.3).
type resultPayload struct {
	Hostname      string        `json:"hostname"`
	Host          string        `json:"host"`
	Port          int           `json:"port"`
	Status        domain.Status `json:"status"`
	PingMs        *float64      `json:"ping_ms"`
	Ping          *float64      `json:"ping"`
	CheckerModule domain.Module `json:"checker_module"`
}

func (p *resultPayload) hostname() string {
	if p.Hostname != "" {
		return p.Hostname
	}
	return p.Host
}

func (p *resultPayload) pingMs() *float64 {
	if p.PingMs != nil {
		return p.PingMs
	}
	return p.Ping
}

// PostResult serves POST /api/v1/results?api_key=. The full posted
// body is kept verbatim (after hardening) as the stored response_data
// blob; there is no upsert, every call is a new append-only row.
func (h *Handler) PostResult(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, apperror.Wrap(err, apperror.CodeDispatchRejected, "failed to read request body"))
		return
	}

	repaired := jsonhard.Repair(body)

	var payload resultPayload
	if err := json.Unmarshal(repaired, &payload); err != nil {
		writeError(w, apperror.Wrap(err, apperror.CodeDispatchRejected, "failed to decode result payload"))
		return
	}

	hostname := payload.hostname()
	if hostname == "" || payload.CheckerModule == "" {
		writeError(w, apperror.New(apperror.CodeDispatchRejected, "hostname and checker_module are required"))
		return
	}

	port := payload.Port
	if port == 0 {
		port = domain.DefaultPort(payload.CheckerModule)
	}

	status := payload.Status
	if status == "" {
		status = domain.StatusOffline
	}

	targetID := domain.TargetID(payload.CheckerModule, hostname, port)
	result := domain.ProbeResult{
		Hostname:      hostname,
		Port:          port,
		CheckerModule: payload.CheckerModule,
		CheckedAt:     time.Now().UTC(),
		Status:        status,
		PingMs:        payload.pingMs(),
		ResponseData:  repaired,
	}

	if err := h.store.InsertResult(r.Context(), targetID, result); err != nil {
		logger.Log.Error("failed to insert dispatch result", "hostname", hostname, "module", string(payload.CheckerModule), "error", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := apperror.ToHTTP(err)
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
