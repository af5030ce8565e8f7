package web

import (
	"fmt"
	"html/template"
	"net/http"
	"time"

	"hosh/internal/domain"
	"hosh/internal/query"
)

// dashboardPage is the template data for the GET /{network} view.
type dashboardPage struct {
	Network       string
	HideCommunity bool
	Endpoints     []query.EndpointView
}

// detailPage is the template data for the GET /{network}/{host} view.
type detailPage struct {
	Network  string
	Hostname string
	Port     int
	Window   query.DetailWindow
	History  []domain.ProbeResult
}

// templates holds the parsed html/template set the web role renders
// from, grounded on the teacher's report generator's inline
// html/template.Parse approach (services/report-svc/internal/generator/html.go),
// adapted from a single ad hoc report template to three named pages.
type templates struct {
	dashboard *template.Template
	detail    *template.Template
	explorers *template.Template
}

var templateFuncs = template.FuncMap{
	"formatPing": func(p *float64) string {
		if p == nil {
			return "-"
		}
		return fmt.Sprintf("%.2fms", *p)
	},
	"formatPercent": func(v float64) string { return fmt.Sprintf("%.1f%%", v) },
	"relativeTime":  relativeTime,
	"statusClass": func(s domain.Status) string {
		if s == domain.StatusOnline {
			return "status-online"
		}
		return "status-offline"
	},
}

// relativeTime renders a "last checked" cell as a coarse two-unit
// duration ("1h 30m", "4m 21s", "2d 5h") — the same shape
// internal/alert's poller parses back out of the rendered dashboard.
func relativeTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	age := time.Since(t)
	if age < time.Second {
		return "Just now"
	}

	days := int(age / (24 * time.Hour))
	hours := int(age/time.Hour) % 24
	minutes := int(age/time.Minute) % 60
	seconds := int(age/time.Second) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}

func mustParseTemplates() *templates {
	return &templates{
		dashboard: template.Must(template.New("dashboard").Funcs(templateFuncs).Parse(dashboardTemplate)),
		detail:    template.Must(template.New("detail").Funcs(templateFuncs).Parse(detailTemplate)),
		explorers: template.Must(template.New("explorers").Funcs(templateFuncs).Parse(explorersTemplate)),
	}
}

func (t *templates) renderDashboard(w http.ResponseWriter, page dashboardPage) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := t.dashboard.Execute(w, page); err != nil {
		http.Error(w, "render failed", http.StatusInternalServerError)
	}
}

func (t *templates) renderDetail(w http.ResponseWriter, page detailPage) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := t.detail.Execute(w, page); err != nil {
		http.Error(w, "render failed", http.StatusInternalServerError)
	}
}

func (t *templates) renderExplorers(w http.ResponseWriter, heights []domain.BlockExplorerHeight) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := t.explorers.Execute(w, heights); err != nil {
		http.Error(w, "render failed", http.StatusInternalServerError)
	}
}

const dashboardTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>hosh — {{.Network}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 1100px; margin: 0 auto; padding: 20px; color: #222; }
        table { width: 100%; border-collapse: collapse; }
        th, td { padding: 8px 12px; text-align: left; border-bottom: 1px solid #eee; }
        th { background: #f5f5f5; }
        .status-online { color: #1a7f37; font-weight: 600; }
        .status-offline { color: #cf222e; font-weight: 600; }
        .badge-behind { color: #9a6700; }
        .badge-ahead { color: #0969da; }
        nav a { margin-right: 12px; }
    </style>
</head>
<body>
    <nav><a href="/btc">btc</a><a href="/zec">zec</a><a href="/explorers">explorers</a></nav>
    <h1>{{.Network}} endpoints</h1>
    <table>
        <thead>
            <tr><th>Host</th><th>Status</th><th>Ping</th><th>Height</th><th>Uptime (30d)</th><th>Last checked</th><th>Community</th></tr>
        </thead>
        <tbody>
        {{range .Endpoints}}
            <tr>
                <td><a href="/{{$.Network}}/{{.Hostname}}:{{.Port}}">{{.Hostname}}:{{.Port}}</a></td>
                <td class="{{statusClass .Status}}">{{.Status}}{{if .ErrorMessage}} — {{.ErrorMessage}}{{end}}</td>
                <td>{{formatPing .PingMs}}</td>
                <td>{{.Height}}{{if .Behind}} <span class="badge-behind">behind</span>{{end}}{{if .Ahead}} <span class="badge-ahead">ahead</span>{{end}}</td>
                <td>{{formatPercent .Uptime30d}}</td>
                <td class="last-checked">{{relativeTime .CheckedAt}}</td>
                <td>{{if .Community}}yes{{else}}no{{end}}</td>
            </tr>
        {{end}}
        </tbody>
    </table>
</body>
</html>`

const detailTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>hosh — {{.Hostname}}:{{.Port}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 1100px; margin: 0 auto; padding: 20px; color: #222; }
        table { width: 100%; border-collapse: collapse; }
        th, td { padding: 8px 12px; text-align: left; border-bottom: 1px solid #eee; }
        th { background: #f5f5f5; }
        nav a { margin-right: 12px; }
    </style>
</head>
<body>
    <nav><a href="/{{.Network}}">back to {{.Network}}</a></nav>
    <h1>{{.Hostname}}:{{.Port}}</h1>
    <p>window: {{.Window}}</p>
    <table>
        <thead><tr><th>Checked at</th><th>Status</th><th>Ping</th></tr></thead>
        <tbody>
        {{range .History}}
            <tr><td>{{.CheckedAt}}</td><td>{{.Status}}</td><td>{{if .PingMs}}{{.PingMs}}ms{{else}}-{{end}}</td></tr>
        {{end}}
        </tbody>
    </table>
</body>
</html>`

const explorersTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>hosh — explorers</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 1100px; margin: 0 auto; padding: 20px; color: #222; }
        table { width: 100%; border-collapse: collapse; }
        th, td { padding: 8px 12px; text-align: left; border-bottom: 1px solid #eee; }
        th { background: #f5f5f5; }
        nav a { margin-right: 12px; }
    </style>
</head>
<body>
    <nav><a href="/btc">btc</a><a href="/zec">zec</a></nav>
    <h1>block explorer heights</h1>
    <table>
        <thead><tr><th>Explorer</th><th>Chain</th><th>Height</th><th>Response time</th><th>Error</th></tr></thead>
        <tbody>
        {{range .}}
            <tr><td>{{.Explorer}}</td><td>{{.Chain}}</td><td>{{.BlockHeight}}</td><td>{{.ResponseTimeMs}}ms</td><td>{{.Error}}</td></tr>
        {{end}}
        </tbody>
    </table>
</body>
</html>`
