// Package discovery runs the reconciliation loop that registers new
// Targets: a static network-B seed list, a static block-explorer seed
// list (with one explorer's landing page scraped for an onion mirror),
// and a fetched network-A endpoint list (spec.md §4.5).
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"hosh/internal/domain"
	"hosh/pkg/logger"
)

// electrumServersURL is the canonical third-party JSON list of
// network-A endpoints (spec.md §4.5 step 3).
const electrumServersURL = "https://raw.githubusercontent.com/spesmilo/electrum/refs/heads/master/electrum/chains/mainnet/servers.json"

// fetchTimeout bounds each of Discovery's outbound HTTP calls.
const fetchTimeout = 10 * time.Second

// store is the persistence surface Discovery needs, narrowed so tests
// can supply an in-memory fake.
type store interface {
	AllTargets(ctx context.Context, module domain.Module) ([]domain.Target, error)
	UpsertTarget(ctx context.Context, t domain.Target) error
}

// electrumServerEntry is one value of the servers.json map: the `s`
// key carries the SSL port as a string, when present.
type electrumServerEntry struct {
	SSLPort string `json:"s"`
}

// Discovery runs the periodic reconciliation loop.
type Discovery struct {
	store  store
	client *http.Client
}

// New builds a Discovery reconciler backed by st.
func New(st store) *Discovery {
	return &Discovery{
		store:  st,
		client: &http.Client{Timeout: fetchTimeout},
	}
}

// Run executes the reconciliation loop every interval until ctx is
// canceled, running one pass immediately on start.
func (d *Discovery) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}

	d.reconcileOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.reconcileOnce(ctx)
		}
	}
}

func (d *Discovery) reconcileOnce(ctx context.Context) {
	logger.Log.Info("discovery reconciliation started")

	if err := d.reconcileZEC(ctx); err != nil {
		logger.Log.Error("discovery: network-B reconciliation failed", "error", err)
	}
	if err := d.reconcileExplorers(ctx); err != nil {
		logger.Log.Error("discovery: http explorer reconciliation failed", "error", err)
	}
	if err := d.reconcileBTC(ctx); err != nil {
		logger.Log.Error("discovery: network-A reconciliation failed", "error", err)
	}

	logger.Log.Info("discovery reconciliation finished")
}

// reconcileZEC registers every zecSeeds entry not already present.
func (d *Discovery) reconcileZEC(ctx context.Context) error {
	known, err := d.knownKeys(ctx, domain.ModuleZEC)
	if err != nil {
		return err
	}
	for _, seed := range zecSeeds {
		if err := d.insertIfMissing(ctx, known, domain.ModuleZEC, seed.Host, seed.Port, seed.Community, false); err != nil {
			logger.Log.Error("discovery: failed to insert network-B target", "host", seed.Host, "port", seed.Port, "error", err)
		}
	}
	return nil
}

// reconcileExplorers registers the static explorer list on port 80,
// plus the designated explorer's onion mirror if one can be scraped.
func (d *Discovery) reconcileExplorers(ctx context.Context) error {
	known, err := d.knownKeys(ctx, domain.ModuleExplorer)
	if err != nil {
		return err
	}

	for _, explorer := range httpExplorers {
		if err := d.insertIfMissing(ctx, known, domain.ModuleExplorer, explorer.URL, 80, false, false); err != nil {
			logger.Log.Error("discovery: failed to insert http explorer", "url", explorer.URL, "error", err)
			continue
		}

		if explorer.Name != designatedExplorer {
			continue
		}
		onionURL, err := d.scrapeOnionMirror(ctx, explorer.URL)
		if err != nil {
			logger.Log.Warn("discovery: onion mirror scrape failed", "explorer", explorer.Name, "error", err)
			continue
		}
		if onionURL == "" {
			continue
		}
		if err := d.insertIfMissing(ctx, known, domain.ModuleExplorer, onionURL, 80, false, false); err != nil {
			logger.Log.Error("discovery: failed to insert onion mirror", "url", onionURL, "error", err)
		}
	}
	return nil
}

// reconcileBTC fetches the Electrum-style servers.json and registers
// every host on its SSL port (or 50001 when unspecified).
func (d *Discovery) reconcileBTC(ctx context.Context) error {
	servers, err := d.fetchBTCServers(ctx)
	if err != nil {
		return err
	}

	known, err := d.knownKeys(ctx, domain.ModuleBTC)
	if err != nil {
		return err
	}

	for host, entry := range servers {
		port := 50001
		if entry.SSLPort != "" {
			if p, err := strconv.Atoi(entry.SSLPort); err == nil && p > 0 {
				port = p
			}
		}
		if err := d.insertIfMissing(ctx, known, domain.ModuleBTC, host, port, false, false); err != nil {
			logger.Log.Error("discovery: failed to insert network-A target", "host", host, "port", port, "error", err)
		}
	}
	return nil
}

func (d *Discovery) fetchBTCServers(ctx context.Context) (map[string]electrumServerEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, electrumServersURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch electrum servers: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch electrum servers: unexpected status %s", resp.Status)
	}

	var servers map[string]electrumServerEntry
	if err := json.NewDecoder(resp.Body).Decode(&servers); err != nil {
		return nil, fmt.Errorf("decode electrum servers: %w", err)
	}
	return servers, nil
}

// scrapeOnionMirror fetches explorerURL's landing page and returns the
// first <a href> containing ".onion" with an absolute http(s) prefix.
func (d *Discovery) scrapeOnionMirror(ctx context.Context, explorerURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, explorerURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch landing page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch landing page: unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read landing page: %w", err)
	}

	return findOnionLink(body)
}

// findOnionLink walks an HTML document's anchor tags looking for the
// first href containing ".onion" that matches the known prefix.
func findOnionLink(body []byte) (string, error) {
	tokenizer := html.NewTokenizer(strings.NewReader(string(body)))
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return "", nil
		case html.StartTagToken, html.SelfClosingTagToken:
			token := tokenizer.Token()
			if token.Data != "a" {
				continue
			}
			for _, attr := range token.Attr {
				if attr.Key != "href" {
					continue
				}
				if strings.Contains(attr.Val, ".onion") && strings.HasPrefix(attr.Val, onionLinkPrefix) {
					return attr.Val, nil
				}
			}
		}
	}
}

// knownKeys returns module's already-registered (hostname, port)
// identity set, so insertIfMissing never re-inserts an existing row.
func (d *Discovery) knownKeys(ctx context.Context, module domain.Module) (map[domain.TargetKey]bool, error) {
	existing, err := d.store.AllTargets(ctx, module)
	if err != nil {
		return nil, fmt.Errorf("load known targets for %s: %w", module, err)
	}
	known := make(map[domain.TargetKey]bool, len(existing))
	for _, t := range existing {
		known[t.Key()] = true
	}
	return known, nil
}

func (d *Discovery) insertIfMissing(ctx context.Context, known map[domain.TargetKey]bool, module domain.Module, host string, port int, community, userSubmitted bool) error {
	key := domain.TargetKey{Module: module, Hostname: host, Port: port}
	if known[key] {
		return nil
	}
	t := domain.NewTarget(module, host, port, community, userSubmitted)
	if err := d.store.UpsertTarget(ctx, t); err != nil {
		return err
	}
	known[key] = true
	return nil
}
