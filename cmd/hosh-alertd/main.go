// Command hosh-alertd is the reference Admin Alerting poller (spec.md
// §4.7): it watches hosh's own public HTML dashboard and JSON API for
// each network and fires a webhook message on every health-state
// transition. It is its own client of the web role's contract, not a
// dependency any other hosh role imports.
//
// Configuration mirrors the original Nostr-based daemon's environment
// variables (ZEC_HTML_URL, BTC_HTML_URL, ZEC_API_URL, BTC_API_URL,
// CHECK_INTERVAL_SECONDS, MAX_CHECK_AGE_MINUTES), with WEBHOOK_URL
// replacing the Nostr relay/admin-pubkey pair the outbound half used —
// no Nostr client library exists anywhere in the retrieval pack (see
// DESIGN.md).
package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"hosh/internal/alert"
	"hosh/pkg/logger"
)

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func envIntOr(name string, fallback int) int {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func main() {
	logger.Init(envOr("LOG_LEVEL", "info"))

	zecHTMLURL := envOr("ZEC_HTML_URL", "https://hosh.zec.rocks/zec")
	btcHTMLURL := envOr("BTC_HTML_URL", "https://hosh.zec.rocks/btc")
	zecAPIURL := envOr("ZEC_API_URL", "https://hosh.zec.rocks/api/v0/zec.json")
	btcAPIURL := envOr("BTC_API_URL", "https://hosh.zec.rocks/api/v0/btc.json")
	checkInterval := time.Duration(envIntOr("CHECK_INTERVAL_SECONDS", 60)) * time.Second
	maxCheckAge := time.Duration(envIntOr("MAX_CHECK_AGE_MINUTES", 10)) * time.Minute
	webhookURL := os.Getenv("WEBHOOK_URL")
	if webhookURL == "" {
		logger.Log.Error("WEBHOOK_URL is required")
		os.Exit(1)
	}

	logger.Log.Info("starting hosh-alertd",
		"zec_html_url", zecHTMLURL,
		"btc_html_url", btcHTMLURL,
		"check_interval", checkInterval,
		"max_check_age", maxCheckAge,
	)

	notifier := alert.NewWebhookNotifier(webhookURL)
	monitors := []*alert.Monitor{
		alert.NewMonitor("zec", zecHTMLURL, zecAPIURL, maxCheckAge, notifier),
		alert.NewMonitor("btc", btcHTMLURL, btcAPIURL, maxCheckAge, notifier),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	for _, m := range monitors {
		wg.Add(1)
		go func(m *alert.Monitor) {
			defer wg.Done()
			m.Run(ctx, checkInterval)
		}(m)
	}

	<-ctx.Done()
	logger.Log.Info("shutdown signal received, waiting for monitors to stop")
	wg.Wait()
	logger.Log.Info("hosh-alertd stopped")
}
