package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// BuildDashboardKey builds the render cache key for a dashboard page,
// keyed by network and the community-server visibility toggle — the
// same (network, hide_community) combination the background refresh
// loop iterates over.
func BuildDashboardKey(network string, hideCommunity bool) string {
	return fmt.Sprintf("dashboard:%s:hide_community=%t", network, hideCommunity)
}

// BuildDetailKey builds the render cache key for a single endpoint's
// detail view over a given window.
func BuildDetailKey(module, hostname string, port int, window string) string {
	return fmt.Sprintf("detail:%s:%s:%d:%s", module, hostname, port, window)
}

// BuildExplorersKey builds the render cache key for the block-explorer
// height comparison view.
func BuildExplorersKey() string {
	return "explorers"
}

// QuickHash returns the full SHA-256 hex digest of data.
func QuickHash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// ShortHash returns a 16-character SHA-256 prefix, useful for compact
// cache keys where full collision resistance isn't required.
func ShortHash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:8])
}
