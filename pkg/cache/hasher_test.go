package cache

import (
	"testing"
)

func TestBuildDashboardKey(t *testing.T) {
	tests := []struct {
		name          string
		network       string
		hideCommunity bool
		expected      string
	}{
		{"btc visible", "btc", false, "dashboard:btc:hide_community=false"},
		{"zec hidden", "zec", true, "dashboard:zec:hide_community=true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := BuildDashboardKey(tt.network, tt.hideCommunity)
			if key != tt.expected {
				t.Errorf("BuildDashboardKey() = %v, want %v", key, tt.expected)
			}
		})
	}
}

func TestBuildDashboardKey_DistinctPerCombo(t *testing.T) {
	seen := map[string]bool{}
	for _, network := range []string{"btc", "zec"} {
		for _, hide := range []bool{false, true} {
			key := BuildDashboardKey(network, hide)
			if seen[key] {
				t.Fatalf("duplicate key %q for network=%s hide=%v", key, network, hide)
			}
			seen[key] = true
		}
	}
}

func TestBuildDetailKey(t *testing.T) {
	key := BuildDetailKey("btc", "electrum.example.com", 50002, "7d")
	expected := "detail:btc:electrum.example.com:50002:7d"
	if key != expected {
		t.Errorf("BuildDetailKey() = %v, want %v", key, expected)
	}
}

func TestBuildDetailKey_DistinctPerWindow(t *testing.T) {
	a := BuildDetailKey("btc", "host", 1, "1d")
	b := BuildDetailKey("btc", "host", 1, "30d")
	if a == b {
		t.Error("different windows should produce different keys")
	}
}

func TestBuildExplorersKey(t *testing.T) {
	if BuildExplorersKey() != "explorers" {
		t.Errorf("BuildExplorersKey() = %v, want explorers", BuildExplorersKey())
	}
}

func TestQuickHash(t *testing.T) {
	data := []byte("test data")
	hash := QuickHash(data)

	if len(hash) != 64 { // SHA256 hex = 64 chars
		t.Errorf("QuickHash length = %d, want 64", len(hash))
	}

	// Same data should produce same hash
	hash2 := QuickHash(data)
	if hash != hash2 {
		t.Error("same data should produce same hash")
	}
}

func TestShortHash(t *testing.T) {
	data := []byte("test data")
	hash := ShortHash(data)

	if len(hash) != 16 {
		t.Errorf("ShortHash length = %d, want 16", len(hash))
	}
}
