package migrations

import "testing"

func TestMigrationFilesEmbedded(t *testing.T) {
	entries, err := migrationFiles.ReadDir("sql")
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	want := []string{
		"00001_targets.sql",
		"00002_results.sql",
		"00003_uptime_stats_by_port.sql",
		"00004_block_explorer_heights.sql",
	}
	got := make(map[string]bool, len(entries))
	for _, e := range entries {
		got[e.Name()] = true
	}
	for _, name := range want {
		if !got[name] {
			t.Errorf("expected migration file %q to be embedded", name)
		}
	}
}
