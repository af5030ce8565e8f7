package rendercache

import (
	"context"
	"testing"
	"time"

	"hosh/internal/domain"
	"hosh/internal/query"
	"hosh/pkg/cache"
)

type fakeDashboard struct {
	calls int
	views []query.EndpointView
}

func (f *fakeDashboard) Dashboard(ctx context.Context, module domain.Module, hideCommunity bool) ([]query.EndpointView, error) {
	f.calls++
	return f.views, nil
}

func newMemoryBackend() cache.Cache {
	return cache.NewMemoryCache(&cache.Options{
		Backend:    cache.BackendMemory,
		DefaultTTL: DefaultTTL,
		MaxEntries: 1000,
	})
}

func TestCache_Dashboard_PopulatesOnMiss(t *testing.T) {
	fake := &fakeDashboard{views: []query.EndpointView{{Hostname: "btc.example"}}}
	c := &Cache{backend: newMemoryBackend(), query: fake, ttl: DefaultTTL}

	views, err := c.Dashboard(context.Background(), domain.ModuleBTC, false)
	if err != nil {
		t.Fatalf("Dashboard returned error: %v", err)
	}
	if len(views) != 1 || views[0].Hostname != "btc.example" {
		t.Fatalf("unexpected views: %+v", views)
	}
	if fake.calls != 1 {
		t.Fatalf("expected query to be called once, got %d", fake.calls)
	}
}

func TestCache_Dashboard_HitsCacheOnSecondCall(t *testing.T) {
	fake := &fakeDashboard{views: []query.EndpointView{{Hostname: "zec.example"}}}
	c := &Cache{backend: newMemoryBackend(), query: fake, ttl: DefaultTTL}

	if _, err := c.Dashboard(context.Background(), domain.ModuleZEC, false); err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	if _, err := c.Dashboard(context.Background(), domain.ModuleZEC, false); err != nil {
		t.Fatalf("second call failed: %v", err)
	}

	if fake.calls != 1 {
		t.Errorf("expected cache hit to avoid a second query, got %d calls", fake.calls)
	}
}

func TestCache_Dashboard_DistinctKeysPerHideCommunity(t *testing.T) {
	fake := &fakeDashboard{views: []query.EndpointView{{Hostname: "x"}}}
	c := &Cache{backend: newMemoryBackend(), query: fake, ttl: DefaultTTL}

	if _, err := c.Dashboard(context.Background(), domain.ModuleBTC, false); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Dashboard(context.Background(), domain.ModuleBTC, true); err != nil {
		t.Fatal(err)
	}

	if fake.calls != 2 {
		t.Errorf("expected each hide_community variant to miss independently, got %d calls", fake.calls)
	}
}

func TestCache_RefreshAll_PopulatesEveryCombination(t *testing.T) {
	fake := &fakeDashboard{views: []query.EndpointView{{Hostname: "x"}}}
	backend := newMemoryBackend()
	c := &Cache{backend: backend, query: fake, ttl: DefaultTTL}

	c.RefreshAll(context.Background())

	want := len(modules) * len(hideCommunityValues)
	if fake.calls != want {
		t.Errorf("expected %d refresh calls (one per module x hide_community), got %d", want, fake.calls)
	}

	for _, m := range modules {
		for _, hc := range hideCommunityValues {
			key := cache.BuildDashboardKey(string(m), hc)
			if _, err := backend.Get(context.Background(), key); err != nil {
				t.Errorf("expected key %q to be populated after RefreshAll: %v", key, err)
			}
		}
	}
}

func TestCache_Run_StopsOnContextCancel(t *testing.T) {
	fake := &fakeDashboard{views: []query.EndpointView{{Hostname: "x"}}}
	c := &Cache{backend: newMemoryBackend(), query: fake, ttl: DefaultTTL}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}
