package alert

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type fakeNotifier struct {
	messages []string
}

func (f *fakeNotifier) Notify(ctx context.Context, message string) error {
	f.messages = append(f.messages, message)
	return nil
}

func TestParseAge(t *testing.T) {
	cases := map[string]time.Duration{
		"4m 21s":  4*time.Minute + 21*time.Second,
		"1h 30m":  1*time.Hour + 30*time.Minute,
		"2d 5h":   2*24*time.Hour + 5*time.Hour,
		"Just now": 0,
	}
	for in, want := range cases {
		got, ok := parseAge(in)
		if !ok {
			t.Errorf("parseAge(%q) reported unparseable", in)
			continue
		}
		if got != want {
			t.Errorf("parseAge(%q) = %v, want %v", in, got, want)
		}
	}

	if _, ok := parseAge("never"); ok {
		t.Error("expected \"never\" to be unparseable")
	}
}

func TestYoungestCheckAge_PicksSmallest(t *testing.T) {
	html := `<table>
		<tr><td><a href="/btc/a">a</a></td><td>online</td><td>10ms</td><td>900000</td><td>99%</td><td class="last-checked">1h 30m</td><td>no</td></tr>
		<tr><td><a href="/btc/b">b</a></td><td>online</td><td>15ms</td><td>900000</td><td>99%</td><td class="last-checked">4m 21s</td><td>no</td></tr>
	</table>`

	age, ok := youngestCheckAge(html)
	if !ok {
		t.Fatal("expected a parseable age")
	}
	if age != 4*time.Minute+21*time.Second {
		t.Errorf("expected youngest age 4m21s, got %v", age)
	}
}

func TestYoungestCheckAge_IgnoresDigitsOutsideLastCheckedCell(t *testing.T) {
	html := `<tr><td><a href="/btc/a">a</a></td><td>online</td><td>157.55ms</td><td>900000</td><td>99%</td><td class="last-checked">Just now</td><td>no</td></tr>`
	age, ok := youngestCheckAge(html)
	if !ok {
		t.Fatal("expected a parseable age")
	}
	if age != 0 {
		t.Errorf("expected 0 (Just now), got %v — ping/height digits leaked into the match", age)
	}
}

func TestAPIServersEmpty(t *testing.T) {
	empty, err := apiServersEmpty([]byte(`{"servers": []}`))
	if err != nil || !empty {
		t.Errorf("expected empty servers array to report empty=true, got empty=%v err=%v", empty, err)
	}

	nonEmpty, err := apiServersEmpty([]byte(`{"servers": [{"online": true}]}`))
	if err != nil || nonEmpty {
		t.Errorf("expected non-empty servers array to report empty=false, got empty=%v err=%v", nonEmpty, err)
	}
}

// TestMonitor_PollOnlyNotifiesOnStateTransition reproduces spec.md
// §4.7's "state transitions trigger exactly one outbound message;
// persisting in a bad state triggers no further messages" invariant.
func TestMonitor_PollOnlyNotifiesOnStateTransition(t *testing.T) {
	html := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<tr><td><a href="/btc/a">a</a></td><td>online</td><td>10ms</td><td>900000</td><td>99%</td><td class="last-checked">1m 0s</td><td>no</td></tr>`))
	}))
	defer html.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"servers": [{"online": true}]}`))
	}))
	defer api.Close()

	notifier := &fakeNotifier{}
	m := NewMonitor("btc", html.URL, api.URL, 10*time.Minute, notifier)

	m.Poll(context.Background())
	if len(notifier.messages) != 1 {
		t.Fatalf("expected exactly 1 notification on first poll, got %d", len(notifier.messages))
	}

	m.Poll(context.Background())
	m.Poll(context.Background())
	if len(notifier.messages) != 1 {
		t.Fatalf("expected no further notifications while state is unchanged, got %d total", len(notifier.messages))
	}
}

func TestMonitor_EmptyServersTakesPrecedenceOverStale(t *testing.T) {
	html := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<tr><td><a href="/btc/a">a</a></td><td>online</td><td>10ms</td><td>0</td><td>0%</td><td class="last-checked">2d 0h</td><td>no</td></tr>`))
	}))
	defer html.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"servers": []}`))
	}))
	defer api.Close()

	notifier := &fakeNotifier{}
	m := NewMonitor("btc", html.URL, api.URL, 10*time.Minute, notifier)

	state := m.computeState(context.Background())
	if state != StateEmpty {
		t.Errorf("expected StateEmpty to take precedence, got %v", state)
	}
}

func TestMonitor_BothFetchesFailIsError(t *testing.T) {
	notifier := &fakeNotifier{}
	m := NewMonitor("btc", "http://127.0.0.1:0/unreachable", "http://127.0.0.1:0/unreachable", 10*time.Minute, notifier)

	state := m.computeState(context.Background())
	if state != StateError {
		t.Errorf("expected StateError when both fetches fail, got %v", state)
	}
}
