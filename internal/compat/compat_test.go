package compat

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// trackerResponse renders a minimal issue list with one state label
func trackerResponse(state string) string {
	return `[{"labels":[{"name":"` + state + `"}]}]`
}

// newTracker spins up a fake tracker that counts fetches
func newTracker(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var count atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count.Add(1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)
	return server, &count
}

// TestCheck_FetchesAndCaches tests that a repeated check within the TTL hits
// the network exactly once
func TestCheck_FetchesAndCaches(t *testing.T) {
	server, count := newTracker(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("Expected Accept: application/json, got %q", r.Header.Get("Accept"))
		}
		w.Write([]byte(trackerResponse("state-playable")))
	})

	c := NewChecker(WithEndpoint(server.URL), WithTTL(time.Hour))

	first := c.Check("4D5307E6")
	if first != RatingPlayable {
		t.Errorf("Expected Playable, got %q", first)
	}
	second := c.Check("4D5307E6")
	if second != first {
		t.Errorf("Cached rating %q differs from fetched %q", second, first)
	}
	if count.Load() != 1 {
		t.Errorf("Expected 1 fetch, got %d", count.Load())
	}
}

// TestCheck_TTLExpiry tests that an expired entry is re-fetched
func TestCheck_TTLExpiry(t *testing.T) {
	server, count := newTracker(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(trackerResponse("state-ingame")))
	})

	c := NewChecker(WithEndpoint(server.URL), WithTTL(10*time.Millisecond))

	c.Check("4D5307E6")
	time.Sleep(30 * time.Millisecond)
	c.Check("4D5307E6")

	if count.Load() != 2 {
		t.Errorf("Expected 2 fetches after TTL expiry, got %d", count.Load())
	}
}

// TestCheck_CoalescesConcurrentCalls tests that concurrent checks for the
// same id share a single fetch
func TestCheck_CoalescesConcurrentCalls(t *testing.T) {
	server, count := newTracker(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.Write([]byte(trackerResponse("state-playable")))
	})

	c := NewChecker(WithEndpoint(server.URL), WithTTL(time.Hour))

	const callers = 5
	results := make([]Rating, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.Check("ABC123")
		}(i)
	}
	wg.Wait()

	if count.Load() != 1 {
		t.Errorf("Expected 1 coalesced fetch, got %d", count.Load())
	}
	for i, r := range results {
		if r != RatingPlayable {
			t.Errorf("Caller %d got %q, want Playable", i, r)
		}
	}
}

// TestCheck_FailureDegradesToUnknown tests the no-error failure policy and
// that failures are not cached
func TestCheck_FailureDegradesToUnknown(t *testing.T) {
	fail := true
	server, count := newTracker(t, func(w http.ResponseWriter, r *http.Request) {
		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(trackerResponse("state-menu")))
	})

	c := NewChecker(WithEndpoint(server.URL), WithTTL(time.Hour))

	if got := c.Check("4D5307E6"); got != RatingUnknown {
		t.Errorf("Expected Unknown on failure, got %q", got)
	}

	fail = false
	if got := c.Check("4D5307E6"); got != RatingLoads {
		t.Errorf("Expected Loads after recovery, got %q", got)
	}
	if count.Load() != 2 {
		t.Errorf("Failed fetch should not be cached; got %d fetches", count.Load())
	}
}

// TestCheck_MalformedBody tests that unparseable responses degrade to Unknown
func TestCheck_MalformedBody(t *testing.T) {
	server, _ := newTracker(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	})

	c := NewChecker(WithEndpoint(server.URL))
	if got := c.Check("4D5307E6"); got != RatingUnknown {
		t.Errorf("Expected Unknown for malformed body, got %q", got)
	}
}

// TestBatchCheck_PartialFailure tests that one failing id never poisons the
// batch
func TestBatchCheck_PartialFailure(t *testing.T) {
	server, _ := newTracker(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "B" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(trackerResponse("state-playable")))
	})

	c := NewChecker(WithEndpoint(server.URL), WithTTL(time.Hour))

	results := c.BatchCheck([]string{"A", "B"})
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	if results["A"] != RatingPlayable {
		t.Errorf("Expected A = Playable, got %q", results["A"])
	}
	if results["B"] != RatingUnknown {
		t.Errorf("Expected B = Unknown, got %q", results["B"])
	}
}

// TestClear_ForcesRefetch tests that clearing the cache drops entries
func TestClear_ForcesRefetch(t *testing.T) {
	server, count := newTracker(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(trackerResponse("state-playable")))
	})

	c := NewChecker(WithEndpoint(server.URL), WithTTL(time.Hour))

	c.Check("4D5307E6")
	c.Clear()
	c.Check("4D5307E6")

	if count.Load() != 2 {
		t.Errorf("Expected refetch after Clear, got %d fetches", count.Load())
	}
}

// TestParseIssues tests state label normalization
func TestParseIssues(t *testing.T) {
	label := func(names ...string) []issue {
		var i issue
		for _, n := range names {
			i.Labels = append(i.Labels, struct {
				Name string `json:"name"`
			}{Name: n})
		}
		return []issue{i}
	}

	tests := []struct {
		name   string
		issues []issue
		want   Rating
	}{
		{"empty result list", nil, RatingUnknown},
		{"no labels", []issue{{}}, RatingUnknown},
		{"no state label", label("bug", "regression"), RatingUnknown},
		{"nothing", label("state-nothing"), RatingUnplayable},
		{"crash", label("state-crash"), RatingUnplayable},
		{"intro", label("state-intro"), RatingLoads},
		{"menu", label("state-menu"), RatingLoads},
		{"ingame", label("state-ingame"), RatingGameplay},
		{"playable", label("state-playable"), RatingPlayable},
		{"unrecognized token", label("state-weird"), RatingUnknown},
		{"state label after others", label("bug", "state-ingame"), RatingGameplay},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseIssues(tt.issues); got != tt.want {
				t.Errorf("parseIssues(%s) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}
