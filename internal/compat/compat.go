package compat

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	// Community compatibility tracker, queried per game id.
	defaultEndpoint = "https://api.github.com/repos/xenia-project/game-compatibility/issues"

	// How long a fetched rating stays valid.
	defaultTTL = 86400 * time.Second

	fetchTimeout = 10 * time.Second
)

// Rating is the coarse community verdict on how well a game runs.
type Rating string

const (
	RatingUnplayable Rating = "Unplayable"
	RatingLoads      Rating = "Loads"
	RatingGameplay   Rating = "Gameplay"
	RatingPlayable   Rating = "Playable"
	RatingUnknown    Rating = "Unknown"
)

// stateRatings normalizes tracker state tokens to ratings.
var stateRatings = map[string]Rating{
	"nothing":  RatingUnplayable,
	"crash":    RatingUnplayable,
	"intro":    RatingLoads,
	"menu":     RatingLoads,
	"ingame":   RatingGameplay,
	"playable": RatingPlayable,
}

type entry struct {
	rating    Rating
	fetchedAt time.Time
}

// pending is the shared handle for an in-flight fetch; callers coalescing on
// it read rating only after done is closed.
type pending struct {
	done   chan struct{}
	rating Rating
}

// Checker answers compatibility lookups against the community tracker with a
// TTL cache and per-id request coalescing in front of the network.
type Checker struct {
	client   *http.Client
	endpoint string
	ttl      time.Duration

	mu      sync.Mutex
	cache   map[string]entry
	pending map[string]*pending
}

// CheckerOption configures a Checker.
type CheckerOption func(*Checker)

// WithEndpoint sets the tracker endpoint (useful for testing).
func WithEndpoint(endpoint string) CheckerOption {
	return func(c *Checker) {
		c.endpoint = endpoint
	}
}

// WithTTL sets how long cached ratings stay valid.
func WithTTL(ttl time.Duration) CheckerOption {
	return func(c *Checker) {
		c.ttl = ttl
	}
}

// NewChecker creates a Checker with the given options.
func NewChecker(opts ...CheckerOption) *Checker {
	// The client timeout is the single authoritative fetch deadline.
	c := &Checker{
		client: &http.Client{
			Timeout: fetchTimeout,
		},
		endpoint: defaultEndpoint,
		ttl:      defaultTTL,
		cache:    make(map[string]entry),
		pending:  make(map[string]*pending),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check returns the compatibility rating for a game id. Concurrent callers
// for the same id share one fetch; a fresh cached rating is returned without
// network access; any failure degrades to RatingUnknown, never an error.
func (c *Checker) Check(gameID string) Rating {
	c.mu.Lock()
	if p, ok := c.pending[gameID]; ok {
		c.mu.Unlock()
		<-p.done
		return p.rating
	}
	if e, ok := c.cache[gameID]; ok && time.Since(e.fetchedAt) < c.ttl {
		c.mu.Unlock()
		return e.rating
	}
	p := &pending{done: make(chan struct{})}
	c.pending[gameID] = p
	c.mu.Unlock()

	rating, err := c.fetch(gameID)

	c.mu.Lock()
	if err != nil {
		log.Printf("[Compat] Fetch failed for %s: %v", gameID, err)
		// Not cached, so the next caller retries.
		p.rating = RatingUnknown
	} else {
		p.rating = rating
		c.cache[gameID] = entry{rating: rating, fetchedAt: time.Now()}
	}
	delete(c.pending, gameID)
	c.mu.Unlock()

	close(p.done)
	return p.rating
}

// BatchCheck resolves many ids concurrently. Individual failures surface as
// RatingUnknown for that id only; the batch itself never fails.
func (c *Checker) BatchCheck(gameIDs []string) map[string]Rating {
	results := make(map[string]Rating, len(gameIDs))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, gameID := range gameIDs {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			rating := c.Check(id)
			mu.Lock()
			results[id] = rating
			mu.Unlock()
		}(gameID)
	}

	wg.Wait()
	return results
}

// Clear drops all cached ratings. In-flight fetches are untouched and will
// repopulate the cache when they settle.
func (c *Checker) Clear() {
	c.mu.Lock()
	c.cache = make(map[string]entry)
	c.mu.Unlock()
	log.Println("[Compat] Cache cleared")
}

func (c *Checker) fetch(gameID string) (Rating, error) {
	req, err := http.NewRequest("GET", c.endpoint+"?q="+url.QueryEscape(gameID), nil)
	if err != nil {
		return RatingUnknown, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Xenia-Manager")

	resp, err := c.client.Do(req)
	if err != nil {
		return RatingUnknown, fmt.Errorf("fetching compatibility: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return RatingUnknown, fmt.Errorf("tracker returned status %d", resp.StatusCode)
	}

	var issues []issue
	if err := json.NewDecoder(resp.Body).Decode(&issues); err != nil {
		return RatingUnknown, fmt.Errorf("parsing tracker response: %w", err)
	}

	return parseIssues(issues), nil
}

type issue struct {
	Labels []struct {
		Name string `json:"name"`
	} `json:"labels"`
}

// parseIssues extracts the rating from the first issue's state label. Missing
// or unrecognized data is RatingUnknown, never an error.
func parseIssues(issues []issue) Rating {
	if len(issues) == 0 {
		return RatingUnknown
	}
	for _, label := range issues[0].Labels {
		if !strings.HasPrefix(label.Name, "state-") {
			continue
		}
		parts := strings.Split(label.Name, "-")
		if len(parts) < 2 {
			return RatingUnknown
		}
		if rating, ok := stateRatings[strings.ToLower(parts[1])]; ok {
			return rating
		}
		return RatingUnknown
	}
	return RatingUnknown
}

// Description returns the user-facing explanation of a rating.
func Description(rating Rating) string {
	switch rating {
	case RatingUnplayable:
		return "The game either doesn't start or crashes frequently"
	case RatingLoads:
		return "The game loads but crashes in the title screen or main menu"
	case RatingGameplay:
		return "Gameplay loads but may have significant issues"
	case RatingPlayable:
		return "The game can be played from start to finish with minor or no issues"
	}
	return "Compatibility status has not been determined"
}

// Color returns the accent color the UI draws a rating with.
func Color(rating Rating) string {
	switch rating {
	case RatingUnplayable:
		return "#d83b01"
	case RatingLoads:
		return "#ffd700"
	case RatingGameplay:
		return "#107c10"
	case RatingPlayable:
		return "#0078d4"
	}
	return "#6e6e6e"
}
