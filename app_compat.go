package main

import (
	"log"
	"net/url"

	"xenman/internal/compat"
	"xenman/internal/xenia"

	"github.com/skratchdot/open-golang/open"
)

const compatReportURL = "https://github.com/xenia-project/game-compatibility/issues"

// CheckCompatibility resolves and persists the community rating for a game.
func (a *App) CheckCompatibility(gameID string) string {
	rating := a.checker().Check(gameID)
	if err := a.store.SetRating(gameID, string(rating)); err != nil {
		log.Printf("[App] Error saving rating for %s: %v", gameID, err)
	}
	return string(rating)
}

// BatchCheckCompatibility resolves ratings for many games at once. Individual
// failures come back as "Unknown".
func (a *App) BatchCheckCompatibility(gameIDs []string) map[string]string {
	ratings := a.checker().BatchCheck(gameIDs)
	results := make(map[string]string, len(ratings))
	for gameID, rating := range ratings {
		results[gameID] = string(rating)
		if err := a.store.SetRating(gameID, string(rating)); err != nil {
			log.Printf("[App] Error saving rating for %s: %v", gameID, err)
		}
	}
	return results
}

// ClearCompatibilityCache drops all cached ratings and extraction results.
func (a *App) ClearCompatibilityCache() {
	a.checker().Clear()
	a.mu.Lock()
	a.extractCache = make(map[string]xenia.ExtractionResult)
	a.mu.Unlock()
}

// CompatibilityInfo returns the UI affordances for a rating value.
func (a *App) CompatibilityInfo(rating string) map[string]string {
	r := compat.Rating(rating)
	return map[string]string{
		"description": compat.Description(r),
		"color":       compat.Color(r),
	}
}

// OpenCompatibilityReport opens the community tracker search for a game in
// the system browser.
func (a *App) OpenCompatibilityReport(gameID string) error {
	return open.Run(compatReportURL + "?q=" + url.QueryEscape(gameID))
}

// annotateCompatibility runs a background rating check after a game is added.
func (a *App) annotateCompatibility(gameID string) {
	rating := a.CheckCompatibility(gameID)
	a.emit("compat:updated", map[string]interface{}{
		"gameId": gameID,
		"rating": rating,
	})
}
