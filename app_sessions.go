package main

import (
	"errors"
	"time"

	"xenman/internal/xenia"
)

// LaunchGame starts a tracked Xenia session for a game. A game that is
// already running reports plain failure; configuration and spawn problems
// surface as errors.
func (a *App) LaunchGame(gameID string, opts xenia.LaunchOptions) (bool, error) {
	err := a.launcher.Launch(gameID, opts)
	switch {
	case err == nil:
		a.emit("game:launched", map[string]interface{}{
			"gameId": gameID,
		})
		return true, nil
	case errors.Is(err, xenia.ErrAlreadyRunning):
		return false, nil
	default:
		return false, err
	}
}

// TerminateGame signals a running game to exit. Returns false when the game
// is not running.
func (a *App) TerminateGame(gameID string) bool {
	return a.launcher.Terminate(gameID)
}

// RunningGames returns the ids of all games with live sessions.
func (a *App) RunningGames() []string {
	return a.launcher.RunningGames()
}

// IsGameRunning reports whether the game has a live session.
func (a *App) IsGameRunning(gameID string) bool {
	return a.launcher.IsRunning(gameID)
}

// GameUptime returns seconds the game's session has been alive, or 0.
func (a *App) GameUptime(gameID string) int {
	return a.launcher.Uptime(gameID)
}

// onGameExit relays session exits to the frontend.
func (a *App) onGameExit(gameID string, exitCode int, playtime time.Duration) {
	a.emit("game:exited", map[string]interface{}{
		"gameId":   gameID,
		"exitCode": exitCode,
		"playtime": int(playtime.Seconds()),
	})
}
