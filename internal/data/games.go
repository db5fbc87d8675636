package data

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"
)

// Game is a library record for a catalogued game image.
type Game struct {
	GameID              string `json:"gameId"`
	MediaID             string `json:"mediaId"`
	Title               string `json:"title"`
	Path                string `json:"path"`
	Variant             string `json:"variant"`
	Type                string `json:"type"`
	Size                int64  `json:"size"`
	Hash                string `json:"hash"`
	Config              string `json:"config"`
	CoverPath           string `json:"coverPath"`
	CompatibilityRating string `json:"compatibilityRating"`
	Playtime            int64  `json:"playtime"` // total seconds across all sessions
	LastPlayed          string `json:"lastPlayed"`
	LastLaunched        string `json:"lastLaunched"`
	IsRunning           bool   `json:"isRunning"`
	LastExitCode        int    `json:"lastExitCode"`
}

const gameColumns = `game_id, media_id, title, path, variant, type, size, hash,
	config, cover_path, compatibility_rating, playtime, last_played,
	last_launched, is_running, last_exit_code`

func scanGame(row interface{ Scan(...any) error }) (Game, error) {
	var g Game
	var running int
	err := row.Scan(&g.GameID, &g.MediaID, &g.Title, &g.Path, &g.Variant, &g.Type,
		&g.Size, &g.Hash, &g.Config, &g.CoverPath, &g.CompatibilityRating,
		&g.Playtime, &g.LastPlayed, &g.LastLaunched, &running, &g.LastExitCode)
	g.IsRunning = running != 0
	return g, err
}

// Games returns every game in the library.
func (s *Store) Games() ([]Game, error) {
	rows, err := s.db.Query(`SELECT ` + gameColumns + ` FROM games ORDER BY title`)
	if err != nil {
		return nil, fmt.Errorf("listing games: %w", err)
	}
	defer rows.Close()

	var games []Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

// Game returns a single game, or ErrGameNotFound.
func (s *Store) Game(gameID string) (Game, error) {
	row := s.db.QueryRow(`SELECT `+gameColumns+` FROM games WHERE game_id = ?`, gameID)
	g, err := scanGame(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Game{}, ErrGameNotFound
	}
	return g, err
}

// AddGame inserts a new game record.
func (s *Store) AddGame(g Game) error {
	if g.CompatibilityRating == "" {
		g.CompatibilityRating = "Unknown"
	}
	_, err := s.db.Exec(`
		INSERT INTO games (`+gameColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.GameID, g.MediaID, g.Title, g.Path, g.Variant, g.Type, g.Size, g.Hash,
		g.Config, g.CoverPath, g.CompatibilityRating, g.Playtime, g.LastPlayed,
		g.LastLaunched, boolToInt(g.IsRunning), g.LastExitCode)
	if err != nil {
		return fmt.Errorf("adding game %s: %w", g.GameID, err)
	}
	return nil
}

// RemoveGame deletes a game and its per-game settings.
func (s *Store) RemoveGame(gameID string) error {
	if _, err := s.db.Exec(`DELETE FROM games WHERE game_id = ?`, gameID); err != nil {
		return fmt.Errorf("removing game %s: %w", gameID, err)
	}
	_, err := s.db.Exec(`DELETE FROM game_settings WHERE game_id = ?`, gameID)
	return err
}

// SetTitle renames a game. Identity is otherwise immutable after extraction.
func (s *Store) SetTitle(gameID, title string) error {
	res, err := s.db.Exec(`UPDATE games SET title = ? WHERE game_id = ?`, title, gameID)
	if err != nil {
		return err
	}
	return requireHit(res)
}

// SetRating records the fetched compatibility rating.
func (s *Store) SetRating(gameID, rating string) error {
	_, err := s.db.Exec(
		`UPDATE games SET compatibility_rating = ? WHERE game_id = ?`, rating, gameID)
	return err
}

// SetCoverPath records where a game's downloaded boxart lives.
func (s *Store) SetCoverPath(gameID, coverPath string) error {
	_, err := s.db.Exec(`UPDATE games SET cover_path = ? WHERE game_id = ?`, coverPath, gameID)
	return err
}

// MarkRunning flags a game as running and stamps the launch time.
func (s *Store) MarkRunning(gameID string) {
	_, err := s.db.Exec(
		`UPDATE games SET is_running = 1, last_launched = ? WHERE game_id = ?`,
		time.Now().Format(time.RFC3339), gameID)
	if err != nil {
		log.Printf("[Store] Error marking %s running: %v", gameID, err)
	}
}

// MarkExited clears the running flag and records the exit code.
func (s *Store) MarkExited(gameID string, exitCode int) {
	_, err := s.db.Exec(
		`UPDATE games SET is_running = 0, last_exit_code = ? WHERE game_id = ?`,
		exitCode, gameID)
	if err != nil {
		log.Printf("[Store] Error marking %s exited: %v", gameID, err)
	}
}

// AddPlaytime accumulates a finished session into the game's total and stamps
// the last-played time.
func (s *Store) AddPlaytime(gameID string, seconds int) {
	_, err := s.db.Exec(
		`UPDATE games SET playtime = playtime + ?, last_played = ? WHERE game_id = ?`,
		seconds, time.Now().Format(time.RFC3339), gameID)
	if err != nil {
		log.Printf("[Store] Error updating playtime for %s: %v", gameID, err)
	} else {
		log.Printf("[Store] Updated playtime for %s: +%d seconds", gameID, seconds)
	}
}

func requireHit(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrGameNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
