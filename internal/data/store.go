package data

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"

	_ "modernc.org/sqlite"
)

var ErrGameNotFound = errors.New("game not found")

// Settings are the user's application settings.
type Settings struct {
	XeniaPath      string `json:"xeniaPath"`
	Theme          string `json:"theme"`
	GamesDirectory string `json:"gamesDirectory"`
	WinePrefix     string `json:"winePrefix"`
}

// CompatibilitySettings configure the community tracker lookups.
type CompatibilitySettings struct {
	APIEndpoint    string `json:"apiEndpoint"`
	UpdateInterval int    `json:"updateInterval"` // seconds a cached rating stays valid
}

const defaultCompatEndpoint = "https://api.github.com/repos/xenia-project/game-compatibility/issues"

// Store persists settings, the game library and per-game launch options.
type Store struct {
	db *sql.DB
}

// Open creates (or opens) the store database under dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	dbPath := filepath.Join(dir, "xenman.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}

	log.Printf("[Store] Opened %s", dbPath)
	return s, nil
}

// init creates the schema and seeds default settings.
func (s *Store) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS settings (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS games (
			game_id              TEXT PRIMARY KEY,
			media_id             TEXT NOT NULL DEFAULT '',
			title                TEXT NOT NULL,
			path                 TEXT NOT NULL,
			variant              TEXT NOT NULL,
			type                 TEXT NOT NULL DEFAULT 'Unknown',
			size                 INTEGER NOT NULL DEFAULT 0,
			hash                 TEXT NOT NULL DEFAULT '',
			config               TEXT NOT NULL DEFAULT '',
			cover_path           TEXT NOT NULL DEFAULT '',
			compatibility_rating TEXT NOT NULL DEFAULT 'Unknown',
			playtime             INTEGER NOT NULL DEFAULT 0,
			last_played          TEXT NOT NULL DEFAULT '',
			last_launched        TEXT NOT NULL DEFAULT '',
			is_running           INTEGER NOT NULL DEFAULT 0,
			last_exit_code       INTEGER NOT NULL DEFAULT 0
		);
		CREATE TABLE IF NOT EXISTS game_settings (
			game_id        TEXT PRIMARY KEY,
			launch_options TEXT NOT NULL DEFAULT '[]'
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return s.seedDefaults()
}

func (s *Store) seedDefaults() error {
	winePrefix := ""
	if runtime.GOOS != "windows" {
		if home, err := os.UserHomeDir(); err == nil {
			winePrefix = filepath.Join(home, ".wine")
		}
	}
	defaults := map[string]any{
		"settings": Settings{
			Theme:      "dark",
			WinePrefix: winePrefix,
		},
		"compatibility": CompatibilitySettings{
			APIEndpoint:    defaultCompatEndpoint,
			UpdateInterval: 86400,
		},
	}
	for key, value := range defaults {
		blob, err := json.Marshal(value)
		if err != nil {
			return err
		}
		if _, err := s.db.Exec(
			`INSERT OR IGNORE INTO settings (key, value) VALUES (?, ?)`, key, string(blob)); err != nil {
			return fmt.Errorf("failed to seed defaults: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) getJSON(key string, out any) error {
	var blob string
	if err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&blob); err != nil {
		return fmt.Errorf("reading %s: %w", key, err)
	}
	return json.Unmarshal([]byte(blob), out)
}

func (s *Store) setJSON(key string, value any) error {
	blob, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, string(blob)); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

// Settings returns the persisted application settings.
func (s *Store) Settings() Settings {
	var settings Settings
	if err := s.getJSON("settings", &settings); err != nil {
		log.Printf("[Store] Error reading settings: %v", err)
	}
	return settings
}

// SetSettings replaces the persisted application settings.
func (s *Store) SetSettings(settings Settings) error {
	return s.setJSON("settings", settings)
}

// CompatibilitySettings returns the tracker lookup configuration.
func (s *Store) CompatibilitySettings() CompatibilitySettings {
	var settings CompatibilitySettings
	if err := s.getJSON("compatibility", &settings); err != nil {
		log.Printf("[Store] Error reading compatibility settings: %v", err)
	}
	if settings.APIEndpoint == "" {
		settings.APIEndpoint = defaultCompatEndpoint
	}
	if settings.UpdateInterval <= 0 {
		settings.UpdateInterval = 86400
	}
	return settings
}

// SetCompatibilitySettings replaces the tracker lookup configuration.
func (s *Store) SetCompatibilitySettings(settings CompatibilitySettings) error {
	return s.setJSON("compatibility", settings)
}

// LaunchOptions returns the extra Xenia arguments stored for a game.
func (s *Store) LaunchOptions(gameID string) []string {
	var blob string
	err := s.db.QueryRow(
		`SELECT launch_options FROM game_settings WHERE game_id = ?`, gameID).Scan(&blob)
	if err != nil {
		return nil
	}
	var options []string
	if err := json.Unmarshal([]byte(blob), &options); err != nil {
		log.Printf("[Store] Bad launch options for %s: %v", gameID, err)
		return nil
	}
	return options
}

// SetLaunchOptions stores extra Xenia arguments for a game.
func (s *Store) SetLaunchOptions(gameID string, options []string) error {
	if options == nil {
		options = []string{}
	}
	blob, err := json.Marshal(options)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO game_settings (game_id, launch_options) VALUES (?, ?)
		 ON CONFLICT(game_id) DO UPDATE SET launch_options = excluded.launch_options`,
		gameID, string(blob))
	return err
}
