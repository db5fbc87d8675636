package main

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"xenman/internal/artwork"
	"xenman/internal/compat"
	"xenman/internal/data"
	"xenman/internal/xenia"
)

// App struct
type App struct {
	ctx       context.Context
	store     *data.Store
	launcher  *xenia.Launcher
	extractor *xenia.Extractor
	artwork   *artwork.Downloader

	mu           sync.Mutex
	compat       *compat.Checker
	extractCache map[string]xenia.ExtractionResult
}

// NewApp creates a new App application struct
func NewApp() (*App, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = "."
	}
	appDir := getEnv("XENMAN_DATA_DIR", filepath.Join(configDir, "XenMan"))

	store, err := data.Open(appDir)
	if err != nil {
		return nil, err
	}

	a := &App{
		store:        store,
		extractor:    xenia.NewExtractor(),
		artwork:      artwork.NewDownloader(filepath.Join(appDir, "artwork")),
		extractCache: make(map[string]xenia.ExtractionResult),
	}
	a.compat = a.newChecker()
	a.launcher = xenia.NewLauncher(&launcherStore{store: store})
	a.launcher.SetExitHandler(a.onGameExit)
	return a, nil
}

// newChecker builds a compatibility checker from the persisted settings.
func (a *App) newChecker() *compat.Checker {
	cs := a.store.CompatibilitySettings()
	endpoint := getEnv("XENMAN_COMPAT_ENDPOINT", cs.APIEndpoint)
	return compat.NewChecker(
		compat.WithEndpoint(endpoint),
		compat.WithTTL(time.Duration(cs.UpdateInterval)*time.Second),
	)
}

func (a *App) checker() *compat.Checker {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.compat
}

// startup is called when the app starts
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
}

// shutdown is called when the app is closing
func (a *App) shutdown(ctx context.Context) {
	a.launcher.Close()
	if err := a.store.Close(); err != nil {
		log.Printf("[App] Error closing store: %v", err)
	}
}

// launcherStore adapts the persistent store to the launcher's view of it.
type launcherStore struct {
	store *data.Store
}

func (ls *launcherStore) GameRecord(gameID string) (xenia.GameRecord, error) {
	g, err := ls.store.Game(gameID)
	if err != nil {
		return xenia.GameRecord{}, err
	}
	return xenia.GameRecord{
		GameID:  g.GameID,
		Path:    g.Path,
		Variant: g.Variant,
		Config:  g.Config,
	}, nil
}

func (ls *launcherStore) ExecutablePath(variant xenia.Variant) (string, error) {
	return xenia.NewInstall(ls.store.Settings().XeniaPath).ExecutablePath(variant)
}

func (ls *launcherStore) LaunchOptions(gameID string) []string {
	return ls.store.LaunchOptions(gameID)
}

func (ls *launcherStore) WinePrefix() string {
	return ls.store.Settings().WinePrefix
}

func (ls *launcherStore) MarkRunning(gameID string) {
	ls.store.MarkRunning(gameID)
}

func (ls *launcherStore) MarkExited(gameID string, exitCode int) {
	ls.store.MarkExited(gameID, exitCode)
}

func (ls *launcherStore) AddPlaytime(gameID string, seconds int) {
	ls.store.AddPlaytime(gameID, seconds)
}

// getEnv gets an environment variable with a default fallback
func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
