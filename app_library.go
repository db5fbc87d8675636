package main

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"xenman/internal/data"
	"xenman/internal/xenia"

	"github.com/wailsapp/wails/v2/pkg/runtime"
)

const defaultCoverPath = "assets/default-cover.svg"

// Games returns the full game library.
func (a *App) Games() ([]data.Game, error) {
	return a.store.Games()
}

// AddGame catalogs a new game image: probes it with Xenia for its identity,
// enriches the record from the file itself, persists it, then annotates the
// compatibility rating and artwork in the background.
func (a *App) AddGame(gamePath, variantName string) (data.Game, error) {
	log.Printf("[App] Adding game from %s (%s)", gamePath, variantName)

	variant, err := xenia.ParseVariant(variantName)
	if err != nil {
		return data.Game{}, err
	}

	settings := a.store.Settings()
	install := xenia.NewInstall(settings.XeniaPath)
	exePath, err := install.ExecutablePath(variant)
	if err != nil {
		return data.Game{}, err
	}

	fileInfo, err := os.Stat(gamePath)
	if err != nil || fileInfo.IsDir() {
		return data.Game{}, fmt.Errorf("invalid game path: %s", gamePath)
	}

	info, err := a.extractGameInfo(gamePath, exePath, variant)
	if err != nil {
		return data.Game{}, err
	}

	title := info.Title
	if title == "" {
		// Extraction came up empty; fall back to the file name.
		title = strings.TrimSuffix(filepath.Base(gamePath), filepath.Ext(gamePath))
		log.Printf("[App] No title extracted, falling back to %q", title)
	}

	hash, err := hashGame(gamePath)
	if err != nil {
		return data.Game{}, fmt.Errorf("hashing game image: %w", err)
	}

	gameID := info.GameID
	if gameID == "" {
		// No title id recovered; key the record by content instead.
		gameID = strings.ToUpper(hash[:8])
	}

	configPath, err := xenia.CreateGameConfig(exePath, title, variant)
	if err != nil {
		log.Printf("[App] Could not create game config: %v", err)
	}

	g := data.Game{
		GameID:    gameID,
		MediaID:   info.MediaID,
		Title:     title,
		Path:      gamePath,
		Variant:   string(variant),
		Type:      gameType(gamePath),
		Size:      fileInfo.Size(),
		Hash:      hash,
		Config:    configPath,
		CoverPath: defaultCoverPath,
	}
	if err := a.store.AddGame(g); err != nil {
		return data.Game{}, err
	}
	log.Printf("[App] Game added: %s (%s)", g.Title, g.GameID)

	go a.annotateCompatibility(g.GameID)
	go a.fetchArtwork(g.GameID, g.MediaID)

	a.emit("library:updated", nil)
	return g, nil
}

// extractGameInfo runs the extractor, with a per-path cache so re-adding the
// same image skips the probe run.
func (a *App) extractGameInfo(gamePath, exePath string, variant xenia.Variant) (xenia.ExtractionResult, error) {
	cacheKey := gamePath + ":" + string(variant)

	a.mu.Lock()
	cached, ok := a.extractCache[cacheKey]
	a.mu.Unlock()
	if ok {
		return cached, nil
	}

	info, err := a.extractor.Extract(gamePath, exePath)
	if err != nil {
		return xenia.ExtractionResult{}, err
	}

	a.mu.Lock()
	a.extractCache[cacheKey] = info
	a.mu.Unlock()
	return info, nil
}

// RemoveGame deletes a game and everything it left on disk.
func (a *App) RemoveGame(gameID string) error {
	log.Printf("[App] Removing game %s", gameID)

	if a.launcher.IsRunning(gameID) {
		a.launcher.Terminate(gameID)
	}

	g, err := a.store.Game(gameID)
	if err != nil {
		return err
	}
	if err := a.store.RemoveGame(gameID); err != nil {
		return err
	}

	if err := a.artwork.Remove(gameID); err != nil {
		log.Printf("[App] Error removing artwork for %s: %v", gameID, err)
	}
	if err := xenia.RemoveGameConfig(g.Config); err != nil {
		log.Printf("[App] Error removing config for %s: %v", gameID, err)
	}

	a.emit("library:updated", nil)
	return nil
}

// RenameGame applies a user edit to a game's title.
func (a *App) RenameGame(gameID, title string) error {
	if err := a.store.SetTitle(gameID, title); err != nil {
		return err
	}
	a.emit("library:updated", nil)
	return nil
}

// GetLaunchOptions returns the extra Xenia arguments stored for a game.
func (a *App) GetLaunchOptions(gameID string) []string {
	return a.store.LaunchOptions(gameID)
}

// SetLaunchOptions stores extra Xenia arguments for a game.
func (a *App) SetLaunchOptions(gameID string, options []string) error {
	return a.store.SetLaunchOptions(gameID, options)
}

// fetchArtwork downloads cover art in the background; failure keeps the
// default cover.
func (a *App) fetchArtwork(gameID, mediaID string) {
	paths, err := a.artwork.Download(gameID, mediaID)
	if err != nil {
		log.Printf("[App] Artwork download failed for %s: %v", gameID, err)
		return
	}
	if err := a.store.SetCoverPath(gameID, paths.Boxart); err != nil {
		log.Printf("[App] Error saving cover path for %s: %v", gameID, err)
		return
	}
	a.emit("library:updated", nil)
}

// emit sends an event to the frontend, if the app has finished starting.
func (a *App) emit(event string, payload interface{}) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, event, payload)
}

// gameType classifies an image by its extension.
func gameType(gamePath string) string {
	switch strings.ToLower(filepath.Ext(gamePath)) {
	case ".iso":
		return "ISO"
	case ".xex":
		return "XEX"
	case ".gdf":
		return "GDF"
	}
	return "Unknown"
}

// hashGame fingerprints a game image by the SHA-1 of its first megabyte.
func hashGame(gamePath string) (string, error) {
	f, err := os.Open(gamePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha1.New()
	if _, err := io.Copy(h, io.LimitReader(f, 1024*1024)); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
