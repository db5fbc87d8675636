package xenia

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// CreateGameConfig seeds a game-specific config by copying the variant's
// shared config next to the executable. Returns the new config path, or ""
// when the variant has no shared config to copy.
func CreateGameConfig(exePath, gameTitle string, variant Variant) (string, error) {
	variantConfig, err := VariantConfigPath(exePath, variant)
	if err != nil {
		return "", err
	}
	if !fileExists(variantConfig) {
		log.Printf("[Config] Variant config not found: %s", variantConfig)
		return "", nil
	}

	gameConfig := filepath.Join(filepath.Dir(exePath), gameTitle+".config.toml")
	content, err := os.ReadFile(variantConfig)
	if err != nil {
		return "", fmt.Errorf("reading variant config: %w", err)
	}
	if err := os.WriteFile(gameConfig, content, 0644); err != nil {
		return "", fmt.Errorf("writing game config: %w", err)
	}
	log.Printf("[Config] Created game config at %s", gameConfig)
	return gameConfig, nil
}

// RemoveGameConfig deletes a game's config file if present.
func RemoveGameConfig(configPath string) error {
	if configPath == "" {
		return nil
	}
	if err := os.Remove(configPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing game config: %w", err)
	}
	return nil
}
