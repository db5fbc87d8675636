package main

import (
	"xenman/internal/data"
	"xenman/internal/xenia"
)

// GetSettings returns the persisted application settings.
func (a *App) GetSettings() data.Settings {
	return a.store.Settings()
}

// SaveSettings replaces the persisted application settings.
func (a *App) SaveSettings(settings data.Settings) error {
	return a.store.SetSettings(settings)
}

// GetCompatibilitySettings returns the tracker lookup configuration.
func (a *App) GetCompatibilitySettings() data.CompatibilitySettings {
	return a.store.CompatibilitySettings()
}

// SaveCompatibilitySettings replaces the tracker configuration and rebuilds
// the checker so the new endpoint and TTL take effect. In-flight checks
// finish against the old checker.
func (a *App) SaveCompatibilitySettings(settings data.CompatibilitySettings) error {
	if err := a.store.SetCompatibilitySettings(settings); err != nil {
		return err
	}
	checker := a.newChecker()
	a.mu.Lock()
	a.compat = checker
	a.mu.Unlock()
	return nil
}

// AvailableVariants lists the Xenia variants installed under the configured
// install root.
func (a *App) AvailableVariants() []string {
	install := xenia.NewInstall(a.store.Settings().XeniaPath)
	var names []string
	for _, v := range install.AvailableVariants() {
		names = append(names, string(v))
	}
	return names
}

// ValidateXeniaPath reports whether a directory holds at least one Xenia
// variant executable.
func (a *App) ValidateXeniaPath(path string) bool {
	return xenia.NewInstall(path).Validate() == nil
}
