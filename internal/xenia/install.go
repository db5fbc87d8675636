package xenia

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrPathNotConfigured  = errors.New("xenia path not configured")
	ErrExecutableNotFound = errors.New("xenia executable not found")
)

// Variant identifies a Xenia build flavor.
type Variant string

const (
	VariantCanary  Variant = "canary"
	VariantStable  Variant = "stable"
	VariantNetplay Variant = "netplay"
)

// variantFolders maps a variant to its folder under the install root.
var variantFolders = map[Variant]string{
	VariantCanary:  "Xenia Canary",
	VariantStable:  "Xenia Stable",
	VariantNetplay: "Xenia Netplay",
}

// ParseVariant normalizes a user-supplied variant name.
func ParseVariant(s string) (Variant, error) {
	switch Variant(strings.ToLower(s)) {
	case VariantCanary:
		return VariantCanary, nil
	case VariantStable:
		return VariantStable, nil
	case VariantNetplay:
		return VariantNetplay, nil
	case "":
		return VariantCanary, nil
	}
	return "", fmt.Errorf("unknown variant: %s", s)
}

// ConfigFileName returns the shared config file each variant writes next to
// its executable.
func ConfigFileName(variant Variant) (string, error) {
	switch variant {
	case VariantCanary:
		return "xenia-canary.config.toml", nil
	case VariantNetplay:
		return "xenia-canary-netplay.config.toml", nil
	case VariantStable:
		return "xenia.config.toml", nil
	}
	return "", fmt.Errorf("unknown variant: %s", variant)
}

// Install locates Xenia executables under a user-configured install root.
type Install struct {
	Root string
}

// NewInstall creates an Install rooted at the configured Xenia directory.
func NewInstall(root string) *Install {
	return &Install{Root: root}
}

// matchesVariant reports whether an executable file name belongs to a variant.
func matchesVariant(fileName string, variant Variant) bool {
	name := strings.ToLower(fileName)
	if !strings.HasSuffix(name, ".exe") {
		return false
	}
	switch variant {
	case VariantCanary:
		return strings.Contains(name, "canary") && !strings.Contains(name, "netplay")
	case VariantNetplay:
		return strings.Contains(name, "netplay")
	case VariantStable:
		return name == "xenia.exe"
	}
	return false
}

// findExecutable searches dir recursively for the variant's executable.
func findExecutable(dir string, variant Variant) string {
	var found string
	filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable subtree, keep walking siblings
		}
		if found != "" {
			return filepath.SkipAll
		}
		if !d.IsDir() && matchesVariant(d.Name(), variant) {
			found = path
			return filepath.SkipAll
		}
		return nil
	})
	return found
}

// ExecutablePath resolves the executable for a variant, or an error if the
// install root is unset or the variant is not installed.
func (i *Install) ExecutablePath(variant Variant) (string, error) {
	if i.Root == "" {
		return "", ErrPathNotConfigured
	}
	folder, ok := variantFolders[variant]
	if !ok {
		return "", fmt.Errorf("unknown variant: %s", variant)
	}
	if path := findExecutable(filepath.Join(i.Root, folder), variant); path != "" {
		return path, nil
	}
	return "", fmt.Errorf("%w for variant %s", ErrExecutableNotFound, variant)
}

// AvailableVariants returns the variants that have an executable installed.
func (i *Install) AvailableVariants() []Variant {
	var variants []Variant
	for _, v := range []Variant{VariantCanary, VariantStable, VariantNetplay} {
		if _, err := i.ExecutablePath(v); err == nil {
			variants = append(variants, v)
		}
	}
	return variants
}

// Validate checks that the root exists, is a directory and holds at least one
// variant executable.
func (i *Install) Validate() error {
	if i.Root == "" {
		return ErrPathNotConfigured
	}
	info, err := os.Stat(i.Root)
	if err != nil {
		return fmt.Errorf("invalid xenia path: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("xenia path is not a directory: %s", i.Root)
	}
	if len(i.AvailableVariants()) == 0 {
		return ErrExecutableNotFound
	}
	return nil
}

// VariantConfigPath returns the shared config path for the variant whose
// executable lives at exePath. The file may or may not exist.
func VariantConfigPath(exePath string, variant Variant) (string, error) {
	name, err := ConfigFileName(variant)
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(exePath), name), nil
}

// LogPath returns the log artifact Xenia writes in its working directory.
func LogPath(exeDir string) string {
	return filepath.Join(exeDir, "xenia.log")
}
