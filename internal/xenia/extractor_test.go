package xenia

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

// writeScript creates a fake emulator executable for extraction tests
func writeScript(t *testing.T, dir, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("Script-based process tests not supported on Windows")
	}
	path := filepath.Join(dir, "xenia_canary.exe")
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatalf("Failed to write script: %v", err)
	}
	return path
}

// TestExtract_FindsTitleInLog tests that identity markers written to the log
// resolve the extraction before the hard timeout
func TestExtract_FindsTitleInLog(t *testing.T) {
	dir := t.TempDir()
	exePath := writeScript(t, dir, `printf 'Title name: Halo 3\nTitle ID: 4D5307E6\n' > xenia.log
sleep 10`)

	e := NewExtractor(WithTimeout(3*time.Second), WithPollInterval(20*time.Millisecond))

	start := time.Now()
	info, err := e.Extract("/tmp/halo3.iso", exePath)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if time.Since(start) >= 3*time.Second {
		t.Error("Extraction should resolve before the timeout")
	}

	if info.Title != "Halo 3" {
		t.Errorf("Expected title 'Halo 3', got %q", info.Title)
	}
	if info.GameID != "4D5307E6" {
		t.Errorf("Expected game id '4D5307E6', got %q", info.GameID)
	}
	if info.MediaID != "" {
		t.Errorf("Expected empty media id, got %q", info.MediaID)
	}
}

// TestExtract_TimeoutResolvesEmpty tests that a silent emulator degrades to
// an empty result at the timeout boundary instead of an error
func TestExtract_TimeoutResolvesEmpty(t *testing.T) {
	dir := t.TempDir()
	exePath := writeScript(t, dir, "sleep 10")

	e := NewExtractor(WithTimeout(200*time.Millisecond), WithPollInterval(20*time.Millisecond))

	start := time.Now()
	info, err := e.Extract("/tmp/unknown.iso", exePath)
	if err != nil {
		t.Fatalf("Extract should not fail on timeout: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 1*time.Second {
		t.Errorf("Extraction took %v, expected to stop at the timeout", elapsed)
	}

	if info.Title != "" || info.GameID != "" || info.MediaID != "" {
		t.Errorf("Expected empty result, got %+v", info)
	}
}

// TestExtract_ProcessExitResolvesEarly tests that the emulator dying cuts the
// race short instead of waiting out the timeout
func TestExtract_ProcessExitResolvesEarly(t *testing.T) {
	dir := t.TempDir()
	exePath := writeScript(t, dir, "exit 1")

	e := NewExtractor(WithTimeout(5*time.Second), WithPollInterval(20*time.Millisecond))

	start := time.Now()
	info, err := e.Extract("/tmp/broken.iso", exePath)
	if err != nil {
		t.Fatalf("Extract should not fail on process exit: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Extraction took %v, expected to resolve on process exit", elapsed)
	}

	if info.Title != "" {
		t.Errorf("Expected empty result, got %+v", info)
	}
}

// TestExtract_RemovesStaleLog tests that a leftover log from an earlier run
// is never mistaken for fresh output
func TestExtract_RemovesStaleLog(t *testing.T) {
	dir := t.TempDir()
	exePath := writeScript(t, dir, "sleep 10")

	stale := filepath.Join(dir, "xenia.log")
	if err := os.WriteFile(stale, []byte("Title name: Stale Game\n"), 0644); err != nil {
		t.Fatalf("Failed to write stale log: %v", err)
	}

	e := NewExtractor(WithTimeout(200*time.Millisecond), WithPollInterval(20*time.Millisecond))
	info, err := e.Extract("/tmp/fresh.iso", exePath)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if info.Title == "Stale Game" {
		t.Error("Stale log content leaked into the result")
	}
}

// TestExtract_SpawnError tests that an unspawnable emulator surfaces an error
func TestExtract_SpawnError(t *testing.T) {
	e := NewExtractor(WithTimeout(time.Second))
	if _, err := e.Extract("/tmp/game.iso", filepath.Join(t.TempDir(), "missing.exe")); err == nil {
		t.Error("Expected spawn error for missing executable")
	}
}

// TestReadLogInto tests marker scanning and first-occurrence-wins merging
func TestReadLogInto(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "xenia.log")
	content := `i> F800000C Initializing...
i> F800000C Title name: Halo 3
i> F800000C Title ID: 4D5307E6
i> F800000C Media ID: 285EA5B0
i> F800000C Title name: Second Title Ignored
`
	if err := os.WriteFile(logPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write log: %v", err)
	}

	var info ExtractionResult
	readLogInto(logPath, &info)

	if info.Title != "Halo 3" {
		t.Errorf("Expected title 'Halo 3', got %q", info.Title)
	}
	if info.GameID != "4D5307E6" {
		t.Errorf("Expected game id '4D5307E6', got %q", info.GameID)
	}
	if info.MediaID != "285EA5B0" {
		t.Errorf("Expected media id '285EA5B0', got %q", info.MediaID)
	}
}

// TestMarkerValue tests value parsing after a marker
func TestMarkerValue(t *testing.T) {
	tests := []struct {
		line   string
		marker string
		want   string
		ok     bool
	}{
		{"Title name: Halo 3", "Title name:", "Halo 3", true},
		{"prefix Title name:   spaced   ", "Title name:", "spaced", true},
		{"Title name:", "Title name:", "", false},
		{"no marker here", "Title name:", "", false},
		{"Title name: Fable II: The Lost Chapters", "Title name:", "Fable II: The Lost Chapters", true},
	}

	for _, tt := range tests {
		got, ok := markerValue(tt.line, tt.marker)
		if ok != tt.ok || got != tt.want {
			t.Errorf("markerValue(%q) = (%q, %v), want (%q, %v)", tt.line, got, ok, tt.want, tt.ok)
		}
	}
}
