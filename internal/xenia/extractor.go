package xenia

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const (
	defaultExtractionTimeout = 5 * time.Second
	defaultPollInterval      = 100 * time.Millisecond
)

// ExtractionResult holds whatever identity Xenia logged while loading an
// image. Any field may be empty.
type ExtractionResult struct {
	Title   string `json:"title"`
	GameID  string `json:"gameId"`
	MediaID string `json:"mediaId"`
}

// Extractor recovers a game's identity by running Xenia briefly against the
// image and polling the log it writes. Capturing the process's own output is
// unreliable under Wine, so the log artifact is the source of truth; it
// survives even if the process is killed mid-write.
type Extractor struct {
	timeout      time.Duration
	pollInterval time.Duration
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithTimeout sets the hard extraction deadline.
func WithTimeout(d time.Duration) ExtractorOption {
	return func(e *Extractor) {
		e.timeout = d
	}
}

// WithPollInterval sets the log polling cadence.
func WithPollInterval(d time.Duration) ExtractorOption {
	return func(e *Extractor) {
		e.pollInterval = d
	}
}

// NewExtractor creates an Extractor with the given options.
func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		timeout:      defaultExtractionTimeout,
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract races log discovery against the timeout and the probe process's
// own exit; whichever fires first wins and the others are torn down. It only
// errors when the probe cannot be spawned at all; an empty result is a valid
// outcome, not a failure.
func (e *Extractor) Extract(gamePath, exePath string) (ExtractionResult, error) {
	log.Printf("[Extract] Extracting game info from %s", gamePath)

	exeDir := filepath.Dir(exePath)
	logPath := LogPath(exeDir)

	// Stale log content must never be mistaken for fresh output.
	if err := os.Remove(logPath); err != nil && !os.IsNotExist(err) {
		log.Printf("[Extract] Could not remove old log: %v", err)
	}

	cmd := exec.Command(exePath, gamePath)
	cmd.Dir = exeDir
	if err := cmd.Start(); err != nil {
		return ExtractionResult{}, fmt.Errorf("spawning xenia: %w", err)
	}

	exited := make(chan struct{})
	go func() {
		cmd.Wait()
		close(exited)
	}()

	ticker := time.NewTicker(e.pollInterval)
	timeout := time.NewTimer(e.timeout)
	defer func() {
		ticker.Stop()
		timeout.Stop()
		if processAlive(cmd.Process) {
			cmd.Process.Kill()
		}
	}()

	var info ExtractionResult
	for {
		select {
		case <-ticker.C:
			readLogInto(logPath, &info)
			if info.Title != "" {
				log.Printf("[Extract] Found game info: %+v", info)
				return info, nil
			}
		case <-timeout.C:
			log.Printf("[Extract] Timeout reached for %s", gamePath)
			return info, nil
		case <-exited:
			log.Printf("[Extract] Xenia exited before extraction finished")
			return info, nil
		}
	}
}

// readLogInto scans the log artifact for identity markers, filling only
// fields that are still empty.
func readLogInto(logPath string, info *ExtractionResult) {
	content, err := os.ReadFile(logPath)
	if err != nil {
		return
	}
	for _, line := range strings.Split(string(content), "\n") {
		if info.Title == "" {
			if v, ok := markerValue(line, "Title name:"); ok {
				info.Title = v
			}
		}
		if info.GameID == "" {
			if v, ok := markerValue(line, "Title ID:"); ok {
				info.GameID = v
			}
		}
		if info.MediaID == "" {
			if v, ok := markerValue(line, "Media ID:"); ok {
				info.MediaID = v
			}
		}
	}
}

// markerValue returns the trimmed text after a "Marker:" substring.
func markerValue(line, marker string) (string, bool) {
	idx := strings.Index(line, marker)
	if idx < 0 {
		return "", false
	}
	value := strings.TrimSpace(line[idx+len(marker):])
	return value, value != ""
}
