package artwork

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

const defaultBaseURL = "http://download.xbox.com/content/images"

// Paths holds the on-disk locations of a game's downloaded artwork.
type Paths struct {
	Boxart string `json:"boxart"`
	Icon   string `json:"icon"`
}

// Downloader fetches boxart and icons from the Xbox content CDN into a
// per-game directory.
type Downloader struct {
	client  *http.Client
	baseURL string
	dir     string
}

// DownloaderOption configures a Downloader.
type DownloaderOption func(*Downloader)

// WithBaseURL sets a custom CDN base URL (useful for testing).
func WithBaseURL(baseURL string) DownloaderOption {
	return func(d *Downloader) {
		d.baseURL = baseURL
	}
}

// NewDownloader creates a Downloader storing artwork under dir.
func NewDownloader(dir string, opts ...DownloaderOption) *Downloader {
	d := &Downloader{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: defaultBaseURL,
		dir:     dir,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Download fetches whatever artwork is addressable for the game. A missing
// media id just skips the icon; a failed boxart fetch fails the call.
func (d *Downloader) Download(gameID, mediaID string) (Paths, error) {
	if gameID == "" {
		return Paths{}, fmt.Errorf("no game id to address artwork with")
	}

	gameDir := filepath.Join(d.dir, gameID)
	if err := os.MkdirAll(gameDir, 0755); err != nil {
		return Paths{}, fmt.Errorf("creating artwork directory: %w", err)
	}

	var paths Paths

	boxartURL := fmt.Sprintf("%s/66acd000-77fe-1000-9115-d802%s/1033/boxartlg.jpg", d.baseURL, gameID)
	boxartPath := filepath.Join(gameDir, "boxart.jpg")
	if err := d.downloadFile(boxartURL, boxartPath); err != nil {
		return Paths{}, fmt.Errorf("downloading boxart for %s: %w", gameID, err)
	}
	paths.Boxart = boxartPath
	log.Printf("[Artwork] Downloaded boxart for game %s", gameID)

	if mediaID != "" {
		iconURL := fmt.Sprintf("%s/%s/icon.png", d.baseURL, mediaID)
		iconPath := filepath.Join(gameDir, "icon.png")
		if err := d.downloadFile(iconURL, iconPath); err != nil {
			log.Printf("[Artwork] No icon for game %s: %v", gameID, err)
		} else {
			paths.Icon = iconPath
		}
	}

	return paths, nil
}

func (d *Downloader) downloadFile(rawURL, path string) error {
	resp, err := d.client.Get(rawURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		os.Remove(path)
		return err
	}
	return nil
}

// Remove deletes all downloaded artwork for a game.
func (d *Downloader) Remove(gameID string) error {
	if gameID == "" {
		return nil
	}
	return os.RemoveAll(filepath.Join(d.dir, gameID))
}
