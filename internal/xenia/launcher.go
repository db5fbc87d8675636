package xenia

import (
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"syscall"
	"time"
)

var (
	ErrAlreadyRunning   = errors.New("game is already running")
	ErrWinePrefixNotSet = errors.New("wine prefix not configured")
	ErrSpawnFailed      = errors.New("xenia failed to start")
)

const (
	defaultSpawnGrace    = 1 * time.Second
	defaultSweepInterval = 30 * time.Second

	// exit code recorded when a process vanishes without reporting one
	exitCodeUnknown = -1
)

// GameRecord is the slice of a stored game the launcher needs.
type GameRecord struct {
	GameID  string
	Path    string
	Variant string
	Config  string // optional game-specific config file
}

// Store is the persistence surface the launcher depends on. Mutations are
// fire-and-forget: in-process session state is authoritative and is always
// updated before the store is told.
type Store interface {
	GameRecord(gameID string) (GameRecord, error)
	ExecutablePath(variant Variant) (string, error)
	LaunchOptions(gameID string) []string
	WinePrefix() string
	MarkRunning(gameID string)
	MarkExited(gameID string, exitCode int)
	AddPlaytime(gameID string, seconds int)
}

// LaunchOptions control a single launch request.
type LaunchOptions struct {
	Variant  string `json:"variant"`
	Windowed bool   `json:"windowed"`
}

// ExitHandler is called exactly once per session after exit handling.
type ExitHandler func(gameID string, exitCode int, playtime time.Duration)

type session struct {
	gameID  string
	process *os.Process
	started time.Time
}

// Launcher owns the set of running Xenia sessions. At most one session per
// game exists at any time.
type Launcher struct {
	store  Store
	hostOS string

	spawnGrace    time.Duration
	sweepInterval time.Duration

	mu       sync.Mutex
	sessions map[string]*session

	onExit ExitHandler

	stop     chan struct{}
	stopOnce sync.Once
}

// NewLauncher creates a Launcher and starts its background liveness sweep.
func NewLauncher(store Store) *Launcher {
	l := &Launcher{
		store:         store,
		hostOS:        runtime.GOOS,
		spawnGrace:    defaultSpawnGrace,
		sweepInterval: defaultSweepInterval,
		sessions:      make(map[string]*session),
		stop:          make(chan struct{}),
	}
	go l.sweep()
	return l
}

// SetExitHandler registers a callback invoked after each session's exit
// handling. Must be set before the first launch.
func (l *Launcher) SetExitHandler(h ExitHandler) {
	l.onExit = h
}

// Launch starts Xenia against the game's image and tracks the session.
// A second launch for a running game returns ErrAlreadyRunning.
func (l *Launcher) Launch(gameID string, opts LaunchOptions) error {
	log.Printf("[Launcher] Launching game %s (variant=%q windowed=%v)", gameID, opts.Variant, opts.Windowed)

	game, err := l.store.GameRecord(gameID)
	if err != nil {
		return fmt.Errorf("game %s: %w", gameID, err)
	}

	variantName := opts.Variant
	if variantName == "" {
		variantName = game.Variant
	}
	variant, err := ParseVariant(variantName)
	if err != nil {
		return err
	}

	exePath, err := l.store.ExecutablePath(variant)
	if err != nil {
		return err
	}

	l.mu.Lock()
	_, running := l.sessions[gameID]
	l.mu.Unlock()
	if running {
		log.Printf("[Launcher] Game %s is already running", gameID)
		return ErrAlreadyRunning
	}

	args, err := l.buildArgs(game, opts, exePath, variant)
	if err != nil {
		return err
	}

	cmd, err := l.command(exePath, args)
	if err != nil {
		return err
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("spawning xenia: %w", err)
	}

	// Give the process a moment to fall over before calling the launch good.
	time.Sleep(l.spawnGrace)
	if !processAlive(cmd.Process) {
		go cmd.Wait()
		return ErrSpawnFailed
	}

	s := &session{gameID: gameID, process: cmd.Process, started: time.Now()}
	l.mu.Lock()
	if _, exists := l.sessions[gameID]; exists {
		// Lost a launch race for the same game; the first session wins.
		l.mu.Unlock()
		cmd.Process.Kill()
		go cmd.Wait()
		return ErrAlreadyRunning
	}
	l.sessions[gameID] = s
	l.mu.Unlock()

	l.store.MarkRunning(gameID)

	go func() {
		err := cmd.Wait()
		code := 0
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				code = exitErr.ExitCode()
			} else {
				code = exitCodeUnknown
			}
		}
		l.handleExit(gameID, code)
	}()

	return nil
}

// buildArgs assembles the Xenia argument vector for a launch.
func (l *Launcher) buildArgs(game GameRecord, opts LaunchOptions, exePath string, variant Variant) ([]string, error) {
	absPath, err := filepath.Abs(game.Path)
	if err != nil {
		return nil, fmt.Errorf("resolving game path: %w", err)
	}
	args := []string{absPath}

	if opts.Windowed {
		args = append(args, "--fullscreen=false")
	}

	if configPath := l.resolveConfig(game, exePath, variant); configPath != "" {
		args = append(args, "--config", configPath)
	}

	args = append(args, l.store.LaunchOptions(game.GameID)...)
	return args, nil
}

// resolveConfig finds the config file to pass to Xenia. A game-specific
// config wins over the variant's shared config; missing files fall through.
func (l *Launcher) resolveConfig(game GameRecord, exePath string, variant Variant) string {
	if game.Config != "" {
		if path, err := filepath.Abs(game.Config); err == nil && fileExists(path) {
			return path
		}
		log.Printf("[Launcher] Game config not found: %s", game.Config)
	}
	if path, err := VariantConfigPath(exePath, variant); err == nil && fileExists(path) {
		return path
	}
	return ""
}

// command builds the exec.Cmd, routing through Wine on non-Windows hosts.
func (l *Launcher) command(exePath string, args []string) (*exec.Cmd, error) {
	if l.hostOS == "windows" {
		return exec.Command(exePath, args...), nil
	}
	prefix := l.store.WinePrefix()
	if prefix == "" {
		return nil, ErrWinePrefixNotSet
	}
	cmd := exec.Command("wine", append([]string{exePath}, args...)...)
	cmd.Env = append(os.Environ(), "WINEPREFIX="+prefix)
	return cmd, nil
}

// handleExit is the single exit path for a session, whether triggered by the
// process's own exit or by a failed sweep probe. Removing the session first
// makes a second trigger observe "already removed" and no-op.
func (l *Launcher) handleExit(gameID string, exitCode int) {
	l.mu.Lock()
	s, ok := l.sessions[gameID]
	if !ok {
		l.mu.Unlock()
		return
	}
	delete(l.sessions, gameID)
	l.mu.Unlock()

	playtime := time.Since(s.started)
	log.Printf("[Launcher] Game %s exited with code %d after %s", gameID, exitCode, playtime.Round(time.Second))

	l.store.AddPlaytime(gameID, int(playtime.Seconds()))
	l.store.MarkExited(gameID, exitCode)

	if l.onExit != nil {
		l.onExit(gameID, exitCode, playtime)
	}
}

// sweep probes every tracked session on a fixed interval so that processes
// which vanish without an exit notification still get reaped.
func (l *Launcher) sweep() {
	ticker := time.NewTicker(l.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.checkSessions()
		}
	}
}

func (l *Launcher) checkSessions() {
	l.mu.Lock()
	snapshot := make([]*session, 0, len(l.sessions))
	for _, s := range l.sessions {
		snapshot = append(snapshot, s)
	}
	l.mu.Unlock()

	for _, s := range snapshot {
		if !processAlive(s.process) {
			l.handleExit(s.gameID, exitCodeUnknown)
		}
	}
}

// Terminate signals the tracked process to die. It does not wait for exit;
// exit handling runs when the process is actually reaped.
func (l *Launcher) Terminate(gameID string) bool {
	l.mu.Lock()
	s, ok := l.sessions[gameID]
	l.mu.Unlock()
	if !ok {
		return false
	}

	log.Printf("[Launcher] Terminating game %s", gameID)
	if err := s.process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		log.Printf("[Launcher] Error terminating game %s: %v", gameID, err)
		return false
	}
	return true
}

// TerminateAll signals every tracked session.
func (l *Launcher) TerminateAll() {
	for _, gameID := range l.RunningGames() {
		l.Terminate(gameID)
	}
}

// IsRunning reports whether a session exists for the game.
func (l *Launcher) IsRunning(gameID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.sessions[gameID]
	return ok
}

// RunningGames returns the ids of all tracked sessions.
func (l *Launcher) RunningGames() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := make([]string, 0, len(l.sessions))
	for id := range l.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Uptime returns seconds since the session started, or 0 if not running.
func (l *Launcher) Uptime(gameID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.sessions[gameID]
	if !ok {
		return 0
	}
	return int(time.Since(s.started).Seconds())
}

// Close stops the sweep and terminates every tracked session.
func (l *Launcher) Close() {
	l.stopOnce.Do(func() { close(l.stop) })
	l.TerminateAll()
}

// processAlive probes a process with a zero-effect signal.
func processAlive(p *os.Process) bool {
	if p == nil {
		return false
	}
	err := p.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	if errors.Is(err, os.ErrProcessDone) || errors.Is(err, syscall.ESRCH) {
		return false
	}
	// EPERM and friends mean the process exists but is out of reach.
	return true
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
