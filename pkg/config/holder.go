package config

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"sync"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/calvinalkan/cms/pkg/schema"
)

// Holder provides thread-safe access to the config with hot reload support.
//
// A failed reload keeps the previous config.
type Holder struct {
	mu       sync.RWMutex
	config   *Config
	input    LoadInput
	path     string
	logger   zerolog.Logger
	watcher  *fsnotify.Watcher
	onChange []func(*Config)
	onReload []func(error)
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewHolder loads the initial config. Later reloads read the same file.
func NewHolder(in LoadInput, logger zerolog.Logger) (*Holder, error) {
	cfg, err := Load(in)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	absPath, err := filepath.Abs(cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}

	in.ConfigPath = absPath

	return &Holder{
		config: cfg,
		input:  in,
		path:   absPath,
		logger: logger,
		stopCh: make(chan struct{}),
	}, nil
}

// Get returns the current config.
func (h *Holder) Get() *Config {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.config
}

// Path returns the absolute path of the watched config file.
func (h *Holder) Path() string { return h.path }

// Reload reads the config file again. On error the old config stays active.
func (h *Holder) Reload() error {
	h.logger.Info().Str("path", h.path).Msg("reloading configuration")

	newCfg, err := Load(h.input)
	if err != nil {
		h.logger.Error().Err(err).Msg("config reload failed, keeping old config")

		err = fmt.Errorf("reload config: %w", err)
		h.notifyReload(err)

		return err
	}

	h.mu.Lock()
	oldCfg := h.config
	h.config = newCfg
	listeners := slices.Clone(h.onChange)
	h.mu.Unlock()

	h.logChanges(oldCfg, newCfg)

	for _, fn := range listeners {
		fn(newCfg)
	}

	h.notifyReload(nil)

	h.logger.Info().Msg("configuration reloaded successfully")

	return nil
}

// OnChange registers a callback run after every successful reload.
func (h *Holder) OnChange(fn func(*Config)) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.onChange = append(h.onChange, fn)
}

// OnReload registers a callback run after every reload attempt with its
// error, or nil on success.
func (h *Holder) OnReload(fn func(error)) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.onReload = append(h.onReload, fn)
}

func (h *Holder) notifyReload(err error) {
	h.mu.RLock()
	listeners := slices.Clone(h.onReload)
	h.mu.RUnlock()

	for _, fn := range listeners {
		fn(err)
	}
}

// WatchFile starts watching the config file. Writes and re-creates trigger
// a reload.
func (h *Holder) WatchFile() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	// Watch the directory: editors save by renaming a new file over the old.
	if err := watcher.Add(filepath.Dir(h.path)); err != nil {
		_ = watcher.Close()

		return fmt.Errorf("watch directory: %w", err)
	}

	h.watcher = watcher

	go h.watchLoop()

	h.logger.Info().Str("path", h.path).Msg("watching config file for changes")

	return nil
}

// WatchSignals reloads on SIGHUP until [Holder.Stop].
func (h *Holder) WatchSignals() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)

	go func() {
		for {
			select {
			case <-sigCh:
				h.logger.Info().Msg("received SIGHUP, reloading config")

				if err := h.Reload(); err != nil {
					h.logger.Error().Err(err).Msg("SIGHUP reload failed")
				}
			case <-h.stopCh:
				signal.Stop(sigCh)

				return
			}
		}
	}()
}

// Stop ends file and signal watching. Safe to call more than once.
func (h *Holder) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopCh)

		if h.watcher != nil {
			_ = h.watcher.Close()
		}
	})
}

func (h *Holder) watchLoop() {
	filename := filepath.Base(h.path)

	for {
		select {
		case event, ok := <-h.watcher.Events:
			if !ok {
				return
			}

			if filepath.Base(event.Name) != filename {
				continue
			}

			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				h.logger.Debug().
					Str("event", event.Op.String()).
					Str("file", event.Name).
					Msg("config file changed")

				if err := h.Reload(); err != nil {
					h.logger.Error().Err(err).Msg("file watch reload failed")
				}
			}

		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}

			h.logger.Error().Err(err).Msg("file watcher error")

		case <-h.stopCh:
			return
		}
	}
}

func (h *Holder) logChanges(oldCfg, newCfg *Config) {
	if oldCfg.RepoID != newCfg.RepoID {
		h.logger.Info().Str("old", oldCfg.RepoID).Str("new", newCfg.RepoID).Msg("repo changed")
	}

	if oldCfg.ContentRoot != newCfg.ContentRoot {
		h.logger.Info().Str("old", oldCfg.ContentRoot).Str("new", newCfg.ContentRoot).Msg("content root changed")
	}

	logNameDiff(h.logger, "static", oldCfg.StaticNames(), newCfg.StaticNames())
	logNameDiff(h.logger, "collection", oldCfg.CollectionNames(), newCfg.CollectionNames())

	for _, name := range newCfg.StaticNames() {
		before, ok := oldCfg.Static(name)
		after, _ := newCfg.Static(name)

		if ok && !schema.Equal(before.Shape, after.Shape) {
			h.logger.Info().Str("static", name).Msg("static schema changed")
		}
	}

	for _, name := range newCfg.CollectionNames() {
		before, ok := oldCfg.Collection(name)
		after, _ := newCfg.Collection(name)

		if ok && !schema.Equal(before.Shape, after.Shape) {
			h.logger.Info().Str("collection", name).Msg("collection schema changed")
		}
	}
}

func logNameDiff(log zerolog.Logger, kind string, before, after []string) {
	for _, name := range after {
		if !slices.Contains(before, name) {
			log.Info().Str(kind, name).Msg(kind + " added")
		}
	}

	for _, name := range before {
		if !slices.Contains(after, name) {
			log.Info().Str(kind, name).Msg(kind + " removed")
		}
	}
}
