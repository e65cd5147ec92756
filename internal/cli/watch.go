package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/calvinalkan/cms/pkg/cms"
	"github.com/calvinalkan/cms/pkg/config"
	"github.com/calvinalkan/cms/pkg/content"
)

const watchDebounce = 100 * time.Millisecond

func watchCmd(a *app) *Command {
	flags := newFlags("watch")
	debounce := flags.Duration("debounce", watchDebounce, "Wait this long after the last change before checking")

	return &Command{
		Flags: flags,
		Usage: "watch [flags]",
		Short: "Re-check content on every change",
		Long: `Run check, then watch the content directories and the config file and run
it again after every change. Config changes (file writes or SIGHUP) reload
the schemas first; a broken config keeps the previous one. Stops on
interrupt.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if err := wantArgs(args); err != nil {
				return err
			}

			return a.watch(ctx, o, *debounce)
		},
	}
}

func (a *app) watch(ctx context.Context, o *IO, debounce time.Duration) error {
	holder, err := config.NewHolder(a.loadInput(), a.log)
	if err != nil {
		return err
	}
	defer holder.Stop()

	reloaded := make(chan *config.Config, 1)

	holder.OnReload(a.metrics.ObserveReload)
	holder.OnChange(func(cfg *config.Config) {
		// Keep only the newest config.
		for {
			select {
			case reloaded <- cfg:
				return
			default:
			}

			select {
			case <-reloaded:
			default:
			}
		}
	})

	if err := holder.WatchFile(); err != nil {
		return err
	}

	holder.WatchSignals()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	cfg := holder.Get()

	api, err := a.build(cfg)
	if err != nil {
		return err
	}

	watched := a.watchContent(watcher, nil, cfg)

	a.runCheck(ctx, o, api)
	o.Println("watching", cfg.ContentRoot)

	timer := time.NewTimer(debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case newCfg := <-reloaded:
			next, err := a.build(newCfg)
			if err != nil {
				o.Println("config rejected:", err)
				continue
			}

			api = next
			watched = a.watchContent(watcher, watched, newCfg)

			o.Println("config reloaded")
			timer.Reset(debounce)

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if !isContentEvent(event) {
				continue
			}

			a.log.Debug().Str("event", event.Op.String()).Str("file", event.Name).Msg("content changed")

			// A new subdirectory may be a collection that did not exist yet.
			if event.Has(fsnotify.Create) {
				watched = a.watchContent(watcher, watched, holder.Get())
			}

			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			a.log.Error().Err(err).Msg("content watcher error")

		case <-timer.C:
			a.runCheck(ctx, o, api)
		}
	}
}

func (a *app) runCheck(ctx context.Context, o *IO, api *cms.API) {
	report, err := api.Check(ctx)
	if err != nil {
		return
	}

	a.metrics.CheckProblems.Set(float64(len(report.Problems)))

	for _, p := range report.Problems {
		o.Println("problem:", p)
	}

	o.Printf("checked %d documents, %d problems\n", report.Checked, len(report.Problems))
}

// watchContent makes watcher follow the directories cfg reads from and
// returns the new watch set. Directories that do not exist are skipped; the
// content root itself is watched once it exists, so they are picked up
// when created.
func (a *app) watchContent(watcher *fsnotify.Watcher, current map[string]bool, cfg *config.Config) map[string]bool {
	want := map[string]bool{}

	for _, dir := range contentDirs(cfg) {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			want[dir] = true
		} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
			a.log.Warn().Err(err).Str("dir", dir).Msg("cannot watch directory")
		}
	}

	for dir := range current {
		if !want[dir] {
			_ = watcher.Remove(dir)
		}
	}

	for dir := range want {
		if current[dir] {
			continue
		}

		if err := watcher.Add(dir); err != nil {
			a.log.Warn().Err(err).Str("dir", dir).Msg("cannot watch directory")
			delete(want, dir)
		}
	}

	return want
}

func contentDirs(cfg *config.Config) []string {
	layout := cfg.Layout()
	root := layout.ContentRoot

	dirs := []string{
		root,
		filepath.Join(root, layout.StaticDir),
		filepath.Join(root, layout.CollectionsDir),
	}

	for _, name := range cfg.CollectionNames() {
		c, _ := cfg.Collection(name)
		dirs = append(dirs, filepath.Join(root, layout.CollectionPath(c.Dir)))
	}

	return dirs
}

func isContentEvent(event fsnotify.Event) bool {
	if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
		return false
	}

	base := filepath.Base(event.Name)
	if base == content.LockFileName || strings.HasPrefix(base, ".") {
		return false
	}

	// Directory events have no extension.
	return filepath.Ext(base) == content.DocumentExt || filepath.Ext(base) == ""
}
