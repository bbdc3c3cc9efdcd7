package run

import (
	"context"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"hosttest/internal/suite"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type WatchCmd struct {
	Package  string        `arg:"" name:"package-dir" help:"Directory of the package to test" type:"existingdir"`
	Filter   []string      `short:"f" help:"Only run cases whose dotted name starts with one of these"`
	Debounce time.Duration `help:"Quiet period after a change before running again" default:"200ms"`

	suite.Flags `embed:""`
}

func (cmd *WatchCmd) Run(ctx suite.Context) error {
	log := ctx.Logger()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create file watcher")
	}
	defer watcher.Close()

	interrupted, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	for {
		// Settings are read again on every run, they may have changed too.
		pkg, err := cmd.Flags.Resolve(cmd.Package)
		if err != nil {
			log.WithError(err).Error("Failed to resolve the package")
		} else {
			if err := watchTree(watcher, pkg, cmd.Settings); err != nil {
				return err
			}

			run, err := execute(ctx, pkg, cmd.Filter)
			if err != nil {
				return err
			}
			if err := runError(pkg, run); err != nil {
				log.Warn(err)
			}
		}

		log.Infof("Watching '%s' for changes, interrupt to stop", cmd.Package)
		if !waitForChange(interrupted, watcher, cmd.Debounce, log) {
			return nil
		}
	}
}

// watchTree adds the tests directory of pkg, its subdirectories and the
// settings file to w. Paths already watched are left alone.
func watchTree(w *fsnotify.Watcher, pkg suite.Package, settings string) error {
	watched := make(map[string]bool)
	for _, p := range w.WatchList() {
		watched[p] = true
	}

	add := func(path string) error {
		if watched[path] {
			return nil
		}
		watched[path] = true
		return w.Add(path)
	}

	// The package root catches the settings file and a tests directory that
	// is created later.
	if err := add(pkg.Root); err != nil {
		return errors.Wrapf(err, "failed to watch '%s'", pkg.Root)
	}
	if settings != "" {
		if _, err := os.Stat(settings); err == nil {
			if err := add(settings); err != nil {
				return errors.Wrapf(err, "failed to watch '%s'", settings)
			}
		}
	}

	err := filepath.WalkDir(pkg.TestsPath(), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != pkg.TestsPath() && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return add(path)
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.Wrap(err, "failed to watch the tests directory")
	}
	return nil
}

// waitForChange blocks until a file changed and no further change arrived
// for the debounce period. It returns false once ctx is done.
func waitForChange(ctx context.Context, w *fsnotify.Watcher, debounce time.Duration, log *logrus.Logger) bool {
	var quiet <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return false

		case event, ok := <-w.Events:
			if !ok {
				return false
			}
			if event.Op == fsnotify.Chmod {
				continue
			}
			log.Debugf("Change detected: %s", event)
			quiet = time.After(debounce)

		case err, ok := <-w.Errors:
			if !ok {
				return false
			}
			log.WithError(err).Warn("File watcher error")

		case <-quiet:
			return true
		}
	}
}
