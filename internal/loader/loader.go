// Package loader discovers the test suite of a package directory.
//
// Script modules are read from disk on every discovery. Modules written in Go
// cannot be reloaded by a running process, so they are registered for a
// directory once and included every time that directory is discovered.
package loader

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"hosttest/internal/collector"
	"hosttest/internal/script"
	"hosttest/internal/testerror"
	"hosttest/pkg/hosttest/core"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Loader discovers suites, tagging every case with its execution mode.
type Loader struct {
	deferred         bool
	conditionTimeout time.Duration
	log              *logrus.Logger
	cache            *Cache
}

type Option func(*Loader)

// WithConditionTimeout sets the default timeout of waiting script steps.
func WithConditionTimeout(d time.Duration) Option {
	return func(l *Loader) {
		l.conditionTimeout = d
	}
}

// WithCache replaces the process-wide module cache.
func WithCache(c *Cache) Option {
	return func(l *Loader) {
		l.cache = c
	}
}

func New(deferred bool, log *logrus.Logger, opts ...Option) *Loader {
	if log == nil {
		log = logrus.StandardLogger()
	}
	l := &Loader{
		deferred: deferred,
		log:      log,
		cache:    Modules,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Loader) mode() core.Mode {
	if l.deferred {
		return core.ModeDeferred
	}
	return core.ModeImmediate
}

// Purge forgets every module previously loaded from under root.
func (l *Loader) Purge(root string) int {
	return l.cache.Purge(root)
}

// Discover returns the suite found under root. Modules loaded from root
// earlier are purged first, so the suite always reflects what is on disk.
// Errors never abort discovery: each becomes a failing collection case.
func (l *Loader) Discover(root, pattern string) *core.Suite {
	if purged := l.Purge(root); purged > 0 {
		l.log.Debugf("Purged %d test modules loaded from '%s'", purged, root)
	}

	suite := core.NewSuite(filepath.Base(root))
	if _, err := filepath.Match(pattern, ""); err != nil {
		suite.Add(newCollectionCase(root, errors.Wrapf(err, "invalid pattern '%s'", pattern)))
		// matches no file, registered Go modules are still collected
		pattern = ""
	}
	l.discoverDir(suite, root, pattern)
	return suite
}

func (l *Loader) discoverDir(suite *core.Suite, dir, pattern string) {
	registrants := registered(dir)

	entries, err := os.ReadDir(dir)
	if err != nil {
		// A package made only of Go modules needs no directory on disk.
		if !errors.Is(err, fs.ErrNotExist) || len(registrants) == 0 {
			suite.Add(newCollectionCase(dir, errors.Wrap(err, "failed to read test directory")))
			return
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())

		if entry.IsDir() {
			if strings.HasPrefix(entry.Name(), ".") {
				continue
			}
			sub := core.NewSuite(entry.Name())
			l.discoverDir(sub, path, pattern)
			if len(sub.Tests()) > 0 {
				suite.Add(sub)
			}
			continue
		}

		if matched, err := filepath.Match(pattern, entry.Name()); err != nil || !matched {
			continue
		}

		module, err := script.Load(path, script.Options{
			Mode:             l.mode(),
			ConditionTimeout: l.conditionTimeout,
		})
		if err != nil {
			l.log.WithError(err).Warnf("Failed to collect '%s'", path)
			suite.Add(newCollectionCase(path, err))
			continue
		}

		l.cache.store(path, module.Name)
		l.log.Debugf("Loaded test module '%s' from '%s' (%d cases)", module.Name, path, len(module.Tests))
		suite.Add(core.NewSuite(module.Name, module.Tests...))
	}

	for _, registrant := range registrants {
		collected, err := collector.CollectTestCases(registrant)
		if err != nil {
			suite.Add(newCollectionCase(filepath.Join(dir, registrant.Name()), err))
			continue
		}
		suite.Add(l.tag(collected))
	}
}

// tag returns a copy of s whose cases report the loader's mode.
func (l *Loader) tag(s *core.Suite) *core.Suite {
	out := core.NewSuite(s.Name())
	out.SetFixture(s.Fixture())
	for _, t := range s.Tests() {
		switch c := t.(type) {
		case *core.Suite:
			out.Add(l.tag(c))
		case core.DeferrableCase:
			out.Add(&modedDeferrable{DeferrableCase: c, mode: l.mode()})
		case core.TestCase:
			out.Add(&modedCase{TestCase: c, mode: l.mode()})
		default:
			out.Add(t)
		}
	}
	return out
}

type modedCase struct {
	core.TestCase
	mode core.Mode
}

func (c *modedCase) Mode() core.Mode {
	return c.mode
}

type modedDeferrable struct {
	core.DeferrableCase
	mode core.Mode
}

func (c *modedDeferrable) Mode() core.Mode {
	return c.mode
}

// collectionCase is the stand-in for a module that could not be loaded.
type collectionCase struct {
	err *testerror.CollectionError
}

func newCollectionCase(path string, err error) *collectionCase {
	return &collectionCase{err: &testerror.CollectionError{Path: path, Err: err}}
}

func (c *collectionCase) Name() string {
	return "collection:" + c.err.Path
}

func (c *collectionCase) Run(core.CaseContext) error {
	return c.err
}

// Registry of Go test modules by directory.
var (
	registryMu sync.Mutex
	registry   = make(map[string][]core.TestRegistrant)
)

// Register includes r in every discovery of dir.
func Register(dir string, r core.TestRegistrant) {
	registryMu.Lock()
	defer registryMu.Unlock()
	dir = dirKey(dir)
	registry[dir] = append(registry[dir], r)
}

// Unregister removes every module registered for dir.
func Unregister(dir string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(registry, dirKey(dir))
}

func registered(dir string) []core.TestRegistrant {
	registryMu.Lock()
	defer registryMu.Unlock()
	return append([]core.TestRegistrant(nil), registry[dirKey(dir)]...)
}

func dirKey(dir string) string {
	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}
	return filepath.Clean(dir)
}
