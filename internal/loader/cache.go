package loader

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Modules is the process-wide cache of loaded test modules.
var Modules = NewCache()

// Cache records which test modules were loaded from which files. It holds
// no module contents: discovery always reads the files from disk again.
type Cache struct {
	mu      sync.Mutex
	modules map[string]string
}

func NewCache() *Cache {
	return &Cache{modules: make(map[string]string)}
}

func (c *Cache) store(path, module string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.modules[dirKey(path)] = module
}

// Purge forgets every module loaded from a file under root and returns how
// many were removed.
func (c *Cache) Purge(root string) int {
	root = dirKey(root)

	c.mu.Lock()
	defer c.mu.Unlock()

	purged := 0
	for path := range c.modules {
		if within(root, path) {
			delete(c.modules, path)
			purged++
		}
	}
	return purged
}

// Loaded returns the files modules were loaded from, sorted.
func (c *Cache) Loaded() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	paths := make([]string, 0, len(c.modules))
	for path := range c.modules {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
