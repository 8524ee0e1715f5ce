package inline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ReadFileFunc reads a file by absolute or working-directory relative path.
type ReadFileFunc func(path string) ([]byte, error)

// DefaultCacheSize is the number of SQL files a ContentCache keeps.
const DefaultCacheSize = 512

// ContentCache holds SQL file contents across Transform calls, keyed by
// resolved path. It is opt-in: the owner must invalidate it between builds
// (Purge) or when a file changes (Invalidate). Safe for concurrent use.
type ContentCache struct {
	entries *lru.Cache[string, string]
}

// NewContentCache creates a cache holding at most size files.
func NewContentCache(size int) (*ContentCache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	entries, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("create content cache: %w", err)
	}
	return &ContentCache{entries: entries}, nil
}

// Get returns the cached content for path.
func (c *ContentCache) Get(path string) (string, bool) {
	return c.entries.Get(filepath.Clean(path))
}

// Add stores content for path.
func (c *ContentCache) Add(path, content string) {
	c.entries.Add(filepath.Clean(path), content)
}

// Invalidate drops path from the cache.
func (c *ContentCache) Invalidate(path string) {
	c.entries.Remove(filepath.Clean(path))
}

// Purge drops every entry.
func (c *ContentCache) Purge() {
	c.entries.Purge()
}

// Len returns the number of cached files.
func (c *ContentCache) Len() int {
	return c.entries.Len()
}

// resourceLoader resolves and reads SQL files for one Transform call.
// Results, including failures, are remembered for the duration of the call so
// repeated references read once and warn once.
type resourceLoader struct {
	dir      string
	read     ReadFileFunc
	cache    *ContentCache
	contents map[string]string
	failures map[string]error
	order    []string
}

func newResourceLoader(fileID string, read ReadFileFunc, cache *ContentCache) *resourceLoader {
	if read == nil {
		read = os.ReadFile
	}
	return &resourceLoader{
		dir:      filepath.Dir(stripQuery(fileID)),
		read:     read,
		cache:    cache,
		contents: make(map[string]string),
		failures: make(map[string]error),
	}
}

// resolve returns the path p resolved against the importing file's directory.
func (l *resourceLoader) resolve(p string) string {
	p = filepath.FromSlash(p)
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(l.dir, p)
}

// load returns the content of p. The second result is true the first time a
// given resolved path fails, so callers warn once per path.
func (l *resourceLoader) load(p string) (string, bool, error) {
	resolved := l.resolve(p)
	if content, ok := l.contents[resolved]; ok {
		return content, false, nil
	}
	if err, ok := l.failures[resolved]; ok {
		return "", false, err
	}

	content, err := l.readResource(resolved)
	if err != nil {
		l.failures[resolved] = err
		return "", true, err
	}
	l.contents[resolved] = content
	l.order = append(l.order, resolved)
	return content, false, nil
}

func (l *resourceLoader) readResource(resolved string) (string, error) {
	if l.cache != nil {
		if content, ok := l.cache.Get(resolved); ok {
			return content, nil
		}
	}

	data, err := l.read(resolved)
	if err != nil {
		return "", &ResourceError{Path: resolved, Err: err}
	}
	if !utf8.Valid(data) {
		return "", &ResourceError{Path: resolved, Err: errors.New("file is not valid UTF-8")}
	}

	content := string(data)
	if l.cache != nil {
		l.cache.Add(resolved, content)
	}
	return content, nil
}

// dependencies returns the resolved paths that were read successfully, in
// first-use order.
func (l *resourceLoader) dependencies() []string {
	return l.order
}
