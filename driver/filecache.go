package driver

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// FileCache keeps parsed password files in memory and drops an entry as soon
// as fsnotify reports a change to its file. Parent directories are watched so
// that editors replacing a file by rename are seen too.
type FileCache struct {
	mu      sync.RWMutex
	entries map[string]map[string]string
	gen     map[string]uint64
	dirs    map[string]bool
	read    func(path string) (map[string]string, error)

	watcher *fsnotify.Watcher
	logger  *slog.Logger
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewFileCache starts the watcher goroutine. Close stops it.
func NewFileCache(logger *slog.Logger) (*FileCache, error) {
	if logger == nil {
		logger = slog.Default()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	c := &FileCache{
		entries: make(map[string]map[string]string),
		gen:     make(map[string]uint64),
		dirs:    make(map[string]bool),
		read:    readPasswordFile,
		watcher: w,
		logger:  logger,
		done:    make(chan struct{}),
	}
	c.wg.Add(1)
	go c.run()
	return c, nil
}

// Load returns the parsed entries of path, reading the file on a cache miss.
// A read that overlaps an invalidation of the same path is returned but not
// cached. The returned map must not be modified.
func (c *FileCache) Load(path string) (map[string]string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	entries, ok := c.entries[abs]
	gen := c.gen[abs]
	c.mu.RUnlock()
	if ok {
		return entries, nil
	}

	c.watchDir(filepath.Dir(abs))
	entries, err = c.read(abs)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.gen[abs] == gen {
		c.entries[abs] = entries
	}
	c.mu.Unlock()
	return entries, nil
}

// Invalidate drops the cached copy of path.
func (c *FileCache) Invalidate(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}
	c.mu.Lock()
	delete(c.entries, abs)
	c.gen[abs]++
	c.mu.Unlock()
}

// Close stops watching and waits for the watcher goroutine to exit.
func (c *FileCache) Close() error {
	select {
	case <-c.done:
		return nil
	default:
	}
	close(c.done)
	err := c.watcher.Close()
	c.wg.Wait()
	return err
}

func (c *FileCache) watchDir(dir string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dirs[dir] {
		return
	}
	if err := c.watcher.Add(dir); err != nil {
		c.logger.Warn("password file directory not watched", "dir", dir, "error", err)
		return
	}
	c.dirs[dir] = true
}

func (c *FileCache) run() {
	defer c.wg.Done()
	for {
		select {
		case <-c.done:
			return
		case ev, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				c.Invalidate(ev.Name)
				c.logger.Debug("password file changed", "path", ev.Name, "op", ev.Op.String())
			}
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			c.logger.Warn("password file watcher error", "error", err)
		}
	}
}

func readPasswordFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parsePasswordFile(f)
}

// parsePasswordFile reads "user:hash" lines. Blank lines and lines starting
// with '#' are skipped; the first entry of a user wins.
func parsePasswordFile(r io.Reader) (map[string]string, error) {
	entries := make(map[string]string)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		user, hash, ok := strings.Cut(line, ":")
		if !ok || user == "" {
			continue
		}
		if _, dup := entries[user]; !dup {
			entries[user] = hash
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func isNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
