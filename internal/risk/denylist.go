package risk

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"solsniper/internal/logger"
)

// Denylist is a hot-reloaded set of creator addresses we refuse to trade
// against. The backing file is a YAML list of base58 strings.
type Denylist struct {
	path string

	mu      sync.RWMutex
	entries map[string]struct{}

	watcher *fsnotify.Watcher
}

// NewDenylist loads the file and starts watching it for edits. A missing
// path yields an empty list (the gate still runs its other checks).
func NewDenylist(path string) (*Denylist, error) {
	d := &Denylist{path: strings.TrimSpace(path), entries: map[string]struct{}{}}
	if d.path == "" {
		return d, nil
	}
	if err := d.reload(); err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("denylist watcher: %w", err)
	}
	// Watch the directory: editors replace files, which drops a file watch.
	if err := watcher.Add(filepath.Dir(d.path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("denylist watch %s: %w", d.path, err)
	}
	d.watcher = watcher
	go d.watch()
	return d, nil
}

func (d *Denylist) reload() error {
	raw, err := os.ReadFile(d.path)
	if err != nil {
		return fmt.Errorf("denylist read %s: %w", d.path, err)
	}
	var list []string
	if err := yaml.Unmarshal(raw, &list); err != nil {
		return fmt.Errorf("denylist parse %s: %w", d.path, err)
	}
	entries := make(map[string]struct{}, len(list))
	for _, addr := range list {
		addr = strings.TrimSpace(addr)
		if addr != "" {
			entries[addr] = struct{}{}
		}
	}
	d.mu.Lock()
	d.entries = entries
	d.mu.Unlock()
	logger.Infof("[RISK] denylist loaded entries=%d path=%s", len(entries), d.path)
	return nil
}

func (d *Denylist) watch() {
	for {
		select {
		case evt, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(evt.Name) != filepath.Clean(d.path) {
				continue
			}
			if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if err := d.reload(); err != nil {
				logger.Errorf("[RISK] denylist reload failed: %v", err)
			}
		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			logger.Warnf("[RISK] denylist watcher error: %v", err)
		}
	}
}

// Contains reports whether the creator address is denied.
func (d *Denylist) Contains(addr string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.entries[addr]
	return ok
}

func (d *Denylist) Close() error {
	if d.watcher != nil {
		return d.watcher.Close()
	}
	return nil
}
