package watch

import (
	"log"
	"path/filepath"
	"sync/atomic"

	"github.com/conduit-lang/izruna/engine/rules"
)

// StoreWatcher watches the directories holding the rule, metarule,
// and exception files and, on a debounced change, rebuilds the store
// and atomically swaps it into active, keeping the previous store in
// service if the rebuild fails.
type StoreWatcher struct {
	fw      *FileWatcher
	current atomic.Pointer[rules.Store]

	rulesPath, metarulesPath, exceptionsPath string
}

// NewStoreWatcher builds a StoreWatcher over the three authored
// files, seeding it with an already-loaded initial store.
func NewStoreWatcher(rulesPath, metarulesPath, exceptionsPath string, initial *rules.Store) (*StoreWatcher, error) {
	sw := &StoreWatcher{
		rulesPath:      rulesPath,
		metarulesPath:  metarulesPath,
		exceptionsPath: exceptionsPath,
	}
	sw.current.Store(initial)

	dirs := uniqueDirs(rulesPath, metarulesPath, exceptionsPath)
	patterns := []string{filepath.Base(rulesPath), filepath.Base(metarulesPath), filepath.Base(exceptionsPath)}

	fw, err := NewFileWatcher(dirs, patterns, nil, sw.onChange)
	if err != nil {
		return nil, err
	}
	sw.fw = fw
	return sw, nil
}

// Start begins watching.
func (sw *StoreWatcher) Start() error { return sw.fw.Start() }

// Stop stops watching.
func (sw *StoreWatcher) Stop() error { return sw.fw.Stop() }

// Store returns the currently active rule store.
func (sw *StoreWatcher) Store() *rules.Store { return sw.current.Load() }

// Reload forces an immediate rebuild-and-swap, independent of the
// file watcher's debounce — used by the admin reload endpoint so an
// operator doesn't have to wait out the debounce window or touch the
// files to confirm a fix took effect. Unlike the file-watcher path, a
// failed reload is returned to the caller rather than only logged.
func (sw *StoreWatcher) Reload() error {
	next, err := sw.rebuild()
	if err != nil {
		return err
	}
	sw.current.Store(next)
	log.Printf("[watch] rule store reloaded (%d rules)", len(next.Rules))
	return nil
}

func (sw *StoreWatcher) rebuild() (*rules.Store, error) {
	return rules.LoadStore(sw.rulesPath, sw.metarulesPath, sw.exceptionsPath)
}

func (sw *StoreWatcher) onChange(_ []string) error {
	next, err := sw.rebuild()
	if err != nil {
		log.Printf("[watch] rule store reload failed, keeping previous store: %v", err)
		return nil
	}
	sw.current.Store(next)
	log.Printf("[watch] rule store reloaded (%d rules)", len(next.Rules))
	return nil
}

func uniqueDirs(paths ...string) []string {
	seen := make(map[string]struct{}, len(paths))
	var dirs []string
	for _, p := range paths {
		d := filepath.Dir(p)
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		dirs = append(dirs, d)
	}
	return dirs
}
