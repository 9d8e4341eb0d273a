package feed

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/gekko3d/airspace"
)

// FileSource publishes an airspace file and every later version written to
// disk. Versions that fail to parse are logged and skipped.
type FileSource struct {
	path    string
	log     airspace.Logger
	watcher *fsnotify.Watcher
	updates chan Update
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

// NewFileSource loads path once and starts watching it. The first update is
// available on Updates immediately.
func NewFileSource(path string, log airspace.Logger) (*FileSource, error) {
	path = filepath.Clean(path)
	doc, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}
	// Editors often replace the file instead of writing it, so watch the directory.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}

	s := &FileSource{
		path:    path,
		log:     airspace.OrNop(log),
		watcher: watcher,
		updates: make(chan Update, 1),
		done:    make(chan struct{}),
	}
	s.updates <- doc.Update()

	s.wg.Add(1)
	go s.watch()
	return s, nil
}

func (s *FileSource) Updates() <-chan Update { return s.updates }

func (s *FileSource) watch() {
	defer s.wg.Done()
	defer close(s.updates)
	for {
		select {
		case <-s.done:
			return
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != s.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			s.reload()
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.log.Warnf("watch %s: %v", s.path, err)
		}
	}
}

func (s *FileSource) reload() {
	doc, err := LoadFile(s.path)
	if err != nil {
		s.log.Warnf("skipping airspace update: %v", err)
		return
	}
	up := doc.Update()
	s.log.Debugf("reloaded %s: %d entities", s.path, len(up.Snapshot))
	publishLatest(s.updates, up, s.done)
}

// Close stops watching and closes the Updates channel.
func (s *FileSource) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.watcher.Close()
		s.wg.Wait()
	})
	return err
}
