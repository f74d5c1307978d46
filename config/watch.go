package config

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
)

// Watch calls onChange when one of the config files is written or
// replaced. The directories are watched, so editors doing rename-replace
// are seen. The returned function stops watching.
func (r *Registry) Watch(onChange func(file string)) (stop func(), err error) {
	files := r.ConfigFiles()
	if len(files) == 0 {
		return func() {}, nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "config watcher")
	}

	wanted := make(map[string]bool)
	dirs := make(map[string]bool)
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			watcher.Close()
			return nil, errors.Wrap(err, "config watcher")
		}
		wanted[filepath.Clean(abs)] = true
		dirs[filepath.Dir(abs)] = true
	}
	for d := range dirs {
		if err := watcher.Add(d); err != nil {
			watcher.Close()
			return nil, errors.Wrapf(err, "watch %s", d)
		}
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !wanted[filepath.Clean(ev.Name)] {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				jww.INFO.Printf("config file %s changed (%s)", ev.Name, ev.Op)
				onChange(ev.Name)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				jww.ERROR.Printf("config watcher: %v", err)
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			watcher.Close()
		})
	}, nil
}
