package config

import (
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceDelay coalesces editor write bursts into one reload.
const debounceDelay = 100 * time.Millisecond

// Watch reloads the configuration file whenever it changes and hands the
// result to onChange. Parse failures are logged and skipped, keeping the
// previous configuration in effect. The returned stop function releases the
// watcher.
func Watch(path string, onChange func(*Config)) (stop func(), err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory rather than the file so atomic-rename saves keep
	// being observed.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		debounce := time.NewTimer(0)
		<-debounce.C // drain initial timer

		pending := false
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != filepath.Base(path) {
					continue
				}
				pending = true
				debounce.Reset(debounceDelay)

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Println("[Config] Watcher error:", err)

			case <-debounce.C:
				if !pending {
					continue
				}
				pending = false
				cfg, err := LoadFile(path)
				if err != nil {
					log.Printf("[Config] Reload failed: %v", err)
					continue
				}
				onChange(cfg)

			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		watcher.Close()
	}, nil
}
