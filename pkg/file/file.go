// Package file provides an aviator.Source backed by a local JSON or YAML
// file. The file contents are cached in memory and refreshed on fsnotify
// events, so polling never touches the disk while the file is watched.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/zoobzio/aviator"
)

// Source serves readings from a watched file.
type Source struct {
	path   string
	codec  aviator.Codec
	legacy bool

	mu      sync.RWMutex
	data    []byte
	readErr error
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// Option configures a Source.
type Option func(*Source)

// WithCodec overrides the codec picked from the file extension.
func WithCodec(codec aviator.Codec) Option {
	return func(s *Source) {
		s.codec = codec
	}
}

// WithLegacySchema reads the early {"random_number": n} payload.
func WithLegacySchema() Option {
	return func(s *Source) {
		s.legacy = true
	}
}

// New creates a Source for path. Until Watch is called, every Fetch reads
// the file directly.
func New(path string, opts ...Option) *Source {
	s := &Source{
		path:  filepath.Clean(path),
		codec: aviator.CodecForPath(path),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Watch loads the file and keeps the cache current until ctx is done or
// Close is called. The parent directory is watched so that editors which
// replace the file by rename are followed.
func (s *Source) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch file %s: %w", s.path, err)
	}

	s.mu.Lock()
	if s.watcher != nil {
		s.mu.Unlock()
		watcher.Close()
		return fmt.Errorf("already watching %s", s.path)
	}
	s.watcher = watcher
	s.done = make(chan struct{})
	s.mu.Unlock()

	s.reload()
	go s.loop(ctx, watcher, s.done)
	return nil
}

func (s *Source) loop(ctx context.Context, watcher *fsnotify.Watcher, done chan struct{}) {
	defer close(done)
	defer watcher.Close()
	// Once unwatched, Fetch reads the file directly again.
	defer func() {
		s.mu.Lock()
		if s.watcher == watcher {
			s.watcher = nil
			s.data, s.readErr = nil, nil
		}
		s.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != s.path {
				continue
			}

			// Remove and Rename reload too, so a deleted file turns into a
			// read error instead of stale contents.
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			s.reload()

		case _, ok := <-watcher.Errors:
			if !ok {
				return
			}
			// Continue watching despite errors
		}
	}
}

// reload replaces the cache with the current file contents. A failed read
// is kept as the error for the next Fetch; the cached bytes are dropped so a
// deleted file is not served forever.
func (s *Source) reload() {
	data, err := os.ReadFile(s.path)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data, s.readErr = data, err
}

// Close stops watching and waits for the watch goroutine to exit.
func (s *Source) Close() error {
	s.mu.Lock()
	watcher, done := s.watcher, s.done
	s.mu.Unlock()
	if watcher == nil {
		return nil
	}
	err := watcher.Close()
	<-done
	return err
}

// Fetch parses the cached file contents, or the file itself before Watch.
func (s *Source) Fetch(ctx context.Context) (aviator.Reading, error) {
	if err := ctx.Err(); err != nil {
		return aviator.Reading{}, aviator.Fail("file", aviator.StageRequest, err)
	}

	s.mu.RLock()
	watching := s.watcher != nil
	data, err := s.data, s.readErr
	s.mu.RUnlock()

	if !watching {
		data, err = os.ReadFile(s.path)
	}
	if err != nil {
		return aviator.Reading{}, aviator.Fail("file", aviator.StageRequest, err)
	}

	var reading aviator.Reading
	if s.legacy {
		reading, err = aviator.ParseLegacyReading(s.codec, data)
	} else {
		reading, err = aviator.ParseReading(s.codec, data)
	}
	if err != nil {
		return aviator.Reading{}, aviator.Fail("file", aviator.StageDecode, err)
	}
	return reading, nil
}

// Ensure Source implements aviator.Source.
var _ aviator.Source = (*Source)(nil)
