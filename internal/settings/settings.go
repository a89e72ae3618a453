// Package settings holds the per-user notification preferences. The
// original dashboard injects these from the user profile; here they live
// in a small JSON file next to the process and are picked up live when
// the file changes.
package settings

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"go.uber.org/zap"
)

// Preferences mirror the notification switches on the user profile.
type Preferences struct {
	SoundEnabled     bool `json:"soundEnabled"`
	PopupEnabled     bool `json:"popupEnabled"`
	DayBeforeEnabled bool `json:"dayBeforeEnabled"`
}

func DefaultPreferences() Preferences {
	return Preferences{
		SoundEnabled:     true,
		PopupEnabled:     true,
		DayBeforeEnabled: true,
	}
}

const schemaText = `{
	"type": "object",
	"properties": {
		"soundEnabled": {"type": "boolean"},
		"popupEnabled": {"type": "boolean"},
		"dayBeforeEnabled": {"type": "boolean"}
	},
	"additionalProperties": false
}`

// Service loads preferences from a file and serves the latest valid
// snapshot. A missing file means defaults; an invalid file keeps the
// previous snapshot.
type Service struct {
	path   string
	schema *jsonschema.Schema
	logger *zap.Logger

	mu    sync.Mutex
	prefs Preferences

	watcher *fsnotify.Watcher
	done    chan struct{}
}

func NewService(path string, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	schema, err := compileSchema()
	if err != nil {
		return nil, err
	}
	s := &Service{
		path:   strings.TrimSpace(path),
		schema: schema,
		logger: logger,
		prefs:  DefaultPreferences(),
	}
	if s.path != "" {
		if err := s.reload(); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("settings file rejected, using defaults", zap.String("path", s.path), zap.Error(err))
		}
	}
	return s, nil
}

func compileSchema() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(schemaText))
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("settings.schema.json", doc); err != nil {
		return nil, err
	}
	return compiler.Compile("settings.schema.json")
}

func (s *Service) Current() Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefs
}

// reload re-reads the file, validates it against the schema and swaps the
// snapshot. Unknown keys and non-boolean values are rejected wholesale.
func (s *Service) reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("parse settings: %w", err)
	}
	if err := s.schema.Validate(doc); err != nil {
		return fmt.Errorf("validate settings: %w", err)
	}
	prefs := DefaultPreferences()
	if fields, ok := doc.(map[string]any); ok {
		if v, ok := fields["soundEnabled"].(bool); ok {
			prefs.SoundEnabled = v
		}
		if v, ok := fields["popupEnabled"].(bool); ok {
			prefs.PopupEnabled = v
		}
		if v, ok := fields["dayBeforeEnabled"].(bool); ok {
			prefs.DayBeforeEnabled = v
		}
	}
	s.mu.Lock()
	s.prefs = prefs
	s.mu.Unlock()
	return nil
}

// Watch starts picking up file edits until Close. Watching the directory
// rather than the file survives editors that replace-on-save.
func (s *Service) Watch() error {
	if s.path == "" {
		return nil
	}
	if s.watcher != nil {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return err
	}
	s.watcher = watcher
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		target := filepath.Clean(s.path)
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if err := s.reload(); err != nil {
					s.logger.Warn("settings reload failed, keeping previous", zap.Error(err))
					continue
				}
				s.logger.Info("settings reloaded", zap.String("path", s.path))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("settings watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}

func (s *Service) Close() error {
	if s.watcher == nil {
		return nil
	}
	err := s.watcher.Close()
	<-s.done
	s.watcher = nil
	return err
}
