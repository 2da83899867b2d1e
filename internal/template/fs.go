package template

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/abelbrown/decoder/internal/logging"
)

//go:embed defaults/*.json
var defaultFS embed.FS

// FSStore reads one JSON template per file from a filesystem. Templates are
// loaded once, ordered by file name, and kept until Reload.
type FSStore struct {
	fsys fs.FS

	mu        sync.RWMutex
	templates []Template
	loaded    bool
}

var _ Store = (*FSStore)(nil)

// NewFS creates a store over fsys. Files matching *.json at the root are
// templates.
func NewFS(fsys fs.FS) *FSStore {
	return &FSStore{fsys: fsys}
}

// NewDir creates a store over a directory on disk.
func NewDir(dir string) *FSStore {
	return NewFS(os.DirFS(dir))
}

// Defaults returns a store over the built-in templates.
func Defaults() *FSStore {
	sub, err := fs.Sub(defaultFS, "defaults")
	if err != nil {
		// embed paths are fixed at build time
		panic(err)
	}
	return NewFS(sub)
}

// Templates returns all templates in file-name order.
func (s *FSStore) Templates(ctx context.Context) ([]Template, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	if s.loaded {
		t := s.templates
		s.mu.RUnlock()
		return t, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		t, err := s.load()
		if err != nil {
			return nil, err
		}
		s.templates = t
		s.loaded = true
	}
	return s.templates, nil
}

// Patterns returns the expression patterns for a category.
func (s *FSStore) Patterns(ctx context.Context, category string) ([]string, error) {
	t, err := s.Templates(ctx)
	if err != nil {
		return nil, err
	}
	return patternsFor(t, category), nil
}

// Suggestion returns the advice for scene, preferring the sub-scene whose
// patterns best match text.
func (s *FSStore) Suggestion(ctx context.Context, scene, text string) (Suggestion, error) {
	t, err := s.Templates(ctx)
	if err != nil {
		return Suggestion{}, err
	}
	return suggestionFor(t, scene, text)
}

// Reload drops the cached templates; the next call rereads the filesystem.
func (s *FSStore) Reload() {
	s.mu.Lock()
	s.templates = nil
	s.loaded = false
	s.mu.Unlock()
}

// load reads every template file. A malformed file is skipped and logged so
// one bad template does not take the others down.
func (s *FSStore) load() ([]Template, error) {
	files, err := fs.Glob(s.fsys, "*.json")
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}

	out := make([]Template, 0, len(files))
	for _, name := range files {
		data, err := fs.ReadFile(s.fsys, name)
		if err != nil {
			logging.Warn("Template unreadable", "file", name, "error", err)
			continue
		}
		var t Template
		if err := json.Unmarshal(data, &t); err != nil {
			logging.Warn("Template malformed", "file", name, "error", err)
			continue
		}
		t.Name = strings.TrimSuffix(path.Base(name), ".json")
		out = append(out, t)
	}
	logging.Debug("Templates loaded", "count", len(out))
	return out, nil
}
