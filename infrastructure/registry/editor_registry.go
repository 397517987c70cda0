package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"cmseditor/application/ports"
	"cmseditor/domain/core/editor"
	"cmseditor/domain/core/entities"
	pkgerrors "cmseditor/pkg/errors"
)

// editorFile is the YAML layout of one editor definition
type editorFile struct {
	Name          string `yaml:"name"`
	Kind          string `yaml:"kind"`
	Widget        bool   `yaml:"widget"`
	ResourceTypes []struct {
		Type    string  `yaml:"type"`
		Ranking float64 `yaml:"ranking"`
	} `yaml:"resourceTypes"`
	UserAgents []string `yaml:"userAgents"`
}

func (f editorFile) descriptor() (editor.Descriptor, error) {
	kind, err := editor.ParseKind(f.Kind)
	if err != nil {
		return editor.Descriptor{}, err
	}
	rankings := make([]editor.Ranking, 0, len(f.ResourceTypes))
	for _, rt := range f.ResourceTypes {
		rankings = append(rankings, editor.Ranking{ResourceType: entities.ResourceType(rt.Type), Rank: rt.Ranking})
	}
	return editor.NewDescriptor(f.Name, kind, f.Widget, rankings, f.UserAgents)
}

// EditorRegistry holds the editors configured in a directory of YAML files.
// The built-in editors are used while the directory yields none.
type EditorRegistry struct {
	dir    string
	logger *zap.Logger

	mu       sync.RWMutex
	editors  []editor.Descriptor
	invalid  map[string]string
	onReload []func()
}

// NewEditorRegistry loads dir. An empty dir name selects the built-in
// editors only.
func NewEditorRegistry(dir string, logger *zap.Logger) *EditorRegistry {
	r := &EditorRegistry{dir: dir, logger: logger}
	r.Reload()
	return r
}

var _ ports.EditorRegistry = (*EditorRegistry)(nil)

// Reload reads the directory again. Files that fail to parse or validate
// are logged and left out.
func (r *EditorRegistry) Reload() {
	editors, invalid := r.load()
	if len(editors) == 0 {
		editors = editor.DefaultDescriptors()
	}

	r.mu.Lock()
	r.editors = editors
	r.invalid = invalid
	callbacks := append([]func(){}, r.onReload...)
	r.mu.Unlock()

	r.logger.Info("Editor registry loaded",
		zap.String("dir", r.dir),
		zap.Int("editors", len(editors)),
		zap.Int("invalid", len(invalid)),
	)
	for _, fn := range callbacks {
		fn()
	}
}

func (r *EditorRegistry) load() ([]editor.Descriptor, map[string]string) {
	invalid := map[string]string{}
	if r.dir == "" {
		return nil, invalid
	}

	files, err := yamlFiles(r.dir)
	if err != nil {
		r.logger.Error("Failed to list editor configuration", zap.String("dir", r.dir), zap.Error(err))
		return nil, invalid
	}

	var editors []editor.Descriptor
	seen := map[string]string{}
	for _, path := range files {
		d, err := loadEditorFile(path)
		if err == nil {
			if other, dup := seen[d.Name]; dup {
				err = fmt.Errorf("editor %s already defined in %s", d.Name, filepath.Base(other))
			}
		}
		if err != nil {
			invalid[filepath.Base(path)] = err.Error()
			r.logger.Warn("Ignoring invalid editor configuration", zap.String("file", path), zap.Error(err))
			continue
		}
		seen[d.Name] = path
		editors = append(editors, d)
	}
	return editors, invalid
}

func loadEditorFile(path string) (editor.Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return editor.Descriptor{}, err
	}
	var f editorFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return editor.Descriptor{}, fmt.Errorf("parse: %w", err)
	}
	return f.descriptor()
}

// OnReload registers fn to run after every reload
func (r *EditorRegistry) OnReload(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onReload = append(r.onReload, fn)
}

// Select returns the editor for a resource type and browser
func (r *EditorRegistry) Select(resourceType entities.ResourceType, userAgent, preferred string) (editor.Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := editor.SelectEditor(r.editors, resourceType, userAgent, preferred)
	if !ok {
		return editor.Descriptor{}, pkgerrors.NewNotFoundError(fmt.Sprintf("editor for resource type %s", resourceType))
	}
	return d, nil
}

// Editors returns every valid editor
func (r *EditorRegistry) Editors() []editor.Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]editor.Descriptor(nil), r.editors...)
}

// Invalid returns the rejected files with the reason
func (r *EditorRegistry) Invalid() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.invalid))
	for k, v := range r.invalid {
		out[k] = v
	}
	return out
}

// Watch reloads the registry whenever the directory changes. The returned
// watcher must be stopped by the caller.
func (r *EditorRegistry) Watch() (*DirWatcher, error) {
	if r.dir == "" {
		return nil, nil
	}
	w, err := NewDirWatcher(r.dir, r.Reload, r.logger)
	if err != nil {
		return nil, err
	}
	w.Start()
	return w, nil
}
