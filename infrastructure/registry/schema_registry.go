package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"cmseditor/application/ports"
	"cmseditor/domain/core/aggregates"
	pkgerrors "cmseditor/pkg/errors"
)

// occurs accepts a number or "unbounded"
type occurs struct {
	value int
	set   bool
}

func (o *occurs) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: occurrence must be a number or unbounded", node.Line)
	}
	if node.Value == "unbounded" {
		o.value, o.set = aggregates.Unbounded, true
		return nil
	}
	n, err := strconv.Atoi(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: occurrence must be a number or unbounded", node.Line)
	}
	o.value, o.set = n, true
	return nil
}

type elementFile struct {
	Name      string        `yaml:"name"`
	Type      string        `yaml:"type"`
	MinOccurs occurs        `yaml:"minOccurs"`
	MaxOccurs occurs        `yaml:"maxOccurs"`
	Options   []elementFile `yaml:"options"`
}

func (e elementFile) def() aggregates.ElementDef {
	d := aggregates.ElementDef{
		Name:      e.Name,
		Type:      aggregates.ElementType(e.Type),
		MinOccurs: e.MinOccurs.value,
		MaxOccurs: 1,
	}
	if d.Type == "" {
		d.Type = aggregates.ElementText
	}
	if e.MaxOccurs.set {
		d.MaxOccurs = e.MaxOccurs.value
	}
	for _, o := range e.Options {
		d.Options = append(d.Options, o.def())
	}
	return d
}

// schemaFile is the YAML layout of one xml content schema
type schemaFile struct {
	Name     string        `yaml:"name"`
	Elements []elementFile `yaml:"elements"`
}

// SchemaRegistry holds the xml content schemas of a directory of YAML
// files
type SchemaRegistry struct {
	dir    string
	logger *zap.Logger

	mu       sync.RWMutex
	schemas  map[string]*aggregates.Schema
	onReload []func()
}

// NewSchemaRegistry loads dir. An empty dir name yields an empty registry.
func NewSchemaRegistry(dir string, logger *zap.Logger) *SchemaRegistry {
	r := &SchemaRegistry{dir: dir, logger: logger, schemas: map[string]*aggregates.Schema{}}
	r.Reload()
	return r
}

var _ ports.SchemaRegistry = (*SchemaRegistry)(nil)

// Reload reads the directory again; invalid schemas are logged and skipped
func (r *SchemaRegistry) Reload() {
	schemas := map[string]*aggregates.Schema{}
	if r.dir != "" {
		files, err := yamlFiles(r.dir)
		if err != nil {
			r.logger.Error("Failed to list schemas", zap.String("dir", r.dir), zap.Error(err))
		}
		for _, path := range files {
			s, err := loadSchemaFile(path)
			if err == nil && schemas[s.Name()] != nil {
				err = fmt.Errorf("schema %s defined twice", s.Name())
			}
			if err != nil {
				r.logger.Warn("Ignoring invalid schema", zap.String("file", path), zap.Error(err))
				continue
			}
			schemas[s.Name()] = s
		}
	}

	r.mu.Lock()
	r.schemas = schemas
	callbacks := append([]func(){}, r.onReload...)
	r.mu.Unlock()

	r.logger.Info("Schema registry loaded", zap.String("dir", r.dir), zap.Int("schemas", len(schemas)))
	for _, fn := range callbacks {
		fn()
	}
}

func loadSchemaFile(path string) (*aggregates.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f schemaFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	defs := make([]aggregates.ElementDef, 0, len(f.Elements))
	for _, e := range f.Elements {
		defs = append(defs, e.def())
	}
	return aggregates.NewSchema(f.Name, defs)
}

// OnReload registers fn to run after every reload
func (r *SchemaRegistry) OnReload(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onReload = append(r.onReload, fn)
}

// Get returns the schema called name
func (r *SchemaRegistry) Get(name string) (*aggregates.Schema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[name]
	if !ok {
		return nil, pkgerrors.NewNotFoundError(fmt.Sprintf("schema %s", name))
	}
	return s, nil
}

// Names lists the known schemas in order
func (r *SchemaRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.schemas))
	for n := range r.schemas {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Watch reloads the registry whenever the directory changes
func (r *SchemaRegistry) Watch() (*DirWatcher, error) {
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
