// Package memory holds in-process implementations of the persistence ports
// used for local runs and tests
package memory

import (
	"context"
	"sync"

	"cmseditor/domain/core/entities"
	"cmseditor/domain/core/valueobjects"
	pkgerrors "cmseditor/pkg/errors"
)

// ResourceRepository is a map backed virtual file system
type ResourceRepository struct {
	mu     sync.RWMutex
	byPath map[string]*entities.Resource
}

// NewResourceRepository creates an empty repository
func NewResourceRepository() *ResourceRepository {
	return &ResourceRepository{byPath: make(map[string]*entities.Resource)}
}

func (r *ResourceRepository) GetByPath(ctx context.Context, path string) (*entities.Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.byPath[path]
	if !ok {
		return nil, pkgerrors.ErrResourceNotFound.Clone().WithDetail("path", path)
	}
	return res.Snapshot(), nil
}

func (r *ResourceRepository) GetByID(ctx context.Context, id valueobjects.ResourceID) (*entities.Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, res := range r.byPath {
		if res.ID().Equals(id) {
			return res.Snapshot(), nil
		}
	}
	return nil, pkgerrors.ErrResourceNotFound.Clone().WithDetail("id", id.String())
}

func (r *ResourceRepository) Save(ctx context.Context, resource *entities.Resource) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byPath[resource.Path()] = resource.Snapshot()
	return nil
}

func (r *ResourceRepository) Delete(ctx context.Context, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byPath[path]; !ok {
		return pkgerrors.ErrResourceNotFound.Clone().WithDetail("path", path)
	}
	delete(r.byPath, path)
	return nil
}

func (r *ResourceRepository) Exists(ctx context.Context, path string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byPath[path]
	return ok, nil
}
