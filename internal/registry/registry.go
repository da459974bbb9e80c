// Package registry holds catalog matrices indexed by id and by name at the
// same time. The session keeps two of them: the search cache and the
// download cart.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/jask/mtxshell/internal/database/repository"
)

// ErrNotFound is returned by lookups for keys the registry does not hold.
var ErrNotFound = errors.New("registry: matrix not found")

// InvariantError reports that the two indexes disagree. It is a programming
// defect and is raised with panic, never returned.
type InvariantError struct {
	ByID   int
	ByName int
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("registry: index size mismatch (by id %d, by name %d)", e.ByID, e.ByName)
}

// Registry keeps a 1:1 mapping between ids and names over one record set.
// Every method holds the lock for its whole duration, so a mutation never
// leaves one index updated and the other stale.
type Registry struct {
	mu     sync.Mutex
	byID   map[int]repository.Matrix
	byName map[string]repository.Matrix
}

func New() *Registry {
	return &Registry{
		byID:   make(map[int]repository.Matrix),
		byName: make(map[string]repository.Matrix),
	}
}

// Add inserts m. Any entry sharing m's id or m's name is dropped from both
// indexes first.
func (r *Registry) Add(m repository.Matrix) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.byID[m.ID]; ok {
		r.drop(old)
	}
	if old, ok := r.byName[m.Name]; ok {
		r.drop(old)
	}
	r.byID[m.ID] = m
	r.byName[m.Name] = m
}

func (r *Registry) GetByID(id int) (repository.Matrix, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.byID[id]
	if !ok {
		return repository.Matrix{}, fmt.Errorf("id %d: %w", id, ErrNotFound)
	}
	return m, nil
}

func (r *Registry) GetByName(name string) (repository.Matrix, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.byName[name]
	if !ok {
		return repository.Matrix{}, fmt.Errorf("name %q: %w", name, ErrNotFound)
	}
	return m, nil
}

// RemoveByID is a no-op when id is absent.
func (r *Registry) RemoveByID(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.byID[id]; ok {
		r.drop(m)
	}
}

// RemoveByName is a no-op when name is absent.
func (r *Registry) RemoveByName(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.byName[name]; ok {
		r.drop(m)
	}
}

func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.byID)
	clear(r.byName)
}

// Size returns the number of records. It panics with *InvariantError if the
// indexes ever diverge.
func (r *Registry) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size()
}

// Values returns the records ordered by id.
func (r *Registry) Values() []repository.Matrix {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]repository.Matrix, 0, r.size())
	for _, m := range r.byID {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Names returns every held name, sorted.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, r.size())
	for name := range r.byName {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) size() int {
	if len(r.byID) != len(r.byName) {
		panic(&InvariantError{ByID: len(r.byID), ByName: len(r.byName)})
	}
	return len(r.byID)
}

// drop removes m from both indexes. The by-name entry is only removed when
// it still points at m's id.
func (r *Registry) drop(m repository.Matrix) {
	delete(r.byID, m.ID)
	if cur, ok := r.byName[m.Name]; ok && cur.ID == m.ID {
		delete(r.byName, m.Name)
	}
}
