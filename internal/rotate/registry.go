package rotate

import (
	"slices"
	"sync"
)

// Registry maps query option names to criterion and filter factories. The
// first registration of a key wins, so built-ins cannot be replaced.
type Registry struct {
	mu       sync.RWMutex
	criteria map[string]CriterionFactory
	filters  map[string]FilterFactory
}

// NewRegistry returns a registry holding the built-in criteria and filters.
func NewRegistry() *Registry {
	return &Registry{
		criteria: builtinCriteria(),
		filters:  builtinFilters(),
	}
}

// RegisterCriterion adds a criterion under key. It reports false, and changes
// nothing, when key is already taken.
func (r *Registry) RegisterCriterion(key string, f CriterionFactory) bool {
	if key == "" || f == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.criteria[key]; ok {
		return false
	}
	r.criteria[key] = f
	return true
}

// RegisterFilter adds a filter under key, first registration wins.
func (r *Registry) RegisterFilter(key string, f FilterFactory) bool {
	if key == "" || f == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.filters[key]; ok {
		return false
	}
	r.filters[key] = f
	return true
}

func (r *Registry) criterion(key string) (CriterionFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.criteria[key]
	return f, ok
}

func (r *Registry) filter(key string) (FilterFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.filters[key]
	return f, ok
}

// CriteriaKeys lists registered criterion names, sorted.
func (r *Registry) CriteriaKeys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.criteria))
	for k := range r.criteria {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// FilterKeys lists registered filter names, sorted.
func (r *Registry) FilterKeys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.filters))
	for k := range r.filters {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
