package source

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/honeycarbs/job-discovery/internal/config"
	"github.com/honeycarbs/job-discovery/internal/domain"
)

// Adapter fetches postings from one kind of job board (greenhouse, workday, ...)
type Adapter interface {
	// Name is the adapter type referenced by config.Source.Type
	Name() string

	// Fetch returns every posting the source currently lists. Malformed
	// records are skipped; an error means the source as a whole failed,
	// in which case the postings gathered so far are still returned.
	Fetch(ctx context.Context, src config.Source) ([]domain.RawPosting, error)
}

// Registry maps adapter type names to adapters
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry builds a registry, later adapters replace earlier ones with the same name
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		if a == nil {
			continue
		}
		r.adapters[strings.ToLower(a.Name())] = a
	}
	return r
}

// Register adds an adapter and fails on a duplicate type name
func (r *Registry) Register(a Adapter) error {
	key := strings.ToLower(a.Name())
	if _, ok := r.adapters[key]; ok {
		return fmt.Errorf("source: adapter %q already registered", a.Name())
	}
	r.adapters[key] = a
	return nil
}

// Lookup returns the adapter for a source type
func (r *Registry) Lookup(typ string) (Adapter, bool) {
	a, ok := r.adapters[strings.ToLower(typ)]
	return a, ok
}

// Types lists the registered type names in order
func (r *Registry) Types() []string {
	out := make([]string, 0, len(r.adapters))
	for k := range r.adapters {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
